/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package groups

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/mozilla/kinto-http-go/api"
	"github.com/mozilla/kinto-http-go/api/authz"
	"github.com/mozilla/kinto-http-go/api/buckets"
	"github.com/mozilla/kinto-http-go/api/paths"
)

// A Group is a named list of principals, scoped to a bucket, which can
// itself be granted permissions as "/buckets/{bucket}/groups/{group}".
//
// https://docs.kinto-storage.org/en/stable/api/1.x/groups.html
type Group struct {
	api.Object
	Bucket *buckets.Bucket
}

func NewGroup(bucket *buckets.Bucket, id string) *Group {
	return &Group{Object: api.NewObject(bucket.Config(), id), Bucket: bucket}
}

func FromResponse(config *api.Config, r *api.Response) (*Group, error) {
	g := &Group{Object: api.NewObject(config, "")}
	if err := g.Unwrap(r); err != nil {
		return nil, err
	}
	return g, nil
}

func FromListing(config *api.Config, r *api.Response) ([]*Group, error) {
	responses, err := api.Split(r)
	if err != nil {
		return nil, err
	}
	groups := make([]*Group, len(responses))
	for i, resp := range responses {
		if groups[i], err = FromResponse(config, resp); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func ListRequest(bucket *buckets.Bucket) (*api.Request, error) {
	return plural(bucket, http.MethodGet)
}

func List(bucket *buckets.Bucket) ([]*Group, error) {
	req, err := ListRequest(bucket)
	if err != nil {
		return nil, err
	}
	resp, err := api.Paginate(bucket.Config(), req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list the groups of bucket %s", bucket.ID())
	}
	return FromListing(bucket.Config(), resp)
}

func DeleteAllRequest(bucket *buckets.Bucket) (*api.Request, error) {
	return plural(bucket, http.MethodDelete)
}

func DeleteAll(bucket *buckets.Bucket) ([]*Group, error) {
	req, err := DeleteAllRequest(bucket)
	if err != nil {
		return nil, err
	}
	resp, err := api.Paginate(bucket.Config(), req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to delete the groups of bucket %s", bucket.ID())
	}
	return FromListing(bucket.Config(), resp)
}

func plural(bucket *buckets.Bucket, method string) (*api.Request, error) {
	if bucket.ID() == "" {
		return nil, errors.Wrap(api.ErrUndefinedID, "bucket")
	}
	return api.NewRequest(method, paths.GroupList(bucket.ID())), nil
}

// Members returns the principals belonging to the group.
func (g *Group) Members() []string {
	switch raw := g.Data()["members"].(type) {
	case []string:
		return append([]string{}, raw...)
	case []interface{}:
		members := make([]string, 0, len(raw))
		for _, m := range raw {
			if member, ok := m.(string); ok {
				members = append(members, member)
			}
		}
		return members
	default:
		return []string{}
	}
}

// SetMembers replaces the principals belonging to the group. As with any
// local change, it is only sent to the server by Update or Set.
func (g *Group) SetMembers(members []string) {
	data := make(api.Document, len(g.Data())+1)
	for k, v := range g.Data() {
		data[k] = v
	}
	data["members"] = append([]string{}, members...)
	g.SetData(data)
}

func (g *Group) Path() (string, error) {
	if g.Bucket == nil || g.Bucket.ID() == "" {
		return "", errors.Wrap(api.ErrUndefinedID, "bucket of group")
	}
	if g.ID() == "" {
		return "", errors.Wrap(api.ErrUndefinedID, "group")
	}
	return paths.Group(g.Bucket.ID(), g.ID()), nil
}

func (g *Group) LoadRequest() (*api.Request, error) {
	return g.request(http.MethodGet)
}

func (g *Group) CreateRequest() (*api.Request, error) {
	if g.Bucket == nil {
		return nil, errors.Wrap(api.ErrUndefinedID, "bucket of group")
	}
	return plural(g.Bucket, http.MethodPost)
}

func (g *Group) UpdateRequest() (*api.Request, error) {
	return g.request(http.MethodPut)
}

func (g *Group) DeleteRequest() (*api.Request, error) {
	return g.request(http.MethodDelete)
}

func (g *Group) request(method string) (*api.Request, error) {
	path, err := g.Path()
	if err != nil {
		return nil, err
	}
	return api.NewRequest(method, path), nil
}

// Unwrap applies the server's copy of the group, re-parenting it under
// the bucket named by the response path.
func (g *Group) Unwrap(r *api.Response) error {
	e, err := api.NewEntity(r)
	if err != nil {
		return err
	}
	bucket, err := e.Ancestor(paths.Buckets)
	if err != nil {
		return errors.Wrapf(err, "no bucket in %s", r.Path)
	}
	if g.Bucket == nil || g.Bucket.ID() != bucket {
		g.Bucket = buckets.NewBucket(g.Config(), bucket)
	}
	g.Apply(e, authz.GroupActions...)
	return nil
}

func (g *Group) Load() error {
	return api.Load(g)
}

func (g *Group) Refresh() error {
	return api.Refresh(g)
}

func (g *Group) Create() error {
	return api.Create(g)
}

func (g *Group) Update() error {
	return api.Update(g)
}

func (g *Group) Set() error {
	return api.Set(g)
}

func (g *Group) Delete() error {
	return api.Delete(g)
}

func (g *Group) DeleteIfUnchanged() error {
	return api.DeleteIfUnchanged(g)
}
