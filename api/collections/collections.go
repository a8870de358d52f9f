/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package collections

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/mozilla/kinto-http-go/api"
	"github.com/mozilla/kinto-http-go/api/authz"
	"github.com/mozilla/kinto-http-go/api/buckets"
	"github.com/mozilla/kinto-http-go/api/paths"
)

// https://docs.kinto-storage.org/en/stable/api/1.x/collections.html
type Collection struct {
	api.Object
	Bucket *buckets.Bucket
}

func NewCollection(bucket *buckets.Bucket, name string) *Collection {
	return &Collection{Object: api.NewObject(bucket.Config(), name), Bucket: bucket}
}

func FromResponse(config *api.Config, r *api.Response) (*Collection, error) {
	c := &Collection{Object: api.NewObject(config, "")}
	if err := c.Unwrap(r); err != nil {
		return nil, err
	}
	return c, nil
}

func FromListing(config *api.Config, r *api.Response) ([]*Collection, error) {
	responses, err := api.Split(r)
	if err != nil {
		return nil, err
	}
	collections := make([]*Collection, len(responses))
	for i, resp := range responses {
		if collections[i], err = FromResponse(config, resp); err != nil {
			return nil, err
		}
	}
	return collections, nil
}

func ListRequest(bucket *buckets.Bucket) (*api.Request, error) {
	return plural(bucket, http.MethodGet)
}

// List returns every collection of the given bucket, following pagination.
func List(bucket *buckets.Bucket) ([]*Collection, error) {
	req, err := ListRequest(bucket)
	if err != nil {
		return nil, err
	}
	resp, err := api.Paginate(bucket.Config(), req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list the collections of bucket %s", bucket.ID())
	}
	return FromListing(bucket.Config(), resp)
}

func DeleteAllRequest(bucket *buckets.Bucket) (*api.Request, error) {
	return plural(bucket, http.MethodDelete)
}

// DeleteAll deletes every collection of the given bucket, and their records.
func DeleteAll(bucket *buckets.Bucket) ([]*Collection, error) {
	req, err := DeleteAllRequest(bucket)
	if err != nil {
		return nil, err
	}
	resp, err := api.Paginate(bucket.Config(), req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to delete the collections of bucket %s", bucket.ID())
	}
	return FromListing(bucket.Config(), resp)
}

func plural(bucket *buckets.Bucket, method string) (*api.Request, error) {
	if bucket == nil || bucket.ID() == "" {
		return nil, errors.Wrap(api.ErrUndefinedID, "bucket of collection")
	}
	return api.NewRequest(method, paths.CollectionList(bucket.ID())), nil
}

func (c *Collection) Path() (string, error) {
	if c.Bucket == nil || c.Bucket.ID() == "" {
		return "", errors.Wrap(api.ErrUndefinedID, "bucket of collection")
	}
	if c.ID() == "" {
		return "", errors.Wrap(api.ErrUndefinedID, "collection")
	}
	return paths.Collection(c.Bucket.ID(), c.ID()), nil
}

func (c *Collection) LoadRequest() (*api.Request, error) {
	return c.request(http.MethodGet)
}

func (c *Collection) CreateRequest() (*api.Request, error) {
	return plural(c.Bucket, http.MethodPost)
}

func (c *Collection) UpdateRequest() (*api.Request, error) {
	return c.request(http.MethodPut)
}

func (c *Collection) DeleteRequest() (*api.Request, error) {
	return c.request(http.MethodDelete)
}

// PatchRequest returns a request merging data into the collection's
// document on the server, leaving the rest of it untouched.
func (c *Collection) PatchRequest(data api.Document) (*api.Request, error) {
	req, err := c.request(http.MethodPatch)
	if err != nil {
		return nil, err
	}
	return req.WithBody(api.NewPayload(data, nil)), nil
}

func (c *Collection) request(method string) (*api.Request, error) {
	path, err := c.Path()
	if err != nil {
		return nil, err
	}
	return api.NewRequest(method, path), nil
}

// Unwrap applies the server's copy of the collection, re-parenting it
// under the bucket named by the response path.
func (c *Collection) Unwrap(r *api.Response) error {
	e, err := api.NewEntity(r)
	if err != nil {
		return err
	}
	bucket, err := e.Ancestor(paths.Buckets)
	if err != nil {
		return errors.Wrapf(err, "no bucket in %s", r.Path)
	}
	if c.Bucket == nil || c.Bucket.ID() != bucket {
		c.Bucket = buckets.NewBucket(c.Config(), bucket)
	}
	c.Apply(e, authz.CollectionActions...)
	return nil
}

func (c *Collection) Load() error {
	return api.Load(c)
}

func (c *Collection) Refresh() error {
	return api.Refresh(c)
}

func (c *Collection) Create() error {
	return api.Create(c)
}

func (c *Collection) Update() error {
	return api.Update(c)
}

func (c *Collection) Set() error {
	return api.Set(c)
}

func (c *Collection) Delete() error {
	return api.Delete(c)
}

func (c *Collection) DeleteIfUnchanged() error {
	return api.DeleteIfUnchanged(c)
}
