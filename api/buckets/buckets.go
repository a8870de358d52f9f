/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package buckets

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/mozilla/kinto-http-go/api"
	"github.com/mozilla/kinto-http-go/api/authz"
	"github.com/mozilla/kinto-http-go/api/paths"
)

// https://docs.kinto-storage.org/en/stable/api/1.x/buckets.html
type Bucket struct {
	api.Object
}

// NewBucket returns a bucket with the given id. An empty id lets the
// server pick one upon creation.
func NewBucket(config *api.Config, id string) *Bucket {
	return &Bucket{Object: api.NewObject(config, id)}
}

// FromResponse reconstructs a bucket from the response of a single bucket endpoint.
func FromResponse(config *api.Config, r *api.Response) (*Bucket, error) {
	b := NewBucket(config, "")
	if err := b.Unwrap(r); err != nil {
		return nil, err
	}
	return b, nil
}

// FromListing reconstructs every bucket of a listing of /buckets.
func FromListing(config *api.Config, r *api.Response) ([]*Bucket, error) {
	responses, err := api.Split(r)
	if err != nil {
		return nil, err
	}
	buckets := make([]*Bucket, len(responses))
	for i, resp := range responses {
		if buckets[i], err = FromResponse(config, resp); err != nil {
			return nil, err
		}
	}
	return buckets, nil
}

func ListRequest() *api.Request {
	return api.NewRequest(http.MethodGet, paths.BucketList())
}

// List returns every bucket readable by the configured principal,
// following pagination.
func List(config *api.Config) ([]*Bucket, error) {
	resp, err := api.Paginate(config, ListRequest())
	if err != nil {
		return nil, errors.Wrap(err, "failed to list buckets")
	}
	return FromListing(config, resp)
}

func DeleteAllRequest() *api.Request {
	return api.NewRequest(http.MethodDelete, paths.BucketList())
}

// DeleteAll deletes every bucket writable by the configured principal,
// and everything within them. The tombstones are returned.
func DeleteAll(config *api.Config) ([]*Bucket, error) {
	resp, err := api.Paginate(config, DeleteAllRequest())
	if err != nil {
		return nil, errors.Wrap(err, "failed to delete buckets")
	}
	return FromListing(config, resp)
}

// Path returns /buckets/{id}.
func (b *Bucket) Path() (string, error) {
	id := b.ID()
	if id == "" {
		return "", errors.Wrap(api.ErrUndefinedID, "bucket")
	}
	return paths.Bucket(id), nil
}

func (b *Bucket) LoadRequest() (*api.Request, error) {
	return b.request(http.MethodGet)
}

func (b *Bucket) CreateRequest() (*api.Request, error) {
	return api.NewRequest(http.MethodPost, paths.BucketList()), nil
}

func (b *Bucket) UpdateRequest() (*api.Request, error) {
	return b.request(http.MethodPut)
}

func (b *Bucket) DeleteRequest() (*api.Request, error) {
	return b.request(http.MethodDelete)
}

func (b *Bucket) request(method string) (*api.Request, error) {
	path, err := b.Path()
	if err != nil {
		return nil, err
	}
	return api.NewRequest(method, path), nil
}

func (b *Bucket) Unwrap(r *api.Response) error {
	e, err := api.NewEntity(r)
	if err != nil {
		return err
	}
	b.Apply(e, authz.BucketActions...)
	return nil
}

func (b *Bucket) Load() error {
	return api.Load(b)
}

func (b *Bucket) Refresh() error {
	return api.Refresh(b)
}

func (b *Bucket) Create() error {
	return api.Create(b)
}

func (b *Bucket) Update() error {
	return api.Update(b)
}

func (b *Bucket) Set() error {
	return api.Set(b)
}

func (b *Bucket) Delete() error {
	return api.Delete(b)
}

func (b *Bucket) DeleteIfUnchanged() error {
	return api.DeleteIfUnchanged(b)
}
