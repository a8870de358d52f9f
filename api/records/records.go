/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package records

import (
	"net/http"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/mozilla/kinto-http-go/api"
	"github.com/mozilla/kinto-http-go/api/authz"
	"github.com/mozilla/kinto-http-go/api/buckets"
	"github.com/mozilla/kinto-http-go/api/collections"
	"github.com/mozilla/kinto-http-go/api/paths"
)

// https://docs.kinto-storage.org/en/stable/api/1.x/records.html
type Record struct {
	api.Object
	Collection *collections.Collection
}

func NewRecord(collection *collections.Collection, id string) *Record {
	return &Record{Object: api.NewObject(collection.Config(), id), Collection: collection}
}

func FromResponse(config *api.Config, r *api.Response) (*Record, error) {
	record := &Record{Object: api.NewObject(config, "")}
	if err := record.Unwrap(r); err != nil {
		return nil, err
	}
	return record, nil
}

func FromListing(config *api.Config, r *api.Response) ([]*Record, error) {
	responses, err := api.Split(r)
	if err != nil {
		return nil, err
	}
	records := make([]*Record, len(responses))
	for i, resp := range responses {
		if records[i], err = FromResponse(config, resp); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func ListRequest(collection *collections.Collection) (*api.Request, error) {
	return plural(collection, http.MethodGet)
}

// List returns every record of the given collection, following pagination.
func List(collection *collections.Collection) ([]*Record, error) {
	req, err := ListRequest(collection)
	if err != nil {
		return nil, err
	}
	return list(collection, req)
}

// ListPaged is List, asking the server for pages of at most limit records.
func ListPaged(collection *collections.Collection, limit int) ([]*Record, error) {
	req, err := ListRequest(collection)
	if err != nil {
		return nil, err
	}
	return list(collection, req.WithLimit(limit))
}

func DeleteAllRequest(collection *collections.Collection) (*api.Request, error) {
	return plural(collection, http.MethodDelete)
}

// DeleteAll deletes every record of the given collection. The tombstones are returned.
func DeleteAll(collection *collections.Collection) ([]*Record, error) {
	req, err := DeleteAllRequest(collection)
	if err != nil {
		return nil, err
	}
	return list(collection, req)
}

func list(collection *collections.Collection, req *api.Request) ([]*Record, error) {
	resp, err := api.Paginate(collection.Config(), req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to %s the records of %s", req.Method, req.Path)
	}
	return FromListing(collection.Config(), resp)
}

func plural(collection *collections.Collection, method string) (*api.Request, error) {
	if collection == nil || collection.ID() == "" {
		return nil, errors.Wrap(api.ErrUndefinedID, "collection of record")
	}
	if collection.Bucket == nil || collection.Bucket.ID() == "" {
		return nil, errors.Wrap(api.ErrUndefinedID, "bucket of record")
	}
	return api.NewRequest(method, paths.RecordList(collection.Bucket.ID(), collection.ID())), nil
}

func (r *Record) Path() (string, error) {
	list, err := plural(r.Collection, http.MethodGet)
	if err != nil {
		return "", err
	}
	if r.ID() == "" {
		return "", errors.Wrap(api.ErrUndefinedID, "record")
	}
	return list.Path + "/" + r.ID(), nil
}

func (r *Record) LoadRequest() (*api.Request, error) {
	return r.request(http.MethodGet)
}

func (r *Record) CreateRequest() (*api.Request, error) {
	return plural(r.Collection, http.MethodPost)
}

func (r *Record) UpdateRequest() (*api.Request, error) {
	return r.request(http.MethodPut)
}

func (r *Record) DeleteRequest() (*api.Request, error) {
	return r.request(http.MethodDelete)
}

func (r *Record) request(method string) (*api.Request, error) {
	path, err := r.Path()
	if err != nil {
		return nil, err
	}
	return api.NewRequest(method, path), nil
}

// Unwrap applies the server's copy of the record, re-parenting it under
// the bucket and collection named by the response path.
func (r *Record) Unwrap(resp *api.Response) error {
	e, err := api.NewEntity(resp)
	if err != nil {
		return err
	}
	bucket, err := e.Ancestor(paths.Buckets)
	if err != nil {
		return errors.Wrapf(err, "no bucket in %s", resp.Path)
	}
	collection, err := e.Ancestor(paths.Collections)
	if err != nil {
		return errors.Wrapf(err, "no collection in %s", resp.Path)
	}
	if r.Collection == nil || r.Collection.ID() != collection ||
		r.Collection.Bucket == nil || r.Collection.Bucket.ID() != bucket {
		r.Collection = collections.NewCollection(buckets.NewBucket(r.Config(), bucket), collection)
	}
	r.Apply(e, authz.RecordActions...)
	return nil
}

// Decode maps the document of the record onto v, which must be a pointer
// to a struct (or a map). Fields are matched by their json tag, and
// embedded structs such as api.Meta are flattened.
//
//	type LegoSet struct {
//	    api.Meta
//	    Branding string `json:"branding"`
//	}
//
//	set := new(LegoSet)
//	err := record.Decode(set)
func (r *Record) Decode(v interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Squash:           true,
		WeaklyTypedInput: true,
		Result:           v,
	})
	if err != nil {
		return &api.SerializationError{Err: err}
	}
	if err := decoder.Decode(r.Data()); err != nil {
		return &api.SerializationError{Err: errors.Wrapf(err, "failed to decode record %s", r.ID())}
	}
	return nil
}

func (r *Record) Load() error {
	return api.Load(r)
}

func (r *Record) Refresh() error {
	return api.Refresh(r)
}

func (r *Record) Create() error {
	return api.Create(r)
}

func (r *Record) Update() error {
	return api.Update(r)
}

func (r *Record) Set() error {
	return api.Set(r)
}

func (r *Record) Delete() error {
	return api.Delete(r)
}

func (r *Record) DeleteIfUnchanged() error {
	return api.DeleteIfUnchanged(r)
}
