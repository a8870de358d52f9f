/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package api

import (
	"github.com/pkg/errors"

	"github.com/mozilla/kinto-http-go/api/authz"
)

// A Resource is any Kinto object (bucket, group, collection, record) that
// can be loaded, created, updated, set and deleted.
//
// Implementors embed an Object (which provides the accessors) and supply
// the four request factories, which build unconditioned requests for the
// resource's paths, and Unwrap, which reconstructs the resource from the
// server's response.
//
// The request factories return ErrUndefinedID if the resource (or one of
// its ancestors) has no known identifier, with the exception of
// CreateRequest, which targets the parent's plural endpoint and
// lets the server pick an identifier when none is known.
//
// A resource that was deleted (see Deleted) cannot be created, updated or
// set again: the write builders return ErrDeleted.
type Resource interface {
	Config() *Config
	ID() string
	Data() Document
	Permissions() authz.Permissions
	Timestamp() uint64
	Deleted() bool

	LoadRequest() (*Request, error)
	CreateRequest() (*Request, error)
	UpdateRequest() (*Request, error)
	DeleteRequest() (*Request, error)

	Unwrap(r *Response) error
}

// Members of a document that the server manages itself.
var serverManaged = []string{"last_modified", "deleted"}

// Body returns the payload to send on behalf of r. When the identifier of
// r is known it is injected into the data. Members managed by the server
// are left out.
func Body(r Resource) *Payload {
	data := make(Document, len(r.Data())+1)
	for k, v := range r.Data() {
		data[k] = v
	}
	for _, k := range serverManaged {
		delete(data, k)
	}
	if id := r.ID(); id != "" {
		data["id"] = id
	}
	return NewPayload(data, r.Permissions())
}

func LoadRequestFor(r Resource) (*Request, error) {
	return r.LoadRequest()
}

// CreateRequestFor conditions the creation on the target not already existing.
func CreateRequestFor(r Resource) (*Request, error) {
	if err := writable(r); err != nil {
		return nil, err
	}
	req, err := r.CreateRequest()
	if err != nil {
		return nil, err
	}
	return req.WithBody(Body(r)).IfNoneMatchAny(), nil
}

// UpdateRequestFor conditions the update on the server's version matching
// the timestamp of r, or merely on the target existing if that timestamp
// is unknown.
func UpdateRequestFor(r Resource) (*Request, error) {
	if err := writable(r); err != nil {
		return nil, err
	}
	req, err := r.UpdateRequest()
	if err != nil {
		return nil, err
	}
	req = req.WithBody(Body(r))
	if stamp := r.Timestamp(); stamp != 0 {
		return req.IfMatch(stamp), nil
	}
	return req.IfMatchAny(), nil
}

// SetRequestFor creates r if it has no identifier, otherwise it
// overwrites (or creates) it without any version precondition.
func SetRequestFor(r Resource) (*Request, error) {
	if r.ID() == "" {
		return CreateRequestFor(r)
	}
	if err := writable(r); err != nil {
		return nil, err
	}
	req, err := r.UpdateRequest()
	if err != nil {
		return nil, err
	}
	return req.WithBody(Body(r)), nil
}

func writable(r Resource) error {
	if r.Deleted() {
		return errors.Wrapf(ErrDeleted, "%s must be reloaded before being written to", r.ID())
	}
	return nil
}

func DeleteRequestFor(r Resource) (*Request, error) {
	return r.DeleteRequest()
}

// Load replaces r with the server's copy.
func Load(r Resource) error {
	return exchange(r, LoadRequestFor)
}

// Refresh is Load conditioned on the server's copy having changed since
// the timestamp of r. It returns ErrNotModified, leaving r untouched, if
// it has not.
func Refresh(r Resource) error {
	return exchange(r, func(r Resource) (*Request, error) {
		req, err := r.LoadRequest()
		if err != nil {
			return nil, err
		}
		if stamp := r.Timestamp(); stamp != 0 {
			req = req.IfNoneMatch(stamp)
		}
		return req, nil
	})
}

// Create creates r, failing with ErrPreconditionFailed if it already exists.
func Create(r Resource) error {
	return exchange(r, CreateRequestFor)
}

// Update overwrites r, failing with ErrPreconditionFailed if it does not
// exist or if it was modified since its timestamp.
func Update(r Resource) error {
	return exchange(r, UpdateRequestFor)
}

// Set creates or overwrites r. Unlike Update, no version is checked:
// concurrent modifications made by others are silently overwritten.
func Set(r Resource) error {
	return exchange(r, SetRequestFor)
}

// Delete deletes r. The resulting tombstone is applied to r, which must
// not be written to again without being reloaded.
func Delete(r Resource) error {
	return exchange(r, DeleteRequestFor)
}

// DeleteIfUnchanged is Delete conditioned on r not having been modified
// since its timestamp.
func DeleteIfUnchanged(r Resource) error {
	return exchange(r, func(r Resource) (*Request, error) {
		req, err := r.DeleteRequest()
		if err != nil {
			return nil, err
		}
		if stamp := r.Timestamp(); stamp != 0 {
			return req.IfMatch(stamp), nil
		}
		return req.IfMatchAny(), nil
	})
}

func exchange(r Resource, build func(Resource) (*Request, error)) error {
	req, err := build(r)
	if err != nil {
		return err
	}
	resp, err := Send(r.Config(), req)
	if err != nil {
		return err
	}
	return r.Unwrap(resp)
}
