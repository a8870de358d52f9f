/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package api

import (
	"github.com/mitchellh/mapstructure"

	"github.com/mozilla/kinto-http-go/api/authz"
	"github.com/mozilla/kinto-http-go/api/paths"
)

// Every object in Kinto has attached to it an ID and last-modified data.
// The best way to use this struct is to embed a pointer to it within
// your own schema.
//
//	type LegoSet struct {
//	    api.Meta
//	    Branding string `json:"branding"`
//	}
//
// See records.Record.Decode for details.
type Meta struct {
	Id           string `json:"id,omitempty"`
	LastModified uint64 `json:"last_modified,omitempty"`
}

func (m *Meta) ID() string {
	return m.Id
}

// Entity is everything that can be learned about a resource from a
// single response.
type Entity struct {
	ID          string
	Timestamp   uint64
	Deleted     bool
	Data        Document
	Permissions authz.Permissions
	// Ancestors maps resource kinds (E.G. "buckets") to the identifiers
	// found in the path of the originating request.
	Ancestors map[string]string
}

type envelope struct {
	Data        map[string]interface{} `mapstructure:"data"`
	Permissions map[string][]string    `mapstructure:"permissions"`
}

type metadata struct {
	ID           string `mapstructure:"id"`
	LastModified uint64 `mapstructure:"last_modified"`
	Deleted      bool   `mapstructure:"deleted"`
}

// NewEntity extracts the id, timestamp, data and permissions from the
// body of r, and ancestor ids from its path.
func NewEntity(r *Response) (*Entity, error) {
	if _, ok := r.Body["data"].(map[string]interface{}); !ok {
		return nil, serializationError("%s: response has no data object (got %T)", r.Path, r.Body["data"])
	}
	env := envelope{}
	if err := mapstructure.Decode(r.Body, &env); err != nil {
		return nil, &SerializationError{Err: err}
	}
	meta := metadata{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &meta,
	})
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	if err := decoder.Decode(env.Data); err != nil {
		return nil, &SerializationError{Err: err}
	}
	return &Entity{
		ID:          meta.ID,
		Timestamp:   meta.LastModified,
		Deleted:     meta.Deleted,
		Data:        env.Data,
		Permissions: env.Permissions,
		Ancestors:   paths.Parse(r.Path),
	}, nil
}

// Ancestor returns the identifier of the given kind (E.G. paths.Buckets),
// or ErrUndefinedID if the path did not carry one.
func (e *Entity) Ancestor(kind string) (string, error) {
	id := e.Ancestors[kind]
	if id == "" {
		return "", ErrUndefinedID
	}
	return id, nil
}
