/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package api

import (
	"github.com/mozilla/kinto-http-go/api/authz"
)

// Object is the state shared by every kind of Kinto resource. Concrete
// kinds embed it and supply their own paths.
type Object struct {
	config      *Config
	id          string
	data        Document
	permissions authz.Permissions
	timestamp   uint64
	deleted     bool
}

func NewObject(config *Config, id string) Object {
	return Object{config: config, id: id}
}

func (o *Object) Config() *Config {
	return o.config
}

// ID is the explicit identifier if one is set, else the "id" member of
// the data, else the empty string.
func (o *Object) ID() string {
	if o.id != "" {
		return o.id
	}
	if id, ok := o.data["id"].(string); ok {
		return id
	}
	return ""
}

func (o *Object) Data() Document {
	return o.data
}

func (o *Object) SetData(data Document) {
	o.data = data
}

func (o *Object) Permissions() authz.Permissions {
	return o.permissions
}

func (o *Object) SetPermissions(permissions authz.Permissions) {
	o.permissions = permissions
}

// Timestamp is the version of the resource as of the last exchange
// with the server (0 when unknown). Local changes do not advance it.
func (o *Object) Timestamp() uint64 {
	return o.timestamp
}

// Deleted reports whether the last exchange with the server deleted
// this resource. A deleted resource must be reloaded (or recreated)
// before being written to again.
func (o *Object) Deleted() bool {
	return o.deleted
}

// Apply replaces the state of o with the server's authoritative copy.
// Permissions are normalized so that every given action is present.
func (o *Object) Apply(e *Entity, actions ...string) {
	o.id = e.ID
	o.data = e.Data
	o.timestamp = e.Timestamp
	o.deleted = e.Deleted
	o.permissions = e.Permissions.Normalize(actions...)
}
