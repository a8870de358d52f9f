/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package api

import (
	"github.com/mozilla/kinto-http-go/api/authz"
)

// Document is the arbitrary user payload attached to a resource.
type Document = map[string]interface{}

// Payload is the envelope of every resource request and response body.
type Payload struct {
	Data        interface{}       `json:"data"`
	Permissions authz.Permissions `json:"permissions,omitempty"`
}

// NewPayload wraps data and perms, dropping perms altogether when it grants nothing.
func NewPayload(data interface{}, perms authz.Permissions) *Payload {
	if perms.Empty() {
		perms = nil
	}
	return &Payload{
		Data:        data,
		Permissions: perms,
	}
}
