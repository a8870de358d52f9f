/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package authz

import (
	"encoding/json"
	"sort"
)

// Permissions maps an action (E.G. "read" or "collection:create") to the
// list of principals granted that action.
//
// https://docs.kinto-storage.org/en/stable/api/1.x/permissions.html
type Permissions map[string][]string

// Actions understood by the Kinto permission model.
const (
	Read             = "read"
	Write            = "write"
	CollectionCreate = "collection:create"
	GroupCreate      = "group:create"
	RecordCreate     = "record:create"
)

// The actions that apply to each kind of resource.
var (
	BucketActions     = []string{Read, Write, CollectionCreate, GroupCreate}
	CollectionActions = []string{Read, Write, RecordCreate}
	GroupActions      = []string{Read, Write}
	RecordActions     = []string{Read, Write}
)

// https://docs.kinto-storage.org/en/stable/api/1.x/permissions.html#api-principals
const (
	Everyone      = "system.Everyone"
	Authenticated = "system.Authenticated"
)

var WorldR = Permissions{Read: []string{Everyone}}
var WorldRW = Permissions{Write: []string{Everyone}, Read: []string{Everyone}}

// Account returns the principal of a Kinto local account.
func Account(username string) string {
	return "account:" + username
}

// Normalize returns a copy of p in which every one of the given actions is
// present, defaulting to an empty list of principals.
func (p Permissions) Normalize(actions ...string) Permissions {
	normalized := make(Permissions, len(actions))
	for action, principals := range p {
		normalized[action] = append([]string{}, principals...)
	}
	for _, action := range actions {
		if normalized[action] == nil {
			normalized[action] = []string{}
		}
	}
	return normalized
}

// Empty reports whether no principal is granted any action.
func (p Permissions) Empty() bool {
	for _, principals := range p {
		if len(principals) > 0 {
			return false
		}
	}
	return true
}

// Grant adds the given principals to an action.
func (p Permissions) Grant(action string, principals ...string) Permissions {
	p[action] = append(p[action], principals...)
	return p
}

// MarshalJSON never emits null, neither for the map itself nor for any action.
func (p Permissions) MarshalJSON() ([]byte, error) {
	out := make(map[string][]string, len(p))
	for action, principals := range p {
		if principals == nil {
			principals = []string{}
		}
		out[action] = principals
	}
	return json.Marshal(out)
}

// Actions returns the actions present in p, sorted.
func (p Permissions) Actions() []string {
	actions := make([]string, 0, len(p))
	for action := range p {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	return actions
}
