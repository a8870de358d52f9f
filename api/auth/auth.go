/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package auth

import (
	"encoding/base64"
	"net/http"
)

// https://docs.kinto-storage.org/en/stable/api/1.x/authentication.html
//
// An Authenticator takes in the header of an outgoing request and
// appends appropriate credential information into it.
type Authenticator interface {
	Authenticate(header http.Header)
}

// User authenticates with HTTP Basic credentials. It is also the payload
// used when creating a Kinto local account.
type User struct {
	Username string `json:"-"`
	Password string `json:"password"`
}

func (u *User) Authenticate(header http.Header) {
	credentials := base64.StdEncoding.EncodeToString([]byte(u.Username + ":" + u.Password))
	header.Set("Authorization", "Basic "+credentials)
}

// Principal returns the Kinto principal of this account (E.G. "account:admin").
func (u *User) Principal() string {
	return "account:" + u.Username
}

type Token struct {
	Token string
}

func (t *Token) Authenticate(header http.Header) {
	header.Set("Authorization", "Bearer "+t.Token)
}

type Unauthenticated struct{}

func (n *Unauthenticated) Authenticate(_ http.Header) {}
