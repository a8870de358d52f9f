/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package auth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser(t *testing.T) {
	h := http.Header{}
	(&User{Username: "a", Password: "a"}).Authenticate(h)
	assert.Equal(t, "Basic YTph", h.Get("Authorization"))
}

func TestUserRoundTripsThroughNetHTTP(t *testing.T) {
	h := http.Header{}
	(&User{Username: "superDev", Password: "password"}).Authenticate(h)
	r := &http.Request{Header: h}
	user, password, ok := r.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "superDev", user)
	assert.Equal(t, "password", password)
}

func TestToken(t *testing.T) {
	h := http.Header{}
	(&Token{Token: "abc"}).Authenticate(h)
	assert.Equal(t, "Bearer abc", h.Get("Authorization"))
}

func TestUnauthenticated(t *testing.T) {
	h := http.Header{}
	(&Unauthenticated{}).Authenticate(h)
	assert.Empty(t, h)
}

func TestPrincipal(t *testing.T) {
	assert.Equal(t, "account:admin", (&User{Username: "admin"}).Principal())
}
