/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mozilla/kinto-http-go/api"
	"github.com/mozilla/kinto-http-go/api/auth"
)

func TestConfigWithCopies(t *testing.T) {
	base := api.NewConfig("https://kinto.example.com/v1/")
	assert.Equal(t, "https://kinto.example.com/v1", base.URL())

	user := &auth.User{Username: "admin", Password: "s3cr3t"}
	transport := &http.Client{}
	derived := base.WithAuthenticator(user).WithTransport(transport).WithTool("tests")

	assert.Same(t, user, derived.Authenticator())
	assert.Same(t, transport, derived.Transport())
	assert.Equal(t, "tests", derived.Tool())
	assert.Equal(t, base.URL(), derived.URL())

	assert.IsType(t, new(auth.Unauthenticated), base.Authenticator())
	assert.NotSame(t, transport, base.Transport())
	assert.Equal(t, api.DefaultTool, base.Tool())

	assert.IsType(t, new(auth.Unauthenticated), derived.WithAuthenticator(nil).Authenticator())
	assert.NotNil(t, derived.WithTransport(nil).Transport())
}
