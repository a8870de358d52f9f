/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/mozilla/kinto-http-go/api/auth"
)

// DefaultTool is the default value of the X-AUTOMATED-TOOL header.
const DefaultTool = "https://github.com/mozilla/kinto-http-go"

// A Transport performs a single, synchronous HTTP exchange.
// An *http.Client satisfies this interface, and is where timeouts
// and cancellation should be configured.
type Transport interface {
	Do(r *http.Request) (*http.Response, error)
}

// Config is everything needed to talk to a given Kinto server.
//
// A Config is shared by reference between every resource derived from
// the same client, and cannot be changed once built. The With* methods
// return modified copies.
type Config struct {
	url           string
	authenticator auth.Authenticator
	transport     Transport
	tool          string
}

// NewConfig returns an unauthenticated Config for the given base URL,
// which includes the API version (E.G. "https://firefox.settings.services.mozilla.com/v1").
func NewConfig(base string) *Config {
	return &Config{
		url:           strings.TrimRight(base, "/"),
		authenticator: new(auth.Unauthenticated),
		transport:     new(http.Client),
		tool:          DefaultTool,
	}
}

// URL is the server's base URL, without a trailing slash.
func (c *Config) URL() string {
	return c.url
}

func (c *Config) Authenticator() auth.Authenticator {
	return c.authenticator
}

func (c *Config) Transport() Transport {
	return c.transport
}

// Tool is the value of the X-AUTOMATED-TOOL header.
func (c *Config) Tool() string {
	return c.tool
}

func (c *Config) WithAuthenticator(authenticator auth.Authenticator) *Config {
	cp := *c
	if authenticator == nil {
		authenticator = new(auth.Unauthenticated)
	}
	cp.authenticator = authenticator
	return &cp
}

func (c *Config) WithTransport(transport Transport) *Config {
	cp := *c
	if transport == nil {
		transport = new(http.Client)
	}
	cp.transport = transport
	return &cp
}

func (c *Config) WithTool(tool string) *Config {
	cp := *c
	cp.tool = tool
	return &cp
}

// basePath returns the path component of the configured URL, E.G. "/v1".
func (c *Config) basePath() string {
	u, err := url.Parse(c.url)
	if err != nil {
		return ""
	}
	return strings.TrimRight(u.Path, "/")
}
