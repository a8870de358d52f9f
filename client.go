/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

// Package kinto is a client for the Kinto REST API.
//
// The client itself only holds configuration. Buckets, groups, collections
// and records are handled through the resources of the api sub-packages,
// all of which share the client's configuration.
//
//	c := kinto.NewClient("https", "firefox.settings.services.mozilla.com", "/v1")
//	onecrl := collections.NewCollection(c.Bucket("security-state"), "onecrl")
//	revocations, err := records.List(onecrl)
//
// For information on the API that this client targets,
// please see the Kinto 1.x API documentation:
//
// https://docs.kinto-storage.org/en/stable/api/
package kinto // import "github.com/mozilla/kinto-http-go"

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/mozilla/kinto-http-go/api"
	"github.com/mozilla/kinto-http-go/api/auth"
	"github.com/mozilla/kinto-http-go/api/batch"
	"github.com/mozilla/kinto-http-go/api/buckets"
	"github.com/mozilla/kinto-http-go/api/paths"
)

// Client is a thread safe client for the Kinto REST API.
//
// A Client never changes once constructed: every With* method returns a
// new Client, leaving the receiver (and every resource derived from it)
// untouched.
type Client struct {
	config *api.Config
}

// NewClient constructs a client with the scheme (E.G "https"),
// the host (E.G "settings.stage.mozaws.net"), and the API base (E.G "/v1").
func NewClient(scheme, host, base string) *Client {
	return &Client{config: api.NewConfig(fmt.Sprintf("%s://%s%s", scheme, host, base))}
}

// NewClientFromStr constructs a client from a full URL, such as
// "https://settings.stage.mozaws.net/v1". The API base defaults to "/v1".
func NewClientFromStr(u string) (*Client, error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return nil, errors.Wrapf(err, "%q is not a valid Kinto URL", u)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.Errorf("%q is not an absolute URL", u)
	}
	base := parsed.Path
	if base == "" || base == "/" {
		base = "/v1"
	}
	return NewClient(parsed.Scheme, parsed.Host, base), nil
}

func (c *Client) Config() *api.Config {
	return c.config
}

// WithAuthenticator returns a client which authenticates every request with
// the given authenticator.
func (c *Client) WithAuthenticator(authenticator auth.Authenticator) *Client {
	return &Client{config: c.config.WithAuthenticator(authenticator)}
}

// WithToolHeader returns a client whose requests carry the given value
// for X-AUTOMATED-TOOL.
//
// By default, this is set to api.DefaultTool, however it would be
// appreciated if consumers of this library set this to point to the code
// that is actually making API calls.
func (c *Client) WithToolHeader(tool string) *Client {
	return &Client{config: c.config.WithTool(tool)}
}

// WithTransport returns a client which performs its requests with the
// given transport, typically an *http.Client with a timeout.
func (c *Client) WithTransport(transport api.Transport) *Client {
	return &Client{config: c.config.WithTransport(transport)}
}

// Bucket returns the bucket with the given id. Nothing is sent to Kinto.
func (c *Client) Bucket(id string) *buckets.Bucket {
	return buckets.NewBucket(c.config, id)
}

// NewBucket creates a bucket whose id is picked by Kinto.
func (c *Client) NewBucket() (*buckets.Bucket, error) {
	b := buckets.NewBucket(c.config, "")
	if err := b.Create(); err != nil {
		return nil, errors.Wrap(err, "failed to create a bucket")
	}
	return b, nil
}

func (c *Client) ListBuckets() ([]*buckets.Bucket, error) {
	return buckets.List(c.config)
}

// DeleteBuckets deletes every bucket (and everything within them) that the
// configured principal can write to.
func (c *Client) DeleteBuckets() ([]*buckets.Bucket, error) {
	return buckets.DeleteAll(c.config)
}

// Batch returns an empty batch. Note that the size of a batch request is
// bounded by the remote server's "batch_max_requests" setting.
//
// The most reliable way to use batches is to query this limit via
// BatchMaxRequests and use that value with Batch.Chunks.
func (c *Client) Batch() *batch.Batch {
	return batch.New(c.config)
}

// Flush deletes everything stored by the server. It is only available on
// servers running with the flush endpoint enabled, which production
// servers never are. ErrUnsupported is returned otherwise.
//
// https://docs.kinto-storage.org/en/stable/api/1.x/utilities.html#post--__flush__
func (c *Client) Flush() error {
	_, err := api.Send(c.config, api.NewRequest(http.MethodPost, paths.Flush()))
	if api.StatusCode(err) == http.StatusNotFound {
		return errors.Wrap(api.ErrUnsupported, "the flush endpoint is not enabled")
	}
	return err
}

// ServerInfo is what Kinto tells about itself on its root endpoint.
//
// https://docs.kinto-storage.org/en/stable/api/1.x/utilities.html#get--
type ServerInfo struct {
	ProjectName    string                 `mapstructure:"project_name"`
	ProjectVersion string                 `mapstructure:"project_version"`
	HTTPAPIVersion string                 `mapstructure:"http_api_version"`
	URL            string                 `mapstructure:"url"`
	Capabilities   map[string]interface{} `mapstructure:"capabilities"`
	Settings       struct {
		BatchMaxRequests int  `mapstructure:"batch_max_requests"`
		Readonly         bool `mapstructure:"readonly"`
	} `mapstructure:"settings"`
	User *struct {
		ID string `mapstructure:"id"`
	} `mapstructure:"user"`
}

// ServerInfo does a GET on the root endpoint.
func (c *Client) ServerInfo() (*ServerInfo, error) {
	resp, err := api.Send(c.config, api.NewRequest(http.MethodGet, "/"))
	if err != nil {
		return nil, err
	}
	info := &ServerInfo{}
	if err := mapstructure.Decode(resp.Body, info); err != nil {
		return nil, &api.SerializationError{Err: errors.Wrap(err, "malformed root endpoint")}
	}
	return info, nil
}

// Alive returns back whether any error occurred while doing a GET on /
func (c *Client) Alive() bool {
	_, err := c.ServerInfo()
	return err == nil
}

// TryAuth does a GET on the Kinto's root resource and checks for the presence of user
// metadata in order to determine the configured authenticator successfully authenticates.
//
// See https://docs.kinto-storage.org/en/stable/api/1.x/authentication.html#try-authentication for details.
func (c *Client) TryAuth() (bool, error) {
	info, err := c.ServerInfo()
	if err != nil {
		return false, err
	}
	return info.User != nil, nil
}

// BatchMaxRequests retrieves the "settings.batch_max_requests" from the utility endpoint.
//
// This API is most useful when used in conjunction with Batch.Chunks.
//
// For details, please see:
// https://docs.kinto-storage.org/en/stable/api/1.x/utilities.html#api-utilities
func (c *Client) BatchMaxRequests() (int, error) {
	info, err := c.ServerInfo()
	if err != nil {
		return 0, err
	}
	return info.Settings.BatchMaxRequests, nil
}

// NewAdmin is the same as NewAccount, however with the "admin" user pre-configured.
func (c *Client) NewAdmin(password string) error {
	return c.NewAccount(&auth.User{
		Username: "admin",
		Password: password,
	})
}

// NewAccount creates (or resets the password of) a Kinto local account.
//
// See https://docs.kinto-storage.org/en/stable/api/1.x/accounts.html#put--accounts-(user_id) for details.
func (c *Client) NewAccount(user *auth.User) error {
	req := api.NewRequest(http.MethodPut, paths.Account(user.Username)).WithBody(api.NewPayload(user, nil))
	if _, err := api.Send(c.config, req); err != nil {
		return errors.Wrapf(err, "failed to create account %s", user.Username)
	}
	return nil
}
