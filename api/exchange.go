/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Send performs the given request against the configured server and
// classifies the outcome.
//
//	304    -> ErrNotModified
//	412    -> ErrPreconditionFailed
//	2xx    -> a Response carrying the parsed body
//	others -> *TransportError
//
// Send never retries. If Kinto asks us to backoff the request is still
// performed, and the delay is both logged and reported by Response.Backoff.
func Send(config *Config, r *Request) (*Response, error) {
	req, err := newHTTPRequest(config, r)
	if err != nil {
		return nil, err
	}
	logger := log.WithField("method", r.Method).WithField("path", r.Path)
	resp, err := config.Transport().Do(req)
	if err != nil {
		logger.WithError(err).Debug("kinto exchange failed")
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: err}
	}
	logger = logger.WithField("status", resp.StatusCode)
	logger.Debug("kinto exchange")
	if backoff := resp.Header.Get("Backoff"); backoff != "" {
		// See https://docs.kinto-storage.org/en/stable/api/1.x/backoff.html
		logger.WithField("backoff", backoff).Warn("Kinto has asked us to backoff")
	}
	switch {
	case resp.StatusCode == http.StatusNotModified:
		return nil, errors.Wrapf(ErrNotModified, "%s", r)
	case resp.StatusCode == http.StatusPreconditionFailed:
		return nil, errors.Wrapf(ErrPreconditionFailed, "%s", r)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	parsed, err := parseBody(body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", r)
	}
	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Path:   r.Path,
		Body:   parsed,
	}, nil
}

func newHTTPRequest(config *Config, r *Request) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if r.Body != nil {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return nil, &SerializationError{Err: errors.Wrapf(err, "failed to encode the body of %s", r)}
		}
		body = bytes.NewReader(b)
	}
	target := config.URL() + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}
	req, err := http.NewRequest(r.Method, target, body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header = r.Header.Clone()
	if req.Header == nil {
		req.Header = http.Header{}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-AUTOMATED-TOOL", config.Tool())
	config.Authenticator().Authenticate(req.Header)
	return req, nil
}

func parseBody(body []byte) (map[string]interface{}, error) {
	parsed := make(map[string]interface{})
	if len(bytes.TrimSpace(body)) == 0 {
		return parsed, nil
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &SerializationError{Err: err}
	}
	if parsed == nil {
		// The body was a literal null.
		parsed = make(map[string]interface{})
	}
	return parsed, nil
}
