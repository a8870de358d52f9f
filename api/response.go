/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Response is a read-only snapshot of a completed exchange.
type Response struct {
	Status int
	Header http.Header
	// Path is the path of the originating request (without the server's
	// base URL). It is how entity reconstruction learns ancestor ids.
	Path string
	Body map[string]interface{}
}

// NextPage returns the pagination cursor, if any.
func (r *Response) NextPage() string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get("Next-Page")
}

// Backoff returns how long the server asked clients to wait before
// their next request.
//
// See https://docs.kinto-storage.org/en/stable/api/1.x/backoff.html
func (r *Response) Backoff() time.Duration {
	if r.Header == nil {
		return 0
	}
	seconds, err := strconv.Atoi(r.Header.Get("Backoff"))
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// Data returns the "data" member of the body.
func (r *Response) Data() interface{} {
	return r.Body["data"]
}

// Entries returns the "data" member of a plural endpoint's body.
func (r *Response) Entries() ([]interface{}, error) {
	raw, ok := r.Body["data"]
	if !ok || raw == nil {
		return []interface{}{}, nil
	}
	entries, ok := raw.([]interface{})
	if !ok {
		return nil, serializationError("%s: expected a list of entries, got %T", r.Path, raw)
	}
	return entries, nil
}

// Split turns the response of a plural endpoint into one response per
// entry, each carrying the path of the single entry so that it can be
// reconstructed like the response of a load.
func Split(r *Response) ([]*Response, error) {
	entries, err := r.Entries()
	if err != nil {
		return nil, err
	}
	base := r.Path
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimRight(base, "/")
	responses := make([]*Response, len(entries))
	for i, entry := range entries {
		obj, ok := entry.(map[string]interface{})
		if !ok {
			return nil, serializationError("%s: entry %d is a %T, not an object", r.Path, i, entry)
		}
		id, _ := obj["id"].(string)
		responses[i] = &Response{
			Status: r.Status,
			Header: r.Header,
			Path:   base + "/" + id,
			Body:   map[string]interface{}{"data": obj},
		}
	}
	return responses, nil
}
