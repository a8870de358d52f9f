/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// A Request describes a single exchange with a Kinto server: everything
// needed to perform it, and nothing that would tie it to a particular
// connection.
//
// Every With* and If* method returns a modified copy, leaving the
// receiver untouched, so a Request may be safely re-issued (E.G. by
// Paginate) or shared between batches.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	// Body is serialized to JSON. A nil Body sends an empty payload.
	Body interface{}
}

func NewRequest(method, path string) *Request {
	return &Request{
		Method: method,
		Path:   path,
		Query:  url.Values{},
		Header: http.Header{},
	}
}

// Clone returns a deep copy of the headers and the query. The body is
// shared, as it is never mutated once set.
func (r *Request) Clone() *Request {
	cp := *r
	cp.Header = r.Header.Clone()
	if cp.Header == nil {
		cp.Header = http.Header{}
	}
	cp.Query = url.Values{}
	for k, v := range r.Query {
		cp.Query[k] = append([]string{}, v...)
	}
	return &cp
}

func (r *Request) WithHeader(key, value string) *Request {
	cp := r.Clone()
	cp.Header.Set(key, value)
	return cp
}

func (r *Request) WithQuery(key, value string) *Request {
	cp := r.Clone()
	cp.Query.Set(key, value)
	return cp
}

// WithLimit sets the page size of a plural endpoint.
func (r *Request) WithLimit(limit int) *Request {
	return r.WithQuery("_limit", strconv.Itoa(limit))
}

// WithBody sets the JSON body and its Content-Type.
func (r *Request) WithBody(body interface{}) *Request {
	cp := r.WithHeader("Content-Type", "application/json")
	cp.Body = body
	return cp
}

// IfMatch requires the server's current version to be exactly timestamp.
func (r *Request) IfMatch(timestamp uint64) *Request {
	return r.WithHeader("If-Match", etag(timestamp))
}

// IfMatchAny requires the resource to already exist.
func (r *Request) IfMatchAny() *Request {
	return r.WithHeader("If-Match", "*")
}

// IfNoneMatch requires the server's current version to differ from timestamp.
func (r *Request) IfNoneMatch(timestamp uint64) *Request {
	return r.WithHeader("If-None-Match", etag(timestamp))
}

// IfNoneMatchAny requires the resource to not already exist.
func (r *Request) IfNoneMatchAny() *Request {
	return r.WithHeader("If-None-Match", "*")
}

func (r *Request) String() string {
	return fmt.Sprintf("%s %s", r.Method, r.Path)
}

func etag(timestamp uint64) string {
	return strconv.Quote(strconv.FormatUint(timestamp, 10))
}
