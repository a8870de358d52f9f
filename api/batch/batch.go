/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package batch

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/mozilla/kinto-http-go/api"
	"github.com/mozilla/kinto-http-go/api/paths"
)

// A Batch sends any number of requests (of any method, against any
// resource) to Kinto in a single exchange.
//
// Kinto bounds the number of requests within a batch by its
// "batch_max_requests" setting. See Client.BatchMaxRequests for how to
// retrieve this value and Chunks for how to respect it.
//
// https://docs.kinto-storage.org/en/stable/api/1.x/batch.html
type Batch struct {
	config   *api.Config
	requests []*api.Request
}

type BatchedRequest struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Body    interface{}       `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

type batchedRequests struct {
	Requests []BatchedRequest `json:"requests"`
}

type batchedResponse struct {
	Status  int                    `mapstructure:"status"`
	Path    string                 `mapstructure:"path"`
	Body    map[string]interface{} `mapstructure:"body"`
	Headers map[string]string      `mapstructure:"headers"`
}

func New(config *api.Config) *Batch {
	return &Batch{config: config}
}

// Add queues requests, typically built by api.CreateRequestFor and friends.
func (b *Batch) Add(requests ...*api.Request) *Batch {
	b.requests = append(b.requests, requests...)
	return b
}

func (b *Batch) Len() int {
	return len(b.requests)
}

// Request returns the POST /batch request carrying every queued request.
func (b *Batch) Request() *api.Request {
	requests := make([]BatchedRequest, len(b.requests))
	for i, r := range b.requests {
		path := r.Path
		if len(r.Query) > 0 {
			path += "?" + r.Query.Encode()
		}
		var headers map[string]string
		if len(r.Header) > 0 {
			headers = make(map[string]string, len(r.Header))
			for k := range r.Header {
				headers[k] = r.Header.Get(k)
			}
		}
		requests[i] = BatchedRequest{
			Method:  r.Method,
			Path:    path,
			Body:    r.Body,
			Headers: headers,
		}
	}
	return api.NewRequest(http.MethodPost, paths.Batch()).WithBody(batchedRequests{Requests: requests})
}

// Send performs the batch and returns one response per queued request, in
// the order in which they were added. Sub-responses are returned whatever
// their status. See Errors for collecting the failures among them.
//
// Responses carry the path of their request, and so can be handed to the
// FromResponse functions of the resource kinds.
func (b *Batch) Send() ([]*api.Response, error) {
	if len(b.requests) == 0 {
		return []*api.Response{}, nil
	}
	resp, err := api.Send(b.config, b.Request())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send a batch of %d requests", len(b.requests))
	}
	var batched []batchedResponse
	if err := mapstructure.Decode(resp.Body["responses"], &batched); err != nil {
		return nil, &api.SerializationError{Err: errors.Wrap(err, "malformed batch response")}
	}
	if len(batched) != len(b.requests) {
		return nil, &api.SerializationError{Err: errors.Errorf("sent %d requests in a batch but received %d responses", len(b.requests), len(batched))}
	}
	responses := make([]*api.Response, len(batched))
	for i, r := range batched {
		header := http.Header{}
		for k, v := range r.Headers {
			header.Set(k, v)
		}
		body := r.Body
		if body == nil {
			body = map[string]interface{}{}
		}
		responses[i] = &api.Response{
			Status: r.Status,
			Header: header,
			Path:   paths.StripVersion(r.Path),
			Body:   body,
		}
	}
	return responses, nil
}

// Chunks splits the queued requests into batches of at most maxRequests
// requests each, preserving their order. maxRequests must be less-than-or
// equal to Kinto's configured "batch_max_requests". A non-positive
// maxRequests yields a single batch.
func (b *Batch) Chunks(maxRequests int) []*Batch {
	if maxRequests <= 0 || len(b.requests) <= maxRequests {
		return []*Batch{New(b.config).Add(b.requests...)}
	}
	batches := make([]*Batch, numBatches(len(b.requests), maxRequests))
	for i := 0; i < len(batches); i++ {
		start := i * maxRequests
		end := min(start+maxRequests, len(b.requests))
		batches[i] = New(b.config).Add(b.requests[start:end]...)
	}
	return batches
}

func numBatches(requests, maxRequests int) int {
	return int(math.Ceil(float64(requests) / float64(maxRequests)))
}

func min(a, b int) int {
	if a < b {
		return a
	} else {
		return b
	}
}

// Errors returns the failures among the given sub-responses, classified as
// Send would have classified them, or nil if every one of them succeeded.
func Errors(responses []*api.Response) error {
	var result *multierror.Error
	for i, r := range responses {
		if r.Status >= 200 && r.Status <= 299 {
			continue
		}
		result = multierror.Append(result, classify(i, r))
	}
	return result.ErrorOrNil()
}

func classify(i int, r *api.Response) error {
	switch r.Status {
	case http.StatusNotModified:
		return errors.Wrapf(api.ErrNotModified, "request %d (%s)", i, r.Path)
	case http.StatusPreconditionFailed:
		return errors.Wrapf(api.ErrPreconditionFailed, "request %d (%s)", i, r.Path)
	}
	body, _ := json.Marshal(r.Body)
	return errors.Wrapf(&api.TransportError{StatusCode: r.Status, Body: string(body)}, "request %d (%s)", i, r.Path)
}

func (b *Batch) String() string {
	return fmt.Sprintf("batch of %d requests", len(b.requests))
}
