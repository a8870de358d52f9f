/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package api

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotModified is returned when a conditional read found the
	// resource unchanged (304).
	ErrNotModified = errors.New("kinto: not modified")
	// ErrPreconditionFailed is returned when a conditional write lost an
	// optimistic concurrency race, or when the target did (or did not)
	// already exist as required (412).
	ErrPreconditionFailed = errors.New("kinto: precondition failed")
	// ErrUndefinedID is returned when an operation requires an identifier
	// that is not yet known.
	ErrUndefinedID = errors.New("kinto: undefined resource id")
	// ErrUnsupported is returned for operations that the given endpoint,
	// or the target deployment, does not offer.
	ErrUnsupported = errors.New("kinto: unsupported operation")
	// ErrDeleted is returned when writing a resource whose last exchange
	// deleted it. It must be reloaded (or rebuilt) first.
	ErrDeleted = errors.New("kinto: resource was deleted")
)

// TransportError is either a failure to perform the exchange at all
// (Err is set) or an unexpected non-2xx status (StatusCode is set).
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kinto: transport failure: %v", e.Err)
	}
	return fmt.Sprintf("kinto: unexpected status code %d. Message %s", e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// SerializationError is returned when a document could not be encoded, or
// when the server answered with a malformed or unexpected document.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("kinto: serialization failure: %v", e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

func serializationError(format string, args ...interface{}) error {
	return &SerializationError{Err: errors.Errorf(format, args...)}
}

// StatusCode returns the HTTP status carried by err, if any.
func StatusCode(err error) int {
	var t *TransportError
	if errors.As(err, &t) {
		return t.StatusCode
	}
	return 0
}
