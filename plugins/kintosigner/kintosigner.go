/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

// Package kintosigner drives the review workflow of collections guarded by
// the kinto-signer plugin, whose state lives in the "status" field of the
// collection itself.
//
// https://remote-settings.readthedocs.io/en/latest/support.html
package kintosigner

import (
	"github.com/pkg/errors"

	"github.com/mozilla/kinto-http-go/api"
	"github.com/mozilla/kinto-http-go/api/collections"
)

type Status string

const (
	WIP        Status = "work-in-progress"
	ToReview   Status = "to-review"
	ToSign     Status = "to-sign"
	Signed     Status = "signed"
	ToRollback Status = "to-rollback"
	ToResign   Status = "to-resign"
)

func (s Status) InReview() bool {
	return s == ToReview
}

// Request returns a PATCH of the collection's status, leaving the rest of
// its document untouched.
func Request(collection *collections.Collection, status Status) (*api.Request, error) {
	return collection.PatchRequest(api.Document{"status": string(status)})
}

// Transition asks the signer to move the collection to the given status,
// and applies the server's copy of the collection.
func Transition(collection *collections.Collection, status Status) error {
	req, err := Request(collection, status)
	if err != nil {
		return err
	}
	resp, err := api.Send(collection.Config(), req)
	if err != nil {
		return errors.Wrapf(err, "failed to move %s to %s", req.Path, status)
	}
	return collection.Unwrap(resp)
}

// StatusOf loads the collection and returns its signer status, which is
// empty for collections the signer does not manage.
func StatusOf(collection *collections.Collection) (Status, error) {
	if err := collection.Load(); err != nil {
		return "", err
	}
	status, _ := collection.Data()["status"].(string)
	return Status(status), nil
}

func RequestReview(collection *collections.Collection) error {
	return Transition(collection, ToReview)
}

func Sign(collection *collections.Collection) error {
	return Transition(collection, ToSign)
}

func Rollback(collection *collections.Collection) error {
	return Transition(collection, ToRollback)
}
