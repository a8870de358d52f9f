/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package transaction

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mozilla/kinto-http-go/api"
	"github.com/mozilla/kinto-http-go/api/batch"
	"github.com/mozilla/kinto-http-go/api/collections"
	"github.com/mozilla/kinto-http-go/api/records"
)

// Create creates r upon commit, and deletes it upon rollback if (and only
// if) it was created.
func Create(r api.Resource) *Transaction {
	created := false
	return NewTransaction().
		WithCommit(func() error {
			if err := api.Create(r); err != nil {
				return errors.Wrapf(err, "failed to create %s", r.ID())
			}
			created = true
			return nil
		}).
		WithRollback(func(cause error) error {
			if !created {
				return nil
			}
			log.WithField("id", r.ID()).WithError(cause).Warn("deleting resource upon rollback")
			if err := api.DeleteIfUnchanged(r); err != nil {
				return errors.Wrapf(err, "failed to delete %s upon rollback", r.ID())
			}
			return nil
		})
}

// Import creates the given records within collection, in batches of at
// most maxRequests records each. Each batch is one Transaction, whose
// rollback deletes the records it created.
//
// Records are sent as is, so records without an id are given one by
// Kinto. Records are updated in place with Kinto's copy.
func Import(collection *collections.Collection, recs []*records.Record, maxRequests int) (*Transactions, error) {
	all := batch.New(collection.Config())
	for _, r := range recs {
		req, err := api.CreateRequestFor(r)
		if err != nil {
			return nil, err
		}
		all.Add(req)
	}
	txs := Start()
	offset := 0
	for _, chunk := range all.Chunks(maxRequests) {
		txs.Then(importChunk(collection.Config(), chunk, recs[offset:offset+chunk.Len()]))
		offset += chunk.Len()
	}
	return txs, nil
}

func importChunk(config *api.Config, chunk *batch.Batch, recs []*records.Record) *Transaction {
	var created []*records.Record
	return NewTransaction().
		WithCommit(func() error {
			responses, err := chunk.Send()
			if err != nil {
				return err
			}
			for i, resp := range responses {
				if resp.Status < 200 || resp.Status > 299 {
					continue
				}
				if err := recs[i].Unwrap(resp); err != nil {
					return err
				}
				created = append(created, recs[i])
			}
			return batch.Errors(responses)
		}).
		WithRollback(func(cause error) error {
			if len(created) == 0 {
				return nil
			}
			log.WithField("records", len(created)).WithError(cause).Warn("deleting imported records upon rollback")
			undo := batch.New(config)
			for _, r := range created {
				req, err := api.DeleteRequestFor(r)
				if err != nil {
					return err
				}
				undo.Add(req)
			}
			responses, err := undo.Send()
			if err != nil {
				return errors.Wrap(err, "failed to delete imported records upon rollback")
			}
			return batch.Errors(responses)
		})
}
