/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package transaction

import (
	"sync"

	"github.com/hashicorp/go-multierror"
)

// A unit of work is any function that can report whether or not it succeeded.
// Most idiomatically, this will typically be a closure which captures the
// resource it is intended to write to Kinto (or to take back out of it).
type Work = func() error

type Rollback = func(cause error) error

// NOOP is a convenience function for explicitly declaring that no
// particular behavior is intended for a specific unit of work.
func NOOP() error {
	return nil
}

func NOOPRollback(_ error) error {
	return nil
}

// A Transactor is any type which can write some state to Kinto via its
// Commit function, undo that write via its Rollback function, and release
// whatever it holds via its Close function.
type Transactor interface {
	Commit() error
	Rollback(cause error) error
	Close() error
}

// A Transaction is a single write to Kinto along with how to undo it.
//
// Each of its functions runs at most once, whatever the number of calls.
// A Transaction is not itself safe for concurrent configuration, but
// running it is.
type Transaction struct {
	commit   Work
	rollback Rollback
	close    Work

	committed, rolledBack, closed sync.Once
}

func NewTransaction() *Transaction {
	return &Transaction{
		commit:   NOOP,
		rollback: NOOPRollback,
		close:    NOOP,
	}
}

// WithCommit sets the commit function. A nil input defaults to NOOP.
func (tx *Transaction) WithCommit(commit Work) *Transaction {
	tx.commit = commit
	if commit == nil {
		tx.commit = NOOP
	}
	return tx
}

// WithRollback sets the rollback function. A nil input defaults to NOOP.
func (tx *Transaction) WithRollback(rollback Rollback) *Transaction {
	tx.rollback = rollback
	if rollback == nil {
		tx.rollback = NOOPRollback
	}
	return tx
}

// WithClose sets the close function. A nil input defaults to NOOP.
func (tx *Transaction) WithClose(close Work) *Transaction {
	tx.close = close
	if close == nil {
		tx.close = NOOP
	}
	return tx
}

func (tx *Transaction) Commit() (err error) {
	tx.committed.Do(func() {
		err = tx.commit()
	})
	return err
}

func (tx *Transaction) Rollback(cause error) (err error) {
	tx.rolledBack.Do(func() {
		err = tx.rollback(cause)
	})
	return err
}

func (tx *Transaction) Close() (err error) {
	tx.closed.Do(func() {
		err = tx.close()
	})
	return err
}

// Transactions runs any number of Transactors as one.
//
// Transactions is itself a Transactor, so they nest. Transactors are
// committed in the order in which they were given to Then, and rolled
// back (or closed) in the reverse order, but only those whose commit was
// attempted.
type Transactions struct {
	queue        []Transactor
	attempted    []Transactor
	autoClose    bool
	autoRollback bool
}

func Start() *Transactions {
	return &Transactions{}
}

// AutoClose makes Commit close every attempted Transactor before returning,
// after rolling them back if AutoRollbackOnError is also set. Closing
// errors are reported by Commit.
func (txs *Transactions) AutoClose(should bool) *Transactions {
	txs.autoClose = should
	return txs
}

// AutoRollbackOnError makes Commit roll back every attempted Transactor if
// any of them failed. Rollback errors are reported by Commit, along with
// the failure that caused them.
func (txs *Transactions) AutoRollbackOnError(should bool) *Transactions {
	txs.autoRollback = should
	return txs
}

// Then is a fluid interface for building Transactions.
//
//	txs := transaction.Start().
//			Then(transaction.Create(bucket)).
//			Then(transaction.Create(collection))
//	defer txs.Close()
//	txs.Commit()
func (txs *Transactions) Then(tx Transactor) *Transactions {
	txs.queue = append(txs.queue, tx)
	return txs
}

// Commit commits every Transactor in order, stopping at the first failure.
// Calling Commit again resumes after the last attempted Transactor.
func (txs *Transactions) Commit() error {
	var result *multierror.Error
	for _, tx := range txs.queue[len(txs.attempted):] {
		txs.attempted = append(txs.attempted, tx)
		if err := tx.Commit(); err != nil {
			result = multierror.Append(result, err)
			break
		}
	}
	if txs.autoRollback && result != nil {
		if err := txs.Rollback(result.Errors[0]); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if txs.autoClose {
		if err := txs.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Rollback rolls back, most recent first, every Transactor whose commit
// was attempted (whether it failed or not).
func (txs *Transactions) Rollback(cause error) error {
	var result *multierror.Error
	for i := len(txs.attempted) - 1; i >= 0; i-- {
		if err := txs.attempted[i].Rollback(cause); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Close closes, most recent first, every Transactor whose commit was attempted.
func (txs *Transactions) Close() error {
	var result *multierror.Error
	for i := len(txs.attempted) - 1; i >= 0; i-- {
		if err := txs.attempted[i].Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
