/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

// Package snapshot keeps local copies of collections in a SQLite database,
// so that their records can be inspected or diffed offline.
package snapshot

import (
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	// sqlite3 package merely needs the import side-effect.
	_ "github.com/mattn/go-sqlite3"

	"github.com/mozilla/kinto-http-go/api"
	"github.com/mozilla/kinto-http-go/api/collections"
	"github.com/mozilla/kinto-http-go/api/paths"
	"github.com/mozilla/kinto-http-go/api/records"
)

const driver = "sqlite3"

var createTables = []string{`
CREATE TABLE IF NOT EXISTS 'collection' (
	'bucket' TEXT NOT NULL,
	'collection' TEXT NOT NULL,
	'last_modified' INTEGER NOT NULL,
	PRIMARY KEY ('bucket', 'collection')
);`, `
CREATE TABLE IF NOT EXISTS 'record' (
	'bucket' TEXT NOT NULL,
	'collection' TEXT NOT NULL,
	'id' TEXT NOT NULL,
	'last_modified' INTEGER NOT NULL,
	'data' TEXT NOT NULL,
	'permissions' TEXT NOT NULL,
	PRIMARY KEY ('bucket', 'collection', 'id')
);`}

const upsertCollectionQuery = `
INSERT OR REPLACE INTO collection ('bucket', 'collection', 'last_modified') VALUES (?,?,?)`

const deleteRecordsQuery = `DELETE FROM record WHERE bucket = ? AND collection = ?`

const insertRecordQuery = `
INSERT INTO record (
	'bucket',
	'collection',
	'id',
	'last_modified',
	'data',
	'permissions'
) VALUES (?,?,?,?,?,?)`

const selectRecordsQuery = `
SELECT id, last_modified, data, permissions FROM record
WHERE bucket = ? AND collection = ?
ORDER BY last_modified DESC, id`

const selectTimestampQuery = `SELECT last_modified FROM collection WHERE bucket = ? AND collection = ?`

type Store struct {
	db *sql.DB
}

// Open opens (creating if need be) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	for _, stmt := range createTables {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "failed to initialize %s", path)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored copy of collection with recs. The timestamp of
// the snapshot is the greatest timestamp among recs.
func (s *Store) Save(collection *collections.Collection, recs []*records.Record) (err error) {
	bucket, name, err := ids(collection)
	if err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				log.WithError(rerr).Error("failed to rollback snapshot")
			}
		}
	}()
	if _, err = tx.Exec(deleteRecordsQuery, bucket, name); err != nil {
		return errors.Wrap(err, "failed to clear previous snapshot")
	}
	insert, err := tx.Prepare(insertRecordQuery)
	if err != nil {
		return err
	}
	defer insert.Close()
	var latest uint64
	for _, r := range recs {
		data, perms, merr := marshal(r)
		if merr != nil {
			err = merr
			return err
		}
		if _, err = insert.Exec(bucket, name, r.ID(), r.Timestamp(), data, perms); err != nil {
			return errors.Wrapf(err, "failed to save record %s", r.ID())
		}
		if r.Timestamp() > latest {
			latest = r.Timestamp()
		}
	}
	if _, err = tx.Exec(upsertCollectionQuery, bucket, name, latest); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	log.WithFields(log.Fields{"bucket": bucket, "collection": name, "records": len(recs)}).Info("snapshot saved")
	return nil
}

// Load returns the stored records of collection, newest first, exactly as
// if they had just been listed from the server.
func (s *Store) Load(collection *collections.Collection) ([]*records.Record, error) {
	bucket, name, err := ids(collection)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(selectRecordsQuery, bucket, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	recs := []*records.Record{}
	for rows.Next() {
		var (
			id           string
			lastModified uint64
			data, perms  string
		)
		if err := rows.Scan(&id, &lastModified, &data, &perms); err != nil {
			return nil, err
		}
		body := map[string]interface{}{}
		document := map[string]interface{}{}
		if err := json.Unmarshal([]byte(data), &document); err != nil {
			return nil, &api.SerializationError{Err: errors.Wrapf(err, "record %s", id)}
		}
		document["id"] = id
		document["last_modified"] = lastModified
		body["data"] = document
		permissions := map[string][]string{}
		if err := json.Unmarshal([]byte(perms), &permissions); err != nil {
			return nil, &api.SerializationError{Err: errors.Wrapf(err, "permissions of record %s", id)}
		}
		body["permissions"] = permissions
		r := records.NewRecord(collection, id)
		if err := r.Unwrap(&api.Response{Path: paths.Record(bucket, name, id), Body: body}); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Timestamp returns the timestamp of the stored copy of collection, or 0
// if none was ever saved.
func (s *Store) Timestamp(collection *collections.Collection) (uint64, error) {
	bucket, name, err := ids(collection)
	if err != nil {
		return 0, err
	}
	var stamp uint64
	err = s.db.QueryRow(selectTimestampQuery, bucket, name).Scan(&stamp)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return stamp, err
}

func ids(collection *collections.Collection) (string, string, error) {
	if collection.Bucket == nil || collection.Bucket.ID() == "" {
		return "", "", errors.Wrap(api.ErrUndefinedID, "bucket of collection")
	}
	if collection.ID() == "" {
		return "", "", errors.Wrap(api.ErrUndefinedID, "collection")
	}
	return collection.Bucket.ID(), collection.ID(), nil
}

func marshal(r *records.Record) (string, string, error) {
	data := make(api.Document, len(r.Data()))
	for k, v := range r.Data() {
		if k == "id" || k == "last_modified" {
			continue
		}
		data[k] = v
	}
	d, err := json.Marshal(data)
	if err != nil {
		return "", "", &api.SerializationError{Err: errors.Wrapf(err, "record %s", r.ID())}
	}
	perms := r.Permissions()
	if perms == nil {
		perms = map[string][]string{}
	}
	p, err := json.Marshal(perms)
	if err != nil {
		return "", "", &api.SerializationError{Err: errors.Wrapf(err, "permissions of record %s", r.ID())}
	}
	return string(d), string(p), nil
}
