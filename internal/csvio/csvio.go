/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

// Package csvio converts records to and from CSV, one record per row. The
// document of each record is kept as a JSON object in the "data" column.
package csvio

import (
	"encoding/json"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/mozilla/kinto-http-go/api"
	"github.com/mozilla/kinto-http-go/api/collections"
	"github.com/mozilla/kinto-http-go/api/records"
)

type Row struct {
	ID           string `csv:"id"`
	LastModified uint64 `csv:"last_modified"`
	Data         string `csv:"data"`
}

// Rows flattens records into rows. The id and timestamp of each record are
// taken out of its document and into their own column.
func Rows(recs []*records.Record) ([]*Row, error) {
	rows := make([]*Row, len(recs))
	for i, r := range recs {
		data := make(api.Document, len(r.Data()))
		for k, v := range r.Data() {
			if k == "id" || k == "last_modified" {
				continue
			}
			data[k] = v
		}
		b, err := json.Marshal(data)
		if err != nil {
			return nil, &api.SerializationError{Err: errors.Wrapf(err, "record %s", r.ID())}
		}
		rows[i] = &Row{ID: r.ID(), LastModified: r.Timestamp(), Data: string(b)}
	}
	return rows, nil
}

// Records turns rows back into records of the given collection. Rows
// without an id yield records whose id will be picked by Kinto. Timestamps
// are ignored: the records are meant to be written, not trusted.
func Records(collection *collections.Collection, rows []*Row) ([]*records.Record, error) {
	recs := make([]*records.Record, len(rows))
	for i, row := range rows {
		data := api.Document{}
		if row.Data != "" {
			if err := json.Unmarshal([]byte(row.Data), &data); err != nil {
				return nil, &api.SerializationError{Err: errors.Wrapf(err, "row %d (%s)", i+1, row.ID)}
			}
		}
		delete(data, "last_modified")
		recs[i] = records.NewRecord(collection, row.ID)
		recs[i].SetData(data)
	}
	return recs, nil
}

func Write(out io.Writer, recs []*records.Record) error {
	rows, err := Rows(recs)
	if err != nil {
		return err
	}
	return gocsv.Marshal(rows, out)
}

func Read(in io.Reader, collection *collections.Collection) ([]*records.Record, error) {
	var rows []*Row
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		return nil, &api.SerializationError{Err: errors.Wrap(err, "malformed CSV")}
	}
	return Records(collection, rows)
}
