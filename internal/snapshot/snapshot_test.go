/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package snapshot

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla/kinto-http-go/api"
	"github.com/mozilla/kinto-http-go/api/buckets"
	"github.com/mozilla/kinto-http-go/api/collections"
	"github.com/mozilla/kinto-http-go/api/records"
	"github.com/mozilla/kinto-http-go/internal/kintotest"
)

func open(t *testing.T) *Store {
	store, err := Open(filepath.Join(t.TempDir(), "snapshot.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveLoad(t *testing.T) {
	server := kintotest.NewServer()
	defer server.Close()
	bucket := buckets.NewBucket(api.NewConfig(server.Endpoint()), "food")
	require.NoError(t, bucket.Create())
	meat := collections.NewCollection(bucket, "meat")
	require.NoError(t, meat.Create())
	for _, cut := range []string{"entrecote", "flank", "brisket"} {
		r := records.NewRecord(meat, cut)
		r.SetData(api.Document{"cut": cut, "weight": 0.5})
		require.NoError(t, r.Create())
	}
	recs, err := records.List(meat)
	require.NoError(t, err)

	store := open(t)
	stamp, err := store.Timestamp(meat)
	require.NoError(t, err)
	assert.Zero(t, stamp)

	require.NoError(t, store.Save(meat, recs))
	stamp, err = store.Timestamp(meat)
	require.NoError(t, err)
	assert.Equal(t, recs[0].Timestamp(), stamp)

	loaded, err := store.Load(meat)
	require.NoError(t, err)
	require.Len(t, loaded, len(recs))
	for i := range recs {
		assert.Equal(t, recs[i].ID(), loaded[i].ID())
		assert.Equal(t, recs[i].Timestamp(), loaded[i].Timestamp())
		assert.Equal(t, recs[i].Data()["cut"], loaded[i].Data()["cut"])
		assert.Equal(t, 0.5, loaded[i].Data()["weight"])
		assert.Equal(t, recs[i].Permissions(), loaded[i].Permissions())
		assert.Equal(t, "meat", loaded[i].Collection.ID())
		assert.Equal(t, "food", loaded[i].Collection.Bucket.ID())
	}

	// A later save replaces the previous one.
	require.NoError(t, store.Save(meat, recs[:1]))
	loaded, err = store.Load(meat)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestUndefinedCollection(t *testing.T) {
	store := open(t)
	orphan := collections.NewCollection(buckets.NewBucket(api.NewConfig("http://localhost/v1"), "food"), "")
	_, err := store.Load(orphan)
	assert.ErrorIs(t, err, api.ErrUndefinedID)
	assert.ErrorIs(t, store.Save(orphan, nil), api.ErrUndefinedID)
}
