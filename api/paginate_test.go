/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package api_test

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla/kinto-http-go/api"
	"github.com/mozilla/kinto-http-go/api/paths"
	"github.com/mozilla/kinto-http-go/internal/kintotest"
)

func fixture(t *testing.T, records int) (*kintotest.Server, *api.Config) {
	t.Helper()
	server := kintotest.NewServer()
	t.Cleanup(server.Close)
	server.Put(paths.Bucket("food"), nil)
	server.Put(paths.Collection("food", "meat"), nil)
	for i := 0; i < records; i++ {
		server.Put(paths.Record("food", "meat", fmt.Sprintf("cut-%02d", i)), map[string]interface{}{"rank": i})
	}
	return server, api.NewConfig(server.Endpoint())
}

func TestPaginateFollowsEveryPage(t *testing.T) {
	server, config := fixture(t, 10)
	list := paths.RecordList("food", "meat")

	resp, err := api.Paginate(config, api.NewRequest(http.MethodGet, list).WithLimit(3))
	require.NoError(t, err)
	entries, err := resp.Entries()
	require.NoError(t, err)

	require.Len(t, entries, 10)
	assert.Equal(t, 4, server.Requests(http.MethodGet, list))
	// Kinto lists the most recently modified first.
	for i, entry := range entries {
		assert.Equal(t, fmt.Sprintf("cut-%02d", 9-i), entry.(map[string]interface{})["id"])
	}
	assert.Equal(t, list, resp.Path)
	assert.Empty(t, resp.NextPage())
}

func TestPaginateSinglePage(t *testing.T) {
	server, config := fixture(t, 3)
	list := paths.RecordList("food", "meat")

	resp, err := api.Paginate(config, api.NewRequest(http.MethodGet, list))
	require.NoError(t, err)
	entries, err := resp.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, 1, server.Requests(http.MethodGet, list))
}

func TestPaginateDeleteAll(t *testing.T) {
	server, config := fixture(t, 7)
	list := paths.RecordList("food", "meat")

	resp, err := api.Paginate(config, api.NewRequest(http.MethodDelete, list).WithLimit(2))
	require.NoError(t, err)
	entries, err := resp.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 7)
	assert.Equal(t, 4, server.Requests(http.MethodDelete, list))

	resp, err = api.Paginate(config, api.NewRequest(http.MethodGet, list))
	require.NoError(t, err)
	entries, err = resp.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPaginateUnsupportedMethod(t *testing.T) {
	_, config := fixture(t, 0)
	_, err := api.Paginate(config, api.NewRequest(http.MethodPost, paths.BucketList()))
	assert.ErrorIs(t, err, api.ErrUnsupported)
}

func TestPaginateAbortsOnFailure(t *testing.T) {
	var calls int32
	config := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Next-Page", "http://"+r.Host+"/v1/buckets?_token=abc")
			respond(http.StatusOK, `{"data": [{"id": "food"}]}`)(w, r)
			return
		}
		respond(http.StatusServiceUnavailable, `{"code": 503}`)(w, r)
	})
	resp, err := api.Paginate(config, api.NewRequest(http.MethodGet, paths.BucketList()))
	assert.Nil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, api.StatusCode(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPaginateKeepsLastHeaders(t *testing.T) {
	var calls int32
	config := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Next-Page", "http://"+r.Host+"/v1/buckets?_token=abc")
			respond(http.StatusOK, `{"data": [{"id": "food"}]}`)(w, r)
			return
		}
		w.Header().Set("Backoff", "30")
		respond(http.StatusOK, `{"data": [{"id": "drinks"}]}`)(w, r)
	})
	resp, err := api.Paginate(config, api.NewRequest(http.MethodGet, paths.BucketList()))
	require.NoError(t, err)
	entries, err := resp.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Empty(t, resp.NextPage())
	assert.Equal(t, 30*time.Second, resp.Backoff())
}
