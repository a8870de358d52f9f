/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package batch

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla/kinto-http-go/api"
	"github.com/mozilla/kinto-http-go/api/buckets"
	"github.com/mozilla/kinto-http-go/api/collections"
	"github.com/mozilla/kinto-http-go/api/records"
	"github.com/mozilla/kinto-http-go/internal/kintotest"
)

func newServer(t *testing.T) (*kintotest.Server, *api.Config) {
	server := kintotest.NewServer()
	t.Cleanup(server.Close)
	return server, api.NewConfig(server.Endpoint())
}

func TestOrderIsPreserved(t *testing.T) {
	_, config := newServer(t)
	bucket := buckets.NewBucket(config, "a")
	set, err := api.SetRequestFor(bucket)
	require.NoError(t, err)
	del, err := api.DeleteRequestFor(bucket)
	require.NoError(t, err)

	responses, err := New(config).Add(set, del).Send()
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Equal(t, http.StatusCreated, responses[0].Status)
	assert.Equal(t, http.StatusOK, responses[1].Status)
	assert.Equal(t, "/buckets/a", responses[0].Path)
	assert.NoError(t, Errors(responses))

	tombstone, err := buckets.FromResponse(config, responses[1])
	require.NoError(t, err)
	assert.True(t, tombstone.Deleted())
}

func TestRequest(t *testing.T) {
	config := api.NewConfig("http://localhost/v1")
	bucket := buckets.NewBucket(config, "food")
	create, err := api.CreateRequestFor(bucket)
	require.NoError(t, err)
	load, err := api.LoadRequestFor(bucket)
	require.NoError(t, err)

	req := New(config).Add(create, load.WithQuery("_fields", "id")).Request()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/batch", req.Path)
	body := req.Body.(batchedRequests)
	require.Len(t, body.Requests, 2)
	assert.Equal(t, "POST", body.Requests[0].Method)
	assert.Equal(t, "/buckets", body.Requests[0].Path)
	assert.Equal(t, "*", body.Requests[0].Headers["If-None-Match"])
	assert.NotNil(t, body.Requests[0].Body)
	assert.Equal(t, "/buckets/food?_fields=id", body.Requests[1].Path)
	assert.Nil(t, body.Requests[1].Body)
	assert.Nil(t, body.Requests[1].Headers)
}

func TestErrors(t *testing.T) {
	_, config := newServer(t)
	food := buckets.NewBucket(config, "food")
	require.NoError(t, food.Create())
	recreate, err := api.CreateRequestFor(food)
	require.NoError(t, err)
	missing, err := api.LoadRequestFor(buckets.NewBucket(config, "drinks"))
	require.NoError(t, err)
	load, err := api.LoadRequestFor(food)
	require.NoError(t, err)

	responses, err := New(config).Add(recreate, missing, load).Send()
	require.NoError(t, err)
	err = Errors(responses)
	require.Error(t, err)
	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	require.Len(t, merr.Errors, 2)
	assert.ErrorIs(t, merr.Errors[0], api.ErrPreconditionFailed)
	assert.Equal(t, http.StatusNotFound, api.StatusCode(merr.Errors[1]))
}

func TestChunks(t *testing.T) {
	server, config := newServer(t)
	server.BatchMaxRequests = 4
	bucket := buckets.NewBucket(config, "food")
	require.NoError(t, bucket.Create())
	collection := collections.NewCollection(bucket, "meat")
	require.NoError(t, collection.Create())

	b := New(config)
	for i := 0; i < 10; i++ {
		r := records.NewRecord(collection, fmt.Sprintf("r%d", i))
		req, err := api.CreateRequestFor(r)
		require.NoError(t, err)
		b.Add(req)
	}
	_, err := b.Send()
	assert.Equal(t, http.StatusBadRequest, api.StatusCode(err))

	chunks := b.Chunks(4)
	require.Len(t, chunks, 3)
	assert.Equal(t, 2, chunks[2].Len())
	var created []*records.Record
	for _, chunk := range chunks {
		responses, err := chunk.Send()
		require.NoError(t, err)
		require.NoError(t, Errors(responses))
		for _, resp := range responses {
			r, err := records.FromResponse(config, resp)
			require.NoError(t, err)
			created = append(created, r)
		}
	}
	require.Len(t, created, 10)
	for i, r := range created {
		assert.Equal(t, fmt.Sprintf("r%d", i), r.ID())
		assert.Equal(t, "food", r.Collection.Bucket.ID())
	}
	assert.Len(t, b.Chunks(0), 1)
}

func TestEmpty(t *testing.T) {
	server, config := newServer(t)
	responses, err := New(config).Send()
	require.NoError(t, err)
	assert.Empty(t, responses)
	assert.Zero(t, server.Requests(http.MethodPost, "/batch"))
}
