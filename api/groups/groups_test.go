/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package groups

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla/kinto-http-go/api"
	"github.com/mozilla/kinto-http-go/api/authz"
	"github.com/mozilla/kinto-http-go/api/buckets"
	"github.com/mozilla/kinto-http-go/api/paths"
	"github.com/mozilla/kinto-http-go/internal/kintotest"
)

func food(t *testing.T) (*kintotest.Server, *buckets.Bucket) {
	server := kintotest.NewServer()
	t.Cleanup(server.Close)
	bucket := buckets.NewBucket(api.NewConfig(server.Endpoint()), "food")
	require.NoError(t, bucket.Create())
	return server, bucket
}

func TestMembers(t *testing.T) {
	_, bucket := food(t)
	g := NewGroup(bucket, "cooks")
	assert.Empty(t, g.Members())

	g.SetMembers([]string{authz.Account("alice"), authz.Account("bob")})
	require.NoError(t, g.Create())

	loaded := NewGroup(bucket, "cooks")
	require.NoError(t, loaded.Load())
	assert.Equal(t, []string{"account:alice", "account:bob"}, loaded.Members())
	assert.Equal(t, []string{}, loaded.Permissions()[authz.Read])
}

func TestUndefinedBucket(t *testing.T) {
	g := NewGroup(buckets.NewBucket(api.NewConfig("http://localhost/v1"), ""), "cooks")
	_, err := g.LoadRequest()
	assert.ErrorIs(t, err, api.ErrUndefinedID)
	_, err = g.CreateRequest()
	assert.ErrorIs(t, err, api.ErrUndefinedID)
	_, err = ListRequest(g.Bucket)
	assert.ErrorIs(t, err, api.ErrUndefinedID)
}

func TestUnwrapReparents(t *testing.T) {
	_, bucket := food(t)
	other := buckets.NewBucket(bucket.Config(), "drinks")
	g := NewGroup(other, "cooks")
	resp := &api.Response{
		Status: http.StatusOK,
		Path:   paths.Group("food", "cooks"),
		Body:   map[string]interface{}{"data": map[string]interface{}{"id": "cooks", "last_modified": float64(3)}},
	}
	require.NoError(t, g.Unwrap(resp))
	assert.Equal(t, "food", g.Bucket.ID())
	assert.NotSame(t, other, g.Bucket)
}

func TestListAndDeleteAll(t *testing.T) {
	_, bucket := food(t)
	for _, id := range []string{"cooks", "waiters", "guests"} {
		require.NoError(t, NewGroup(bucket, id).Create())
	}
	groups, err := List(bucket)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	for _, g := range groups {
		assert.Equal(t, "food", g.Bucket.ID())
	}
	deleted, err := DeleteAll(bucket)
	require.NoError(t, err)
	assert.Len(t, deleted, 3)
	groups, err = List(bucket)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestLifecycle(t *testing.T) {
	_, bucket := food(t)
	g := NewGroup(bucket, "")
	require.NoError(t, g.Set())
	assert.NotEmpty(t, g.ID())
	assert.ErrorIs(t, g.Refresh(), api.ErrNotModified)
	g.SetMembers([]string{authz.Authenticated})
	require.NoError(t, g.Update())
	assert.Equal(t, []string{authz.Authenticated}, g.Members())
	require.NoError(t, g.DeleteIfUnchanged())
	assert.True(t, g.Deleted())
	assert.Error(t, g.Delete())
}
