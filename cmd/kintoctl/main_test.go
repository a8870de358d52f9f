/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package main

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla/kinto-http-go/api"
	"github.com/mozilla/kinto-http-go/api/buckets"
	"github.com/mozilla/kinto-http-go/api/collections"
	"github.com/mozilla/kinto-http-go/api/paths"
	"github.com/mozilla/kinto-http-go/api/records"
	"github.com/mozilla/kinto-http-go/internal/kintotest"
)

func kintoctl(t *testing.T, server *kintotest.Server, args ...string) (string, error) {
	out := new(bytes.Buffer)
	root := newRootCommand(out)
	root.SetArgs(append([]string{
		"--config", filepath.Join("testdata", "kinto.yml"),
		"--server", server.Endpoint(),
		"--token", "bearer-of-good-news",
		"--log-level", "error",
	}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestInfo(t *testing.T) {
	server := kintotest.NewServer()
	defer server.Close()
	out, err := kintoctl(t, server, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "batch_max_requests: 25")
	assert.NotContains(t, out, "not authenticated")
}

func TestImportExport(t *testing.T) {
	server := kintotest.NewServer()
	defer server.Close()
	server.BatchMaxRequests = 2
	server.Put(paths.Bucket("food"), nil)
	server.Put(paths.Collection("food", "meat"), nil)

	csv := filepath.Join(t.TempDir(), "meat.csv")
	require.NoError(t, os.WriteFile(csv, []byte("id,last_modified,data\n"+
		"entrecote,0,\"{\"\"weight\"\":0.3}\"\n"+
		"flank,0,\"{\"\"weight\"\":0.5}\"\n"+
		"brisket,0,\"{\"\"weight\"\":1.2}\"\n"), 0644))
	// The configuration file names food/meat as the defaults.
	out, err := kintoctl(t, server, "import", csv)
	require.NoError(t, err)
	assert.Equal(t, "imported 3 records\n", out)
	assert.Equal(t, 2, server.Requests(http.MethodPost, paths.Batch()))

	out, err = kintoctl(t, server, "records", "--limit", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "id,last_modified,data", lines[0])

	db := filepath.Join(t.TempDir(), "snapshot.sqlite")
	out, err = kintoctl(t, server, "export", db, "food", "meat")
	require.NoError(t, err)
	assert.Equal(t, "saved 3 records (previous snapshot: 0)\n", out)
}

func TestImportRollsBack(t *testing.T) {
	server := kintotest.NewServer()
	defer server.Close()
	server.BatchMaxRequests = 1
	server.Put(paths.Bucket("food"), nil)
	server.Put(paths.Collection("food", "meat"), nil)
	server.Put(paths.Record("food", "meat", "flank"), map[string]interface{}{"weight": 0.1})

	csv := filepath.Join(t.TempDir(), "meat.csv")
	require.NoError(t, os.WriteFile(csv, []byte("id,last_modified,data\n"+
		"entrecote,0,\"{\"\"weight\"\":0.3}\"\n"+
		"flank,0,\"{\"\"weight\"\":0.5}\"\n"), 0644))
	_, err := kintoctl(t, server, "import", csv)
	assert.ErrorIs(t, err, api.ErrPreconditionFailed)

	meat := collections.NewCollection(buckets.NewBucket(api.NewConfig(server.Endpoint()), "food"), "meat")
	left, err := records.List(meat)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "flank", left[0].ID())
}

func TestSigner(t *testing.T) {
	server := kintotest.NewServer()
	defer server.Close()
	server.Put(paths.Bucket("food"), nil)
	server.Put(paths.Collection("food", "meat"), nil)
	out, err := kintoctl(t, server, "signer", "to-review")
	require.NoError(t, err)
	assert.Equal(t, "food/meat: to-review\n", out)
}

func TestMissingCollection(t *testing.T) {
	server := kintotest.NewServer()
	defer server.Close()
	_, err := kintoctl(t, server, "--config", filepath.Join("testdata", "empty.yml"), "records")
	assert.EqualError(t, err, "no bucket given, and none configured")
}
