/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package csvio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla/kinto-http-go/api"
	"github.com/mozilla/kinto-http-go/api/buckets"
	"github.com/mozilla/kinto-http-go/api/collections"
	"github.com/mozilla/kinto-http-go/api/paths"
	"github.com/mozilla/kinto-http-go/api/records"
)

func meat() *collections.Collection {
	return collections.NewCollection(buckets.NewBucket(api.NewConfig("http://localhost/v1"), "food"), "meat")
}

func TestWrite(t *testing.T) {
	r, err := records.FromResponse(meat().Config(), &api.Response{
		Path: paths.Record("food", "meat", "entrecote"),
		Body: map[string]interface{}{"data": map[string]interface{}{
			"id":            "entrecote",
			"last_modified": float64(1567),
			"cut":           "rib, boneless",
		}},
	})
	require.NoError(t, err)
	out := new(bytes.Buffer)
	require.NoError(t, Write(out, []*records.Record{r}))
	assert.Equal(t, "id,last_modified,data\nentrecote,1567,\"{\"\"cut\"\":\"\"rib, boneless\"\"}\"\n", out.String())
}

func TestRead(t *testing.T) {
	in := strings.NewReader("id,last_modified,data\n" +
		"entrecote,1567,\"{\"\"cut\"\":\"\"rib\"\"}\"\n" +
		",0,\"{\"\"cut\"\":\"\"flank\"\", \"\"last_modified\"\": 3}\"\n")
	recs, err := Read(in, meat())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "entrecote", recs[0].ID())
	assert.Equal(t, "rib", recs[0].Data()["cut"])
	assert.Zero(t, recs[0].Timestamp())
	assert.Empty(t, recs[1].ID())
	assert.Equal(t, api.Document{"cut": "flank"}, recs[1].Data())
	assert.Equal(t, "meat", recs[1].Collection.ID())
}

func TestReadMalformed(t *testing.T) {
	_, err := Read(strings.NewReader("id,last_modified,data\nentrecote,0,{not json\n"), meat())
	var serialization *api.SerializationError
	assert.ErrorAs(t, err, &serialization)
}
