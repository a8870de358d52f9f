/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

// Package paths builds and parses the REST resources of a Kinto server.
//
// Every returned string fulfills the path BEYOND the server's base URL
// (which usually carries the API version, E.G. "https://kinto.example.com/v1").
// Identifiers are inserted verbatim and are never validated.
package paths

import (
	"fmt"
	"regexp"
	"strings"
)

// Resource kinds as they appear in paths.
const (
	Buckets     = "buckets"
	Groups      = "groups"
	Collections = "collections"
	Records     = "records"
	Accounts    = "accounts"
)

// https://docs.kinto-storage.org/en/stable/api/1.x/batch.html
func Batch() string {
	return "/batch"
}

// Flush is only enabled on servers configured with the flush endpoint,
// which is typically only the case for test deployments.
func Flush() string {
	return "/__flush__"
}

// https://docs.kinto-storage.org/en/stable/api/1.x/accounts.html
func Account(id string) string {
	return fmt.Sprintf("/%s/%s", Accounts, id)
}

func BucketList() string {
	return "/" + Buckets
}

func Bucket(bucket string) string {
	return fmt.Sprintf("%s/%s", BucketList(), bucket)
}

func GroupList(bucket string) string {
	return fmt.Sprintf("%s/%s", Bucket(bucket), Groups)
}

func Group(bucket, group string) string {
	return fmt.Sprintf("%s/%s", GroupList(bucket), group)
}

func CollectionList(bucket string) string {
	return fmt.Sprintf("%s/%s", Bucket(bucket), Collections)
}

func Collection(bucket, collection string) string {
	return fmt.Sprintf("%s/%s", CollectionList(bucket), collection)
}

func RecordList(bucket, collection string) string {
	return fmt.Sprintf("%s/%s", Collection(bucket, collection), Records)
}

func Record(bucket, collection, record string) string {
	return fmt.Sprintf("%s/%s", RecordList(bucket, collection), record)
}

var version = regexp.MustCompile(`^/v\d+(/|$)`)

// StripVersion removes a leading API version segment (E.G. "/v1") from the given path.
func StripVersion(path string) string {
	loc := version.FindStringIndex(path)
	if loc == nil {
		return path
	}
	stripped := path[loc[1]:]
	if !strings.HasPrefix(stripped, "/") {
		stripped = "/" + stripped
	}
	return stripped
}

// Parse splits a path such as "/buckets/food/collections/meat" into a mapping
// of resource kinds to identifiers, E.G.
//
//	{"buckets": "food", "collections": "meat"}
//
// Any version prefix and query string are ignored. A trailing kind without an
// identifier (E.G. "/buckets/food/collections") maps to the empty string.
func Parse(path string) map[string]string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	path = strings.Trim(StripVersion(path), "/")
	ids := make(map[string]string)
	if path == "" {
		return ids
	}
	segments := strings.Split(path, "/")
	for i := 0; i < len(segments); i += 2 {
		value := ""
		if i+1 < len(segments) {
			value = segments[i+1]
		}
		ids[segments[i]] = value
	}
	return ids
}
