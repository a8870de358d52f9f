/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Paginate performs a request against a plural endpoint (a listing or a
// delete-all) and follows every Next-Page cursor the server hands back,
// merging the entries of each page into the first page's response. The
// merged response carries the last page's headers, minus the cursor.
//
// Pages are fetched strictly one after the other, as each cursor is only
// known once the previous page has arrived. The first failure aborts the
// whole operation and no partial result is returned.
//
// See https://docs.kinto-storage.org/en/stable/api/1.x/pagination.html
func Paginate(config *Config, r *Request) (*Response, error) {
	if r.Method != http.MethodGet && r.Method != http.MethodDelete {
		return nil, errors.Wrapf(ErrUnsupported, "cannot paginate %s", r)
	}
	acc, err := Send(config, r)
	if err != nil {
		return nil, err
	}
	entries, err := acc.Entries()
	if err != nil {
		return nil, err
	}
	page := acc
	for pages := 1; page.NextPage() != ""; pages++ {
		next := r.Clone()
		next.Path = cursorPath(config, page.NextPage())
		next.Query = url.Values{}
		log.WithField("path", next.Path).WithField("page", pages+1).Debug("following Kinto pagination")
		page, err = Send(config, next)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to retrieve page %d of %s", pages+1, r)
		}
		more, err := page.Entries()
		if err != nil {
			return nil, err
		}
		entries = append(entries, more...)
	}
	body := make(map[string]interface{}, len(acc.Body))
	for k, v := range acc.Body {
		body[k] = v
	}
	body["data"] = entries
	// The last page's headers carry the most recent Backoff, and no cursor.
	header := page.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Del("Next-Page")
	return &Response{
		Status: acc.Status,
		Header: header,
		Path:   acc.Path,
		Body:   body,
	}, nil
}

// cursorPath turns a Next-Page cursor (usually an absolute URL) back into a
// path relative to the configured server URL.
func cursorPath(config *Config, cursor string) string {
	if strings.HasPrefix(cursor, config.URL()) {
		return strings.TrimPrefix(cursor, config.URL())
	}
	u, err := url.Parse(cursor)
	if err != nil || !u.IsAbs() {
		return cursor
	}
	// The server may be known to us by another name (E.G. behind a proxy),
	// so only keep the request URI, relative to our own API base path.
	return strings.TrimPrefix(u.RequestURI(), config.basePath())
}
