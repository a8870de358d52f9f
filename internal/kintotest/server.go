/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

// Package kintotest provides an in-process fake of the parts of the Kinto
// HTTP API that this client speaks, for use in tests.
//
// It understands buckets, groups, collections and records, their plural
// endpoints (with _limit/Next-Page pagination), conditional requests,
// batch requests, accounts and the flush endpoint. It is deliberately
// permissive: there is no permission checking whatsoever.
package kintotest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const version = "/v1"

type object struct {
	data        map[string]interface{}
	permissions map[string][]string
	modified    uint64
}

// Server is a fake Kinto server listening on a local port.
type Server struct {
	*httptest.Server

	// BatchMaxRequests is advertised by the root endpoint and enforced by /batch.
	BatchMaxRequests int
	// PaginateBy is the page size applied to plural endpoints when the
	// client does not provide _limit. Zero disables pagination.
	PaginateBy int
	// FlushDisabled makes /__flush__ answer 404, as production servers do.
	FlushDisabled bool
	// Backoff, when set, is sent as the Backoff header of every response.
	Backoff string

	router   *mux.Router
	lock     sync.Mutex
	objects  map[string]*object
	accounts map[string]string
	clock    uint64
	requests map[string]int
}

// NewServer starts a fake Kinto server. Callers should Close it when done.
func NewServer() *Server {
	s := &Server{
		BatchMaxRequests: 25,
		objects:          make(map[string]*object),
		accounts:         make(map[string]string),
		requests:         make(map[string]int),
	}
	r := mux.NewRouter()
	r.Use(s.count)
	v1 := r.PathPrefix(version).Subrouter()
	v1.HandleFunc("/", s.root).Methods(http.MethodGet)
	v1.HandleFunc("/__flush__", s.flush).Methods(http.MethodPost)
	v1.HandleFunc("/batch", s.batch).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/{id}", s.account).Methods(http.MethodPut)
	for _, plural := range []string{
		"/buckets",
		"/buckets/{bucket}/groups",
		"/buckets/{bucket}/collections",
		"/buckets/{bucket}/collections/{collection}/records",
	} {
		v1.HandleFunc(plural, s.plural).Methods(http.MethodGet, http.MethodPost, http.MethodDelete)
	}
	for _, single := range []string{
		"/buckets/{bucket}",
		"/buckets/{bucket}/groups/{group}",
		"/buckets/{bucket}/collections/{collection}",
		"/buckets/{bucket}/collections/{collection}/records/{record}",
	} {
		v1.HandleFunc(single, s.single).Methods(http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
	s.router = r
	s.Server = httptest.NewServer(r)
	return s
}

// Endpoint is the base URL clients should be configured with (E.G. "http://127.0.0.1:1234/v1").
func (s *Server) Endpoint() string {
	return s.Server.URL + version
}

// Requests returns how many requests were received for the given method
// and path (relative to the version prefix, without any query string).
func (s *Server) Requests(method, path string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.requests[method+" "+path]
}

// Len returns the number of objects stored.
func (s *Server) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.objects)
}

// Put stores an object directly, bypassing the HTTP API, and returns its timestamp.
func (s *Server) Put(path string, data map[string]interface{}) uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	obj := &object{data: copyData(data), permissions: map[string][]string{}, modified: s.tick()}
	obj.data["id"] = path[strings.LastIndexByte(path, '/')+1:]
	s.objects[path] = obj
	return obj.modified
}

// Touch bumps the timestamp of a stored object, as a concurrent writer would.
func (s *Server) Touch(path string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if obj, ok := s.objects[path]; ok {
		obj.modified = s.tick()
	}
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.lock.Lock()
		s.requests[r.Method+" "+strings.TrimPrefix(r.URL.Path, version)]++
		backoff := s.Backoff
		s.lock.Unlock()
		if backoff != "" {
			w.Header().Set("Backoff", backoff)
		}
		next.ServeHTTP(w, r)
	})
}

// tick returns a strictly increasing millisecond timestamp. The lock must be held.
func (s *Server) tick() uint64 {
	now := uint64(time.Now().UnixNano() / int64(time.Millisecond))
	if now <= s.clock {
		now = s.clock + 1
	}
	s.clock = now
	return now
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	body := map[string]interface{}{
		"project_name": "kinto",
		"url":          s.Endpoint() + "/",
		"settings": map[string]interface{}{
			"batch_max_requests": s.BatchMaxRequests,
		},
	}
	if principal := s.principal(r); principal != "" {
		body["user"] = map[string]interface{}{"id": principal}
	}
	reply(w, http.StatusOK, body)
}

// principal returns who the request is authenticated as. The lock must be held.
func (s *Server) principal(r *http.Request) string {
	if user, password, ok := r.BasicAuth(); ok {
		if expected, exists := s.accounts[user]; exists && expected == password {
			return "account:" + user
		}
		return ""
	}
	if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		return "bearer:" + strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return ""
}

func (s *Server) flush(w http.ResponseWriter, _ *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.FlushDisabled {
		fail(w, http.StatusNotFound, "The resource you are looking for could not be found.")
		return
	}
	s.objects = make(map[string]*object)
	s.accounts = make(map[string]string)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) account(w http.ResponseWriter, r *http.Request) {
	payload, err := decode(r)
	if err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	id := mux.Vars(r)["id"]
	password, _ := payload.Data["password"].(string)
	s.lock.Lock()
	defer s.lock.Unlock()
	status := http.StatusCreated
	if _, exists := s.accounts[id]; exists {
		status = http.StatusOK
	}
	s.accounts[id] = password
	reply(w, status, map[string]interface{}{"data": map[string]interface{}{"id": id, "last_modified": s.tick()}})
}

type payload struct {
	Data        map[string]interface{} `json:"data"`
	Permissions map[string][]string    `json:"permissions"`
}

func decode(r *http.Request) (*payload, error) {
	p := &payload{}
	b := new(bytes.Buffer)
	if _, err := b.ReadFrom(r.Body); err != nil {
		return nil, err
	}
	if b.Len() > 0 {
		if err := json.Unmarshal(b.Bytes(), p); err != nil {
			return nil, err
		}
	}
	if p.Data == nil {
		p.Data = make(map[string]interface{})
	}
	if p.Permissions == nil {
		p.Permissions = make(map[string][]string)
	}
	return p, nil
}

func (s *Server) plural(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, version)
	switch r.Method {
	case http.MethodPost:
		s.create(w, r, key)
	default:
		s.list(w, r, key)
	}
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, key string) {
	p, err := decode(r)
	if err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	id, _ := p.Data["id"].(string)
	if id == "" {
		id = uuid.New().String()
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.parentExists(key) {
		fail(w, http.StatusNotFound, "parent of "+key+" does not exist")
		return
	}
	path := key + "/" + id
	if existing, ok := s.objects[path]; ok {
		if r.Header.Get("If-None-Match") == "*" {
			fail(w, http.StatusPreconditionFailed, "Resource was modified meanwhile")
			return
		}
		reply(w, http.StatusOK, render(existing))
		return
	}
	p.Data["id"] = id
	obj := &object{data: p.Data, permissions: p.Permissions, modified: s.tick()}
	s.objects[path] = obj
	reply(w, http.StatusCreated, render(obj))
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, key string) {
	query := r.URL.Query()
	limit := s.PaginateBy
	if l, err := strconv.Atoi(query.Get("_limit")); err == nil && l > 0 {
		limit = l
	}
	var token uint64
	if t, err := strconv.ParseUint(query.Get("_token"), 10, 64); err == nil {
		token = t
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.parentExists(key) {
		fail(w, http.StatusNotFound, "parent of "+key+" does not exist")
		return
	}
	children := s.children(key, token)
	more := false
	if limit > 0 && len(children) > limit {
		children = children[:limit]
		more = true
	}
	entries := make([]interface{}, len(children))
	var last uint64
	for i, child := range children {
		obj := s.objects[child]
		last = obj.modified
		if r.Method == http.MethodDelete {
			s.remove(child)
			entries[i] = tombstone(obj.data["id"], s.tick())
		} else {
			entries[i] = render(obj)["data"]
		}
	}
	if more {
		next := url.Values{}
		if query.Get("_limit") != "" {
			next.Set("_limit", query.Get("_limit"))
		}
		next.Set("_token", strconv.FormatUint(last, 10))
		w.Header().Set("Next-Page", s.Endpoint()+key+"?"+next.Encode())
	}
	reply(w, http.StatusOK, map[string]interface{}{"data": entries})
}

// children returns the paths of the direct children of a plural endpoint,
// newest first, restricted to those older than token (when set).
// The lock must be held.
func (s *Server) children(key string, token uint64) []string {
	var found []string
	for path, obj := range s.objects {
		if !strings.HasPrefix(path, key+"/") || strings.Contains(path[len(key)+1:], "/") {
			continue
		}
		if token != 0 && obj.modified >= token {
			continue
		}
		found = append(found, path)
	}
	sort.Slice(found, func(i, j int) bool {
		a, b := s.objects[found[i]], s.objects[found[j]]
		if a.modified != b.modified {
			return a.modified > b.modified
		}
		return found[i] < found[j]
	})
	return found
}

func (s *Server) single(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, version)
	var p *payload
	if r.Method == http.MethodPut || r.Method == http.MethodPatch {
		var err error
		if p, err = decode(r); err != nil {
			fail(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	existing, exists := s.objects[path]
	if r.Method == http.MethodGet {
		if !exists {
			fail(w, http.StatusNotFound, "The resource you are looking for could not be found.")
			return
		}
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag(existing.modified) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		reply(w, http.StatusOK, render(existing))
		return
	}
	if !preconditions(r, existing) {
		fail(w, http.StatusPreconditionFailed, "Resource was modified meanwhile")
		return
	}
	switch r.Method {
	case http.MethodPut:
		if !s.parentExists(path[:strings.LastIndexByte(path, '/')]) {
			fail(w, http.StatusNotFound, "parent of "+path+" does not exist")
			return
		}
		p.Data["id"] = mux.Vars(r)[kind(path)]
		obj := &object{data: p.Data, permissions: p.Permissions, modified: s.tick()}
		s.objects[path] = obj
		status := http.StatusOK
		if !exists {
			status = http.StatusCreated
		}
		reply(w, status, render(obj))
	case http.MethodPatch:
		if !exists {
			fail(w, http.StatusNotFound, "The resource you are looking for could not be found.")
			return
		}
		for k, v := range p.Data {
			existing.data[k] = v
		}
		for k, v := range p.Permissions {
			existing.permissions[k] = v
		}
		existing.modified = s.tick()
		reply(w, http.StatusOK, render(existing))
	case http.MethodDelete:
		if !exists {
			fail(w, http.StatusNotFound, "The resource you are looking for could not be found.")
			return
		}
		s.remove(path)
		reply(w, http.StatusOK, map[string]interface{}{"data": tombstone(existing.data["id"], s.tick())})
	}
}

// kind returns the mux variable naming the last identifier of path.
func kind(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	return strings.TrimSuffix(segments[len(segments)-2], "s")
}

func preconditions(r *http.Request, existing *object) bool {
	switch match := r.Header.Get("If-Match"); {
	case match == "*" && existing == nil:
		return false
	case match != "" && match != "*" && (existing == nil || match != etag(existing.modified)):
		return false
	}
	switch match := r.Header.Get("If-None-Match"); {
	case match == "*" && existing != nil:
		return false
	case match != "" && match != "*" && existing != nil && match == etag(existing.modified):
		return false
	}
	return true
}

// parentExists reports whether the resource owning the plural endpoint
// key exists. The lock must be held.
func (s *Server) parentExists(key string) bool {
	parent := key[:strings.LastIndexByte(key, '/')]
	if parent == "" {
		return true
	}
	_, ok := s.objects[parent]
	return ok
}

// remove deletes an object and everything nested under it. The lock must be held.
func (s *Server) remove(path string) {
	for p := range s.objects {
		if p == path || strings.HasPrefix(p, path+"/") {
			delete(s.objects, p)
		}
	}
}

func (s *Server) batch(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Requests []struct {
			Method  string            `json:"method"`
			Path    string            `json:"path"`
			Body    interface{}       `json:"body"`
			Headers map[string]string `json:"headers"`
		} `json:"requests"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	s.lock.Lock()
	max := s.BatchMaxRequests
	s.lock.Unlock()
	if max > 0 && len(body.Requests) > max {
		fail(w, http.StatusBadRequest, fmt.Sprintf("Number of requests is limited to %d", max))
		return
	}
	responses := make([]interface{}, len(body.Requests))
	for i, sub := range body.Requests {
		path := sub.Path
		if !strings.HasPrefix(path, version+"/") {
			path = version + path
		}
		var b []byte
		if sub.Body != nil {
			b, _ = json.Marshal(sub.Body)
		}
		req := httptest.NewRequest(sub.Method, path, bytes.NewReader(b))
		for k, v := range sub.Headers {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		var subBody interface{}
		if rec.Body.Len() > 0 {
			_ = json.Unmarshal(rec.Body.Bytes(), &subBody)
		}
		headers := map[string]string{}
		for k := range rec.Header() {
			headers[k] = rec.Header().Get(k)
		}
		responses[i] = map[string]interface{}{
			"status":  rec.Code,
			"path":    path,
			"body":    subBody,
			"headers": headers,
		}
	}
	reply(w, http.StatusOK, map[string]interface{}{"responses": responses})
}

func render(obj *object) map[string]interface{} {
	data := copyData(obj.data)
	data["last_modified"] = obj.modified
	return map[string]interface{}{
		"data":        data,
		"permissions": obj.permissions,
	}
}

func tombstone(id interface{}, modified uint64) map[string]interface{} {
	return map[string]interface{}{"id": id, "last_modified": modified, "deleted": true}
}

func copyData(data map[string]interface{}) map[string]interface{} {
	cp := make(map[string]interface{}, len(data))
	for k, v := range data {
		cp[k] = v
	}
	return cp
}

func etag(modified uint64) string {
	return strconv.Quote(strconv.FormatUint(modified, 10))
}

func reply(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func fail(w http.ResponseWriter, status int, message string) {
	reply(w, status, map[string]interface{}{
		"code":    status,
		"error":   http.StatusText(status),
		"message": message,
	})
}
