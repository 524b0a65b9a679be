// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package fakeserver is an in-memory storage server double for tests. It
// speaks the same REST surface the HTTP client consumes: info endpoints,
// single-record GET/PUT, paginated collection GET, batched POST, conditional
// writes, and the timestamp/backoff headers. Fault injection (throttling,
// server failures, backoff advertisements) is switchable per instance.
package fakeserver

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MKhiriev/go-sync-engine/models"
)

// clockStep keeps every tick representable in the centisecond wire format.
const clockStep = 10

type collection struct {
	records  map[string]models.BSO
	modified models.ServerTimestamp
}

type batch struct {
	collection string
	staged     []models.BSO
}

// Server holds the in-memory storage state. All exported methods and the
// HTTP handler are safe for concurrent use.
type Server struct {
	mu          sync.Mutex
	clock       models.ServerTimestamp
	collections map[string]*collection
	batches     map[string]*batch
	nextBatchID int

	limits models.InfoConfiguration

	backoffSecs  int
	throttleLeft int
	retryAfter   int
	failLeft     int

	requests int
}

func New() *Server {
	return &Server{
		// An arbitrary but realistic epoch; ticks stay centisecond-aligned.
		clock:       models.TimestampFromMillis(1_600_000_000_000),
		collections: map[string]*collection{},
		batches:     map[string]*batch{},
		limits:      models.InfoConfiguration{}.WithDefaults(),
	}
}

// Handler returns the chi router serving the storage API.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(s.gate)

	router.Get("/info/configuration", s.infoConfiguration)
	router.Get("/info/collections", s.infoCollections)
	router.Get("/storage/{collection}/{id}", s.getRecord)
	router.Put("/storage/{collection}/{id}", s.putRecord)
	router.Get("/storage/{collection}", s.getCollection)
	router.Post("/storage/{collection}", s.postCollection)

	return router
}

// SetLimits replaces the advertised upload limits.
func (s *Server) SetLimits(limits models.InfoConfiguration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits = limits.WithDefaults()
}

// SetBackoff makes every subsequent response advertise an X-Weave-Backoff
// of secs seconds. Zero turns it off.
func (s *Server) SetBackoff(secs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backoffSecs = secs
}

// ThrottleNext makes the next n requests fail with 503 and the given
// Retry-After value.
func (s *Server) ThrottleNext(n, retryAfterSecs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.throttleLeft = n
	s.retryAfter = retryAfterSecs
}

// FailNext makes the next n requests fail with 500.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLeft = n
}

// Requests reports how many requests reached the server.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// SeedBSO stores a record directly, advancing the collection timestamp. It
// returns the record's modified time.
func (s *Server) SeedBSO(name string, bso models.BSO) models.ServerTimestamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeLocked(name, bso)
}

// CollectionModified reports a collection's last-modified time, zero when
// the collection does not exist.
func (s *Server) CollectionModified(name string) models.ServerTimestamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	if coll, ok := s.collections[name]; ok {
		return coll.modified
	}
	return 0
}

func (s *Server) tickLocked() models.ServerTimestamp {
	s.clock += clockStep
	return s.clock
}

func (s *Server) storeLocked(name string, bso models.BSO) models.ServerTimestamp {
	coll, ok := s.collections[name]
	if !ok {
		coll = &collection{records: map[string]models.BSO{}}
		s.collections[name] = coll
	}
	ts := s.tickLocked()
	bso.Modified = ts
	coll.records[bso.ID] = bso
	coll.modified = ts
	return ts
}

// gate applies fault injection and stamps the shared response headers.
func (s *Server) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		w.Header().Set("X-Weave-Timestamp", s.clock.String())
		if s.backoffSecs > 0 {
			w.Header().Set("X-Weave-Backoff", strconv.Itoa(s.backoffSecs))
		}
		if s.throttleLeft > 0 {
			s.throttleLeft--
			retryAfter := s.retryAfter
			s.mu.Unlock()
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if s.failLeft > 0 {
			s.failLeft--
			s.mu.Unlock()
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) infoConfiguration(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	limits := s.limits
	s.mu.Unlock()
	writeJSON(w, limits)
}

func (s *Server) infoCollections(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make(models.InfoCollections, len(s.collections))
	for name, coll := range s.collections {
		out[name] = coll.modified
	}
	s.mu.Unlock()
	writeJSON(w, out)
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[name]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	bso, ok := coll.records[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("X-Last-Modified", coll.modified.String())
	writeJSON(w, bso)
}

func (s *Server) putRecord(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	var bso models.BSO
	if err := json.NewDecoder(r.Body).Decode(&bso); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	bso.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.preconditionFailedLocked(name, r) {
		w.WriteHeader(http.StatusPreconditionFailed)
		return
	}

	ts := s.storeLocked(name, bso)
	w.Header().Set("X-Last-Modified", ts.String())
	writeJSON(w, ts)
}

func (s *Server) getCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")

	var newer models.ServerTimestamp
	if v := r.URL.Query().Get("newer"); v != "" {
		parsed, err := models.ParseServerTimestamp(v)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		newer = parsed
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[name]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	matched := make([]models.BSO, 0, len(coll.records))
	for _, bso := range coll.records {
		// newer= is an exclusive lower bound.
		if bso.Modified > newer {
			matched = append(matched, bso)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Modified != matched[j].Modified {
			return matched[i].Modified < matched[j].Modified
		}
		return matched[i].ID < matched[j].ID
	})

	if offset > len(matched) {
		offset = len(matched)
	}
	page := matched[offset:]
	if limit > 0 && len(page) > limit {
		page = page[:limit]
		w.Header().Set("X-Weave-Next-Offset", strconv.Itoa(offset+limit))
	}

	w.Header().Set("X-Last-Modified", coll.modified.String())
	writeJSON(w, page)
}

func (s *Server) postCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")

	var records []models.BSO
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.preconditionFailedLocked(name, r) {
		w.WriteHeader(http.StatusPreconditionFailed)
		return
	}

	resp := struct {
		Batch   string            `json:"batch,omitempty"`
		Success []string          `json:"success"`
		Failed  map[string]string `json:"failed"`
	}{Success: []string{}, Failed: map[string]string{}}

	batchParam := r.URL.Query().Get("batch")
	commit := r.URL.Query().Get("commit") == "true"

	switch {
	case batchParam == "":
		// Plain post, applied immediately.
		for _, bso := range records {
			s.storeLocked(name, bso)
			resp.Success = append(resp.Success, bso.ID)
		}
	case batchParam == "true":
		s.nextBatchID++
		token := "batch-" + strconv.Itoa(s.nextBatchID)
		s.batches[token] = &batch{collection: name, staged: records}
		resp.Batch = token
		for _, bso := range records {
			resp.Success = append(resp.Success, bso.ID)
		}
		if commit {
			s.applyBatchLocked(token)
		}
	default:
		b, ok := s.batches[batchParam]
		if !ok || b.collection != name {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.staged = append(b.staged, records...)
		for _, bso := range records {
			resp.Success = append(resp.Success, bso.ID)
		}
		if commit {
			s.applyBatchLocked(batchParam)
		}
	}

	if coll, ok := s.collections[name]; ok {
		w.Header().Set("X-Last-Modified", coll.modified.String())
	} else {
		w.Header().Set("X-Last-Modified", s.clock.String())
	}
	writeJSON(w, resp)
}

func (s *Server) applyBatchLocked(token string) {
	b := s.batches[token]
	delete(s.batches, token)
	for _, bso := range b.staged {
		s.storeLocked(b.collection, bso)
	}
}

func (s *Server) preconditionFailedLocked(name string, r *http.Request) bool {
	v := r.Header.Get("X-If-Unmodified-Since")
	if v == "" {
		return false
	}
	xius, err := models.ParseServerTimestamp(v)
	if err != nil {
		return false
	}
	coll, ok := s.collections[name]
	if !ok {
		return false
	}
	return coll.modified > xius
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	body, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Write(body)
}
