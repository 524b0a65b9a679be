// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package store ships two reference implementations of the engine's Store
// contract: an in-memory store for tests and examples, and a SQLite-backed
// store that demonstrates the transactional metadata persistence the
// contract requires.
//
// Both resolve conflicts with plain last-writer-wins; real data types plug
// in their own stores with their own merge semantics.
package store

import (
	"context"
	"sync"

	"github.com/MKhiriev/go-sync-engine/models"
)

// MemoryStore is an in-memory Store: records in a map, locally edited ids
// in an outbox. Incoming records overwrite local state unless a local edit
// is pending for the same id, in which case the local version wins and
// stays queued for upload.
type MemoryStore struct {
	collection string

	mu      sync.Mutex
	records map[string]models.Record
	outbox  map[string]struct{}
	state   models.EngineSyncState
	resets  int
	wipes   int
}

// NewMemoryStore creates an empty store for the named collection.
func NewMemoryStore(collection string) *MemoryStore {
	return &MemoryStore{
		collection: collection,
		records:    make(map[string]models.Record),
		outbox:     make(map[string]struct{}),
	}
}

// CollectionName implements Store.
func (m *MemoryStore) CollectionName() string { return m.collection }

// Put records a local edit and queues it for upload on the next sync.
func (m *MemoryStore) Put(rec models.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	m.outbox[rec.ID] = struct{}{}
}

// Delete queues a tombstone for id.
func (m *MemoryStore) Delete(id string) {
	m.Put(models.Tombstone(id))
}

// Get returns the record and whether it exists (tombstones count as absent).
func (m *MemoryStore) Get(id string) (models.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok || rec.Deleted {
		return models.Record{}, false
	}
	return rec, true
}

// Len returns the number of live (non-tombstone) records.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.records {
		if !rec.Deleted {
			n++
		}
	}
	return n
}

// Resets returns how many times the engine asked the store to reset.
func (m *MemoryStore) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// SyncState implements Store.
func (m *MemoryStore) SyncState(_ context.Context) (models.EngineSyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

// ApplyIncoming implements Store with last-writer-wins semantics.
// Reapplying the same changeset is idempotent: incoming records are plain
// overwrites keyed by id.
func (m *MemoryStore) ApplyIncoming(_ context.Context, incoming models.IncomingChangeset) (models.OutgoingChangeset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range incoming.Records {
		if _, pending := m.outbox[rec.ID]; pending {
			// Local edit wins; it remains outgoing.
			continue
		}
		if rec.Deleted {
			delete(m.records, rec.ID)
			continue
		}
		m.records[rec.ID] = rec
	}

	outgoing := models.OutgoingChangeset{
		Collection: m.collection,
		Timestamp:  incoming.Timestamp,
	}
	for id := range m.outbox {
		outgoing.Records = append(outgoing.Records, m.records[id])
	}
	return outgoing, nil
}

// SyncFinished implements Store: confirmed ids leave the outbox and the new
// state is kept. In-memory both happen under one lock, the moral equivalent
// of the transaction real stores must use.
func (m *MemoryStore) SyncFinished(_ context.Context, state models.EngineSyncState, syncedIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range syncedIDs {
		delete(m.outbox, id)
		if rec, ok := m.records[id]; ok && rec.Deleted {
			delete(m.records, id)
		}
	}
	m.state = state
	return nil
}

// Reset implements Store: metadata goes, data stays.
func (m *MemoryStore) Reset(_ context.Context, state models.EngineSyncState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.resets++
	return nil
}

// Wipe implements Store.
func (m *MemoryStore) Wipe(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]models.Record)
	m.outbox = make(map[string]struct{})
	m.state = models.EngineSyncState{}
	m.wipes++
	return nil
}
