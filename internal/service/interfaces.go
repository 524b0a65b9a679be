// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package service is the heart of the sync engine: the global state tracker,
// the per-engine reconciliation driver, and the session that runs enabled
// engines in sequence over one shared backoff state.
//
// The engine is store-agnostic. Per-data-type behaviour lives behind the
// [Store] contract; the service layer never branches on what a record means.
package service

import (
	"context"

	"github.com/MKhiriev/go-sync-engine/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// Store is the per-data-type plug-in the engine drives. One implementation
// exists per synced collection (passwords, bookmarks, tabs, ...). The engine
// owns how synchronization happens; the store owns what its records mean,
// including all conflict resolution.
type Store interface {
	// CollectionName returns the server-side collection this store syncs
	// against (e.g. "passwords").
	CollectionName() string

	// SyncState returns the engine metadata the store persisted after its
	// last successful sync. A zero value means the store has never synced.
	SyncState(ctx context.Context) (models.EngineSyncState, error)

	// ApplyIncoming delivers the decrypted incoming changeset and returns
	// the records the store wants uploaded in response. The store resolves
	// conflicts itself; it must also treat redelivered records idempotently
	// because a crash between upload and metadata persistence causes a
	// re-fetch of already-applied records.
	ApplyIncoming(ctx context.Context, incoming models.IncomingChangeset) (models.OutgoingChangeset, error)

	// SyncFinished commits the post-upload engine state. The store must
	// persist state transactionally with any data changes from the cycle:
	// data first, timestamp with it, never timestamp alone. syncedIDs lists
	// the record ids the server confirmed.
	SyncFinished(ctx context.Context, state models.EngineSyncState, syncedIDs []string) error

	// Reset clears sync metadata (timestamps, sync ids) while keeping local
	// data, and records the new sync ids in state. The next sync re-derives
	// everything from the server; reconciliation, not deletion, resolves
	// the resulting duplicates.
	Reset(ctx context.Context, state models.EngineSyncState) error

	// Wipe removes the store's local data entirely.
	Wipe(ctx context.Context) error
}
