// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package syncengine is a client-side engine for the encrypted storage sync
// protocol: per-collection record synchronization with end-to-end envelope
// encryption, optimistic concurrency, server-directed backoff, and pluggable
// per-data-type stores.
//
// The caller supplies three things: a storage node URL with a ready bearer
// token, an opaque master secret the collection keys are wrapped under, and
// one [Store] implementation per collection to sync. The engine owns the
// rest: meta/global validation, key management, fetch/decrypt, upload
// batching, and state commit ordering.
//
//	client := syncengine.NewStorageClient(syncengine.StorageClientConfig{
//		NodeURL: nodeURL,
//		Token:   token,
//	}, log)
//	session, err := syncengine.NewSession(client, stores, masterSecret, cfg, log)
//	if err != nil {
//		return err
//	}
//	result, err := session.Run(ctx)
package syncengine

import (
	"context"

	"github.com/MKhiriev/go-sync-engine/internal/adapter"
	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/service"
	"github.com/MKhiriev/go-sync-engine/internal/store"
)

// Store is the per-collection plug-in the engine drives; see
// [service.Store] for the full contract each method must honor.
type Store = service.Store

// StorageClient is the engine's view of the storage server.
type StorageClient = adapter.StorageClient

// StorageClientConfig configures [NewStorageClient].
type StorageClientConfig = adapter.HTTPClientConfig

// Session runs one full sync pass over a set of stores.
type Session = service.Session

// SessionResult is the per-engine report of one session.
type SessionResult = service.SessionResult

// EngineOutcome summarizes one engine's cycle within a session.
type EngineOutcome = service.EngineOutcome

// EnginePhase is a state of the per-engine reconciliation machine.
type EnginePhase = service.EnginePhase

// Terminal and intermediate phases reported in [EngineOutcome.Phase].
const (
	PhaseDone      = service.PhaseDone
	PhaseCancelled = service.PhaseCancelled
	PhaseFailed    = service.PhaseFailed
)

// SyncError is the tagged error type every engine failure surfaces as.
type SyncError = service.SyncError

// ErrorKind classifies a SyncError.
type ErrorKind = service.ErrorKind

// Error kinds surfaced in [SyncError.Kind].
const (
	KindAuthInvalid            = service.KindAuthInvalid
	KindBackoffActive          = service.KindBackoffActive
	KindQuotaExceeded          = service.KindQuotaExceeded
	KindPreconditionFailed     = service.KindPreconditionFailed
	KindRecordCorrupt          = service.KindRecordCorrupt
	KindKeyBundleInvalid       = service.KindKeyBundleInvalid
	KindStorageVersionMismatch = service.KindStorageVersionMismatch
	KindNetworkTransient       = service.KindNetworkTransient
	KindCancelled              = service.KindCancelled
)

// EngineConfig is the engine's operational tuning.
type EngineConfig = config.EngineConfig

// Logger is the structured logger engine components report through.
type Logger = logger.Logger

// MemoryStore is an in-memory reference [Store] for tests and examples.
type MemoryStore = store.MemoryStore

// SQLiteStore is a SQLite-backed reference [Store] with transactional
// metadata persistence.
type SQLiteStore = store.SQLiteStore

// NewMemoryStore builds an empty in-memory store for the collection.
func NewMemoryStore(collection string) *MemoryStore {
	return store.NewMemoryStore(collection)
}

// NewSQLiteStore opens (creating if needed) a SQLite-backed store for the
// collection at the given DSN and runs pending migrations.
func NewSQLiteStore(ctx context.Context, dsn, collection string, log *Logger) (*SQLiteStore, error) {
	return store.NewSQLiteStore(ctx, dsn, collection, log)
}

// NewStorageClient builds the HTTP storage client over resty.
func NewStorageClient(cfg StorageClientConfig, log *Logger) StorageClient {
	return adapter.NewHTTPStorageClient(cfg, log)
}

// NewSession assembles a sync session over the given stores. The master
// secret is consumed to derive the root key bundle and never retained.
func NewSession(client StorageClient, stores []Store, masterSecret []byte, cfg *EngineConfig, log *Logger) (*Session, error) {
	return service.NewSession(client, stores, masterSecret, cfg, log)
}

// LoadConfig loads, merges, and validates the engine configuration from
// environment variables, an optional JSON file, and code defaults.
func LoadConfig() (*EngineConfig, error) {
	return config.GetEngineConfig()
}

// NewLogger constructs a production JSON logger for the given role label.
func NewLogger(role string) *Logger {
	return logger.NewLogger(role)
}

// NopLogger returns a logger that discards all output.
func NopLogger() *Logger {
	return logger.Nop()
}

// IsKind reports whether err is a [SyncError] of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return service.IsKind(err, kind)
}
