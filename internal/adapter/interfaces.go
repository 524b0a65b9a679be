// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the transport layer of the sync engine: a client
// for the storage server's REST protocol plus the session-scoped backoff
// bookkeeping every request passes through.
//
// The primary abstraction is [StorageClient], which decouples the engine's
// service layer from the underlying HTTP stack. The package ships a resty
// implementation ([NewHTTPStorageClient]); the engine itself only ever sees
// the interface.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling (e.g. [ErrPreconditionFailed] for 412, [ErrUnauthorized]
// for 401).
package adapter

import (
	"context"

	"github.com/MKhiriev/go-sync-engine/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/storage_client_mock.go -package=mock

// FetchResult is one page-merged collection fetch: BSOs in ascending
// modified order and the newest server timestamp observed while fetching.
type FetchResult struct {
	Records []models.BSO
	// Newest is the X-Last-Modified value of the collection at fetch time.
	// It becomes the next sync's strictly-greater-than lower bound.
	Newest models.ServerTimestamp
}

// StorageClient is the engine's view of the storage server. Implementations
// own serialization, auth headers, pagination, upload batching, and backoff
// observation; they report protocol conditions via the sentinel errors in
// this package.
type StorageClient interface {
	// FetchInfoConfiguration returns the server's advertised upload limits.
	// A server without the endpoint yields the zero value; callers apply
	// protocol defaults via [models.InfoConfiguration.WithDefaults].
	FetchInfoConfiguration(ctx context.Context) (models.InfoConfiguration, error)

	// FetchInfoCollections returns last-modified times for every collection
	// the user has on the server.
	FetchInfoCollections(ctx context.Context) (models.InfoCollections, error)

	// FetchMetaGlobal fetches and decodes the meta/global record along with
	// its server timestamp. Returns [ErrNotFound] (wrapped) if the record
	// does not exist yet (first sync ever).
	FetchMetaGlobal(ctx context.Context) (models.MetaGlobalRecord, models.ServerTimestamp, error)

	// PutMetaGlobal uploads a meta/global record conditioned on the record
	// being unmodified since xius. Returns [ErrPreconditionFailed] if
	// another device raced ahead.
	PutMetaGlobal(ctx context.Context, global models.MetaGlobalRecord, xius models.ServerTimestamp) (models.ServerTimestamp, error)

	// FetchCryptoKeys fetches the encrypted crypto/keys BSO. Returns
	// [ErrNotFound] (wrapped) when the record has never been provisioned.
	FetchCryptoKeys(ctx context.Context) (models.BSO, error)

	// PutCryptoKeys uploads the encrypted crypto/keys BSO conditioned on
	// xius.
	PutCryptoKeys(ctx context.Context, keys models.BSO, xius models.ServerTimestamp) (models.ServerTimestamp, error)

	// FetchSince returns all BSOs in collection strictly newer than newer,
	// ordered by modified ascending, transparently following server
	// pagination. limit caps the page size, not the total.
	FetchSince(ctx context.Context, collection string, newer models.ServerTimestamp, limit int) (FetchResult, error)

	// Upload posts the encrypted records to collection, splitting them into
	// multiple batched POSTs sharing one server-issued batch token when they
	// exceed the server's limits, with commit only on the final request.
	// The whole upload is conditioned on the collection being unmodified
	// since xius; a 412 surfaces as [ErrPreconditionFailed].
	Upload(ctx context.Context, collection string, records []models.BSO, xius models.ServerTimestamp) (models.UploadResult, error)

	// Backoff exposes the session's backoff state so the caller can learn
	// the required wait after a throttled session.
	Backoff() *BackoffState
}
