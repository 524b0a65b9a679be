// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/models"
)

func newTestSQLiteStore(t *testing.T, collection string) *SQLiteStore {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "sync.db")
	st, err := NewSQLiteStore(context.Background(), dsn, collection, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLiteStore_PutGetDelete(t *testing.T) {
	st := newTestSQLiteStore(t, "bookmarks")
	ctx := context.Background()

	rec := models.Record{ID: "a", Fields: map[string]any{"title": "example", "rank": float64(2)}}
	require.NoError(t, st.Put(ctx, rec))

	got, ok, err := st.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "example", got.Fields["title"])
	assert.Equal(t, float64(2), got.Fields["rank"])

	require.NoError(t, st.Delete(ctx, "a"))
	_, ok, err = st.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok, "tombstoned record reads as absent")
}

func TestSQLiteStore_ApplyIncoming_LastWriterWins(t *testing.T) {
	st := newTestSQLiteStore(t, "bookmarks")
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, models.Record{ID: "local", Fields: map[string]any{"title": "local edit"}}))

	incoming := models.IncomingChangeset{
		Collection: "bookmarks",
		Timestamp:  5000,
		Records: []models.Record{
			{ID: "remote", Modified: 4000, Fields: map[string]any{"title": "from server"}},
			{ID: "local", Modified: 4500, Fields: map[string]any{"title": "server version"}},
		},
	}
	outgoing, err := st.ApplyIncoming(ctx, incoming)
	require.NoError(t, err)

	require.Len(t, outgoing.Records, 1)
	assert.Equal(t, "local", outgoing.Records[0].ID)
	assert.Equal(t, "local edit", outgoing.Records[0].Fields["title"])

	got, ok, err := st.Get(ctx, "local")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "local edit", got.Fields["title"])

	got, ok, err = st.Get(ctx, "remote")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "from server", got.Fields["title"])
	assert.Equal(t, models.ServerTimestamp(4000), got.Modified)
}

func TestSQLiteStore_ApplyIncoming_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t, "bookmarks")
	ctx := context.Background()

	incoming := models.IncomingChangeset{
		Timestamp: 5000,
		Records: []models.Record{
			{ID: "a", Modified: 4000, Fields: map[string]any{"v": "1"}},
			models.Tombstone("missing"),
		},
	}

	_, err := st.ApplyIncoming(ctx, incoming)
	require.NoError(t, err)
	_, err = st.ApplyIncoming(ctx, incoming)
	require.NoError(t, err)

	got, ok, err := st.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", got.Fields["v"])
}

func TestSQLiteStore_SyncFinished_CommitsStateWithOutbox(t *testing.T) {
	st := newTestSQLiteStore(t, "bookmarks")
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, models.Record{ID: "edited", Fields: map[string]any{"v": "1"}}))
	require.NoError(t, st.Delete(ctx, "removed"))

	state := models.EngineSyncState{LastModified: 7000, GlobalSyncID: "g1", EngineSyncID: "e1"}
	require.NoError(t, st.SyncFinished(ctx, state, []string{"edited", "removed"}))

	got, err := st.SyncState(ctx)
	require.NoError(t, err)
	assert.Equal(t, state, got)

	outgoing, err := st.ApplyIncoming(ctx, models.IncomingChangeset{Timestamp: 8000})
	require.NoError(t, err)
	assert.Empty(t, outgoing.Records, "confirmed ids must leave the outbox")

	_, ok, err := st.Get(ctx, "edited")
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = st.Get(ctx, "removed")
	require.NoError(t, err)
	assert.False(t, ok, "confirmed tombstone is dropped")
}

func TestSQLiteStore_SyncState_NeverSynced(t *testing.T) {
	st := newTestSQLiteStore(t, "bookmarks")

	got, err := st.SyncState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.EngineSyncState{}, got)
}

func TestSQLiteStore_Reset_KeepsData(t *testing.T) {
	st := newTestSQLiteStore(t, "bookmarks")
	ctx := context.Background()

	_, err := st.ApplyIncoming(ctx, models.IncomingChangeset{
		Records: []models.Record{{ID: "a", Modified: 4000, Fields: map[string]any{"v": "1"}}},
	})
	require.NoError(t, err)
	require.NoError(t, st.SyncFinished(ctx, models.EngineSyncState{LastModified: 5000, GlobalSyncID: "g1", EngineSyncID: "e1"}, nil))

	fresh := models.EngineSyncState{GlobalSyncID: "g2", EngineSyncID: "e2"}
	require.NoError(t, st.Reset(ctx, fresh))

	got, err := st.SyncState(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh, got)

	_, ok, err := st.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok, "reset clears metadata, never data")
}

func TestSQLiteStore_Wipe(t *testing.T) {
	st := newTestSQLiteStore(t, "bookmarks")
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, models.Record{ID: "a", Fields: map[string]any{"v": "1"}}))
	require.NoError(t, st.SyncFinished(ctx, models.EngineSyncState{LastModified: 5000}, nil))

	require.NoError(t, st.Wipe(ctx))

	_, ok, err := st.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := st.SyncState(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.EngineSyncState{}, got)
}

func TestSQLiteStore_CollectionsAreIsolated(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "sync.db")
	ctx := context.Background()

	bookmarks, err := NewSQLiteStore(ctx, dsn, "bookmarks", logger.Nop())
	require.NoError(t, err)
	defer bookmarks.Close()
	history, err := NewSQLiteStore(ctx, dsn, "history", logger.Nop())
	require.NoError(t, err)
	defer history.Close()

	require.NoError(t, bookmarks.Put(ctx, models.Record{ID: "a", Fields: map[string]any{"v": "1"}}))

	_, ok, err := history.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok, "collections sharing a database must not see each other's rows")
}
