package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/migrations"
	"github.com/MKhiriev/go-sync-engine/models"
)

// SQLiteStore is a Store backed by a local SQLite database. Its value over
// MemoryStore is the commit path: SyncFinished persists the outbox cleanup
// and the new engine sync state in one transaction, so a crash can only
// leave the timestamp behind the data, never ahead of it.
type SQLiteStore struct {
	db         *sql.DB
	collection string
	log        *logger.Logger
}

// NewSQLiteStore opens (creating if needed) the database at dsn, runs
// migrations, and returns a store bound to the named collection. Several
// stores may share one database file; rows are keyed by collection.
func NewSQLiteStore(ctx context.Context, dsn, collection string, log *logger.Logger) (*SQLiteStore, error) {
	if err := createLocalDBFileIfNotExists(dsn); err != nil {
		log.Err(err).Str("func", "NewSQLiteStore").Msg("error creating database file")
		return nil, fmt.Errorf("error creating database file")
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening connection to DB: %w", err)
	}

	if dsn == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		conn.SetMaxOpenConns(1)
	}

	if err = conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("error connecting database (ping): %w", err)
	}

	if err = migrations.Migrate(conn); err != nil {
		return nil, fmt.Errorf("error migrating sync store schema: %w", err)
	}

	log.Debug().Str("collection", collection).Msg("sync store database ready")
	return &SQLiteStore{db: conn, collection: collection, log: log}, nil
}

func createLocalDBFileIfNotExists(dbFile string) error {
	if dbFile == ":memory:" {
		return nil
	}
	if _, err := os.Stat(dbFile); os.IsNotExist(err) {
		// if not found - create
		f, err := os.Create(dbFile)
		if err != nil {
			return fmt.Errorf("error creating DB file: %w", err)
		}
		f.Close()
	}

	// file already exists
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// CollectionName implements Store.
func (s *SQLiteStore) CollectionName() string { return s.collection }

// Put records a local edit and queues it for upload.
func (s *SQLiteStore) Put(ctx context.Context, rec models.Record) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("marshal record fields: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put tx: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, upsertRecord, s.collection, rec.ID, boolToInt(rec.Deleted), string(fields), rec.Modified.Millis()); err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.ID, err)
	}
	if _, err = tx.ExecContext(ctx, upsertOutbox, s.collection, rec.ID); err != nil {
		return fmt.Errorf("queue record %s: %w", rec.ID, err)
	}

	return tx.Commit()
}

// Delete queues a tombstone for id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	return s.Put(ctx, models.Tombstone(id))
}

// Get returns a live record by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (models.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, selectRecord, s.collection, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return models.Record{}, false, nil
	}
	if err != nil {
		return models.Record{}, false, err
	}
	if rec.Deleted {
		return models.Record{}, false, nil
	}
	return rec, true, nil
}

// SyncState implements Store.
func (s *SQLiteStore) SyncState(ctx context.Context) (models.EngineSyncState, error) {
	var state models.EngineSyncState
	var lastModified int64

	row := s.db.QueryRowContext(ctx, selectSyncState, s.collection)
	err := row.Scan(&lastModified, &state.GlobalSyncID, &state.EngineSyncID)
	if err == sql.ErrNoRows {
		return models.EngineSyncState{}, nil
	}
	if err != nil {
		return models.EngineSyncState{}, fmt.Errorf("load sync state: %w", err)
	}

	state.LastModified = models.TimestampFromMillis(lastModified)
	return state, nil
}

// ApplyIncoming implements Store with last-writer-wins semantics: incoming
// records overwrite local rows unless a local edit is queued for the same
// id. Reapplying the same changeset reproduces the same rows.
func (s *SQLiteStore) ApplyIncoming(ctx context.Context, incoming models.IncomingChangeset) (models.OutgoingChangeset, error) {
	pending, err := s.pendingIDs(ctx)
	if err != nil {
		return models.OutgoingChangeset{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.OutgoingChangeset{}, fmt.Errorf("begin apply tx: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range incoming.Records {
		if _, ok := pending[rec.ID]; ok {
			// Local edit wins; it stays in the outbox.
			continue
		}
		if rec.Deleted {
			if _, err = tx.ExecContext(ctx, deleteRecord, s.collection, rec.ID); err != nil {
				return models.OutgoingChangeset{}, fmt.Errorf("apply tombstone %s: %w", rec.ID, err)
			}
			continue
		}
		fields, err := json.Marshal(rec.Fields)
		if err != nil {
			return models.OutgoingChangeset{}, fmt.Errorf("marshal record fields: %w", err)
		}
		if _, err = tx.ExecContext(ctx, upsertRecord, s.collection, rec.ID, 0, string(fields), rec.Modified.Millis()); err != nil {
			return models.OutgoingChangeset{}, fmt.Errorf("apply record %s: %w", rec.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return models.OutgoingChangeset{}, fmt.Errorf("commit applied records: %w", err)
	}

	outgoing := models.OutgoingChangeset{
		Collection: s.collection,
		Timestamp:  incoming.Timestamp,
	}
	outgoing.Records, err = s.outboxRecords(ctx, pending)
	if err != nil {
		return models.OutgoingChangeset{}, err
	}
	return outgoing, nil
}

// SyncFinished implements Store. Outbox cleanup and the engine state row
// commit in one transaction; the data changes from ApplyIncoming are
// already durable, so a crash here only causes a harmless re-fetch.
func (s *SQLiteStore) SyncFinished(ctx context.Context, state models.EngineSyncState, syncedIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit tx: %w", err)
	}
	defer tx.Rollback()

	for _, id := range syncedIDs {
		if _, err = tx.ExecContext(ctx, deleteOutboxEntry, s.collection, id); err != nil {
			return fmt.Errorf("clear outbox entry %s: %w", id, err)
		}
		if _, err = tx.ExecContext(ctx, deleteTombstoneRecord, s.collection, id); err != nil {
			return fmt.Errorf("drop confirmed tombstone %s: %w", id, err)
		}
	}

	if _, err = tx.ExecContext(ctx, upsertSyncState,
		s.collection, state.LastModified.Millis(), state.GlobalSyncID, state.EngineSyncID); err != nil {
		return fmt.Errorf("persist sync state: %w", err)
	}

	return tx.Commit()
}

// Reset implements Store: the metadata row is replaced, data rows stay.
func (s *SQLiteStore) Reset(ctx context.Context, state models.EngineSyncState) error {
	_, err := s.db.ExecContext(ctx, upsertSyncState,
		s.collection, state.LastModified.Millis(), state.GlobalSyncID, state.EngineSyncID)
	if err != nil {
		return fmt.Errorf("reset sync state: %w", err)
	}
	return nil
}

// Wipe implements Store.
func (s *SQLiteStore) Wipe(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin wipe tx: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{wipeRecords, wipeOutbox, wipeSyncState} {
		if _, err = tx.ExecContext(ctx, q, s.collection); err != nil {
			return fmt.Errorf("wipe store: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) pendingIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, selectOutboxIDs, s.collection)
	if err != nil {
		return nil, fmt.Errorf("load outbox ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) outboxRecords(ctx context.Context, pending map[string]struct{}) ([]models.Record, error) {
	if len(pending) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}

	query, args, err := buildSelectRecordsByIDs(s.collection, ids)
	if err != nil {
		return nil, fmt.Errorf("build outbox query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load outbox records: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.Record, error) {
	var rec models.Record
	var deleted int
	var fields string
	var modified int64

	if err := row.Scan(&rec.ID, &deleted, &fields, &modified); err != nil {
		return models.Record{}, err
	}

	rec.Deleted = deleted != 0
	rec.Modified = models.TimestampFromMillis(modified)
	if fields != "" && fields != "null" {
		if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
			return models.Record{}, fmt.Errorf("decode record fields: %w", err)
		}
	}
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
