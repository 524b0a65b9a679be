// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import sq "github.com/Masterminds/squirrel"

const (
	upsertRecord = `INSERT INTO sync_records (collection, record_id, deleted, fields, modified_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (collection, record_id)
DO UPDATE SET deleted = excluded.deleted, fields = excluded.fields, modified_ms = excluded.modified_ms;`

	selectRecord = `SELECT record_id, deleted, fields, modified_ms
FROM sync_records WHERE collection = ? AND record_id = ?;`

	deleteRecord = `DELETE FROM sync_records WHERE collection = ? AND record_id = ?;`

	deleteTombstoneRecord = `DELETE FROM sync_records
WHERE collection = ? AND record_id = ? AND deleted = 1;`

	upsertOutbox = `INSERT INTO sync_outbox (collection, record_id) VALUES (?, ?)
ON CONFLICT (collection, record_id) DO NOTHING;`

	selectOutboxIDs = `SELECT record_id FROM sync_outbox WHERE collection = ?;`

	deleteOutboxEntry = `DELETE FROM sync_outbox WHERE collection = ? AND record_id = ?;`

	selectSyncState = `SELECT last_modified_ms, global_sync_id, engine_sync_id
FROM sync_state WHERE collection = ?;`

	upsertSyncState = `INSERT INTO sync_state (collection, last_modified_ms, global_sync_id, engine_sync_id)
VALUES (?, ?, ?, ?)
ON CONFLICT (collection)
DO UPDATE SET last_modified_ms = excluded.last_modified_ms,
              global_sync_id  = excluded.global_sync_id,
              engine_sync_id  = excluded.engine_sync_id;`

	wipeRecords   = `DELETE FROM sync_records WHERE collection = ?;`
	wipeOutbox    = `DELETE FROM sync_outbox WHERE collection = ?;`
	wipeSyncState = `DELETE FROM sync_state WHERE collection = ?;`
)

func buildSelectRecordsByIDs(collection string, ids []string) (string, []any, error) {
	return sq.Select("record_id", "deleted", "fields", "modified_ms").
		From("sync_records").
		Where(sq.Eq{"collection": collection, "record_id": ids}).
		OrderBy("record_id").
		ToSql()
}
