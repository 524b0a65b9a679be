// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "encoding/json"

// Record is one decrypted (or to-be-encrypted) sync record. The engine never
// interprets Fields beyond the deletion marker; their meaning belongs to the
// per-data-type store.
type Record struct {
	// ID is unique within the record's collection.
	ID string `json:"id"`
	// Deleted marks a tombstone: the record signals deletion, not content.
	Deleted bool `json:"deleted,omitempty"`
	// SortIndex is an optional ordering hint carried through to the BSO.
	SortIndex *int `json:"-"`
	// Modified is the server timestamp of the fetched BSO. Zero for
	// outgoing records.
	Modified ServerTimestamp `json:"-"`
	// Fields holds the store-specific cleartext fields.
	Fields map[string]any `json:"-"`
}

// Tombstone builds a deletion record for id.
func Tombstone(id string) Record {
	return Record{ID: id, Deleted: true}
}

// MarshalJSON flattens Fields alongside id/deleted, producing the cleartext
// payload layout the protocol expects.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.Deleted {
		return json.Marshal(map[string]any{"id": r.ID, "deleted": true})
	}
	out := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["id"] = r.ID
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON: id and deleted are lifted out
// of the document, everything else lands in Fields.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if idRaw, ok := raw["id"]; ok {
		if err := json.Unmarshal(idRaw, &r.ID); err != nil {
			return err
		}
		delete(raw, "id")
	}
	if delRaw, ok := raw["deleted"]; ok {
		if err := json.Unmarshal(delRaw, &r.Deleted); err != nil {
			return err
		}
		delete(raw, "deleted")
	}
	if len(raw) > 0 {
		r.Fields = make(map[string]any, len(raw))
		for k, v := range raw {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			r.Fields[k] = val
		}
	}
	return nil
}

// IncomingChangeset is the result of one fetch pass over a collection:
// decrypted records in server order plus the collection timestamp observed
// at fetch time. That timestamp conditions the subsequent upload.
type IncomingChangeset struct {
	Collection string
	Records    []Record
	// Timestamp is the newest server timestamp observed during the fetch.
	Timestamp ServerTimestamp
	// FailedCount is the number of records skipped because their payload
	// failed to decrypt or parse.
	FailedCount int
}

// OutgoingChangeset carries records a store wants uploaded, conditioned on
// the collection being unchanged since Timestamp.
type OutgoingChangeset struct {
	Collection string
	Records    []Record
	// Timestamp is the fetch-time collection timestamp; uploads carry it as
	// X-If-Unmodified-Since.
	Timestamp ServerTimestamp
}

// UploadResult is the outcome of uploading one outgoing changeset.
type UploadResult struct {
	// Modified is the server timestamp confirmed by the final (committing)
	// POST; the store must persist it as its new last-modified mark.
	Modified ServerTimestamp
	// SuccessIDs lists record ids the server accepted.
	SuccessIDs []string
	// FailedIDs maps record id to the server's reason for rejecting it.
	FailedIDs map[string]string
}

// EngineSyncState is the per-engine metadata a store persists between syncs.
type EngineSyncState struct {
	// LastModified is the collection timestamp of the last fully processed
	// sync. ServerEpoch means the engine has never synced.
	LastModified ServerTimestamp `json:"last_modified"`
	// GlobalSyncID is the meta/global sync ID the engine last synced under.
	GlobalSyncID string `json:"global_sync_id"`
	// EngineSyncID is the engine's own sync ID from meta/global.
	EngineSyncID string `json:"engine_sync_id"`
}
