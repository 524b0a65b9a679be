// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// StorageVersion is the storage format version this engine implements.
// A server record with a greater version is not understood and must be
// treated as a fatal, non-retryable condition.
const StorageVersion = 5

// MetaGlobalEngine is the per-engine entry inside meta/global.
type MetaGlobalEngine struct {
	// Version is the engine's record format version.
	Version int `json:"version"`
	// SyncID changes whenever the engine's server-side data is reset.
	SyncID string `json:"syncID"`
}

// MetaGlobalRecord is the cleartext payload of the meta/global BSO. It is the
// only regular storage record that is not encrypted.
type MetaGlobalRecord struct {
	// SyncID is the global sync session identifier; it changes on a full
	// server reset.
	SyncID string `json:"syncID"`
	// StorageVersion is the storage format version the record was written
	// with.
	StorageVersion int `json:"storageVersion"`
	// Engines maps engine name to its version and sync ID. An engine known
	// locally but absent here was reset server-side.
	Engines map[string]MetaGlobalEngine `json:"engines"`
	// Declined lists engine names the user opted out of syncing.
	Declined []string `json:"declined"`
}

// IsDeclined reports whether the named engine is in the declined list.
func (m *MetaGlobalRecord) IsDeclined(name string) bool {
	for _, d := range m.Declined {
		if d == name {
			return true
		}
	}
	return false
}
