// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

const (
	// DefaultMaxRequestBytes is assumed for servers that don't advertise
	// info/configuration.
	DefaultMaxRequestBytes = 260 * 1024
	// DefaultMaxRecordPayloadBytes is the default per-record payload cap.
	DefaultMaxRecordPayloadBytes = 256 * 1024
)

// InfoConfiguration holds the upload limits advertised by the server on
// GET info/configuration. Zero values mean "not advertised"; use
// [InfoConfiguration.WithDefaults] before feeding the limits to the batcher.
type InfoConfiguration struct {
	// MaxRequestBytes caps the overall HTTP request body size.
	MaxRequestBytes int `json:"max_request_bytes,omitempty"`
	// MaxPostRecords caps records per single POST.
	MaxPostRecords int `json:"max_post_records,omitempty"`
	// MaxPostBytes caps combined payload bytes per single POST.
	MaxPostBytes int `json:"max_post_bytes,omitempty"`
	// MaxTotalRecords caps records per multi-POST batch.
	MaxTotalRecords int `json:"max_total_records,omitempty"`
	// MaxTotalBytes caps combined payload bytes per multi-POST batch.
	MaxTotalBytes int `json:"max_total_bytes,omitempty"`
	// MaxRecordPayloadBytes caps a single BSO payload.
	MaxRecordPayloadBytes int `json:"max_record_payload_bytes,omitempty"`
}

// WithDefaults returns a copy with unadvertised limits replaced by protocol
// defaults. Unbounded limits stay at the practical maximum int.
func (c InfoConfiguration) WithDefaults() InfoConfiguration {
	const unbounded = int(^uint(0) >> 1)
	if c.MaxRequestBytes <= 0 {
		c.MaxRequestBytes = DefaultMaxRequestBytes
	}
	if c.MaxRecordPayloadBytes <= 0 {
		c.MaxRecordPayloadBytes = DefaultMaxRecordPayloadBytes
	}
	if c.MaxPostRecords <= 0 {
		c.MaxPostRecords = unbounded
	}
	if c.MaxPostBytes <= 0 {
		c.MaxPostBytes = unbounded
	}
	if c.MaxTotalRecords <= 0 {
		c.MaxTotalRecords = unbounded
	}
	if c.MaxTotalBytes <= 0 {
		c.MaxTotalBytes = unbounded
	}
	return c
}

// InfoCollections maps collection name to the last-modified timestamp of the
// collection, as returned by GET info/collections.
type InfoCollections map[string]ServerTimestamp
