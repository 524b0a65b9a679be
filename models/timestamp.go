// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ServerTimestamp is a storage-server timestamp. The wire format is decimal
// seconds with centisecond precision (e.g. "1712345678.09"); internally the
// value is kept as integer milliseconds so comparisons never go through
// floating point.
//
// The zero value means "never" and is a valid lower bound for a first sync.
type ServerTimestamp int64

// ServerEpoch is the lower bound used for a first sync: strictly older than
// any record the server can hold.
const ServerEpoch ServerTimestamp = 0

// TimestampFromMillis builds a ServerTimestamp from integer milliseconds.
func TimestampFromMillis(ms int64) ServerTimestamp {
	return ServerTimestamp(ms)
}

// ParseServerTimestamp parses the wire representation (decimal seconds) as
// found in X-Last-Modified / X-Weave-Timestamp headers and in BSO bodies.
func ParseServerTimestamp(s string) (ServerTimestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty server timestamp")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse server timestamp %q: %w", s, err)
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("server timestamp %q out of range", s)
	}
	return ServerTimestamp(math.Round(f * 1000.0)), nil
}

// Millis returns the timestamp as integer milliseconds.
func (t ServerTimestamp) Millis() int64 { return int64(t) }

// Time converts the timestamp to a time.Time in UTC.
func (t ServerTimestamp) Time() time.Time {
	return time.UnixMilli(int64(t)).UTC()
}

// String renders the wire representation: decimal seconds with two decimal
// places, matching what the server emits.
func (t ServerTimestamp) String() string {
	secs := int64(t) / 1000
	centis := (int64(t) % 1000) / 10
	return fmt.Sprintf("%d.%02d", secs, centis)
}

// MarshalJSON implements json.Marshaler using the wire representation as a
// bare JSON number.
func (t ServerTimestamp) MarshalJSON() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalJSON implements json.Unmarshaler. Both bare numbers and quoted
// strings are accepted; some server stacks quote header-derived values.
func (t *ServerTimestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		*t = 0
		return nil
	}
	parsed, err := ParseServerTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
