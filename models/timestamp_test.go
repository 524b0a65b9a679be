// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"testing"
)

func TestParseServerTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    ServerTimestamp
		wantErr bool
	}{
		{in: "1712345678.09", want: 1712345678090},
		{in: "1712345678", want: 1712345678000},
		{in: "0", want: 0},
		{in: "0.01", want: 10},
		{in: " 42.50 ", want: 42500},
		{in: "", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tc := range tests {
		got, err := ParseServerTimestamp(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseServerTimestamp(%q): expected error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseServerTimestamp(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseServerTimestamp(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestServerTimestamp_String(t *testing.T) {
	tests := []struct {
		ts   ServerTimestamp
		want string
	}{
		{ts: 1712345678090, want: "1712345678.09"},
		{ts: 1712345678000, want: "1712345678.00"},
		{ts: 0, want: "0.00"},
		{ts: 10, want: "0.01"},
	}

	for _, tc := range tests {
		if got := tc.ts.String(); got != tc.want {
			t.Errorf("ServerTimestamp(%d).String() = %q, want %q", int64(tc.ts), got, tc.want)
		}
	}
}

func TestServerTimestamp_WireRoundTrip(t *testing.T) {
	// Centisecond-aligned values must survive format -> parse unchanged.
	for _, ts := range []ServerTimestamp{0, 10, 1000, 1712345678090} {
		parsed, err := ParseServerTimestamp(ts.String())
		if err != nil {
			t.Fatalf("round trip of %d: %v", int64(ts), err)
		}
		if parsed != ts {
			t.Errorf("round trip of %d produced %d", int64(ts), int64(parsed))
		}
	}
}

func TestServerTimestamp_JSON(t *testing.T) {
	raw, err := json.Marshal(ServerTimestamp(1712345678090))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != "1712345678.09" {
		t.Fatalf("marshal = %s, want 1712345678.09", raw)
	}

	var ts ServerTimestamp
	if err := json.Unmarshal([]byte("1712345678.09"), &ts); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if ts != 1712345678090 {
		t.Errorf("unmarshal number = %d, want 1712345678090", int64(ts))
	}

	if err := json.Unmarshal([]byte(`"42.50"`), &ts); err != nil {
		t.Fatalf("unmarshal quoted: %v", err)
	}
	if ts != 42500 {
		t.Errorf("unmarshal quoted = %d, want 42500", int64(ts))
	}

	if err := json.Unmarshal([]byte("null"), &ts); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if ts != 0 {
		t.Errorf("unmarshal null = %d, want 0", int64(ts))
	}
}
