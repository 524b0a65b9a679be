// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// BackoffState tracks server-advised wait periods for one sync session.
// Two header families feed it: X-Weave-Backoff (advisory seconds, may appear
// on any response) and Retry-After (mandatory seconds, typically with 429 or
// 503). Both fold into a single earliest-next-request instant, keeping the
// maximum of the current and newly observed wait.
//
// Check never sleeps: long waits are the caller's scheduling decision.
type BackoffState struct {
	mu          sync.Mutex
	nextAllowed time.Time

	// now is swappable for tests.
	now func() time.Time
}

// NewBackoffState returns a BackoffState with no active window.
func NewBackoffState() *BackoffState {
	return &BackoffState{now: time.Now}
}

// Check returns nil if a request may be issued now, or a *MustWaitError
// carrying the earliest allowed instant if the backoff window has not yet
// elapsed.
func (b *BackoffState) Check() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now := b.now(); now.Before(b.nextAllowed) {
		return &MustWaitError{Until: b.nextAllowed}
	}
	return nil
}

// Observe inspects response headers for backoff advisories and extends the
// wait window accordingly. Unparseable values are ignored.
func (b *BackoffState) Observe(headers http.Header) {
	wait := maxSeconds(
		parseSeconds(headers.Get("X-Weave-Backoff")),
		parseSeconds(headers.Get("Retry-After")),
	)
	if wait <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	until := b.now().Add(time.Duration(wait) * time.Second)
	if until.After(b.nextAllowed) {
		b.nextAllowed = until
	}
}

// RequiredWait returns the remaining wait duration, or zero when requests
// are allowed. Sessions surface it to callers for scheduling.
func (b *BackoffState) RequiredWait() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if remaining := b.nextAllowed.Sub(b.now()); remaining > 0 {
		return remaining
	}
	return 0
}

func parseSeconds(v string) int64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	// Retry-After allows an HTTP-date form; sync servers emit seconds, so a
	// date is treated as absent rather than guessed at.
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil || secs < 0 {
		return 0
	}
	return secs
}

func maxSeconds(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
