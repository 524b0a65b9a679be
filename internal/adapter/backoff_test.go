// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frozenBackoff(at time.Time) (*BackoffState, *time.Time) {
	now := at
	b := NewBackoffState()
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBackoffState_NoWindow(t *testing.T) {
	b, _ := frozenBackoff(time.Unix(1000, 0))

	assert.NoError(t, b.Check())
	assert.Zero(t, b.RequiredWait())
}

func TestBackoffState_ObserveRetryAfter(t *testing.T) {
	b, now := frozenBackoff(time.Unix(1000, 0))

	headers := http.Header{}
	headers.Set("Retry-After", "30")
	b.Observe(headers)

	err := b.Check()
	require.Error(t, err)

	var mustWait *MustWaitError
	require.True(t, errors.As(err, &mustWait))
	assert.Equal(t, time.Unix(1030, 0), mustWait.Until)
	assert.Equal(t, 30*time.Second, b.RequiredWait())

	// Window elapses.
	*now = time.Unix(1031, 0)
	assert.NoError(t, b.Check())
	assert.Zero(t, b.RequiredWait())
}

func TestBackoffState_ObserveWeaveBackoff(t *testing.T) {
	b, _ := frozenBackoff(time.Unix(1000, 0))

	headers := http.Header{}
	headers.Set("X-Weave-Backoff", "60")
	b.Observe(headers)

	assert.Equal(t, 60*time.Second, b.RequiredWait())
}

func TestBackoffState_MaxOfBothHeaders(t *testing.T) {
	b, _ := frozenBackoff(time.Unix(1000, 0))

	headers := http.Header{}
	headers.Set("X-Weave-Backoff", "10")
	headers.Set("Retry-After", "45")
	b.Observe(headers)

	assert.Equal(t, 45*time.Second, b.RequiredWait())
}

func TestBackoffState_WindowNeverShrinks(t *testing.T) {
	b, _ := frozenBackoff(time.Unix(1000, 0))

	long := http.Header{}
	long.Set("Retry-After", "120")
	b.Observe(long)

	short := http.Header{}
	short.Set("Retry-After", "5")
	b.Observe(short)

	assert.Equal(t, 120*time.Second, b.RequiredWait())
}

func TestBackoffState_IgnoresUnparseable(t *testing.T) {
	b, _ := frozenBackoff(time.Unix(1000, 0))

	headers := http.Header{}
	headers.Set("Retry-After", "Wed, 21 Oct 2026 07:28:00 GMT")
	headers.Set("X-Weave-Backoff", "-3")
	b.Observe(headers)

	assert.NoError(t, b.Check())
	assert.Zero(t, b.RequiredWait())
}
