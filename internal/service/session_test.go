// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-sync-engine/internal/adapter"
	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/crypto"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/mock"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/models"
)

var testSessionSecret = []byte("session master secret")

func testEngineConfig() *config.EngineConfig {
	return &config.EngineConfig{
		Request: config.Request{Timeout: 5 * time.Second},
		Retry:   config.Retry{PreconditionCycles: 1, TransientAttempts: 2, TransientWait: time.Millisecond},
		Fetch:   config.Fetch{Limit: 1000},
	}
}

// expectGlobalState arms the mock client with a consistent global server
// state whose keys are wrapped under testSessionSecret.
func expectGlobalState(t *testing.T, client *mock.MockStorageClient, global models.MetaGlobalRecord, collections models.InfoCollections) {
	t.Helper()

	root, err := crypto.DeriveRootBundle(testSessionSecret)
	require.NoError(t, err)
	keys, err := crypto.NewRandomCollectionKeys()
	require.NoError(t, err)
	keysBSO, err := keys.ToBSO(root)
	require.NoError(t, err)
	keysBSO.Modified = 1000

	client.EXPECT().FetchInfoConfiguration(gomock.Any()).Return(models.InfoConfiguration{}.WithDefaults(), nil)
	client.EXPECT().FetchInfoCollections(gomock.Any()).Return(collections, nil)
	client.EXPECT().FetchMetaGlobal(gomock.Any()).Return(global, models.ServerTimestamp(2000), nil)
	client.EXPECT().FetchCryptoKeys(gomock.Any()).Return(keysBSO, nil)
}

func TestSession_RunsEnginesInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mock.NewMockStorageClient(ctrl)
	global := models.MetaGlobalRecord{
		SyncID:         "g1",
		StorageVersion: models.StorageVersion,
		Engines: map[string]models.MetaGlobalEngine{
			"passwords": {Version: 1, SyncID: "pw1"},
			"history":   {Version: 1, SyncID: "hi1"},
		},
	}
	expectGlobalState(t, client, global, models.InfoCollections{"passwords": 5000, "history": 5000})
	client.EXPECT().Backoff().Return(adapter.NewBackoffState()).AnyTimes()

	// Fresh stores always first-sync; both collections come back empty.
	client.EXPECT().
		FetchSince(gomock.Any(), "passwords", models.ServerEpoch, 1000).
		Return(adapter.FetchResult{Newest: 5000}, nil)
	client.EXPECT().
		FetchSince(gomock.Any(), "history", models.ServerEpoch, 1000).
		Return(adapter.FetchResult{Newest: 5000}, nil)

	stores := []Store{store.NewMemoryStore("passwords"), store.NewMemoryStore("history")}
	session, err := NewSession(client, stores, testSessionSecret, testEngineConfig(), logger.Nop())
	require.NoError(t, err)

	result, err := session.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"passwords", "history"}, result.Order)
	assert.Equal(t, PhaseDone, result.Engines["passwords"].Phase)
	assert.Equal(t, PhaseDone, result.Engines["history"].Phase)
	assert.True(t, result.Engines["passwords"].FirstSync)
	assert.Empty(t, result.Declined)
	assert.Zero(t, result.RequiredWait)
}

func TestSession_SkipsDeclinedEngines(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mock.NewMockStorageClient(ctrl)
	global := models.MetaGlobalRecord{
		SyncID:         "g1",
		StorageVersion: models.StorageVersion,
		Engines: map[string]models.MetaGlobalEngine{
			"passwords": {Version: 1, SyncID: "pw1"},
		},
		Declined: []string{"tabs"},
	}
	expectGlobalState(t, client, global, models.InfoCollections{})
	client.EXPECT().Backoff().Return(adapter.NewBackoffState()).AnyTimes()
	client.EXPECT().
		FetchSince(gomock.Any(), "passwords", models.ServerEpoch, 1000).
		Return(adapter.FetchResult{Newest: 3000}, nil)

	stores := []Store{store.NewMemoryStore("tabs"), store.NewMemoryStore("passwords")}
	session, err := NewSession(client, stores, testSessionSecret, testEngineConfig(), logger.Nop())
	require.NoError(t, err)

	result, err := session.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"tabs"}, result.Declined)
	assert.Equal(t, []string{"passwords"}, result.Order)
	assert.NotContains(t, result.Engines, "tabs")
}

func TestSession_EndsEarlyOnBackoff(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mock.NewMockStorageClient(ctrl)
	global := models.MetaGlobalRecord{SyncID: "g1", StorageVersion: models.StorageVersion}
	expectGlobalState(t, client, global, models.InfoCollections{})

	// A backoff window is already open when the first engine would start.
	backoff := adapter.NewBackoffState()
	headers := http.Header{}
	headers.Set("X-Weave-Backoff", "120")
	backoff.Observe(headers)
	client.EXPECT().Backoff().Return(backoff).AnyTimes()

	stores := []Store{store.NewMemoryStore("passwords")}
	session, err := NewSession(client, stores, testSessionSecret, testEngineConfig(), logger.Nop())
	require.NoError(t, err)

	result, err := session.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Order, "no engine may run during a backoff window")
	assert.Greater(t, result.RequiredWait, 100*time.Second)
}

func TestSession_AbortsOnAuthFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mock.NewMockStorageClient(ctrl)
	global := models.MetaGlobalRecord{
		SyncID:         "g1",
		StorageVersion: models.StorageVersion,
		Engines: map[string]models.MetaGlobalEngine{
			"passwords": {Version: 1, SyncID: "pw1"},
			"history":   {Version: 1, SyncID: "hi1"},
		},
	}
	expectGlobalState(t, client, global, models.InfoCollections{"passwords": 5000, "history": 5000})
	client.EXPECT().Backoff().Return(adapter.NewBackoffState()).AnyTimes()

	client.EXPECT().
		FetchSince(gomock.Any(), "passwords", models.ServerEpoch, 1000).
		Return(adapter.FetchResult{}, fmt.Errorf("fetch passwords: %w", adapter.ErrUnauthorized))

	stores := []Store{store.NewMemoryStore("passwords"), store.NewMemoryStore("history")}
	session, err := NewSession(client, stores, testSessionSecret, testEngineConfig(), logger.Nop())
	require.NoError(t, err)

	result, err := session.Run(context.Background())
	require.NoError(t, err)

	// The second engine never ran: its credentials would fail the same way.
	assert.Equal(t, []string{"passwords"}, result.Order)
	outcome := result.Engines["passwords"]
	assert.Equal(t, PhaseFailed, outcome.Phase)
	require.NotNil(t, outcome.Err)
	assert.Equal(t, KindAuthInvalid, outcome.Err.Kind)
}

func TestSession_CancelStopsRemainingEngines(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mock.NewMockStorageClient(ctrl)
	global := models.MetaGlobalRecord{
		SyncID:         "g1",
		StorageVersion: models.StorageVersion,
		Engines: map[string]models.MetaGlobalEngine{
			"passwords": {Version: 1, SyncID: "pw1"},
		},
	}
	expectGlobalState(t, client, global, models.InfoCollections{})
	client.EXPECT().Backoff().Return(adapter.NewBackoffState()).AnyTimes()

	stores := []Store{store.NewMemoryStore("passwords"), store.NewMemoryStore("history")}
	session, err := NewSession(client, stores, testSessionSecret, testEngineConfig(), logger.Nop())
	require.NoError(t, err)

	session.Cancel()

	result, err := session.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Order, "cancelled before the first engine started")
}

func TestNewSession_EmptySecret(t *testing.T) {
	_, err := NewSession(nil, nil, nil, testEngineConfig(), logger.Nop())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindKeyBundleInvalid))
}
