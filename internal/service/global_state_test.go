// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-sync-engine/internal/adapter"
	"github.com/MKhiriev/go-sync-engine/internal/crypto"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/mock"
	"github.com/MKhiriev/go-sync-engine/models"
)

func testRootBundle(t *testing.T) crypto.KeyBundle {
	t.Helper()
	root, err := crypto.DeriveRootBundle([]byte("test master secret"))
	require.NoError(t, err)
	return root
}

func testKeysBSO(t *testing.T, root crypto.KeyBundle, modified models.ServerTimestamp) models.BSO {
	t.Helper()
	keys, err := crypto.NewRandomCollectionKeys()
	require.NoError(t, err)
	bso, err := keys.ToBSO(root)
	require.NoError(t, err)
	bso.Modified = modified
	return bso
}

func TestGlobalStateTracker_HappyPath(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mock.NewMockStorageClient(ctrl)
	root := testRootBundle(t)
	ctx := context.Background()

	global := models.MetaGlobalRecord{
		SyncID:         "g1",
		StorageVersion: models.StorageVersion,
		Engines: map[string]models.MetaGlobalEngine{
			"bookmarks": {Version: 2, SyncID: "bm1"},
		},
	}

	client.EXPECT().FetchInfoConfiguration(ctx).Return(models.InfoConfiguration{}.WithDefaults(), nil)
	client.EXPECT().FetchInfoCollections(ctx).Return(models.InfoCollections{"bookmarks": 5000}, nil)
	client.EXPECT().FetchMetaGlobal(ctx).Return(global, models.ServerTimestamp(6000), nil)
	client.EXPECT().FetchCryptoKeys(ctx).Return(testKeysBSO(t, root, 4000), nil)

	tracker := NewGlobalStateTracker(client, root, logger.Nop())
	state, err := tracker.FetchAndValidate(ctx)
	require.NoError(t, err)

	assert.Equal(t, global, state.Global)
	assert.Equal(t, models.ServerTimestamp(6000), state.GlobalTimestamp)
	assert.Equal(t, models.ServerTimestamp(5000), state.Collections["bookmarks"])
	require.NotNil(t, state.Keys)
	assert.Equal(t, models.ServerTimestamp(4000), state.Keys.Timestamp)
	assert.False(t, state.Keys.Default().IsZero())
}

func TestGlobalStateTracker_FreshStartProvisionsEverything(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mock.NewMockStorageClient(ctrl)
	root := testRootBundle(t)
	ctx := context.Background()

	client.EXPECT().FetchInfoConfiguration(ctx).Return(models.InfoConfiguration{}.WithDefaults(), nil)
	client.EXPECT().FetchInfoCollections(ctx).Return(models.InfoCollections{}, nil)
	client.EXPECT().FetchMetaGlobal(ctx).Return(models.MetaGlobalRecord{}, models.ServerTimestamp(0),
		fmt.Errorf("fetch meta/global: %w", adapter.ErrNotFound))

	var uploaded models.MetaGlobalRecord
	client.EXPECT().
		PutMetaGlobal(ctx, gomock.Any(), models.ServerEpoch).
		DoAndReturn(func(_ context.Context, g models.MetaGlobalRecord, _ models.ServerTimestamp) (models.ServerTimestamp, error) {
			uploaded = g
			return models.ServerTimestamp(1000), nil
		})

	client.EXPECT().FetchCryptoKeys(ctx).Return(models.BSO{},
		fmt.Errorf("fetch crypto/keys: %w", adapter.ErrNotFound))

	var uploadedKeys models.BSO
	client.EXPECT().
		PutCryptoKeys(ctx, gomock.Any(), models.ServerEpoch).
		DoAndReturn(func(_ context.Context, bso models.BSO, _ models.ServerTimestamp) (models.ServerTimestamp, error) {
			uploadedKeys = bso
			return models.ServerTimestamp(2000), nil
		})

	tracker := NewGlobalStateTracker(client, root, logger.Nop())
	state, err := tracker.FetchAndValidate(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.StorageVersion, uploaded.StorageVersion)
	assert.NotEmpty(t, uploaded.SyncID)
	assert.NotEmpty(t, uploaded.Engines, "fresh meta/global must advertise the default engine set")
	assert.NotNil(t, uploaded.Declined)

	// The uploaded keys decrypt back with the same root bundle.
	restored, err := crypto.CollectionKeysFromBSO(uploadedKeys, root)
	require.NoError(t, err)
	assert.False(t, restored.Default().IsZero())

	assert.Equal(t, models.ServerTimestamp(2000), state.Keys.Timestamp)
	assert.Equal(t, uploaded.SyncID, state.Global.SyncID)
}

func TestGlobalStateTracker_StorageVersionMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mock.NewMockStorageClient(ctrl)
	ctx := context.Background()

	client.EXPECT().FetchInfoConfiguration(ctx).Return(models.InfoConfiguration{}.WithDefaults(), nil)
	client.EXPECT().FetchInfoCollections(ctx).Return(models.InfoCollections{}, nil)
	client.EXPECT().FetchMetaGlobal(ctx).Return(
		models.MetaGlobalRecord{SyncID: "g1", StorageVersion: models.StorageVersion + 1},
		models.ServerTimestamp(1000), nil)

	tracker := NewGlobalStateTracker(client, testRootBundle(t), logger.Nop())
	_, err := tracker.FetchAndValidate(ctx)

	require.Error(t, err)
	assert.True(t, IsKind(err, KindStorageVersionMismatch))

	var se *SyncError
	require.ErrorAs(t, err, &se)
	assert.False(t, se.Retryable())
}

func TestGlobalStateTracker_UndecryptableKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mock.NewMockStorageClient(ctrl)
	root := testRootBundle(t)
	ctx := context.Background()

	// Keys wrapped under a different root bundle, as after a password change.
	otherRoot, err := crypto.DeriveRootBundle([]byte("rotated secret"))
	require.NoError(t, err)

	client.EXPECT().FetchInfoConfiguration(ctx).Return(models.InfoConfiguration{}.WithDefaults(), nil)
	client.EXPECT().FetchInfoCollections(ctx).Return(models.InfoCollections{}, nil)
	client.EXPECT().FetchMetaGlobal(ctx).Return(
		models.MetaGlobalRecord{SyncID: "g1", StorageVersion: models.StorageVersion},
		models.ServerTimestamp(1000), nil)
	client.EXPECT().FetchCryptoKeys(ctx).Return(testKeysBSO(t, otherRoot, 900), nil)

	tracker := NewGlobalStateTracker(client, root, logger.Nop())
	_, err = tracker.FetchAndValidate(ctx)

	require.Error(t, err)
	assert.True(t, IsKind(err, KindKeyBundleInvalid))
}

func TestGlobalStateTracker_AuthFailurePropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mock.NewMockStorageClient(ctrl)
	ctx := context.Background()

	client.EXPECT().FetchInfoConfiguration(ctx).Return(models.InfoConfiguration{},
		fmt.Errorf("fetch info/configuration: %w", adapter.ErrUnauthorized))

	tracker := NewGlobalStateTracker(client, testRootBundle(t), logger.Nop())
	_, err := tracker.FetchAndValidate(ctx)

	require.Error(t, err)
	assert.True(t, IsKind(err, KindAuthInvalid))
}
