package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MKhiriev/go-sync-engine/internal/adapter"
	"github.com/MKhiriev/go-sync-engine/internal/crypto"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/models"
)

// defaultEngines is what a freshly synthesized meta/global advertises.
// Engines we don't drive are still listed so other devices don't treat them
// as disabled.
var defaultEngines = []struct {
	name    string
	version int
}{
	{"passwords", 1},
	{"clients", 1},
	{"addons", 1},
	{"addresses", 1},
	{"bookmarks", 2},
	{"creditcards", 1},
	{"forms", 1},
	{"history", 1},
	{"prefs", 2},
	{"tabs", 1},
}

// GlobalState is the validated cross-engine server state for one session:
// upload limits, per-collection modified times, the meta/global record, and
// the decrypted collection keys. It is created at session start and
// discarded at session end.
type GlobalState struct {
	Config          models.InfoConfiguration
	Collections     models.InfoCollections
	Global          models.MetaGlobalRecord
	GlobalTimestamp models.ServerTimestamp
	Keys            *crypto.CollectionKeys
}

// GlobalStateTracker fetches and validates meta/global and crypto/keys once
// per session.
type GlobalStateTracker struct {
	client  adapter.StorageClient
	rootKey crypto.KeyBundle
	log     *logger.Logger
}

// NewGlobalStateTracker builds a tracker around the storage client and the
// root key bundle derived from the caller's master secret.
func NewGlobalStateTracker(client adapter.StorageClient, rootKey crypto.KeyBundle, log *logger.Logger) *GlobalStateTracker {
	return &GlobalStateTracker{client: client, rootKey: rootKey, log: log}
}

// FetchAndValidate runs the once-per-session setup: server limits,
// collection timestamps, meta/global (synthesizing and uploading a fresh one
// on the first sync ever), storage version validation, and crypto/keys
// decryption. Validation failures are reported, never auto-corrected.
func (t *GlobalStateTracker) FetchAndValidate(ctx context.Context) (*GlobalState, error) {
	cfg, err := t.client.FetchInfoConfiguration(ctx)
	if err != nil {
		return nil, classify(err, "")
	}

	collections, err := t.client.FetchInfoCollections(ctx)
	if err != nil {
		return nil, classify(err, "")
	}

	global, globalTS, err := t.client.FetchMetaGlobal(ctx)
	fresh := false
	switch {
	case err == nil:
	case errors.Is(err, adapter.ErrNotFound):
		// First sync ever: no meta/global on the server. Synthesize one and
		// upload it, then provision fresh keys below.
		t.log.Info().Msg("no meta/global on server, provisioning fresh global state")
		global, globalTS, err = t.freshStart(ctx)
		if err != nil {
			return nil, err
		}
		fresh = true
	default:
		return nil, classify(err, "meta")
	}

	if global.StorageVersion > models.StorageVersion {
		return nil, syncErr(KindStorageVersionMismatch, "meta",
			fmt.Errorf("server storage version %d, engine understands %d",
				global.StorageVersion, models.StorageVersion))
	}

	keys, err := t.fetchKeys(ctx, fresh)
	if err != nil {
		return nil, err
	}

	t.log.Debug().
		Str("sync_id", global.SyncID).
		Int("engines", len(global.Engines)).
		Int("declined", len(global.Declined)).
		Msg("global state validated")

	return &GlobalState{
		Config:          cfg,
		Collections:     collections,
		Global:          global,
		GlobalTimestamp: globalTS,
		Keys:            keys,
	}, nil
}

// freshStart synthesizes a new meta/global record with fresh sync ids for
// the default engine set and uploads it unconditioned (the record does not
// exist, so there is nothing to race against).
func (t *GlobalStateTracker) freshStart(ctx context.Context) (models.MetaGlobalRecord, models.ServerTimestamp, error) {
	engines := make(map[string]models.MetaGlobalEngine, len(defaultEngines))
	for _, e := range defaultEngines {
		engines[e.name] = models.MetaGlobalEngine{Version: e.version, SyncID: newSyncID()}
	}
	global := models.MetaGlobalRecord{
		SyncID:         newSyncID(),
		StorageVersion: models.StorageVersion,
		Engines:        engines,
		Declined:       []string{},
	}

	ts, err := t.client.PutMetaGlobal(ctx, global, models.ServerEpoch)
	if err != nil {
		return models.MetaGlobalRecord{}, 0, classify(err, "meta")
	}
	return global, ts, nil
}

// fetchKeys fetches and decrypts crypto/keys. On a fresh start (or a server
// that lost the record) a new random key set is generated, wrapped with the
// root bundle, and uploaded. Decryption failure is fatal for the session:
// retrying with the same root key cannot succeed.
func (t *GlobalStateTracker) fetchKeys(ctx context.Context, provision bool) (*crypto.CollectionKeys, error) {
	bso, err := t.client.FetchCryptoKeys(ctx)
	if err != nil {
		if errors.Is(err, adapter.ErrNotFound) && provision {
			return t.provisionKeys(ctx)
		}
		return nil, classify(err, "crypto")
	}

	keys, err := crypto.CollectionKeysFromBSO(bso, t.rootKey)
	if err != nil {
		return nil, syncErr(KindKeyBundleInvalid, "crypto", err)
	}
	return keys, nil
}

func (t *GlobalStateTracker) provisionKeys(ctx context.Context) (*crypto.CollectionKeys, error) {
	keys, err := crypto.NewRandomCollectionKeys()
	if err != nil {
		return nil, syncErr(KindKeyBundleInvalid, "crypto", err)
	}
	bso, err := keys.ToBSO(t.rootKey)
	if err != nil {
		return nil, syncErr(KindKeyBundleInvalid, "crypto", err)
	}
	ts, err := t.client.PutCryptoKeys(ctx, bso, models.ServerEpoch)
	if err != nil {
		return nil, classify(err, "crypto")
	}
	keys.Timestamp = ts
	t.log.Info().Msg("provisioned fresh crypto/keys")
	return keys, nil
}

func newSyncID() string {
	return uuid.NewString()
}
