package service

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/MKhiriev/go-sync-engine/internal/adapter"
	"github.com/MKhiriev/go-sync-engine/internal/crypto"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/models"
)

// EnginePhase is a state of the per-engine reconciliation machine.
type EnginePhase string

const (
	PhaseSetup      EnginePhase = "setup"
	PhaseFetching   EnginePhase = "fetching"
	PhaseApplying   EnginePhase = "applying"
	PhaseUploading  EnginePhase = "uploading"
	PhaseCommitting EnginePhase = "committing"
	PhaseDone       EnginePhase = "done"
	PhaseCancelled  EnginePhase = "cancelled"
	PhaseFailed     EnginePhase = "failed"
)

// EngineOutcome summarizes one engine's sync cycle.
type EngineOutcome struct {
	Collection string
	Phase      EnginePhase
	// FirstSync is set when a sync-id mismatch (or a fresh store) forced
	// first-sync semantics for this cycle.
	FirstSync bool
	// Incoming is the number of records delivered to the store.
	Incoming int
	// CorruptRecords counts incoming records skipped because their payload
	// failed to decrypt or parse.
	CorruptRecords int
	// Uploaded lists record ids the server confirmed.
	Uploaded []string
	// FailedUploads maps rejected record id to the server's reason.
	FailedUploads map[string]string
	// NewLastModified is the timestamp persisted by the store on success.
	NewLastModified models.ServerTimestamp
	// Err is set when Phase is PhaseFailed.
	Err *SyncError
}

// EngineSyncDriver runs one store's full reconciliation cycle: setup, fetch,
// decrypt, apply, collect, encrypt, upload, persist.
type EngineSyncDriver struct {
	client adapter.StorageClient
	store  Store
	global *GlobalState
	log    *logger.Logger

	// cancelled is the session's cooperative cancellation flag, checked at
	// phase transitions only so no request is interrupted mid-flight.
	cancelled *atomic.Bool

	fetchLimit          int
	preconditionRetries int
}

// NewEngineSyncDriver wires a driver for one store within a session.
func NewEngineSyncDriver(
	client adapter.StorageClient,
	store Store,
	global *GlobalState,
	cancelled *atomic.Bool,
	fetchLimit, preconditionRetries int,
	log *logger.Logger,
) *EngineSyncDriver {
	return &EngineSyncDriver{
		client:              client,
		store:               store,
		global:              global,
		cancelled:           cancelled,
		fetchLimit:          fetchLimit,
		preconditionRetries: preconditionRetries,
		log:                 log,
	}
}

// Sync runs the cycle to a terminal phase. It never returns a Go error:
// failures are folded into the outcome so the session can keep a per-engine
// report.
func (d *EngineSyncDriver) Sync(ctx context.Context) EngineOutcome {
	name := d.store.CollectionName()
	outcome := EngineOutcome{Collection: name, Phase: PhaseSetup}

	// The client consults this between paginated fetch pages and between the
	// POSTs of a batch, so a cancel observed mid-phase stops at the next
	// request boundary instead of running the phase to completion.
	ctx = adapter.WithStopCheck(ctx, d.isCancelled)

	state, err := d.setup(ctx, &outcome)
	if err != nil {
		return d.fail(outcome, err)
	}
	bundle := d.global.Keys.KeyForCollection(name)

	// A 412 on upload means another device raced ahead; the whole cycle is
	// retried from the fetch step, bounded by the configured budget.
	for attempt := 0; ; attempt++ {
		if d.isCancelled() {
			return d.cancel(outcome)
		}

		outcome.Phase = PhaseFetching
		// A 412 already proved the collection changed after the session
		// snapshot, so retries must refetch regardless of what
		// info/collections said at session start.
		incoming, corrupt, err := d.fetchIncoming(ctx, name, state, bundle, attempt > 0)
		if err != nil {
			return d.fail(outcome, err)
		}
		outcome.Incoming = len(incoming.Records)
		outcome.CorruptRecords = corrupt

		if d.isCancelled() {
			return d.cancel(outcome)
		}

		outcome.Phase = PhaseApplying
		outgoing, err := d.store.ApplyIncoming(ctx, incoming)
		if err != nil {
			return d.fail(outcome, err)
		}
		outgoing.Collection = name
		outgoing.Timestamp = incoming.Timestamp

		if d.isCancelled() {
			return d.cancel(outcome)
		}

		outcome.Phase = PhaseUploading
		uploaded, err := d.upload(ctx, name, outgoing, bundle)
		if err != nil {
			if IsKind(err, KindPreconditionFailed) && attempt < d.preconditionRetries {
				d.log.Warn().Str("collection", name).Int("attempt", attempt+1).
					Msg("collection changed during sync, refetching")
				continue
			}
			return d.fail(outcome, err)
		}
		outcome.Uploaded = uploaded.SuccessIDs
		outcome.FailedUploads = uploaded.FailedIDs

		outcome.Phase = PhaseCommitting
		// The confirmed upload timestamp wins over the fetch timestamp: it
		// is what the server will compare the next newer= bound against.
		newTS := incoming.Timestamp
		if uploaded.Modified > newTS {
			newTS = uploaded.Modified
		}
		state.LastModified = newTS
		if err := d.store.SyncFinished(ctx, state, uploaded.SuccessIDs); err != nil {
			return d.fail(outcome, classify(err, name))
		}
		outcome.NewLastModified = newTS

		outcome.Phase = PhaseDone
		d.log.Info().Str("collection", name).
			Int("incoming", outcome.Incoming).
			Int("uploaded", len(outcome.Uploaded)).
			Int("corrupt", outcome.CorruptRecords).
			Str("last_modified", newTS.String()).
			Msg("engine sync finished")
		return outcome
	}
}

// setup resolves the engine's effective sync state. A sync-id mismatch, a
// locally unknown engine, or an engine missing from meta/global all mean the
// engine was reset somewhere: the store keeps its data but starts over from
// the epoch, letting reconciliation resolve duplicates.
func (d *EngineSyncDriver) setup(ctx context.Context, outcome *EngineOutcome) (models.EngineSyncState, error) {
	name := d.store.CollectionName()
	meta, known := d.global.Global.Engines[name]
	if !known {
		// Absent from meta/global means reset server-side: mint a fresh
		// engine sync id locally and treat as never-synced.
		meta = models.MetaGlobalEngine{Version: 1, SyncID: newSyncID()}
	}

	state, err := d.store.SyncState(ctx)
	if err != nil {
		return models.EngineSyncState{}, classify(err, name)
	}

	if state.GlobalSyncID != d.global.Global.SyncID || state.EngineSyncID != meta.SyncID {
		outcome.FirstSync = true
		state = models.EngineSyncState{
			LastModified: models.ServerEpoch,
			GlobalSyncID: d.global.Global.SyncID,
			EngineSyncID: meta.SyncID,
		}
		if err := d.store.Reset(ctx, state); err != nil {
			return models.EngineSyncState{}, classify(err, name)
		}
		d.log.Info().Str("collection", name).Msg("sync id changed, treating as first sync")
	}

	return state, nil
}

// fetchIncoming fetches records strictly newer than the engine's last
// modified mark and decrypts them. A single bad record is skipped and
// counted, not fatal. When info/collections shows the collection unchanged,
// the network fetch is skipped entirely and the store still gets an empty
// changeset so it can push local-only edits. force bypasses the skip when the
// session-start snapshot is known to be stale.
func (d *EngineSyncDriver) fetchIncoming(
	ctx context.Context,
	name string,
	state models.EngineSyncState,
	bundle crypto.KeyBundle,
	force bool,
) (models.IncomingChangeset, int, error) {
	incoming := models.IncomingChangeset{Collection: name, Timestamp: state.LastModified}

	if collTS, ok := d.global.Collections[name]; !force && ok && state.LastModified >= collTS && state.LastModified > 0 {
		d.log.Debug().Str("collection", name).Msg("collection unchanged on server, skipping fetch")
		return incoming, 0, nil
	}

	res, err := d.client.FetchSince(ctx, name, state.LastModified, d.fetchLimit)
	if err != nil {
		return models.IncomingChangeset{}, 0, classify(err, name)
	}
	if res.Newest > incoming.Timestamp {
		incoming.Timestamp = res.Newest
	}

	corrupt := 0
	for _, bso := range res.Records {
		rec, err := decryptRecord(bso, bundle)
		if err != nil {
			corrupt++
			d.log.Warn().Err(err).Str("collection", name).Str("id", bso.ID).
				Msg("skipping undecryptable record")
			continue
		}
		incoming.Records = append(incoming.Records, rec)
	}
	incoming.FailedCount = corrupt
	return incoming, corrupt, nil
}

func decryptRecord(bso models.BSO, bundle crypto.KeyBundle) (models.Record, error) {
	env, err := bso.Envelope()
	if err != nil {
		return models.Record{}, err
	}
	cleartext, err := bundle.Decrypt(env)
	if err != nil {
		return models.Record{}, err
	}

	var rec models.Record
	if err := json.Unmarshal(cleartext, &rec); err != nil {
		return models.Record{}, err
	}
	if rec.ID == "" {
		rec.ID = bso.ID
	}
	rec.Modified = bso.Modified
	rec.SortIndex = bso.SortIndex
	return rec, nil
}

// upload encrypts the outgoing changeset and posts it conditioned on the
// fetch-time collection timestamp. An empty changeset commits immediately
// without touching the network.
func (d *EngineSyncDriver) upload(
	ctx context.Context,
	name string,
	outgoing models.OutgoingChangeset,
	bundle crypto.KeyBundle,
) (models.UploadResult, error) {
	if len(outgoing.Records) == 0 {
		return models.UploadResult{Modified: outgoing.Timestamp}, nil
	}

	bsos := make([]models.BSO, 0, len(outgoing.Records))
	for _, rec := range outgoing.Records {
		bso, err := encryptRecord(rec, bundle)
		if err != nil {
			return models.UploadResult{}, classify(err, name)
		}
		bsos = append(bsos, bso)
	}

	result, err := d.client.Upload(ctx, name, bsos, outgoing.Timestamp)
	if err != nil {
		return models.UploadResult{}, classify(err, name)
	}
	return result, nil
}

func encryptRecord(rec models.Record, bundle crypto.KeyBundle) (models.BSO, error) {
	cleartext, err := json.Marshal(rec)
	if err != nil {
		return models.BSO{}, err
	}
	env, err := bundle.Encrypt(cleartext)
	if err != nil {
		return models.BSO{}, err
	}

	bso := models.BSO{ID: rec.ID, SortIndex: rec.SortIndex}
	if err := bso.SetEnvelope(env); err != nil {
		return models.BSO{}, err
	}
	return bso, nil
}

func (d *EngineSyncDriver) isCancelled() bool {
	return d.cancelled != nil && d.cancelled.Load()
}

func (d *EngineSyncDriver) cancel(outcome EngineOutcome) EngineOutcome {
	outcome.Phase = PhaseCancelled
	outcome.Err = syncErr(KindCancelled, outcome.Collection, nil)
	d.log.Info().Str("collection", outcome.Collection).Msg("engine sync cancelled")
	return outcome
}

func (d *EngineSyncDriver) fail(outcome EngineOutcome, err error) EngineOutcome {
	se := classify(err, outcome.Collection)
	if se.Kind == KindCancelled {
		return d.cancel(outcome)
	}
	outcome.Phase = PhaseFailed
	outcome.Err = se
	d.log.Error().Err(se).Str("collection", outcome.Collection).Msg("engine sync failed")
	return outcome
}
