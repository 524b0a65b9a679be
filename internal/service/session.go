package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/MKhiriev/go-sync-engine/internal/adapter"
	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/crypto"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
)

// SessionResult is the per-engine report of one sync session.
type SessionResult struct {
	// Engines maps collection name to its outcome, in no particular order;
	// Order preserves the execution sequence.
	Engines map[string]EngineOutcome
	Order   []string
	// Declined lists engines skipped because meta/global declines them.
	Declined []string
	// RequiredWait is the backoff window the server asked for, if any; the
	// caller should not start another session before it elapses.
	RequiredWait time.Duration
}

// Session runs one full sync pass: global state validation once, then each
// enabled engine's reconciliation cycle in sequence. Engines share the
// session's backoff state and key cache, so a session must not be run
// concurrently with itself; serializing sessions against the same account is
// the calling layer's job.
type Session struct {
	client  adapter.StorageClient
	tracker *GlobalStateTracker
	stores  []Store
	cfg     *config.EngineConfig
	log     *logger.Logger

	cancelled atomic.Bool
}

// NewSession assembles a session. masterSecret is the opaque byte sequence
// the collection keys are wrapped under; it is consumed here to derive the
// root bundle and never retained.
func NewSession(client adapter.StorageClient, stores []Store, masterSecret []byte, cfg *config.EngineConfig, log *logger.Logger) (*Session, error) {
	rootKey, err := crypto.DeriveRootBundle(masterSecret)
	if err != nil {
		return nil, syncErr(KindKeyBundleInvalid, "crypto", err)
	}
	return &Session{
		client:  client,
		tracker: NewGlobalStateTracker(client, rootKey, log),
		stores:  stores,
		cfg:     cfg,
		log:     log,
	}, nil
}

// Cancel requests cooperative cancellation. It never interrupts an in-flight
// request; each driver checks the flag at its phase transitions, so no
// half-sent batch is left behind.
func (s *Session) Cancel() {
	s.cancelled.Store(true)
}

// Run executes the session. The returned error covers session-level
// failures (global state, keys); per-engine failures live in the result so
// one broken engine doesn't hide the others' outcomes.
func (s *Session) Run(ctx context.Context) (*SessionResult, error) {
	global, err := s.tracker.FetchAndValidate(ctx)
	if err != nil {
		return nil, err
	}

	result := &SessionResult{Engines: make(map[string]EngineOutcome, len(s.stores))}

	for _, store := range s.stores {
		name := store.CollectionName()

		if global.Global.IsDeclined(name) {
			s.log.Debug().Str("collection", name).Msg("engine declined in meta/global, skipping")
			result.Declined = append(result.Declined, name)
			continue
		}

		// A backoff observed mid-session ends it early: the server asked
		// for silence and the remaining engines can wait.
		if wait := s.client.Backoff().RequiredWait(); wait > 0 {
			s.log.Warn().Dur("wait", wait).Msg("backoff observed, ending session early")
			break
		}

		if s.cancelled.Load() {
			s.log.Info().Msg("session cancelled")
			break
		}

		driver := NewEngineSyncDriver(
			s.client,
			store,
			global,
			&s.cancelled,
			s.cfg.Fetch.Limit,
			s.cfg.Retry.PreconditionCycles,
			s.log.GetChildLogger(),
		)
		outcome := driver.Sync(ctx)
		result.Engines[name] = outcome
		result.Order = append(result.Order, name)

		// Auth failures are account-wide: every remaining engine would hit
		// the same wall.
		if outcome.Err != nil && outcome.Err.Kind == KindAuthInvalid {
			s.log.Error().Msg("credentials rejected, aborting session")
			break
		}
	}

	result.RequiredWait = s.client.Backoff().RequiredWait()
	return result, nil
}
