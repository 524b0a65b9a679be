// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-sync-engine/internal/adapter"
	"github.com/MKhiriev/go-sync-engine/internal/crypto"
)

// ErrorKind classifies a sync failure well enough for the caller to decide
// between "try again later", "needs user/account intervention", and "needs a
// code fix".
type ErrorKind string

const (
	// KindAuthInvalid: the server rejected our credentials; re-authenticate
	// before retrying.
	KindAuthInvalid ErrorKind = "auth_invalid"
	// KindBackoffActive: a backoff window is open; no request was made.
	KindBackoffActive ErrorKind = "backoff_active"
	// KindQuotaExceeded: the server reported the user over quota.
	KindQuotaExceeded ErrorKind = "quota_exceeded"
	// KindPreconditionFailed: another device modified the collection
	// between our fetch and upload, and the retry budget ran out.
	KindPreconditionFailed ErrorKind = "precondition_failed"
	// KindRecordCorrupt: an individual record failed to decrypt or parse.
	KindRecordCorrupt ErrorKind = "record_corrupt"
	// KindKeyBundleInvalid: crypto/keys failed to decrypt; retrying with
	// the same key material is pointless.
	KindKeyBundleInvalid ErrorKind = "key_bundle_invalid"
	// KindStorageVersionMismatch: the server's storage format is newer than
	// this engine understands. Fatal and non-retryable.
	KindStorageVersionMismatch ErrorKind = "storage_version_mismatch"
	// KindNetworkTransient: connection failures or 5xx responses that
	// outlived the bounded retry.
	KindNetworkTransient ErrorKind = "network_transient"
	// KindCancelled: cooperative cancellation was observed.
	KindCancelled ErrorKind = "cancelled"
)

// SyncError is the single tagged error type the engine surfaces. It carries
// structured context alongside the kind so callers don't have to parse
// message strings.
type SyncError struct {
	Kind       ErrorKind
	Collection string
	// RetryAfter is the remaining backoff window for KindBackoffActive.
	RetryAfter time.Duration
	Err        error
}

func (e *SyncError) Error() string {
	msg := string(e.Kind)
	if e.Collection != "" {
		msg += " (collection " + e.Collection + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SyncError) Unwrap() error { return e.Err }

// Retryable reports whether the failure may resolve on its own with time.
func (e *SyncError) Retryable() bool {
	switch e.Kind {
	case KindBackoffActive, KindNetworkTransient, KindPreconditionFailed:
		return true
	default:
		return false
	}
}

func syncErr(kind ErrorKind, collection string, err error) *SyncError {
	return &SyncError{Kind: kind, Collection: collection, Err: err}
}

// classify maps lower-layer errors onto a *SyncError. Errors that are
// already classified pass through with their collection filled in if empty.
func classify(err error, collection string) *SyncError {
	if err == nil {
		return nil
	}

	var se *SyncError
	if errors.As(err, &se) {
		if se.Collection == "" {
			se.Collection = collection
		}
		return se
	}

	var mustWait *adapter.MustWaitError
	if errors.As(err, &mustWait) {
		return &SyncError{
			Kind:       KindBackoffActive,
			Collection: collection,
			RetryAfter: time.Until(mustWait.Until),
			Err:        err,
		}
	}

	switch {
	case errors.Is(err, adapter.ErrUnauthorized):
		return syncErr(KindAuthInvalid, collection, err)
	case errors.Is(err, adapter.ErrOverQuota):
		return syncErr(KindQuotaExceeded, collection, err)
	case errors.Is(err, adapter.ErrPreconditionFailed):
		return syncErr(KindPreconditionFailed, collection, err)
	case errors.Is(err, adapter.ErrThrottled), errors.Is(err, adapter.ErrServerFailure):
		return syncErr(KindNetworkTransient, collection, err)
	case errors.Is(err, adapter.ErrNotFound):
		// The only protocol record that can still be missing here is
		// crypto/keys outside the provisioning path; retrying cannot
		// create it.
		return syncErr(KindKeyBundleInvalid, collection, err)
	case errors.Is(err, adapter.ErrRecordTooLarge):
		return syncErr(KindRecordCorrupt, collection, err)
	case errors.Is(err, crypto.ErrHMACMismatch), errors.Is(err, crypto.ErrMalformedEnvelope):
		return syncErr(KindRecordCorrupt, collection, err)
	case errors.Is(err, context.Canceled):
		return syncErr(KindCancelled, collection, err)
	default:
		return syncErr(KindNetworkTransient, collection, fmt.Errorf("unclassified: %w", err))
	}
}

// IsKind reports whether err is a *SyncError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *SyncError
	return errors.As(err, &se) && se.Kind == kind
}
