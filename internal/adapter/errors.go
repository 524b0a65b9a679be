package adapter

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnauthorized       = errors.New("storage server rejected credentials")
	ErrPreconditionFailed = errors.New("collection modified since fetch")
	ErrNotFound           = errors.New("record not found")
	ErrOverQuota          = errors.New("storage quota exceeded")
	ErrThrottled          = errors.New("server throttled the request")
	ErrServerFailure      = errors.New("transient server failure")
	ErrRecordTooLarge     = errors.New("record exceeds server payload limit")
)

// MustWaitError is the typed "try later" signal returned by
// [BackoffState.Check] while a backoff window is active. It is not a request
// failure: no request was made.
type MustWaitError struct {
	// Until is the earliest instant the next request may be issued.
	Until time.Time
}

func (e *MustWaitError) Error() string {
	return fmt.Sprintf("backoff active until %s", e.Until.Format(time.RFC3339))
}
