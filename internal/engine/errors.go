package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyStarted is returned by Start on an instance that was started before.
	ErrAlreadyStarted = errors.New("synchronizer already started")

	// ErrShutdown is returned by Start once Shutdown has been called.
	// A shut down synchronizer cannot be reused.
	ErrShutdown = errors.New("synchronizer shut down")
)

// SyncError represents a failure detected while mirroring the ledger.
//
// Sync errors include:
//   - Fetch failed: reading one key during bootstrap failed (skipped)
//   - Decode failed: a stored value is not a valid record (skipped)
//   - Subscription dropped: the live stream ended (fatal)
//   - Ledger unavailable: subscribe or key enumeration failed (fatal)
type SyncError struct {
	// Code identifies the error category.
	Code SyncErrorCode

	// Message is a human-readable description.
	Message string

	// Key is the affected ledger key, if any.
	Key string

	// Err is the underlying cause.
	Err error
}

// SyncErrorCode categorizes sync errors.
type SyncErrorCode string

const (
	ErrCodeFetchFailed         SyncErrorCode = "FETCH_FAILED"
	ErrCodeDecodeFailed        SyncErrorCode = "DECODE_FAILED"
	ErrCodeSubscriptionDropped SyncErrorCode = "SUBSCRIPTION_DROPPED"
	ErrCodeLedgerUnavailable   SyncErrorCode = "LEDGER_UNAVAILABLE"
)

// Error implements the error interface.
func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Key != "" {
		msg += fmt.Sprintf(" (key=%s)", e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsSubscriptionDropped reports whether err is a dropped live subscription.
// Uses errors.As to handle wrapped errors.
func IsSubscriptionDropped(err error) bool {
	return hasCode(err, ErrCodeSubscriptionDropped)
}

// IsLedgerUnavailable reports whether err means the ledger could not be
// reached during initialization.
func IsLedgerUnavailable(err error) bool {
	return hasCode(err, ErrCodeLedgerUnavailable)
}

func hasCode(err error, code SyncErrorCode) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// NewLedgerUnavailableError wraps a failure to subscribe or enumerate.
func NewLedgerUnavailableError(op string, err error) *SyncError {
	return &SyncError{
		Code:    ErrCodeLedgerUnavailable,
		Message: op + " failed",
		Err:     err,
	}
}

// NewSubscriptionDroppedError wraps the reason a live stream ended.
func NewSubscriptionDroppedError(err error) *SyncError {
	return &SyncError{
		Code:    ErrCodeSubscriptionDropped,
		Message: "live subscription ended",
		Err:     err,
	}
}
