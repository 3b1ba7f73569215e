package payflow

import (
	"errors"

	"github.com/xraph/payflow/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("payflow: not found")
	ErrAlreadyExists = errors.New("payflow: already exists")
	ErrInvalidInput  = errors.New("payflow: invalid input")

	// Input validation errors — caller error, no state change, safe to
	// retry with corrected input.
	ErrEmptyUsername  = errors.New("payflow: empty username")
	ErrInvalidAmount  = errors.New("payflow: amount must be positive")
	ErrInvalidEndDate = errors.New("payflow: end date must be in the future")

	// Conflict errors — a precondition on existing state failed; inspect
	// current state before retrying.
	ErrAlreadyClaimed = errors.New("payflow: username already claimed")
	ErrActivePayment  = errors.New("payflow: active payment already exists")

	// Not-found errors — missing directory or payment state.
	ErrUserNotFound     = errors.New("payflow: username not claimed")
	ErrNoActivePayment  = errors.New("payflow: no active payment")
	ErrScheduleNotFound = errors.New("payflow: schedule not found")
	ErrStreamNotFound   = errors.New("payflow: stream not found")

	// Authorization errors
	ErrNotAuthorized = errors.New("payflow: not authorized")

	// Execution errors — the whole execute call fails atomically; state
	// is exactly as before the call.
	ErrTransferFailed = errors.New("payflow: ledger transfer failed")

	// Lifecycle errors
	ErrNotInitialized     = errors.New("payflow: engine not started")
	ErrAlreadyInitialized = errors.New("payflow: engine already started")
	ErrNoLedger           = errors.New("payflow: no ledger configured")

	// Store errors
	ErrStoreClosed     = errors.New("payflow: store is closed")
	ErrMigrationFailed = errors.New("payflow: migration failed")
)

// ErrOverflow is re-exported from types: checked arithmetic overflowed.
var ErrOverflow = types.ErrOverflow

// IsValidation returns true if the error is a caller input error. These
// never mutate state and are safe to retry with corrected input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyUsername) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidEndDate) ||
		errors.Is(err, ErrInvalidInput)
}

// IsConflict returns true if the error indicates a precondition on
// existing state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyClaimed) ||
		errors.Is(err, ErrActivePayment) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrAlreadyInitialized)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrNoActivePayment) ||
		errors.Is(err, ErrScheduleNotFound) ||
		errors.Is(err, ErrStreamNotFound)
}

// IsRetryable returns true if the error is temporary and the same call
// can be retried unchanged once the underlying condition clears.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransferFailed) ||
		errors.Is(err, ErrStoreClosed)
}
