package errors

import (
	"errors"
	"fmt"
)

var ErrUnauthorized = errors.New("user is not authorized")
var ErrForbidden = errors.New("operation is forbidden for user")
var ErrNotFound = errors.New("entity not found")

// Expected domain errors. Callers handle these and show the user a message
// rather than treating them as failures.
var ErrInsufficientCredits = errors.New("insufficient credits for charge")
var ErrSlotFull = errors.New("slot has no free capacity")
var ErrSlotClosed = errors.New("slot is not open for booking")
var ErrSlotNotFull = errors.New("slot has free capacity, book it directly")
var ErrDuplicateWaitlistEntry = errors.New("parent and child already on the waitlist for this slot")
var ErrAllocationExists = errors.New("allocation already posted for this period")
var ErrAccountClosed = errors.New("credit account period is closed")
var ErrSessionNotResolved = errors.New("session has attendees without a final attendance status")
var ErrHoldExpired = errors.New("waitlist hold has expired")

// InvalidTransitionError сообщает о недопустимой смене статуса бронирования.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid booking transition from %q to %q", e.From, e.To)
}

func NewInvalidTransition(from, to string) error {
	return &InvalidTransitionError{From: from, To: to}
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}

// LedgerInconsistencyError means the cached account fields diverged from the
// replayed transaction log. This is a bug, not a user error: it must be
// surfaced to an operator and never silently recovered.
type LedgerInconsistencyError struct {
	AccountID int64
	Detail    string
}

func (e *LedgerInconsistencyError) Error() string {
	return fmt.Sprintf("credit ledger inconsistency on account %d: %s", e.AccountID, e.Detail)
}

func IsLedgerInconsistency(err error) bool {
	var lie *LedgerInconsistencyError
	return errors.As(err, &lie)
}
