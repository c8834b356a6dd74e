package domain

import (
	"errors"
	"fmt"
)

var ErrAuthentication = errors.New("invalid username or password")
var ErrNotAuthenticated = errors.New("not authenticated")

const (
	ReasonMissingDestination  = "missing_destination"
	ReasonInvalidAmount       = "invalid_amount"
	ReasonInsufficientBalance = "insufficient_balance"
	ReasonSameAccount         = "same_account"
	ReasonAccountInactive     = "account_inactive"
)

// ValidationError is a local pre-check failure. No network call was made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "transfer validation failed: " + e.Reason
}

// RejectedError is the backend declining a structurally valid request. Code
// and Reason are the backend's own words.
type RejectedError struct {
	StatusCode int
	Code       string
	Reason     string
}

func (e *RejectedError) Error() string {
	if e.Code == "" {
		return "rejected by backend: " + e.Reason
	}
	return fmt.Sprintf("rejected by backend: %s: %s", e.Code, e.Reason)
}

// TransportError covers network failures, timeouts and 5xx answers.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when a referenced account or transaction is absent.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// CancelledError reports a submission abandoned by the caller. The attempt's
// key remains valid and may be resubmitted.
type CancelledError struct {
	IdempotencyKey string
	Err            error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("transfer %s cancelled: %v", e.IdempotencyKey, e.Err)
}

func (e *CancelledError) Unwrap() error {
	return e.Err
}

func IsValidation(err error, reason string) bool {
	var v *ValidationError
	return errors.As(err, &v) && v.Reason == reason
}

func IsTransport(err error) bool {
	var t *TransportError
	return errors.As(err, &t)
}
