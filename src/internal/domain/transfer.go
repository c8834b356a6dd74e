package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionDebit  Direction = "DEBIT"
	DirectionCredit Direction = "CREDIT"
)

type TransactionStatus string

const (
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

// LedgerEntry is a raw transaction as the backend reports it.
type LedgerEntry struct {
	ID            string
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
	Status        TransactionStatus
	FailureReason string
	CreatedOn     time.Time
}

// TransactionRecord is the client-facing form of a LedgerEntry, labelled
// relative to the current identity.
type TransactionRecord struct {
	ID                string
	OccurredAt        time.Time
	Direction         Direction
	Amount            decimal.Decimal
	CounterpartyLabel string
	Status            TransactionStatus
	Description       string
}

// TransferRequest is what goes over the wire. IdempotencyKey is shared by
// every attempt of one logical transfer.
type TransferRequest struct {
	FromAccountID  string
	ToAccountID    string
	Amount         decimal.Decimal
	IdempotencyKey string
}

// TransferResult is the backend's answer to an accepted TransferRequest.
type TransferResult struct {
	TransactionID string
	Status        TransactionStatus
	Message       string
}

// TransferAttempt is one user-initiated transfer. Resubmitting the same
// attempt reuses its key.
type TransferAttempt struct {
	IdempotencyKey string
	ToAccountID    string
	Amount         decimal.Decimal
	Remarks        string
}

type SubmissionState string

const (
	SubmissionIdle            SubmissionState = "IDLE"
	SubmissionValidating      SubmissionState = "VALIDATING"
	SubmissionRejectedLocal   SubmissionState = "REJECTED_LOCAL"
	SubmissionSubmitting      SubmissionState = "SUBMITTING"
	SubmissionRetrying        SubmissionState = "RETRYING"
	SubmissionSucceeded       SubmissionState = "SUCCEEDED"
	SubmissionRejectedRemote  SubmissionState = "REJECTED_REMOTE"
	SubmissionFailedTransport SubmissionState = "FAILED_TRANSPORT"
	SubmissionCancelled       SubmissionState = "CANCELLED"
)

func (s SubmissionState) Terminal() bool {
	switch s {
	case SubmissionSucceeded, SubmissionRejectedLocal, SubmissionRejectedRemote, SubmissionFailedTransport, SubmissionCancelled:
		return true
	}
	return false
}
