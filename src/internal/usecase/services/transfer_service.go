package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/api-sage/moneytransfer/src/internal/commons"
	"github.com/api-sage/moneytransfer/src/internal/domain"
	"github.com/api-sage/moneytransfer/src/internal/logger"
	"github.com/api-sage/moneytransfer/src/internal/metrics"
	"github.com/api-sage/moneytransfer/src/internal/usecase/service_interfaces"
)

// StateListener observes every transition of a submission.
type StateListener func(attempt domain.TransferAttempt, state domain.SubmissionState)

// TransferService validates and submits transfers. It never changes cached
// balances itself; a successful submission invalidates the account cache.
type TransferService struct {
	gateway  service_interfaces.BackendGateway
	sessions service_interfaces.SessionService
	accounts service_interfaces.AccountService
	metrics  *metrics.Metrics
	policy   RetryPolicy
	locks    *accountLocks
	listener StateListener

	newKey func() string
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewTransferService(
	gateway service_interfaces.BackendGateway,
	sessions service_interfaces.SessionService,
	accounts service_interfaces.AccountService,
	policy RetryPolicy,
	m *metrics.Metrics,
) *TransferService {
	return &TransferService{
		gateway:  gateway,
		sessions: sessions,
		accounts: accounts,
		metrics:  m,
		policy:   policy.normalized(),
		locks:    newAccountLocks(),
		newKey:   uuid.NewString,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// OnStateChange installs the listener. It is not safe to call while
// submissions are running.
func (s *TransferService) OnStateChange(fn StateListener) {
	s.listener = fn
}

// NewAttempt starts a logical transfer with a fresh idempotency key.
func (s *TransferService) NewAttempt(toAccountID string, amount decimal.Decimal, remarks string) domain.TransferAttempt {
	return domain.TransferAttempt{
		IdempotencyKey: s.newKey(),
		ToAccountID:    strings.TrimSpace(toAccountID),
		Amount:         amount,
		Remarks:        strings.TrimSpace(remarks),
	}
}

func (s *TransferService) SubmitTransfer(ctx context.Context, toAccountID string, amount decimal.Decimal, remarks string) (domain.TransactionRecord, error) {
	return s.submit(ctx, s.NewAttempt(toAccountID, amount, remarks), true)
}

// Submit runs one logical transfer. Every network attempt carries the
// attempt's key, so submitting the same attempt again after a cancellation or
// an unknown outcome is safe: a DUPLICATE_TRANSFER answer for a key the caller
// supplied means the transfer was already applied.
func (s *TransferService) Submit(ctx context.Context, attempt domain.TransferAttempt) (domain.TransactionRecord, error) {
	fresh := strings.TrimSpace(attempt.IdempotencyKey) == ""
	if fresh {
		attempt.IdempotencyKey = s.newKey()
	}
	return s.submit(ctx, attempt, fresh)
}

func (s *TransferService) submit(ctx context.Context, attempt domain.TransferAttempt, freshKey bool) (domain.TransactionRecord, error) {
	attempt.ToAccountID = strings.TrimSpace(attempt.ToAccountID)

	logger.Info("transfer service submit request", logger.Fields{
		"idempotencyKey": attempt.IdempotencyKey,
		"toAccountId":    attempt.ToAccountID,
		"amount":         attempt.Amount.String(),
	})

	s.transition(attempt, domain.SubmissionIdle)

	identity := s.sessions.CurrentIdentity()
	if identity == nil || !s.sessions.IsAuthenticated() {
		return s.fail(attempt, domain.SubmissionRejectedLocal, fmt.Errorf("submit transfer: %w", domain.ErrNotAuthenticated))
	}

	unlock, err := s.locks.Lock(ctx, identity.ID)
	if err != nil {
		return s.fail(attempt, domain.SubmissionCancelled, &domain.CancelledError{IdempotencyKey: attempt.IdempotencyKey, Err: err})
	}
	defer unlock()

	s.transition(attempt, domain.SubmissionValidating)
	if err := validateAttempt(attempt, identity.ID); err != nil {
		return s.fail(attempt, domain.SubmissionRejectedLocal, err)
	}

	// A resumed key may already be applied, in which case the current balance
	// no longer covers it. The backend deduplicates, so only new keys are
	// checked against the snapshot.
	if freshKey {
		snapshot, ok := s.accounts.CachedSnapshot()
		if !ok {
			snapshot, err = s.accounts.GetAccountSnapshot(ctx)
			if err != nil {
				return s.fail(attempt, s.stateFor(ctx, err), s.wrapCancelled(ctx, attempt, err))
			}
		}
		if err := validateAgainstSnapshot(attempt, snapshot); err != nil {
			return s.fail(attempt, domain.SubmissionRejectedLocal, err)
		}
	}

	req := domain.TransferRequest{
		FromAccountID:  identity.ID,
		ToAccountID:    attempt.ToAccountID,
		Amount:         attempt.Amount,
		IdempotencyKey: attempt.IdempotencyKey,
	}

	return s.submitWithRetry(ctx, attempt, req, freshKey)
}

// submitWithRetry sends req until it succeeds, is rejected or runs out of
// attempts. Once a request has been sent the backend may hold the transfer,
// so every exit drops the cached snapshot.
func (s *TransferService) submitWithRetry(ctx context.Context, attempt domain.TransferAttempt, req domain.TransferRequest, freshKey bool) (domain.TransactionRecord, error) {
	var lastErr error
	// A duplicate is only proof of an earlier apply when this key may have
	// reached the backend before.
	mayHaveApplied := !freshKey

	for n := 1; n <= s.policy.MaxAttempts; n++ {
		if n > 1 {
			s.transition(attempt, domain.SubmissionRetrying)
			if err := s.sleep(ctx, s.policy.backoff(n-1)); err != nil {
				return s.failUnknown(attempt, domain.SubmissionCancelled, &domain.CancelledError{IdempotencyKey: attempt.IdempotencyKey, Err: err})
			}
		}

		s.transition(attempt, domain.SubmissionSubmitting)
		s.metrics.ObserveTransferAttempt()

		attemptCtx, cancel := context.WithTimeout(ctx, s.policy.AttemptTimeout)
		result, err := s.gateway.SubmitTransfer(attemptCtx, req)
		cancel()

		if err == nil {
			if result.Status == domain.TransactionStatusFailed {
				return s.failUnknown(attempt, domain.SubmissionRejectedRemote, &domain.RejectedError{
					StatusCode: http.StatusCreated,
					Code:       string(domain.TransactionStatusFailed),
					Reason:     result.Message,
				})
			}
			return s.succeed(attempt, result.TransactionID), nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return s.failUnknown(attempt, domain.SubmissionCancelled, &domain.CancelledError{IdempotencyKey: attempt.IdempotencyKey, Err: ctxErr})
		}

		var rejected *domain.RejectedError
		switch {
		case errors.As(err, &rejected) && rejected.Code == commons.CodeDuplicateTransfer && mayHaveApplied:
			logger.Warn("transfer service duplicate key treated as applied", logger.Fields{
				"idempotencyKey": attempt.IdempotencyKey,
				"attempt":        n,
				"resumed":        !freshKey,
			})
			return s.succeed(attempt, ""), nil
		case errors.Is(err, domain.ErrNotAuthenticated):
			s.sessions.Logout(ctx)
			return s.failUnknown(attempt, domain.SubmissionRejectedRemote, err)
		case domain.IsTransport(err):
			mayHaveApplied = true
			lastErr = err
			logger.Warn("transfer service attempt failed", logger.Fields{
				"idempotencyKey": attempt.IdempotencyKey,
				"attempt":        n,
				"maxAttempts":    s.policy.MaxAttempts,
				"error":          err.Error(),
			})
			continue
		default:
			return s.failUnknown(attempt, domain.SubmissionRejectedRemote, err)
		}
	}

	return s.failUnknown(attempt, domain.SubmissionFailedTransport,
		fmt.Errorf("transfer %s failed after %d attempts: %w", attempt.IdempotencyKey, s.policy.MaxAttempts, lastErr))
}

func (s *TransferService) succeed(attempt domain.TransferAttempt, transactionID string) domain.TransactionRecord {
	if strings.TrimSpace(transactionID) == "" {
		transactionID = attempt.IdempotencyKey
	}

	description := attempt.Remarks
	if description == "" {
		description = "Transfer to " + attempt.ToAccountID
	}

	record := domain.TransactionRecord{
		ID:                transactionID,
		OccurredAt:        s.now(),
		Direction:         domain.DirectionDebit,
		Amount:            attempt.Amount,
		CounterpartyLabel: attempt.ToAccountID,
		Status:            domain.TransactionStatusSuccess,
		Description:       description,
	}

	s.accounts.Invalidate()
	s.transition(attempt, domain.SubmissionSucceeded)
	s.metrics.ObserveTransferOutcome(string(domain.SubmissionSucceeded))

	logger.Info("transfer service submit success", logger.Fields{
		"idempotencyKey": attempt.IdempotencyKey,
		"transactionId":  record.ID,
	})
	return record
}

func (s *TransferService) fail(attempt domain.TransferAttempt, state domain.SubmissionState, err error) (domain.TransactionRecord, error) {
	s.transition(attempt, state)
	s.metrics.ObserveTransferOutcome(string(state))
	logger.Error("transfer service submit failed", err, logger.Fields{
		"idempotencyKey": attempt.IdempotencyKey,
		"state":          string(state),
	})
	return domain.TransactionRecord{}, err
}

// failUnknown ends a submission whose request reached the wire. The backend
// is the only source of the resulting balance.
func (s *TransferService) failUnknown(attempt domain.TransferAttempt, state domain.SubmissionState, err error) (domain.TransactionRecord, error) {
	s.accounts.Invalidate()
	return s.fail(attempt, state, err)
}

func (s *TransferService) transition(attempt domain.TransferAttempt, state domain.SubmissionState) {
	if s.listener != nil {
		s.listener(attempt, state)
	}
}

func (s *TransferService) stateFor(ctx context.Context, err error) domain.SubmissionState {
	switch {
	case ctx.Err() != nil:
		return domain.SubmissionCancelled
	case domain.IsTransport(err):
		return domain.SubmissionFailedTransport
	default:
		return domain.SubmissionRejectedRemote
	}
}

func (s *TransferService) wrapCancelled(ctx context.Context, attempt domain.TransferAttempt, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &domain.CancelledError{IdempotencyKey: attempt.IdempotencyKey, Err: ctxErr}
	}
	return err
}

func validateAttempt(attempt domain.TransferAttempt, fromAccountID string) error {
	if attempt.ToAccountID == "" {
		return &domain.ValidationError{Reason: domain.ReasonMissingDestination}
	}
	if !attempt.Amount.IsPositive() {
		return &domain.ValidationError{Reason: domain.ReasonInvalidAmount}
	}
	if attempt.ToAccountID == fromAccountID {
		return &domain.ValidationError{Reason: domain.ReasonSameAccount}
	}
	return nil
}

// validateAgainstSnapshot is advisory. The backend may still reject.
func validateAgainstSnapshot(attempt domain.TransferAttempt, snapshot domain.AccountSnapshot) error {
	if !snapshot.AllowsTransfers() {
		return &domain.ValidationError{Reason: domain.ReasonAccountInactive}
	}
	if attempt.Amount.GreaterThan(snapshot.Balance) {
		return &domain.ValidationError{Reason: domain.ReasonInsufficientBalance}
	}
	return nil
}
