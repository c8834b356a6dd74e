package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/api-sage/moneytransfer/src/internal/domain"
	"github.com/api-sage/moneytransfer/src/internal/logger"
	"github.com/api-sage/moneytransfer/src/internal/metrics"
	"github.com/api-sage/moneytransfer/src/internal/usecase/service_interfaces"
)

// AccountService caches the authenticated holder's snapshot. The cache has no
// expiry; it is dropped on session changes and after successful transfers.
type AccountService struct {
	gateway  service_interfaces.BackendGateway
	sessions service_interfaces.SessionService
	metrics  *metrics.Metrics

	mu         sync.Mutex
	snapshot   *domain.AccountSnapshot
	generation uint64

	unsubscribe func()
}

func NewAccountService(
	gateway service_interfaces.BackendGateway,
	sessions service_interfaces.SessionService,
	m *metrics.Metrics,
) *AccountService {
	s := &AccountService{
		gateway:  gateway,
		sessions: sessions,
		metrics:  m,
	}
	s.unsubscribe = sessions.Subscribe(func(domain.Session) {
		s.Invalidate()
	})
	return s
}

// Close detaches the service from session notifications.
func (s *AccountService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *AccountService) GetAccountSnapshot(ctx context.Context) (domain.AccountSnapshot, error) {
	identity := s.sessions.CurrentIdentity()
	if identity == nil {
		return domain.AccountSnapshot{}, fmt.Errorf("get account snapshot: %w", domain.ErrNotAuthenticated)
	}

	s.mu.Lock()
	if s.snapshot != nil && s.snapshot.Identity.ID == identity.ID {
		cached := copySnapshot(*s.snapshot)
		s.mu.Unlock()
		s.metrics.ObserveSnapshotFetch("cache", "ok")
		return cached, nil
	}
	s.mu.Unlock()

	return s.fetch(ctx, *identity)
}

// Refresh fetches a new snapshot regardless of the cache. The cached snapshot
// is replaced only when the fetch succeeds.
func (s *AccountService) Refresh(ctx context.Context) (domain.AccountSnapshot, error) {
	identity := s.sessions.CurrentIdentity()
	if identity == nil {
		return domain.AccountSnapshot{}, fmt.Errorf("refresh account snapshot: %w", domain.ErrNotAuthenticated)
	}

	// Older fetches still in flight must not overwrite the result.
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()

	return s.fetch(ctx, *identity)
}

// Invalidate drops the cached snapshot. A fetch already in flight still
// answers its own caller but does not repopulate the cache.
func (s *AccountService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
	s.generation++
}

// CachedSnapshot returns the last fetched snapshot without touching the
// network.
func (s *AccountService) CachedSnapshot() (domain.AccountSnapshot, bool) {
	identity := s.sessions.CurrentIdentity()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil || identity == nil || s.snapshot.Identity.ID != identity.ID {
		return domain.AccountSnapshot{}, false
	}
	return copySnapshot(*s.snapshot), true
}

func (s *AccountService) fetch(ctx context.Context, identity domain.Identity) (domain.AccountSnapshot, error) {
	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()

	var (
		account domain.Account
		entries []domain.LedgerEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		account, err = s.gateway.GetAccount(gctx, identity.ID)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.gateway.GetTransactions(gctx, identity.ID)
		return err
	})

	if err := g.Wait(); err != nil {
		s.metrics.ObserveSnapshotFetch("backend", "error")
		logger.Error("account service snapshot fetch failed", err, logger.Fields{
			"accountId": identity.ID,
		})
		if errors.Is(err, domain.ErrNotAuthenticated) {
			s.sessions.Logout(ctx)
		}
		return domain.AccountSnapshot{}, err
	}

	snapshot := domain.AccountSnapshot{
		Identity:     identity,
		Balance:      account.Balance,
		Status:       account.Status,
		Transactions: TranslateTransactions(identity, entries),
	}

	s.mu.Lock()
	if s.generation == generation {
		stored := copySnapshot(snapshot)
		s.snapshot = &stored
	}
	s.mu.Unlock()

	s.metrics.ObserveSnapshotFetch("backend", "ok")
	logger.Info("account service snapshot fetched", logger.Fields{
		"accountId":    identity.ID,
		"transactions": len(snapshot.Transactions),
	})

	return snapshot, nil
}

// TranslateTransactions labels raw ledger entries relative to identity and
// orders them newest first. Entries with equal timestamps keep the backend's
// order.
func TranslateTransactions(identity domain.Identity, entries []domain.LedgerEntry) []domain.TransactionRecord {
	records := make([]domain.TransactionRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, translateEntry(identity.ID, entry))
	}

	slices.SortStableFunc(records, func(a, b domain.TransactionRecord) int {
		return b.OccurredAt.Compare(a.OccurredAt)
	})

	return records
}

func translateEntry(accountID string, entry domain.LedgerEntry) domain.TransactionRecord {
	direction := domain.DirectionCredit
	counterparty := entry.FromAccountID
	if entry.FromAccountID == accountID {
		direction = domain.DirectionDebit
		counterparty = entry.ToAccountID
	}

	status := entry.Status
	if status == "" {
		status = domain.TransactionStatusSuccess
	}

	return domain.TransactionRecord{
		ID:                entry.ID,
		OccurredAt:        entry.CreatedOn,
		Direction:         direction,
		Amount:            entry.Amount.Abs(),
		CounterpartyLabel: counterparty,
		Status:            status,
		Description:       describeEntry(direction, counterparty, status, entry.FailureReason),
	}
}

func describeEntry(direction domain.Direction, counterparty string, status domain.TransactionStatus, failureReason string) string {
	base := "Received from " + counterparty
	if direction == domain.DirectionDebit {
		base = "Transfer to " + counterparty
	}

	if status == domain.TransactionStatusSuccess {
		return base
	}
	if strings.TrimSpace(failureReason) == "" {
		return base + " failed"
	}
	return base + " failed: " + failureReason
}

func copySnapshot(snapshot domain.AccountSnapshot) domain.AccountSnapshot {
	out := snapshot
	out.Transactions = slices.Clone(snapshot.Transactions)
	return out
}
