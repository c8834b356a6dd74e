package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/api-sage/moneytransfer/src/internal/domain"
	"github.com/api-sage/moneytransfer/src/internal/usecase/services"
)

func TestAccountServiceRequiresIdentity(t *testing.T) {
	gw := &gatewayStub{}
	s := newStack(t, gw)

	_, err := s.accounts.GetAccountSnapshot(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	assert.Zero(t, gw.networkCalls())
}

func TestAccountServiceServesCacheUntilInvalidated(t *testing.T) {
	gw := &gatewayStub{}
	s := newLoggedInStack(t, gw)

	first, err := s.accounts.GetAccountSnapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, first.Balance.Equal(decimal.NewFromInt(45250)))
	assert.Equal(t, "1", first.Identity.ID)

	_, err = s.accounts.GetAccountSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, gw.readCalls())
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.SnapshotFetches().WithLabelValues("cache", "ok")))

	s.accounts.Invalidate()
	_, err = s.accounts.GetAccountSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, gw.readCalls())
}

func TestAccountServicePartialFailureReturnsNothing(t *testing.T) {
	gw := &gatewayStub{
		getTransactionsFn: func(context.Context, string) ([]domain.LedgerEntry, error) {
			return nil, &domain.TransportError{Op: "get transactions", Err: errors.New("reset by peer")}
		},
	}
	s := newLoggedInStack(t, gw)

	_, err := s.accounts.GetAccountSnapshot(context.Background())
	assert.True(t, domain.IsTransport(err))

	_, cached := s.accounts.CachedSnapshot()
	assert.False(t, cached)
	assert.True(t, s.sessions.IsAuthenticated())
}

func TestAccountServiceUnauthorizedLogsOut(t *testing.T) {
	gw := &gatewayStub{
		getAccountFn: func(context.Context, string) (domain.Account, error) {
			return domain.Account{}, fmt.Errorf("get account: %w", domain.ErrNotAuthenticated)
		},
	}
	s := newLoggedInStack(t, gw)

	_, err := s.accounts.GetAccountSnapshot(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	assert.False(t, s.sessions.IsAuthenticated())
}

func TestAccountServiceLogoutThenSnapshotFails(t *testing.T) {
	s := newLoggedInStack(t, &gatewayStub{})

	_, err := s.accounts.GetAccountSnapshot(context.Background())
	require.NoError(t, err)

	s.sessions.Logout(context.Background())

	_, err = s.accounts.GetAccountSnapshot(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	_, cached := s.accounts.CachedSnapshot()
	assert.False(t, cached)
}

func TestAccountServiceSessionChangeDropsCache(t *testing.T) {
	gw := &gatewayStub{}
	s := newLoggedInStack(t, gw)

	_, err := s.accounts.GetAccountSnapshot(context.Background())
	require.NoError(t, err)

	_, err = s.sessions.Login(context.Background(), "2", "secret")
	require.NoError(t, err)

	snapshot, err := s.accounts.GetAccountSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2", snapshot.Identity.ID)
	assert.Equal(t, 4, gw.readCalls())
}

func TestAccountServiceInvalidateDuringFetchIsNotCached(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	gw := &gatewayStub{
		getAccountFn: func(ctx context.Context, accountID string) (domain.Account, error) {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
			return domain.Account{ID: accountID, Balance: decimal.NewFromInt(10)}, nil
		},
	}
	s := newLoggedInStack(t, gw)

	done := make(chan error, 1)
	go func() {
		_, err := s.accounts.GetAccountSnapshot(context.Background())
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("fetch did not start")
	}
	s.accounts.Invalidate()
	close(release)

	require.NoError(t, <-done)
	_, cached := s.accounts.CachedSnapshot()
	assert.False(t, cached)
}

func TestAccountServiceRefreshBypassesCache(t *testing.T) {
	balance := decimal.NewFromInt(100)
	gw := &gatewayStub{
		getAccountFn: func(_ context.Context, accountID string) (domain.Account, error) {
			return domain.Account{ID: accountID, Balance: balance}, nil
		},
	}
	s := newLoggedInStack(t, gw)

	_, err := s.accounts.GetAccountSnapshot(context.Background())
	require.NoError(t, err)

	balance = decimal.NewFromInt(80)
	snapshot, err := s.accounts.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, snapshot.Balance.Equal(decimal.NewFromInt(80)))

	cached, ok := s.accounts.CachedSnapshot()
	require.True(t, ok)
	assert.True(t, cached.Balance.Equal(decimal.NewFromInt(80)))
}

func TestTranslateTransactionsDirection(t *testing.T) {
	identity := domain.Identity{ID: "1"}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	records := services.TranslateTransactions(identity, []domain.LedgerEntry{
		{ID: "a", FromAccountID: "1", ToAccountID: "2", Amount: decimal.NewFromInt(5), Status: domain.TransactionStatusSuccess, CreatedOn: at},
		{ID: "b", FromAccountID: "2", ToAccountID: "1", Amount: decimal.NewFromInt(7), Status: domain.TransactionStatusSuccess, CreatedOn: at.Add(-time.Hour)},
	})
	require.Len(t, records, 2)

	assert.Equal(t, domain.DirectionDebit, records[0].Direction)
	assert.Equal(t, "2", records[0].CounterpartyLabel)
	assert.Equal(t, "Transfer to 2", records[0].Description)

	assert.Equal(t, domain.DirectionCredit, records[1].Direction)
	assert.Equal(t, "2", records[1].CounterpartyLabel)
	assert.Equal(t, "Received from 2", records[1].Description)
}

func TestTranslateTransactionsOrderIsStable(t *testing.T) {
	same := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	records := services.TranslateTransactions(domain.Identity{ID: "1"}, []domain.LedgerEntry{
		{ID: "old", FromAccountID: "1", ToAccountID: "2", CreatedOn: same.Add(-time.Hour)},
		{ID: "tie-1", FromAccountID: "1", ToAccountID: "2", CreatedOn: same},
		{ID: "tie-2", FromAccountID: "3", ToAccountID: "1", CreatedOn: same},
		{ID: "new", FromAccountID: "1", ToAccountID: "4", CreatedOn: same.Add(time.Hour)},
	})

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"new", "tie-1", "tie-2", "old"}, ids)
}

func TestTranslateTransactionsFailureReasonVerbatim(t *testing.T) {
	records := services.TranslateTransactions(domain.Identity{ID: "1"}, []domain.LedgerEntry{
		{ID: "f", FromAccountID: "1", ToAccountID: "3", Amount: decimal.NewFromInt(750), Status: domain.TransactionStatusFailed, FailureReason: "Account 3 is not active. Current status: Locked"},
	})
	require.Len(t, records, 1)

	assert.Equal(t, domain.TransactionStatusFailed, records[0].Status)
	assert.Contains(t, records[0].Description, "Account 3 is not active. Current status: Locked")
}

func TestAccountServiceFailedRefreshKeepsLastSnapshot(t *testing.T) {
	var failing atomic.Bool
	gw := &gatewayStub{
		getTransactionsFn: func(context.Context, string) ([]domain.LedgerEntry, error) {
			if failing.Load() {
				return nil, &domain.TransportError{Op: "get transactions", Err: errors.New("reset by peer")}
			}
			return nil, nil
		},
	}
	s := newLoggedInStack(t, gw)

	_, err := s.accounts.GetAccountSnapshot(context.Background())
	require.NoError(t, err)

	failing.Store(true)
	_, err = s.accounts.Refresh(context.Background())
	assert.True(t, domain.IsTransport(err))

	cached, ok := s.accounts.CachedSnapshot()
	require.True(t, ok)
	assert.True(t, cached.Balance.Equal(decimal.NewFromInt(45250)))

	readsBefore := gw.readCalls()
	_, err = s.accounts.GetAccountSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, readsBefore, gw.readCalls())
}
