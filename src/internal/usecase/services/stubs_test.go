package services_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/api-sage/moneytransfer/src/internal/adapter/gateway"
	"github.com/api-sage/moneytransfer/src/internal/adapter/http/middleware"
	"github.com/api-sage/moneytransfer/src/internal/adapter/http/router"
	"github.com/api-sage/moneytransfer/src/internal/adapter/repository/memory"
	"github.com/api-sage/moneytransfer/src/internal/domain"
	"github.com/api-sage/moneytransfer/src/internal/metrics"
	"github.com/api-sage/moneytransfer/src/internal/sandbox"
	"github.com/api-sage/moneytransfer/src/internal/usecase/services"
)

type gatewayStub struct {
	mu sync.Mutex

	loginFn           func(ctx context.Context, accountID, password string) (domain.LoginResult, error)
	getAccountFn      func(ctx context.Context, accountID string) (domain.Account, error)
	getTransactionsFn func(ctx context.Context, accountID string) ([]domain.LedgerEntry, error)
	submitTransferFn  func(ctx context.Context, req domain.TransferRequest) (domain.TransferResult, error)

	loginCalls       int
	accountCalls     int
	transactionCalls int
	submitKeys       []string
}

func (s *gatewayStub) Login(ctx context.Context, accountID, password string) (domain.LoginResult, error) {
	s.mu.Lock()
	s.loginCalls++
	s.mu.Unlock()
	if s.loginFn != nil {
		return s.loginFn(ctx, accountID, password)
	}
	return domain.LoginResult{Token: "tok-" + accountID, AccountID: accountID, HolderName: "Holder " + accountID}, nil
}

func (s *gatewayStub) GetAccount(ctx context.Context, accountID string) (domain.Account, error) {
	s.mu.Lock()
	s.accountCalls++
	s.mu.Unlock()
	if s.getAccountFn != nil {
		return s.getAccountFn(ctx, accountID)
	}
	return domain.Account{ID: accountID, Balance: decimal.NewFromInt(45250), Status: domain.AccountStatusActive}, nil
}

func (s *gatewayStub) GetTransactions(ctx context.Context, accountID string) ([]domain.LedgerEntry, error) {
	s.mu.Lock()
	s.transactionCalls++
	s.mu.Unlock()
	if s.getTransactionsFn != nil {
		return s.getTransactionsFn(ctx, accountID)
	}
	return nil, nil
}

func (s *gatewayStub) SubmitTransfer(ctx context.Context, req domain.TransferRequest) (domain.TransferResult, error) {
	s.mu.Lock()
	s.submitKeys = append(s.submitKeys, req.IdempotencyKey)
	s.mu.Unlock()
	if s.submitTransferFn != nil {
		return s.submitTransferFn(ctx, req)
	}
	return domain.TransferResult{TransactionID: "tx-1", Status: domain.TransactionStatusSuccess}, nil
}

func (s *gatewayStub) networkCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginCalls + s.accountCalls + s.transactionCalls + len(s.submitKeys)
}

func (s *gatewayStub) readCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountCalls + s.transactionCalls
}

func (s *gatewayStub) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.submitKeys...)
}

// storeStub wraps the memory store and injects write failures.
type storeStub struct {
	*memory.KeyValueStore
	setErr    error
	deleteErr error
}

func (s *storeStub) Set(ctx context.Context, key, value string) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.KeyValueStore.Set(ctx, key, value)
}

func (s *storeStub) Delete(ctx context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.KeyValueStore.Delete(ctx, key)
}

var errStoreDown = errors.New("store unavailable")

func fastRetry() services.RetryPolicy {
	return services.RetryPolicy{
		MaxAttempts:    3,
		AttemptTimeout: time.Second,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

type stack struct {
	gateway   *gatewayStub
	store     *memory.KeyValueStore
	sessions  *services.SessionService
	accounts  *services.AccountService
	transfers *services.TransferService
	metrics   *metrics.Metrics
}

func newStack(t *testing.T, gw *gatewayStub) *stack {
	t.Helper()

	store := memory.NewKeyValueStore()
	m := metrics.New()
	sessions, err := services.NewSessionService(context.Background(), store, gw, m)
	require.NoError(t, err)

	accounts := services.NewAccountService(gw, sessions, m)
	t.Cleanup(accounts.Close)

	return &stack{
		gateway:   gw,
		store:     store,
		sessions:  sessions,
		accounts:  accounts,
		transfers: services.NewTransferService(gw, sessions, accounts, fastRetry(), m),
		metrics:   m,
	}
}

func newLoggedInStack(t *testing.T, gw *gatewayStub) *stack {
	t.Helper()
	s := newStack(t, gw)
	_, err := s.sessions.Login(context.Background(), "1", "secret")
	require.NoError(t, err)
	return s
}

type sandboxStack struct {
	ledger    *sandbox.Ledger
	sessions  *services.SessionService
	accounts  *services.AccountService
	transfers *services.TransferService
}

// newSandboxStack runs the services against the in-memory backend over real
// HTTP. wrap, if set, decorates the backend handler.
func newSandboxStack(t *testing.T, wrap func(http.Handler) http.Handler) *sandboxStack {
	t.Helper()

	ledger := sandbox.NewLedger(sandbox.WithHashCost(bcrypt.MinCost))
	require.NoError(t, ledger.SeedDefaults())

	auth, err := middleware.NewBearerAuth("test-secret", time.Hour)
	require.NoError(t, err)

	var handler http.Handler = router.NewSandbox(ledger, auth, nil)
	if wrap != nil {
		handler = wrap(handler)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var sessions *services.SessionService
	client, err := gateway.New(gateway.Config{BaseURL: srv.URL + "/api"}, gateway.TokenFunc(func() string {
		return sessions.Token()
	}))
	require.NoError(t, err)

	sessions, err = services.NewSessionService(context.Background(), memory.NewKeyValueStore(), client, nil)
	require.NoError(t, err)

	accounts := services.NewAccountService(client, sessions, nil)
	t.Cleanup(accounts.Close)

	return &sandboxStack{
		ledger:    ledger,
		sessions:  sessions,
		accounts:  accounts,
		transfers: services.NewTransferService(client, sessions, accounts, fastRetry(), nil),
	}
}
