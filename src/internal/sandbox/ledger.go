// Package sandbox is an in-memory backend ledger speaking the same HTTP
// contract as the real one. It backs local development and the service tests.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/api-sage/moneytransfer/src/internal/commons"
	"github.com/api-sage/moneytransfer/src/internal/domain"
	"github.com/api-sage/moneytransfer/src/internal/logger"
)

var minTransferAmount = decimal.RequireFromString("0.01")

var ErrInvalidCredentials = errors.New("invalid username or password")

// Error is a ledger rejection carrying the HTTP status and error code the
// backend answers with.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type account struct {
	id           string
	holderName   string
	passwordHash []byte
	balance      decimal.Decimal
	status       domain.AccountStatus
}

type Option func(*Ledger)

// WithHashCost sets the bcrypt cost used for seeded passwords.
func WithHashCost(cost int) Option {
	return func(l *Ledger) { l.hashCost = cost }
}

// WithClock replaces the ledger's time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Ledger holds accounts and the transaction log. Transfers lock both accounts
// in id order; mu guards the maps and the log.
type Ledger struct {
	mu           sync.RWMutex
	accounts     map[string]*account
	transactions []domain.LedgerEntry
	keys         map[string]string
	applied      int

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex

	hashCost int
	now      func() time.Time
}

func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		accounts: make(map[string]*account),
		keys:     make(map[string]string),
		locks:    make(map[string]*sync.Mutex),
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SeedDefaults adds the four demo holders, each with 1000.00.
func (l *Ledger) SeedDefaults() error {
	seed := []struct {
		id, name, password string
	}{
		{"1", "Pranav", "pranav123"},
		{"2", "Pranesh", "pranesh123"},
		{"3", "Pradeep", "pradeep123"},
		{"4", "Nivedita", "nivedita123"},
	}
	for _, s := range seed {
		if err := l.AddAccount(s.id, s.name, s.password, decimal.RequireFromString("1000.00"), domain.AccountStatusActive); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) AddAccount(id, holderName, password string, balance decimal.Decimal, status domain.AccountStatus) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("account id is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.accounts[id]; exists {
		return fmt.Errorf("account %s already exists", id)
	}
	l.accounts[id] = &account{
		id:           id,
		holderName:   holderName,
		passwordHash: hash,
		balance:      balance,
		status:       status,
	}

	logger.Info("sandbox ledger account added", logger.Fields{
		"accountId":  id,
		"holderName": holderName,
		"status":     string(status),
	})
	return nil
}

func (l *Ledger) SetStatus(id string, status domain.AccountStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[id]
	if !ok {
		return accountNotFound(id)
	}
	acc.status = status
	return nil
}

func (l *Ledger) SetBalance(id string, balance decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[id]
	if !ok {
		return accountNotFound(id)
	}
	acc.balance = balance
	return nil
}

// AppliedTransfers counts transfers that moved money.
func (l *Ledger) AppliedTransfers() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.applied
}

func (l *Ledger) Authenticate(id, password string) (domain.Account, error) {
	l.mu.RLock()
	acc, ok := l.accounts[strings.TrimSpace(id)]
	var hash []byte
	if ok {
		hash = acc.passwordHash
	}
	l.mu.RUnlock()

	if !ok {
		return domain.Account{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return domain.Account{}, ErrInvalidCredentials
	}
	return l.Account(id)
}

func (l *Ledger) Account(id string) (domain.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, ok := l.accounts[strings.TrimSpace(id)]
	if !ok {
		return domain.Account{}, accountNotFound(id)
	}
	return toDomainAccount(acc), nil
}

// Transactions lists entries touching id, newest first.
func (l *Ledger) Transactions(id string) ([]domain.LedgerEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, ok := l.accounts[id]; !ok {
		return nil, accountNotFound(id)
	}

	out := make([]domain.LedgerEntry, 0)
	for i := len(l.transactions) - 1; i >= 0; i-- {
		tx := l.transactions[i]
		if tx.FromAccountID == id || tx.ToAccountID == id {
			out = append(out, tx)
		}
	}
	return out, nil
}

// Transfer applies req on behalf of requesterID. A balance or status failure
// found while applying is logged as a FAILED entry and returned as such, not
// as an error.
func (l *Ledger) Transfer(ctx context.Context, requesterID string, req domain.TransferRequest) (domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.LedgerEntry{}, err
	}

	if req.FromAccountID != requesterID {
		return domain.LedgerEntry{}, &Error{Status: http.StatusForbidden, Code: commons.CodeAccessDenied, Message: "You do not have permission to perform this action"}
	}
	if err := validateRequest(req); err != nil {
		return domain.LedgerEntry{}, err
	}

	if err := l.precheck(req); err != nil {
		return domain.LedgerEntry{}, err
	}

	if err := l.reserveKey(req.IdempotencyKey); err != nil {
		return domain.LedgerEntry{}, err
	}

	unlock := l.lockPair(req.FromAccountID, req.ToAccountID)
	defer unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	from := l.accounts[req.FromAccountID]
	to := l.accounts[req.ToAccountID]

	entry := domain.LedgerEntry{
		ID:            uuid.NewString(),
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Status:        domain.TransactionStatusSuccess,
		CreatedOn:     l.now().UTC(),
	}

	switch {
	case from.status != domain.AccountStatusActive:
		entry.Status = domain.TransactionStatusFailed
		entry.FailureReason = notActiveMessage(from)
	case to.status != domain.AccountStatusActive:
		entry.Status = domain.TransactionStatusFailed
		entry.FailureReason = notActiveMessage(to)
	case from.balance.LessThan(req.Amount):
		entry.Status = domain.TransactionStatusFailed
		entry.FailureReason = fmt.Sprintf("Insufficient balance in account %s. Current balance: %s, Requested amount: %s",
			from.id, from.balance.StringFixed(2), req.Amount.StringFixed(2))
	default:
		from.balance = from.balance.Sub(req.Amount)
		to.balance = to.balance.Add(req.Amount)
		l.applied++
	}

	l.transactions = append(l.transactions, entry)
	l.keys[req.IdempotencyKey] = entry.ID

	logger.Info("sandbox ledger transfer recorded", logger.Fields{
		"transactionId":  entry.ID,
		"idempotencyKey": req.IdempotencyKey,
		"status":         string(entry.Status),
	})
	return entry, nil
}

func (l *Ledger) precheck(req domain.TransferRequest) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	from, ok := l.accounts[req.FromAccountID]
	if !ok {
		return accountNotFound(req.FromAccountID)
	}
	to, ok := l.accounts[req.ToAccountID]
	if !ok {
		return accountNotFound(req.ToAccountID)
	}

	for _, acc := range []*account{from, to} {
		if acc.status != domain.AccountStatusActive {
			return &Error{Status: http.StatusForbidden, Code: commons.CodeAccountNotActive, Message: notActiveMessage(acc)}
		}
	}
	if from.balance.LessThan(req.Amount) {
		return &Error{Status: http.StatusBadRequest, Code: commons.CodeInsufficientBalance, Message: "Insufficient balance in the source account"}
	}

	if _, dup := l.keys[req.IdempotencyKey]; dup {
		return duplicateTransfer(req.IdempotencyKey)
	}
	return nil
}

func (l *Ledger) reserveKey(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.keys[key]; dup {
		return duplicateTransfer(key)
	}
	l.keys[key] = ""
	return nil
}

func (l *Ledger) accountLock(id string) *sync.Mutex {
	l.lockMu.Lock()
	defer l.lockMu.Unlock()

	mu, ok := l.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[id] = mu
	}
	return mu
}

// lockPair takes both account locks in a fixed order.
func (l *Ledger) lockPair(a, b string) func() {
	ids := []string{a, b}
	slices.Sort(ids)

	first := l.accountLock(ids[0])
	first.Lock()
	if ids[0] == ids[1] {
		return first.Unlock
	}
	second := l.accountLock(ids[1])
	second.Lock()

	return func() {
		second.Unlock()
		first.Unlock()
	}
}

func validateRequest(req domain.TransferRequest) error {
	var problems []string
	if strings.TrimSpace(req.FromAccountID) == "" {
		problems = append(problems, "Source account ID is required")
	}
	if strings.TrimSpace(req.ToAccountID) == "" {
		problems = append(problems, "Destination account ID is required")
	}
	if req.Amount.LessThan(minTransferAmount) {
		problems = append(problems, "Transfer amount must be at least 0.01")
	}
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		problems = append(problems, "Idempotency key is required")
	}
	if len(problems) == 0 && req.FromAccountID == req.ToAccountID {
		problems = append(problems, "Source and destination accounts must be different")
	}
	if len(problems) > 0 {
		return &Error{Status: http.StatusUnprocessableEntity, Code: commons.CodeValidationError, Message: strings.Join(problems, "; ")}
	}
	return nil
}

func toDomainAccount(acc *account) domain.Account {
	return domain.Account{
		ID:         acc.id,
		HolderName: acc.holderName,
		Balance:    acc.balance,
		Status:     acc.status,
	}
}

func notActiveMessage(acc *account) string {
	return fmt.Sprintf("Account %s is not active. Current status: %s", acc.id, displayStatus(acc.status))
}

func displayStatus(status domain.AccountStatus) string {
	s := strings.ToLower(string(status))
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func accountNotFound(id string) error {
	return &Error{Status: http.StatusNotFound, Code: commons.CodeAccountNotFound, Message: fmt.Sprintf("Account with ID %s not found", id)}
}

func duplicateTransfer(key string) error {
	return &Error{Status: http.StatusConflict, Code: commons.CodeDuplicateTransfer, Message: "Duplicate transfer detected with idempotency key: " + key}
}
