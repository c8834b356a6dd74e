package domain

import "github.com/shopspring/decimal"

type AccountStatus string

const (
	AccountStatusActive AccountStatus = "ACTIVE"
	AccountStatusLocked AccountStatus = "LOCKED"
	AccountStatusClosed AccountStatus = "CLOSED"
)

// Account is the backend's view of a single account.
type Account struct {
	ID         string
	HolderName string
	Balance    decimal.Decimal
	Status     AccountStatus
}

// AccountSnapshot is a point-in-time read of balance and history for the
// authenticated identity. Transactions are ordered newest first.
type AccountSnapshot struct {
	Identity     Identity
	Balance      decimal.Decimal
	Status       AccountStatus
	Transactions []TransactionRecord
}

// AllowsTransfers reports whether the snapshot's account may send funds. An
// unknown status is treated as allowed and left to the backend.
func (s AccountSnapshot) AllowsTransfers() bool {
	return s.Status == "" || s.Status == AccountStatusActive
}
