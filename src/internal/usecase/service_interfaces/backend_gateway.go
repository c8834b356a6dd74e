package service_interfaces

import (
	"context"

	"github.com/api-sage/moneytransfer/src/internal/domain"
)

// BackendGateway is the authoritative ledger as the services consume it.
type BackendGateway interface {
	Login(ctx context.Context, accountID string, password string) (domain.LoginResult, error)
	GetAccount(ctx context.Context, accountID string) (domain.Account, error)
	GetTransactions(ctx context.Context, accountID string) ([]domain.LedgerEntry, error)
	SubmitTransfer(ctx context.Context, req domain.TransferRequest) (domain.TransferResult, error)
}
