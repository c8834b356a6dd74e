package service_interfaces

import (
	"context"

	"github.com/api-sage/moneytransfer/src/internal/domain"
	"github.com/shopspring/decimal"
)

type TransferService interface {
	SubmitTransfer(ctx context.Context, toAccountID string, amount decimal.Decimal, remarks string) (domain.TransactionRecord, error)
	NewAttempt(toAccountID string, amount decimal.Decimal, remarks string) domain.TransferAttempt
	Submit(ctx context.Context, attempt domain.TransferAttempt) (domain.TransactionRecord, error)
}
