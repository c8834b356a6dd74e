package models

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var minimumTransferAmount = decimal.RequireFromString("0.01")

type TransferRequest struct {
	FromAccountID  AccountID       `json:"fromAccountId"`
	ToAccountID    AccountID       `json:"toAccountId"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotencyKey"`
}

func (r TransferRequest) Validate() error {
	var errs []string

	if r.FromAccountID.String() == "" {
		errs = append(errs, "Source account ID is required")
	}
	if r.ToAccountID.String() == "" {
		errs = append(errs, "Destination account ID is required")
	}
	if r.Amount.LessThan(minimumTransferAmount) {
		errs = append(errs, "Transfer amount must be at least 0.01")
	}
	if strings.TrimSpace(r.IdempotencyKey) == "" {
		errs = append(errs, "Idempotency key is required")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type TransferResponse struct {
	TransactionID string           `json:"transactionId"`
	Status        string           `json:"status,omitempty"`
	Message       string           `json:"message,omitempty"`
	DebitedFrom   AccountID        `json:"debitedFrom,omitempty"`
	CreditedTo    AccountID        `json:"creditedTo,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
}
