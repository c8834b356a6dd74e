package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountResponse struct {
	ID         AccountID       `json:"id"`
	HolderName string          `json:"holderName"`
	Balance    decimal.Decimal `json:"balance"`
	Status     string          `json:"status"`
}

type TransactionResponse struct {
	ID            string          `json:"id"`
	FromAccountID AccountID       `json:"fromAccountId"`
	ToAccountID   AccountID       `json:"toAccountId"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	FailureReason string          `json:"failureReason,omitempty"`
	CreatedOn     time.Time       `json:"createdOn"`
}
