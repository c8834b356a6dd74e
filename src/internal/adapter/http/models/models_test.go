package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferRequestSendsNumericAccountIDsAsNumbers(t *testing.T) {
	body, err := json.Marshal(TransferRequest{
		FromAccountID:  "1",
		ToAccountID:    "ACC-2",
		Amount:         decimal.RequireFromString("500"),
		IdempotencyKey: "k-1",
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{"fromAccountId":1,"toAccountId":"ACC-2","amount":"500","idempotencyKey":"k-1"}`, string(body))
}

func TestTransactionResponseAcceptsNumericAndStringIDs(t *testing.T) {
	raw := `[
		{"id":"a","fromAccountId":1,"toAccountId":"2","amount":500,"status":"SUCCESS","createdOn":"2026-01-08T10:30:00Z"},
		{"id":"b","fromAccountId":null,"toAccountId":3,"amount":"12.50","status":"FAILED","failureReason":"Insufficient balance","createdOn":"2026-01-07T10:30:00Z"}
	]`

	var got []TransactionResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	require.Len(t, got, 2)

	assert.Equal(t, AccountID("1"), got[0].FromAccountID)
	assert.Equal(t, AccountID("2"), got[0].ToAccountID)
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, AccountID(""), got[1].FromAccountID)
	assert.Equal(t, "Insufficient balance", got[1].FailureReason)
}

func TestTransferRequestValidate(t *testing.T) {
	err := TransferRequest{Amount: decimal.RequireFromString("0.001")}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Source account ID is required")
	assert.Contains(t, err.Error(), "Transfer amount must be at least 0.01")
	assert.Contains(t, err.Error(), "Idempotency key is required")

	ok := TransferRequest{FromAccountID: "1", ToAccountID: "2", Amount: decimal.NewFromInt(1), IdempotencyKey: "k"}
	assert.NoError(t, ok.Validate())
}
