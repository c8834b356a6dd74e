package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/api-sage/moneytransfer/src/internal/adapter/http/middleware"
	"github.com/api-sage/moneytransfer/src/internal/domain"
	"github.com/api-sage/moneytransfer/src/internal/metrics"
	"github.com/api-sage/moneytransfer/src/internal/sandbox"
)

func newSandboxServer(t *testing.T) (*httptest.Server, *sandbox.Ledger) {
	t.Helper()

	ledger := sandbox.NewLedger(sandbox.WithHashCost(bcrypt.MinCost))
	require.NoError(t, ledger.SeedDefaults())

	auth, err := middleware.NewBearerAuth("test-secret", time.Hour)
	require.NoError(t, err)

	srv := httptest.NewServer(NewSandbox(ledger, auth, metrics.New()))
	t.Cleanup(srv.Close)
	return srv, ledger
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func login(t *testing.T, srv *httptest.Server, accountID int, password string) string {
	t.Helper()
	status, body := call(t, srv, http.MethodPost, "/api/auth/login", "", map[string]any{"accountId": accountID, "password": password})
	require.Equal(t, http.StatusOK, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestLoginIssuesToken(t *testing.T) {
	srv, _ := newSandboxServer(t)

	status, body := call(t, srv, http.MethodPost, "/api/auth/login", "", map[string]any{"accountId": 1, "password": "pranav123"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Pranav", body["holderName"])
	assert.Equal(t, float64(1), body["accountId"])
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv, _ := newSandboxServer(t)

	status, body := call(t, srv, http.MethodPost, "/api/auth/login", "", map[string]any{"accountId": 1, "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTHENTICATION_FAILED", body["errorCode"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv, _ := newSandboxServer(t)

	status, _ := call(t, srv, http.MethodGet, "/api/accounts/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, srv, http.MethodPost, "/api/transfers", "", map[string]any{"fromAccountId": 1})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTransferFlow(t *testing.T) {
	srv, ledger := newSandboxServer(t)
	token := login(t, srv, 1, "pranav123")

	transfer := map[string]any{"fromAccountId": 1, "toAccountId": 2, "amount": 250, "idempotencyKey": "key-1"}
	status, body := call(t, srv, http.MethodPost, "/api/transfers", token, transfer)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "SUCCESS", body["status"])
	assert.NotEmpty(t, body["transactionId"])

	status, body = call(t, srv, http.MethodPost, "/api/transfers", token, transfer)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE_TRANSFER", body["errorCode"])
	assert.Equal(t, 1, ledger.AppliedTransfers())

	status, body = call(t, srv, http.MethodGet, "/api/accounts/1", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "750", body["balance"])

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/accounts/2/transactions", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var txs []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&txs))
	require.Len(t, txs, 1)
	assert.Equal(t, float64(1), txs[0]["fromAccountId"])
	assert.Equal(t, "SUCCESS", txs[0]["status"])
}

func TestTransferErrorStatuses(t *testing.T) {
	srv, ledger := newSandboxServer(t)
	token := login(t, srv, 1, "pranav123")
	require.NoError(t, ledger.SetStatus("3", domain.AccountStatusLocked))

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantCode   string
	}{
		{"foreign source", map[string]any{"fromAccountId": 2, "toAccountId": 1, "amount": 1, "idempotencyKey": "a"}, http.StatusForbidden, "ACCESS_DENIED"},
		{"unknown destination", map[string]any{"fromAccountId": 1, "toAccountId": 99, "amount": 1, "idempotencyKey": "b"}, http.StatusNotFound, "ACCOUNT_NOT_FOUND"},
		{"locked destination", map[string]any{"fromAccountId": 1, "toAccountId": 3, "amount": 1, "idempotencyKey": "c"}, http.StatusForbidden, "ACCOUNT_NOT_ACTIVE"},
		{"too much", map[string]any{"fromAccountId": 1, "toAccountId": 2, "amount": 5000, "idempotencyKey": "d"}, http.StatusBadRequest, "INSUFFICIENT_BALANCE"},
		{"below minimum", map[string]any{"fromAccountId": 1, "toAccountId": 2, "amount": 0.001, "idempotencyKey": "e"}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"missing key", map[string]any{"fromAccountId": 1, "toAccountId": 2, "amount": 1}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, srv, http.MethodPost, "/api/transfers", token, tt.body)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, body["errorCode"])
		})
	}
	assert.Zero(t, ledger.AppliedTransfers())
}

func TestMetricsAndDocsAreServed(t *testing.T) {
	srv, _ := newSandboxServer(t)

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status, body := call(t, srv, http.MethodGet, "/swagger/openapi.json", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "3.0.3", body["openapi"])
}
