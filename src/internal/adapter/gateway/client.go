// Package gateway is the HTTP client for the authoritative backend ledger.
// It translates HTTP outcomes into the domain error taxonomy and leaves retry
// decisions to its callers.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/api-sage/moneytransfer/src/internal/adapter/http/models"
	"github.com/api-sage/moneytransfer/src/internal/commons"
	"github.com/api-sage/moneytransfer/src/internal/domain"
	"github.com/api-sage/moneytransfer/src/internal/logger"
	"github.com/api-sage/moneytransfer/src/internal/metrics"
)

const defaultMaxResponseBytes = 32 << 20

// ErrResponseTooLarge is wrapped in a TransportError when a body exceeds
// Config.MaxResponseBytes. The body is discarded rather than truncated.
var ErrResponseTooLarge = errors.New("response body too large")

// TokenSource supplies the bearer token for authenticated requests.
type TokenSource interface {
	Token() string
}

type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	// RateLimit is requests per second; zero disables throttling.
	RateLimit float64
	Burst     int
	// MaxResponseBytes caps a response body; zero means 32 MiB.
	MaxResponseBytes int64
	Metrics          *metrics.Metrics
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	maxBody    int64
	metrics    *metrics.Metrics
}

// HTTPStatusError carries an unexpected status code inside a TransportError.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func New(cfg Config, tokens TokenSource) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("gateway base URL is required")
	}

	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse gateway base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	if tokens == nil {
		tokens = TokenFunc(func() string { return "" })
	}

	maxBody := cfg.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = defaultMaxResponseBytes
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		tokens:     tokens,
		limiter:    limiter,
		maxBody:    maxBody,
		metrics:    cfg.Metrics,
	}, nil
}

func (c *Client) Login(ctx context.Context, accountID, password string) (domain.LoginResult, error) {
	req := models.LoginRequest{AccountID: models.AccountID(accountID), Password: password}

	var resp models.LoginResponse
	status, body, err := c.do(ctx, "login", http.MethodPost, "auth/login", req, false)
	if err != nil {
		return domain.LoginResult{}, err
	}

	switch {
	case status == http.StatusBadRequest, status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusNotFound:
		return domain.LoginResult{}, fmt.Errorf("login %s: %w", accountID, domain.ErrAuthentication)
	case status >= 300:
		return domain.LoginResult{}, c.errorFromStatus("login", status, body, "", "")
	}

	if err := decode("login", body, &resp); err != nil {
		return domain.LoginResult{}, err
	}
	if strings.TrimSpace(resp.Token) == "" {
		return domain.LoginResult{}, &domain.TransportError{Op: "login", Err: errors.New("response carried no token")}
	}

	accountIDOut := resp.AccountID.String()
	if accountIDOut == "" {
		accountIDOut = strings.TrimSpace(accountID)
	}

	return domain.LoginResult{
		Token:      resp.Token,
		AccountID:  accountIDOut,
		HolderName: resp.HolderName,
	}, nil
}

func (c *Client) GetAccount(ctx context.Context, accountID string) (domain.Account, error) {
	status, body, err := c.do(ctx, "get account", http.MethodGet, "accounts/"+url.PathEscape(accountID), nil, true)
	if err != nil {
		return domain.Account{}, err
	}
	if status >= 300 {
		return domain.Account{}, c.errorFromStatus("get account", status, body, "account", accountID)
	}

	var resp models.AccountResponse
	if err := decode("get account", body, &resp); err != nil {
		return domain.Account{}, err
	}

	return domain.Account{
		ID:         resp.ID.String(),
		HolderName: resp.HolderName,
		Balance:    resp.Balance,
		Status:     domain.AccountStatus(strings.ToUpper(strings.TrimSpace(resp.Status))),
	}, nil
}

func (c *Client) GetTransactions(ctx context.Context, accountID string) ([]domain.LedgerEntry, error) {
	status, body, err := c.do(ctx, "get transactions", http.MethodGet, "accounts/"+url.PathEscape(accountID)+"/transactions", nil, true)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, c.errorFromStatus("get transactions", status, body, "account", accountID)
	}

	var resp []models.TransactionResponse
	if err := decode("get transactions", body, &resp); err != nil {
		return nil, err
	}

	entries := make([]domain.LedgerEntry, 0, len(resp))
	for _, tx := range resp {
		entries = append(entries, domain.LedgerEntry{
			ID:            tx.ID,
			FromAccountID: tx.FromAccountID.String(),
			ToAccountID:   tx.ToAccountID.String(),
			Amount:        tx.Amount,
			Status:        domain.TransactionStatus(strings.ToUpper(strings.TrimSpace(tx.Status))),
			FailureReason: tx.FailureReason,
			CreatedOn:     tx.CreatedOn,
		})
	}

	return entries, nil
}

func (c *Client) SubmitTransfer(ctx context.Context, req domain.TransferRequest) (domain.TransferResult, error) {
	payload := models.TransferRequest{
		FromAccountID:  models.AccountID(req.FromAccountID),
		ToAccountID:    models.AccountID(req.ToAccountID),
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
	}

	status, body, err := c.do(ctx, "submit transfer", http.MethodPost, "transfers", payload, true)
	if err != nil {
		return domain.TransferResult{}, err
	}
	if status == http.StatusNotFound {
		return domain.TransferResult{}, rejectedFromBody(status, body, commons.CodeAccountNotFound)
	}
	if status >= 300 {
		return domain.TransferResult{}, c.errorFromStatus("submit transfer", status, body, "", "")
	}

	var resp models.TransferResponse
	if err := decode("submit transfer", body, &resp); err != nil {
		return domain.TransferResult{}, err
	}

	result := domain.TransferResult{
		TransactionID: strings.TrimSpace(resp.TransactionID),
		Status:        domain.TransactionStatus(strings.ToUpper(strings.TrimSpace(resp.Status))),
		Message:       resp.Message,
	}
	if result.Status == "" {
		result.Status = domain.TransactionStatusSuccess
	}

	return result, nil
}

// do performs one HTTP exchange. A nil error means a response was received;
// the caller interprets the status.
func (c *Client) do(ctx context.Context, op, method, path string, payload any, authenticated bool) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, &domain.TransportError{Op: op, Err: err}
	}

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		if token := strings.TrimSpace(c.tokens.Token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveGatewayRequest(op, "error", start)
		logger.Error("gateway request failed", err, logger.Fields{
			"operation": op,
			"method":    method,
			"path":      path,
		})
		return 0, nil, &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		c.metrics.ObserveGatewayRequest(op, "error", start)
		return 0, nil, &domain.TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	if int64(len(body)) > c.maxBody {
		c.metrics.ObserveGatewayRequest(op, "error", start)
		logger.Warn("gateway response too large", logger.Fields{
			"operation": op,
			"path":      path,
			"limit":     c.maxBody,
		})
		return 0, nil, &domain.TransportError{Op: op, Err: fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, c.maxBody)}
	}

	c.metrics.ObserveGatewayRequest(op, strconv.Itoa(resp.StatusCode), start)
	logger.Info("gateway response", logger.Fields{
		"operation":  op,
		"method":     method,
		"path":       path,
		"status":     resp.StatusCode,
		"durationMs": time.Since(start).Milliseconds(),
	})

	return resp.StatusCode, body, nil
}

func (c *Client) errorFromStatus(op string, status int, body []byte, resource, id string) error {
	switch {
	case status == http.StatusForbidden && errorCode(body) == commons.CodeAccountNotActive:
		return rejectedFromBody(status, body, commons.CodeAccountNotActive)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, domain.ErrNotAuthenticated)
	case status == http.StatusNotFound && resource != "":
		return &domain.NotFoundError{Resource: resource, ID: id}
	case status == http.StatusTooManyRequests, status >= 500:
		return &domain.TransportError{Op: op, Err: &HTTPStatusError{StatusCode: status}}
	case status >= 400:
		return rejectedFromBody(status, body, "")
	default:
		return &domain.TransportError{Op: op, Err: &HTTPStatusError{StatusCode: status}}
	}
}

func rejectedFromBody(status int, body []byte, fallbackCode string) error {
	var errBody commons.ErrorBody
	_ = json.Unmarshal(body, &errBody)

	code := strings.TrimSpace(errBody.ErrorCode)
	if code == "" {
		code = fallbackCode
	}
	reason := errBody.Message
	if strings.TrimSpace(reason) == "" {
		reason = http.StatusText(status)
	}

	return &domain.RejectedError{StatusCode: status, Code: code, Reason: reason}
}

func errorCode(body []byte) string {
	var errBody commons.ErrorBody
	if err := json.Unmarshal(body, &errBody); err != nil {
		return ""
	}
	return strings.TrimSpace(errBody.ErrorCode)
}

func decode(op string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
