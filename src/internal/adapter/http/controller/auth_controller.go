package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/api-sage/moneytransfer/src/internal/adapter/http/models"
	"github.com/api-sage/moneytransfer/src/internal/commons"
	"github.com/api-sage/moneytransfer/src/internal/domain"
	"github.com/api-sage/moneytransfer/src/internal/sandbox"
)

type Authenticator interface {
	Authenticate(accountID string, password string) (domain.Account, error)
}

type TokenIssuer interface {
	Issue(accountID string) (string, error)
}

type AuthController struct {
	accounts Authenticator
	tokens   TokenIssuer
}

func NewAuthController(accounts Authenticator, tokens TokenIssuer) *AuthController {
	return &AuthController{accounts: accounts, tokens: tokens}
}

func (c *AuthController) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/auth/login", c.login).Methods(http.MethodPost)
}

func (c *AuthController) login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		writeError(w, r, http.StatusBadRequest, commons.CodeValidationError, "invalid request body", start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, commons.CodeValidationError, err.Error(), start)
		return
	}

	account, err := c.accounts.Authenticate(req.AccountID.String(), req.Password)
	if err != nil {
		if errors.Is(err, sandbox.ErrInvalidCredentials) {
			writeError(w, r, http.StatusUnauthorized, commons.CodeAuthFailed, "Invalid username or password", start)
			return
		}
		writeLedgerError(w, r, err, start)
		return
	}

	token, err := c.tokens.Issue(account.ID)
	if err != nil {
		writeLedgerError(w, r, err, start)
		return
	}

	response := models.LoginResponse{
		Token:      token,
		AccountID:  models.AccountID(account.ID),
		HolderName: account.HolderName,
	}
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
