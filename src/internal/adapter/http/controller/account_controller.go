package controller

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/api-sage/moneytransfer/src/internal/adapter/http/models"
	"github.com/api-sage/moneytransfer/src/internal/domain"
)

type AccountReader interface {
	Account(accountID string) (domain.Account, error)
	Transactions(accountID string) ([]domain.LedgerEntry, error)
}

type AccountController struct {
	accounts AccountReader
}

func NewAccountController(accounts AccountReader) *AccountController {
	return &AccountController{accounts: accounts}
}

func (c *AccountController) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/accounts/{id}", c.getAccount).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id}/transactions", c.getTransactions).Methods(http.MethodGet)
}

func (c *AccountController) getAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	account, err := c.accounts.Account(mux.Vars(r)["id"])
	if err != nil {
		writeLedgerError(w, r, err, start)
		return
	}

	response := models.AccountResponse{
		ID:         models.AccountID(account.ID),
		HolderName: account.HolderName,
		Balance:    account.Balance,
		Status:     string(account.Status),
	}
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *AccountController) getTransactions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	entries, err := c.accounts.Transactions(mux.Vars(r)["id"])
	if err != nil {
		writeLedgerError(w, r, err, start)
		return
	}

	response := make([]models.TransactionResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, models.TransactionResponse{
			ID:            entry.ID,
			FromAccountID: models.AccountID(entry.FromAccountID),
			ToAccountID:   models.AccountID(entry.ToAccountID),
			Amount:        entry.Amount,
			Status:        string(entry.Status),
			FailureReason: entry.FailureReason,
			CreatedOn:     entry.CreatedOn,
		})
	}
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, map[string]any{"count": len(response)}, start)
}
