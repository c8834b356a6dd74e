package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/api-sage/moneytransfer/src/internal/adapter/http/middleware"
	"github.com/api-sage/moneytransfer/src/internal/adapter/http/models"
	"github.com/api-sage/moneytransfer/src/internal/commons"
	"github.com/api-sage/moneytransfer/src/internal/domain"
)

type TransferExecutor interface {
	Transfer(ctx context.Context, requesterID string, req domain.TransferRequest) (domain.LedgerEntry, error)
}

type TransferController struct {
	ledger TransferExecutor
}

func NewTransferController(ledger TransferExecutor) *TransferController {
	return &TransferController{ledger: ledger}
}

func (c *TransferController) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/transfers", c.transfer).Methods(http.MethodPost)
}

func (c *TransferController) transfer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		writeError(w, r, http.StatusUnprocessableEntity, commons.CodeValidationError, "invalid request body", start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, commons.CodeValidationError, err.Error(), start)
		return
	}

	requester, ok := middleware.Subject(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, commons.CodeAuthFailed, "Full authentication is required to access this resource", start)
		return
	}

	entry, err := c.ledger.Transfer(r.Context(), requester, domain.TransferRequest{
		FromAccountID:  req.FromAccountID.String(),
		ToAccountID:    req.ToAccountID.String(),
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeLedgerError(w, r, err, start)
		return
	}

	message := "Transfer completed successfully"
	if entry.Status != domain.TransactionStatusSuccess {
		message = entry.FailureReason
	}
	amount := entry.Amount

	response := models.TransferResponse{
		TransactionID: entry.ID,
		Status:        string(entry.Status),
		Message:       message,
		DebitedFrom:   models.AccountID(entry.FromAccountID),
		CreditedTo:    models.AccountID(entry.ToAccountID),
		Amount:        &amount,
	}
	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, response, start)
}
