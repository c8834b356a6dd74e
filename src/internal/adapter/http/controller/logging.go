package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/api-sage/moneytransfer/src/internal/commons"
	"github.com/api-sage/moneytransfer/src/internal/logger"
	"github.com/api-sage/moneytransfer/src/internal/sandbox"
)

func logRequest(r *http.Request, payload any) {
	logger.Info("http request", logger.Fields{
		"method":  r.Method,
		"path":    r.URL.Path,
		"query":   r.URL.RawQuery,
		"payload": logger.SanitizePayload(payload),
	})
}

func logResponse(r *http.Request, status int, payload any, start time.Time) {
	logger.Info("http response", logger.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     status,
		"durationMs": time.Since(start).Milliseconds(),
		"response":   logger.SanitizePayload(payload),
	})
}

func logError(r *http.Request, err error, extra logger.Fields) {
	fields := logger.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"query":  r.URL.RawQuery,
	}
	for k, v := range extra {
		fields[k] = v
	}
	logger.Error("http handler error", err, fields)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, start time.Time) {
	body := commons.NewErrorBody(code, message)
	writeJSON(w, status, body)
	logResponse(r, status, body, start)
}

// writeLedgerError answers with the status and code of a sandbox.Error and
// falls back to 500 for anything else.
func writeLedgerError(w http.ResponseWriter, r *http.Request, err error, start time.Time) {
	var ledgerErr *sandbox.Error
	if errors.As(err, &ledgerErr) {
		writeError(w, r, ledgerErr.Status, ledgerErr.Code, ledgerErr.Message, start)
		return
	}
	logError(r, err, nil)
	writeError(w, r, http.StatusInternalServerError, commons.CodeInternalError, "An unexpected error occurred: "+err.Error(), start)
}
