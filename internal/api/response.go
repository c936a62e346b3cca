/**
 * @description
 * This file defines the HTTP response envelope and the mapping from service
 * errors to HTTP statuses and machine-readable error codes. Every endpoint
 * responds with the same shape: `{"success": true, "data": ...}` on success
 * and `{"success": false, "error": msg, "code": CODE}` on failure, so
 * clients can branch on the code without parsing messages.
 *
 * @dependencies
 * - encoding/json, errors, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For the service error taxonomy.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/instapay/settlement-service/internal/app"
	"github.com/instapay/settlement-service/internal/domain"
	"github.com/instapay/settlement-service/internal/store"
)

// Machine-readable error codes returned in the response envelope.
const (
	CodeValidationError   = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodePolicyViolation   = "POLICY_VIOLATION"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeInternal          = "INTERNAL"
)

type successEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// writeJSON is a helper for writing JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("level=error component=api msg=\"failed to encode response\" err=%v", err)
	}
}

// writeSuccess wraps data in the success envelope.
func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, successEnvelope{Success: true, Data: data})
}

// writeError wraps an error message and code in the error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Success: false, Error: message, Code: code})
}

// writeServiceError maps a service-layer error to its HTTP status and code.
// Unrecognized errors are logged and surfaced as a generic internal error so
// no storage detail ever leaks to a client.
func writeServiceError(w http.ResponseWriter, endpoint string, err error) {
	var blocked *app.TransactionsBlockedError

	switch {
	case errors.Is(err, domain.ErrInvalidRail),
		errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrSelfRequest),
		errors.Is(err, store.ErrSelfTransfer):
		writeError(w, http.StatusBadRequest, CodeValidationError, err.Error())

	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrAddressNotFound),
		errors.Is(err, store.ErrCardNotFound),
		errors.Is(err, store.ErrTransactionNotFound),
		errors.Is(err, store.ErrMoneyRequestNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, err.Error())

	case errors.Is(err, app.ErrInvalidPIN):
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid pin")

	case errors.Is(err, app.ErrPINAttemptsExceeded):
		writeError(w, http.StatusLocked, CodeUnauthorized, "too many incorrect pin attempts, try again later")

	case errors.Is(err, app.ErrAddressNotOwned),
		errors.Is(err, store.ErrNotRequestRecipient),
		errors.Is(err, app.ErrNotRequestParticipant):
		writeError(w, http.StatusForbidden, CodeForbidden, err.Error())

	case errors.Is(err, store.ErrMoneyRequestNotPending),
		errors.Is(err, store.ErrAccountInactive):
		writeError(w, http.StatusConflict, CodeConflict, err.Error())

	case errors.As(err, &blocked):
		writeError(w, http.StatusForbidden, CodePolicyViolation, blocked.Message)

	case errors.Is(err, app.ErrTransferLimitExceeded):
		writeError(w, http.StatusForbidden, CodePolicyViolation, err.Error())

	case errors.Is(err, store.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, CodeInsufficientFunds, err.Error())

	default:
		log.Printf("level=error component=api endpoint=%s msg=\"unhandled service error\" err=%v", endpoint, err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}
