/**
 * @description
 * This file contains the HTTP handlers for transfers, transaction reads, and
 * account resolution. Handlers are responsible for parsing incoming requests,
 * calling the appropriate methods on the application service, and writing the
 * HTTP response. They act as the bridge between the web layer and the
 * business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http, strconv: Standard Go libraries.
 * - github.com/go-chi/chi/v5: For URL parameter extraction.
 * - github.com/google/uuid: For parsing identifiers.
 * - internal/app, internal/domain: For service logic and models.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/instapay/settlement-service/internal/app"
	"github.com/instapay/settlement-service/internal/domain"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

var (
	errInvalidLimit  = errors.New("invalid limit")
	errInvalidOffset = errors.New("invalid offset")
)

// SettlementHandlers holds the application service that handlers will use.
type SettlementHandlers struct {
	service *app.Service
}

// NewSettlementHandlers creates a new instance of SettlementHandlers.
func NewSettlementHandlers(service *app.Service) *SettlementHandlers {
	return &SettlementHandlers{service: service}
}

// ExecuteTransferHandler handles requests to move funds between two rails.
func (h *SettlementHandlers) ExecuteTransferHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not get user id from context")
		return
	}

	var req domain.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=execute_transfer outcome=reject reason=invalid_json err=%v", err)
		writeError(w, http.StatusBadRequest, CodeValidationError, "invalid request body")
		return
	}

	record, err := h.service.ExecuteTransfer(r.Context(), actorID, req)
	if err != nil {
		log.Printf("level=warn component=api endpoint=execute_transfer outcome=failed actor_id=%s err=%v", actorID, err)
		writeServiceError(w, "execute_transfer", err)
		return
	}

	log.Printf("level=info component=api endpoint=execute_transfer outcome=settled actor_id=%s transaction_id=%s amount=%d", actorID, record.ID, record.Amount)
	writeSuccess(w, http.StatusCreated, record)
}

// ListTransactionsHandler returns the authenticated user's transaction history.
func (h *SettlementHandlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not get user id from context")
		return
	}

	limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationError, err.Error())
		return
	}

	records, err := h.service.ListTransactions(r.Context(), actorID, limit, offset)
	if err != nil {
		writeServiceError(w, "list_transactions", err)
		return
	}
	writeSuccess(w, http.StatusOK, records)
}

// GetTransactionHandler returns a single transaction the user participated in.
func (h *SettlementHandlers) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not get user id from context")
		return
	}

	transactionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationError, "invalid transaction id format")
		return
	}

	record, err := h.service.GetTransaction(r.Context(), actorID, transactionID)
	if err != nil {
		writeServiceError(w, "get_transaction", err)
		return
	}
	writeSuccess(w, http.StatusOK, record)
}

// resolveResponse is the public projection of a resolved account. The balance
// is deliberately omitted: resolution answers "who would I pay", not "what do
// they have".
type resolveResponse struct {
	BankID        string `json:"bank_id"`
	AccountNumber string `json:"account_number"`
	IBAN          string `json:"iban"`
	Status        string `json:"status"`
	Type          string `json:"type"`
}

// ResolveAccountHandler resolves a rail given in the request body to its
// canonical ledger account. The rail arrives as a JSON body rather than query
// parameters so the card rail's PIN never appears in a request URI, which the
// request logger records.
func (h *SettlementHandlers) ResolveAccountHandler(w http.ResponseWriter, r *http.Request) {
	var input domain.RailInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		log.Printf("level=warn component=api endpoint=resolve_account outcome=reject reason=invalid_json err=%v", err)
		writeError(w, http.StatusBadRequest, CodeValidationError, "invalid request body")
		return
	}

	rail, err := input.Parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationError, "invalid rail parameters")
		return
	}

	account, err := h.service.Resolve(r.Context(), rail)
	if err != nil {
		writeServiceError(w, "resolve_account", err)
		return
	}

	writeSuccess(w, http.StatusOK, resolveResponse{
		BankID:        account.BankID,
		AccountNumber: account.AccountNumber,
		IBAN:          account.IBAN,
		Status:        account.Status,
		Type:          account.Type,
	})
}

// parsePagination extracts limit/offset query parameters with bounds.
func parsePagination(r *http.Request) (limit, offset int, err error) {
	limit = defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return 0, 0, errInvalidLimit
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, errInvalidOffset
		}
	}
	return limit, offset, nil
}
