/**
 * @description
 * This file contains the HTTP handlers for the money request lifecycle:
 * creation, listing (outgoing and incoming), single reads, and the accept and
 * decline transitions. Authorization beyond authentication (only the
 * requested user may respond, only participants may read) lives in the
 * service layer; these handlers translate its errors to the envelope.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: For URL parameter extraction.
 * - github.com/google/uuid: For parsing identifiers.
 * - internal/domain: For request payloads and list options.
 */

package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/instapay/settlement-service/internal/domain"
)

// CreateMoneyRequestHandler handles requests to create a pending money request.
func (h *SettlementHandlers) CreateMoneyRequestHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not get user id from context")
		return
	}

	var payload domain.CreateMoneyRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Printf("level=warn component=api endpoint=create_money_request outcome=reject reason=invalid_json err=%v", err)
		writeError(w, http.StatusBadRequest, CodeValidationError, "invalid request body")
		return
	}

	request, err := h.service.CreateMoneyRequest(r.Context(), actorID, payload)
	if err != nil {
		log.Printf("level=warn component=api endpoint=create_money_request outcome=failed actor_id=%s err=%v", actorID, err)
		writeServiceError(w, "create_money_request", err)
		return
	}

	log.Printf("level=info component=api endpoint=create_money_request outcome=created actor_id=%s request_id=%s amount=%d", actorID, request.ID, request.Amount)
	writeSuccess(w, http.StatusCreated, request)
}

// ListOutgoingMoneyRequestsHandler returns requests the user created.
func (h *SettlementHandlers) ListOutgoingMoneyRequestsHandler(w http.ResponseWriter, r *http.Request) {
	h.listMoneyRequests(w, r, false)
}

// ListIncomingMoneyRequestsHandler returns requests addressed to the user.
func (h *SettlementHandlers) ListIncomingMoneyRequestsHandler(w http.ResponseWriter, r *http.Request) {
	h.listMoneyRequests(w, r, true)
}

func (h *SettlementHandlers) listMoneyRequests(w http.ResponseWriter, r *http.Request, incoming bool) {
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
	opts := domain.MoneyRequestListOptions{
		Limit:  limit,
		Offset: offset,
		Status: r.URL.Query().Get("status"),
	}

	var requests []domain.MoneyRequest
	if incoming {
		requests, err = h.service.ListIncomingMoneyRequests(r.Context(), actorID, opts)
	} else {
		requests, err = h.service.ListOutgoingMoneyRequests(r.Context(), actorID, opts)
	}
	if err != nil {
		writeServiceError(w, "list_money_requests", err)
		return
	}
	writeSuccess(w, http.StatusOK, requests)
}

// GetMoneyRequestHandler returns a single request the user is a party of.
func (h *SettlementHandlers) GetMoneyRequestHandler(w http.ResponseWriter, r *http.Request) {
	actorID, requestID, ok := h.requestActorAndID(w, r)
	if !ok {
		return
	}

	request, err := h.service.GetMoneyRequest(r.Context(), actorID, requestID)
	if err != nil {
		writeServiceError(w, "get_money_request", err)
		return
	}
	writeSuccess(w, http.StatusOK, request)
}

// AcceptMoneyRequestHandler settles a pending request from a funding address.
func (h *SettlementHandlers) AcceptMoneyRequestHandler(w http.ResponseWriter, r *http.Request) {
	actorID, requestID, ok := h.requestActorAndID(w, r)
	if !ok {
		return
	}

	var payload domain.AcceptMoneyRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Printf("level=warn component=api endpoint=accept_money_request outcome=reject reason=invalid_json err=%v", err)
		writeError(w, http.StatusBadRequest, CodeValidationError, "invalid request body")
		return
	}

	result, err := h.service.AcceptMoneyRequest(r.Context(), actorID, requestID, payload)
	if err != nil {
		log.Printf("level=warn component=api endpoint=accept_money_request outcome=failed actor_id=%s request_id=%s err=%v", actorID, requestID, err)
		writeServiceError(w, "accept_money_request", err)
		return
	}

	log.Printf("level=info component=api endpoint=accept_money_request outcome=settled actor_id=%s request_id=%s transaction_id=%s", actorID, requestID, result.Transaction.ID)
	writeSuccess(w, http.StatusOK, result)
}

// DeclineMoneyRequestHandler moves a pending request to declined.
func (h *SettlementHandlers) DeclineMoneyRequestHandler(w http.ResponseWriter, r *http.Request) {
	actorID, requestID, ok := h.requestActorAndID(w, r)
	if !ok {
		return
	}

	request, err := h.service.DeclineMoneyRequest(r.Context(), actorID, requestID)
	if err != nil {
		log.Printf("level=warn component=api endpoint=decline_money_request outcome=failed actor_id=%s request_id=%s err=%v", actorID, requestID, err)
		writeServiceError(w, "decline_money_request", err)
		return
	}

	log.Printf("level=info component=api endpoint=decline_money_request outcome=declined actor_id=%s request_id=%s", actorID, requestID)
	writeSuccess(w, http.StatusOK, request)
}

func (h *SettlementHandlers) requestActorAndID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	actorID, ok := GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not get user id from context")
		return uuid.Nil, uuid.Nil, false
	}
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationError, "invalid request id format")
		return uuid.Nil, uuid.Nil, false
	}
	return actorID, requestID, true
}
