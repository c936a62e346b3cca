/**
 * @description
 * This file implements the money request lifecycle: create, accept, decline,
 * and reads. A request is created pending by the requester; only the
 * requested user may accept or decline it, and each request settles at most
 * once. Acceptance delegates the funds movement to the repository's
 * settlement unit of work, which locks the request row for the duration of
 * the transfer so a terminal state can never be entered twice.
 */

package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/instapay/settlement-service/internal/domain"
	"github.com/instapay/settlement-service/internal/store"
)

// CreateMoneyRequest creates a pending money request from requesterID to the
// platform user owning the requested payment address.
func (s *Service) CreateMoneyRequest(ctx context.Context, requesterID uuid.UUID, payload domain.CreateMoneyRequestPayload) (*domain.MoneyRequest, error) {
	if payload.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	// The requester must have a payment address to receive the settlement on.
	requesterAddress, err := s.repo.FindDefaultPaymentAddressByUserID(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	requestedAddress, err := s.repo.FindPaymentAddress(ctx, payload.RequestedAddress)
	if err != nil {
		return nil, err
	}
	if requestedAddress.UserID == requesterID {
		return nil, ErrSelfRequest
	}

	requester, err := s.repo.FindPlatformUserByID(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load requester: %w", err)
	}
	requested, err := s.repo.FindPlatformUserByID(ctx, requestedAddress.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load requested user: %w", err)
	}

	request, err := s.repo.CreateMoneyRequest(ctx, &domain.MoneyRequest{
		ID:               uuid.New(),
		RequesterUserID:  requester.ID,
		RequestedUserID:  requested.ID,
		RequesterName:    requester.DisplayName,
		RequestedName:    requested.DisplayName,
		RequesterAddress: requesterAddress.Address,
		RequestedAddress: requestedAddress.Address,
		Amount:           payload.Amount,
		Message:          payload.Message,
		Status:           domain.RequestStatusPending,
	})
	if err != nil {
		return nil, err
	}

	s.notifyMoneyRequestCreated(ctx, request)
	return request, nil
}

// AcceptMoneyRequest settles a pending request. Only the requested user may
// accept; the funding address must belong to them and its PIN must verify.
// Any transfer failure aborts the acceptance and the request stays pending.
func (s *Service) AcceptMoneyRequest(ctx context.Context, actorID, requestID uuid.UUID, payload domain.AcceptMoneyRequestPayload) (*domain.AcceptMoneyRequestResult, error) {
	request, err := s.repo.GetMoneyRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.RequestedUserID != actorID {
		return nil, store.ErrNotRequestRecipient
	}
	if request.Status != domain.RequestStatusPending {
		return nil, store.ErrMoneyRequestNotPending
	}

	funding, err := s.repo.FindPaymentAddress(ctx, payload.FundingAddress)
	if err != nil {
		return nil, err
	}
	if funding.UserID != actorID {
		return nil, ErrAddressNotOwned
	}
	if err := s.verifyPIN(ctx, pinScopeAddress, funding.Address, funding.PINHash, payload.PIN); err != nil {
		return nil, err
	}

	// The settlement credits the account the requester recorded at creation.
	requesterAddress, err := s.repo.FindPaymentAddress(ctx, request.RequesterAddress)
	if err != nil {
		return nil, err
	}

	settings, err := s.repo.GetSystemSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load system settings: %w", err)
	}
	if err := checkPolicy(request.Amount, settings); err != nil {
		return nil, err
	}

	note := "Money request settlement"
	if request.Message != nil && *request.Message != "" {
		note = *request.Message
	}

	updated, record, err := s.repo.SettleMoneyRequest(ctx, store.SettleMoneyRequestParams{
		RequestID:       request.ID,
		RequestedUserID: actorID,
		Transfer: store.TransferParams{
			SenderBankID:          funding.BankID,
			SenderAccountNumber:   funding.AccountNumber,
			ReceiverBankID:        requesterAddress.BankID,
			ReceiverAccountNumber: requesterAddress.AccountNumber,
			SenderUserID:          &actorID,
			ReceiverUserID:        &request.RequesterUserID,
			Amount:                request.Amount,
			Rail:                  domain.RailKindIPA,
			SenderAddress:         &funding.Address,
			ReceiverAddress:       &requesterAddress.Address,
			Note:                  note,
		},
	})
	if err != nil {
		return nil, err
	}

	s.notifyMoneyRequestAccepted(ctx, updated, record)
	return &domain.AcceptMoneyRequestResult{Request: updated, Transaction: record}, nil
}

// DeclineMoneyRequest moves a pending request to declined. No funds move.
func (s *Service) DeclineMoneyRequest(ctx context.Context, actorID, requestID uuid.UUID) (*domain.MoneyRequest, error) {
	request, err := s.repo.GetMoneyRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.RequestedUserID != actorID {
		return nil, store.ErrNotRequestRecipient
	}
	if request.Status != domain.RequestStatusPending {
		return nil, store.ErrMoneyRequestNotPending
	}

	// The status predicate in the update closes the race with a concurrent
	// accept: whichever transition lands second sees a conflict.
	declined, err := s.repo.DeclineMoneyRequest(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}

	s.notifyMoneyRequestDeclined(ctx, declined)
	return declined, nil
}

// GetMoneyRequest retrieves a request the actor is a party of.
func (s *Service) GetMoneyRequest(ctx context.Context, actorID, requestID uuid.UUID) (*domain.MoneyRequest, error) {
	request, err := s.repo.GetMoneyRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.RequesterUserID != actorID && request.RequestedUserID != actorID {
		return nil, ErrNotRequestParticipant
	}
	return request, nil
}

// ListOutgoingMoneyRequests retrieves requests the actor created.
func (s *Service) ListOutgoingMoneyRequests(ctx context.Context, actorID uuid.UUID, opts domain.MoneyRequestListOptions) ([]domain.MoneyRequest, error) {
	return s.repo.ListMoneyRequestsByRequester(ctx, actorID, opts)
}

// ListIncomingMoneyRequests retrieves requests addressed to the actor.
func (s *Service) ListIncomingMoneyRequests(ctx context.Context, actorID uuid.UUID, opts domain.MoneyRequestListOptions) ([]domain.MoneyRequest, error) {
	return s.repo.ListIncomingMoneyRequests(ctx, actorID, opts)
}
