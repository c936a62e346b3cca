/**
 * @description
 * This file contains the core business logic for the settlement-service. The
 * `Service` struct orchestrates all money movement operations, coordinating
 * the identifier resolver, the authorization and policy gates, the atomic
 * transfer executor in the repository, and best-effort notification dispatch.
 *
 * Key features:
 * - Implements the main use case: rail-addressed transfers between ledger accounts.
 * - Runs every check (validation, authorization, policy) before any mutation.
 * - Delegates the atomic debit/credit/record commit to the repository so no
 *   partially-applied transfer is ever observable.
 * - Publishes settlement events and push notifications after commit only.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/pushclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/instapay/settlement-service/internal/domain"
	"github.com/instapay/settlement-service/internal/store"
	"github.com/instapay/settlement-service/pkg/pushclient"
	"github.com/instapay/settlement-service/pkg/rabbitmq"
)

const (
	defaultPINMaxAttempts = 5
	defaultPINWindow      = 10 * time.Minute
)

// Service provides the core business logic for settlement operations.
type Service struct {
	repo   store.Repository
	push   pushclient.Sender
	events rabbitmq.Publisher

	pinLimiter     PINRateLimiter
	pinMaxAttempts int
	pinWindow      time.Duration
}

// NewService creates a new settlement service instance. The push sender and
// event producer may be nil; both are best-effort collaborators.
func NewService(repo store.Repository, push pushclient.Sender, events rabbitmq.Publisher) *Service {
	return &Service{
		repo:           repo,
		push:           push,
		events:         events,
		pinMaxAttempts: defaultPINMaxAttempts,
		pinWindow:      defaultPINWindow,
	}
}

// SetPINRateLimiter attaches a distributed PIN-attempt limiter.
func (s *Service) SetPINRateLimiter(limiter PINRateLimiter, maxAttempts int, window time.Duration) {
	s.pinLimiter = limiter
	if maxAttempts > 0 {
		s.pinMaxAttempts = maxAttempts
	}
	if window > 0 {
		s.pinWindow = window
	}
}

// ExecuteTransfer settles a rail-addressed transfer initiated by actorID.
// Order of operations is deliberate: resolve both parties, authorize the
// funding rail, evaluate policy against one settings snapshot, then hand the
// atomic debit/credit/record to the repository.
func (s *Service) ExecuteTransfer(ctx context.Context, actorID uuid.UUID, req domain.TransferRequest) (*domain.Transaction, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	senderRail, err := req.Sender.Parse()
	if err != nil {
		return nil, err
	}
	receiverRail, err := req.Receiver.Parse()
	if err != nil {
		return nil, err
	}

	sender, err := s.resolve(ctx, senderRail)
	if err != nil {
		return nil, err
	}

	// A payment address used as a funding source must belong to the acting
	// user and requires its PIN. The card rail was already authorized during
	// resolution; raw bank rails carry no platform-side secret.
	if _, ok := senderRail.(domain.IPARail); ok {
		if sender.UserID == nil || *sender.UserID != actorID {
			return nil, ErrAddressNotOwned
		}
		if err := s.verifyPIN(ctx, pinScopeAddress, *sender.Address, sender.pinHash, req.Sender.PIN); err != nil {
			return nil, err
		}
	}

	receiver, err := s.resolve(ctx, receiverRail)
	if err != nil {
		return nil, err
	}

	if sender.Account.BankID == receiver.Account.BankID &&
		sender.Account.AccountNumber == receiver.Account.AccountNumber {
		return nil, store.ErrSelfTransfer
	}

	settings, err := s.repo.GetSystemSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load system settings: %w", err)
	}
	if err := checkPolicy(req.Amount, settings); err != nil {
		return nil, err
	}

	record, err := s.repo.ExecuteTransfer(ctx, store.TransferParams{
		SenderBankID:          sender.Account.BankID,
		SenderAccountNumber:   sender.Account.AccountNumber,
		ReceiverBankID:        receiver.Account.BankID,
		ReceiverAccountNumber: receiver.Account.AccountNumber,
		SenderUserID:          &actorID,
		ReceiverUserID:        receiver.UserID,
		Amount:                req.Amount,
		Rail:                  senderRail.Kind(),
		SenderAddress:         sender.Address,
		ReceiverAddress:       receiver.Address,
		Note:                  req.Note,
	})
	if err != nil {
		return nil, err
	}

	s.notifyTransferSettled(ctx, record)
	return record, nil
}

// GetTransaction retrieves a transaction the actor participated in. A record
// belonging to other parties reads as not found rather than forbidden, so
// transaction ids cannot be probed.
func (s *Service) GetTransaction(ctx context.Context, actorID, transactionID uuid.UUID) (*domain.Transaction, error) {
	record, err := s.repo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !isTransactionParticipant(record, actorID) {
		return nil, store.ErrTransactionNotFound
	}
	return record, nil
}

// ListTransactions retrieves the actor's transaction history.
func (s *Service) ListTransactions(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	return s.repo.FindTransactionsByUserID(ctx, actorID, limit, offset)
}

func isTransactionParticipant(record *domain.Transaction, userID uuid.UUID) bool {
	if record.SenderUserID != nil && *record.SenderUserID == userID {
		return true
	}
	if record.ReceiverUserID != nil && *record.ReceiverUserID == userID {
		return true
	}
	return false
}
