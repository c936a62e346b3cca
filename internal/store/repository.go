/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the settlement-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/instapay/settlement-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Directory reads. Bank users, cards, and payment addresses are owned by
	// external services; this core only resolves through them.
	FindPlatformUserByID(ctx context.Context, userID uuid.UUID) (*domain.PlatformUser, error)
	FindPaymentAddress(ctx context.Context, address string) (*domain.PaymentAddress, error)
	FindDefaultPaymentAddressByUserID(ctx context.Context, userID uuid.UUID) (*domain.PaymentAddress, error)
	FindLedgerAccount(ctx context.Context, bankID, accountNumber string) (*domain.LedgerAccount, error)
	FindLedgerAccountByIBAN(ctx context.Context, iban string) (*domain.LedgerAccount, error)
	FindLedgerAccountByBankUser(ctx context.Context, bankID string, bankUserID uuid.UUID) (*domain.LedgerAccount, error)
	FindCard(ctx context.Context, bankID, cardNumber string) (*domain.Card, error)

	// Policy. Settings are read as one consistent snapshot per evaluation.
	GetSystemSettings(ctx context.Context) (*domain.SystemSettings, error)

	// Transfer executor. Locks both accounts in a fixed order, validates
	// funds, applies the debit/credit pair, and records the transaction as
	// one atomic commit.
	ExecuteTransfer(ctx context.Context, params TransferParams) (*domain.Transaction, error)

	// Transaction history
	FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error)
	FindTransactionsByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transaction, error)

	// Money request methods
	CreateMoneyRequest(ctx context.Context, req *domain.MoneyRequest) (*domain.MoneyRequest, error)
	GetMoneyRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.MoneyRequest, error)
	ListMoneyRequestsByRequester(ctx context.Context, requesterID uuid.UUID, opts domain.MoneyRequestListOptions) ([]domain.MoneyRequest, error)
	ListIncomingMoneyRequests(ctx context.Context, requestedID uuid.UUID, opts domain.MoneyRequestListOptions) ([]domain.MoneyRequest, error)
	SettleMoneyRequest(ctx context.Context, params SettleMoneyRequestParams) (*domain.MoneyRequest, *domain.Transaction, error)
	DeclineMoneyRequest(ctx context.Context, requestID, requestedUserID uuid.UUID) (*domain.MoneyRequest, error)
	ExpireMoneyRequestsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TransferParams carries everything the executor needs to settle one
// transfer. Sender and receiver accounts are identified by their composite
// keys; user ids and addresses are recorded on the transaction row.
type TransferParams struct {
	SenderBankID          string
	SenderAccountNumber   string
	ReceiverBankID        string
	ReceiverAccountNumber string
	SenderUserID          *uuid.UUID
	ReceiverUserID        *uuid.UUID
	Amount                int64
	Rail                  string
	SenderAddress         *string
	ReceiverAddress       *string
	Note                  string
}

// SettleMoneyRequestParams binds a pending money request to the transfer
// that settles it. The request row is locked for the duration of the
// transfer so the pending->accepted transition happens exactly once.
type SettleMoneyRequestParams struct {
	RequestID       uuid.UUID
	RequestedUserID uuid.UUID
	Transfer        TransferParams
}
