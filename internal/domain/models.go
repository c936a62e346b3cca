/**
 * @description
 * This file defines the core domain models for the settlement-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests, database models, and external service
 *   payloads ensures clear separation of concerns and type safety.
 * - Amounts are stored as `int64` to represent the value in the smallest currency
 *   unit, which avoids floating-point inaccuracies with financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Ledger account statuses.
const (
	AccountStatusActive   = "active"
	AccountStatusInactive = "inactive"
	AccountStatusPending  = "pending"
)

// Money request lifecycle states. Pending requests may move to accepted or
// declined exactly once; accepted and declined are terminal. Expired is
// reached only through the configurable expiry sweeper.
const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusDeclined = "declined"
	RequestStatusExpired  = "expired"
)

// LedgerAccount represents a bank account addressable by (bank_id, account_number).
// Its balance is mutated only by the transfer executor and is never negative.
type LedgerAccount struct {
	BankID        string    `json:"bank_id"`
	AccountNumber string    `json:"account_number"`
	IBAN          string    `json:"iban"`
	BankUserID    uuid.UUID `json:"bank_user_id"`
	Status        string    `json:"status"` // 'active', 'inactive', 'pending'
	Type          string    `json:"type"`   // e.g., 'checking', 'savings'
	Balance       int64     `json:"balance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PaymentAddress is an instant payment address (IPA): a unique, case-insensitive
// alias bound to exactly one ledger account and one platform user. The PIN is
// stored only as a one-way hash.
type PaymentAddress struct {
	Address       string    `json:"address"`
	BankID        string    `json:"bank_id"`
	AccountNumber string    `json:"account_number"`
	UserID        uuid.UUID `json:"user_id"`
	PINHash       string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// Card identifies a bank card by (bank_id, card_number). A card is only a
// resolution and authorization rail; it holds no balance of its own.
type Card struct {
	BankID     string    `json:"bank_id"`
	CardNumber string    `json:"card_number"`
	BankUserID uuid.UUID `json:"bank_user_id"`
	PINHash    string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// PlatformUser is a simplified view of a platform user, containing only the
// data needed by the settlement-service.
type PlatformUser struct {
	ID             uuid.UUID `json:"id"`
	DisplayName    string    `json:"display_name"`
	DefaultAddress *string   `json:"default_address,omitempty"`
}

// Transaction is the central, append-only ledger record for a settled
// transfer. A row exists if and only if both balance mutations committed.
type Transaction struct {
	ID                    uuid.UUID  `json:"id"`
	SenderUserID          *uuid.UUID `json:"sender_user_id,omitempty"`
	ReceiverUserID        *uuid.UUID `json:"receiver_user_id,omitempty"`
	SenderBankID          string     `json:"sender_bank_id"`
	SenderAccountNumber   string     `json:"sender_account_number"`
	ReceiverBankID        string     `json:"receiver_bank_id"`
	ReceiverAccountNumber string     `json:"receiver_account_number"`
	Amount                int64      `json:"amount"`
	Rail                  string     `json:"rail"` // 'ipa', 'iban', 'card', 'account'
	SenderAddress         *string    `json:"sender_address,omitempty"`
	ReceiverAddress       *string    `json:"receiver_address,omitempty"`
	Note                  string     `json:"note"`
	CreatedAt             time.Time  `json:"created_at"`
}

// MoneyRequest represents a non-financial record asking a counterparty for
// payment. Acceptance triggers a real transfer and records its transaction id.
type MoneyRequest struct {
	ID               uuid.UUID  `json:"id"`
	RequesterUserID  uuid.UUID  `json:"requester_user_id"`
	RequestedUserID  uuid.UUID  `json:"requested_user_id"`
	RequesterName    string     `json:"requester_name"`
	RequestedName    string     `json:"requested_name"`
	RequesterAddress string     `json:"requester_address"`
	RequestedAddress string     `json:"requested_address"`
	Amount           int64      `json:"amount"`
	Message          *string    `json:"message,omitempty"`
	Status           string     `json:"status"`
	TransactionID    *uuid.UUID `json:"transaction_id,omitempty"`
	RespondedAt      *time.Time `json:"responded_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// SystemSettings is the singleton platform policy snapshot consulted before
// every transfer. It is written by an external administrative service and
// read-only here.
type SystemSettings struct {
	TransferLimitEnabled bool   `json:"transfer_limit_enabled"`
	TransferLimitAmount  int64  `json:"transfer_limit_amount"`
	TransactionsBlocked  bool   `json:"transactions_blocked"`
	BlockMessage         string `json:"block_message"`
}

// TransferRequest is the DTO for incoming transfer API requests. Sender and
// receiver are addressed by rail; the sender rail may require a PIN.
type TransferRequest struct {
	Sender   RailInput `json:"sender"`
	Receiver RailInput `json:"receiver"`
	Amount   int64     `json:"amount"`
	Note     string    `json:"note"`
}

// CreateMoneyRequestPayload defines the structure for creating a new money request.
type CreateMoneyRequestPayload struct {
	RequestedAddress string  `json:"requested_address"`
	Amount           int64   `json:"amount"`
	Message          *string `json:"message,omitempty"`
}

// AcceptMoneyRequestPayload carries the acting user's funding address and PIN.
type AcceptMoneyRequestPayload struct {
	FundingAddress string `json:"funding_address"`
	PIN            string `json:"pin"`
}

// AcceptMoneyRequestResult bundles the accepted request with the settlement
// transaction produced by it.
type AcceptMoneyRequestResult struct {
	Request     *MoneyRequest `json:"request"`
	Transaction *Transaction  `json:"transaction"`
}

// MoneyRequestListOptions controls pagination for request listings.
type MoneyRequestListOptions struct {
	Limit  int
	Offset int
	Status string
}
