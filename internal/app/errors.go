/**
 * @description
 * This file defines the business-level errors returned by the settlement
 * service. Handlers translate them into the API error taxonomy; everything
 * not covered here or by the store sentinels surfaces as an internal error.
 */

package app

import "errors"

var (
	// ErrInvalidAmount rejects non-positive transfer or request amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrSelfRequest rejects money requests where requester and requested
	// resolve to the same platform user.
	ErrSelfRequest = errors.New("cannot request money from yourself")

	// ErrInvalidPIN indicates the supplied PIN did not match the stored hash.
	ErrInvalidPIN = errors.New("invalid pin")

	// ErrPINAttemptsExceeded indicates the PIN attempt rate limit was hit.
	ErrPINAttemptsExceeded = errors.New("too many pin attempts")

	// ErrAddressNotOwned indicates a funding address that does not belong to
	// the acting user.
	ErrAddressNotOwned = errors.New("payment address does not belong to the acting user")

	// ErrNotRequestParticipant indicates a user reading a request they are
	// neither side of.
	ErrNotRequestParticipant = errors.New("user is not a participant of this money request")

	// ErrTransferLimitExceeded indicates the amount is above the platform
	// transfer limit.
	ErrTransferLimitExceeded = errors.New("transfer amount exceeds the platform limit")
)

// TransactionsBlockedError carries the admin-configured block message shown
// to users while platform transactions are suspended.
type TransactionsBlockedError struct {
	Message string
}

func (e *TransactionsBlockedError) Error() string {
	return e.Message
}
