package app

import "github.com/instapay/settlement-service/internal/domain"

const defaultBlockMessage = "Transactions are temporarily unavailable. Please try again later."

// checkPolicy evaluates the platform policy snapshot against a transfer
// amount. The block flag wins over the limit check regardless of amount, and
// both run before any balance is touched.
func checkPolicy(amount int64, settings *domain.SystemSettings) error {
	if settings.TransactionsBlocked {
		message := settings.BlockMessage
		if message == "" {
			message = defaultBlockMessage
		}
		return &TransactionsBlockedError{Message: message}
	}
	if settings.TransferLimitEnabled && amount > settings.TransferLimitAmount {
		return ErrTransferLimitExceeded
	}
	return nil
}
