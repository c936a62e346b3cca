/**
 * @description
 * This file implements the identifier resolver: the mapping from a payment
 * rail (instant payment address, IBAN, card, raw account) to a canonical
 * ledger account. Resolution is a pure read; only the card rail runs the
 * authorization gate, because a card number alone must never reach an
 * account without its PIN.
 */

package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/instapay/settlement-service/internal/domain"
)

// resolution is the outcome of resolving one rail: the canonical account
// plus whatever addressing metadata the rail carried, recorded later on the
// transaction row.
type resolution struct {
	Account *domain.LedgerAccount
	Address *string
	UserID  *uuid.UUID

	// pinHash is set only for the IPA rail so the transfer flow can run the
	// authorization gate when the address funds a transfer.
	pinHash string
}

// Resolve maps a rail to its canonical ledger account.
func (s *Service) Resolve(ctx context.Context, rail domain.Rail) (*domain.LedgerAccount, error) {
	res, err := s.resolve(ctx, rail)
	if err != nil {
		return nil, err
	}
	return res.Account, nil
}

func (s *Service) resolve(ctx context.Context, rail domain.Rail) (*resolution, error) {
	switch v := rail.(type) {
	case domain.IPARail:
		addr, err := s.repo.FindPaymentAddress(ctx, v.Address)
		if err != nil {
			return nil, err
		}
		account, err := s.repo.FindLedgerAccount(ctx, addr.BankID, addr.AccountNumber)
		if err != nil {
			return nil, err
		}
		return &resolution{Account: account, Address: &addr.Address, UserID: &addr.UserID, pinHash: addr.PINHash}, nil

	case domain.IBANRail:
		account, err := s.repo.FindLedgerAccountByIBAN(ctx, v.Code)
		if err != nil {
			return nil, err
		}
		return &resolution{Account: account}, nil

	case domain.CardRail:
		card, err := s.repo.FindCard(ctx, v.BankID, v.CardNumber)
		if err != nil {
			return nil, err
		}
		if err := s.verifyPIN(ctx, pinScopeCard, card.BankID+":"+card.CardNumber, card.PINHash, v.PIN); err != nil {
			return nil, err
		}
		account, err := s.repo.FindLedgerAccountByBankUser(ctx, v.BankID, card.BankUserID)
		if err != nil {
			return nil, err
		}
		return &resolution{Account: account}, nil

	case domain.AccountRail:
		account, err := s.repo.FindLedgerAccount(ctx, v.BankID, v.AccountNumber)
		if err != nil {
			return nil, err
		}
		return &resolution{Account: account}, nil

	default:
		return nil, fmt.Errorf("%w: unsupported rail %T", domain.ErrInvalidRail, rail)
	}
}
