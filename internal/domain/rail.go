/**
 * @description
 * This file defines the payment rail union used to address a ledger account.
 * A rail is the addressing/authorization mechanism (ipa, iban, card, raw
 * account) used to reach an account. Each variant is its own struct and the
 * resolver dispatches on the concrete type, so adding a rail means adding a
 * variant rather than another boolean flag.
 */

package domain

import (
	"errors"
	"strings"
)

// Rail kind discriminators, matching the `rail` column on transactions.
const (
	RailKindIPA     = "ipa"
	RailKindIBAN    = "iban"
	RailKindCard    = "card"
	RailKindAccount = "account"
)

// Rail is the tagged union of payment addressing mechanisms. The railKind
// method keeps the set of variants closed to this package.
type Rail interface {
	Kind() string
	railKind()
}

// IPARail addresses an account through an instant payment address alias.
type IPARail struct {
	Address string
}

// IBANRail addresses an account directly by its IBAN.
type IBANRail struct {
	Code string
}

// CardRail addresses an account through a bank card. The PIN is required:
// a card may only be used as a funding source after authorization.
type CardRail struct {
	BankID     string
	CardNumber string
	PIN        string
}

// AccountRail addresses an account by its composite primary key.
type AccountRail struct {
	BankID        string
	AccountNumber string
}

func (IPARail) Kind() string     { return RailKindIPA }
func (IBANRail) Kind() string    { return RailKindIBAN }
func (CardRail) Kind() string    { return RailKindCard }
func (AccountRail) Kind() string { return RailKindAccount }

func (IPARail) railKind()     {}
func (IBANRail) railKind()    {}
func (CardRail) railKind()    {}
func (AccountRail) railKind() {}

// RailInput is the wire shape for a rail. Exactly the fields of the selected
// kind must be present; Parse validates and produces the typed variant.
type RailInput struct {
	Kind          string `json:"kind"`
	Address       string `json:"address,omitempty"`
	IBAN          string `json:"iban,omitempty"`
	BankID        string `json:"bank_id,omitempty"`
	CardNumber    string `json:"card_number,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	PIN           string `json:"pin,omitempty"`
}

// ErrInvalidRail indicates a rail input that names an unknown kind or is
// missing the fields its kind requires.
var ErrInvalidRail = errors.New("invalid rail")

// Parse converts a RailInput into its typed Rail variant.
func (in RailInput) Parse() (Rail, error) {
	switch strings.ToLower(strings.TrimSpace(in.Kind)) {
	case RailKindIPA:
		address := strings.TrimSpace(in.Address)
		if address == "" {
			return nil, ErrInvalidRail
		}
		return IPARail{Address: address}, nil
	case RailKindIBAN:
		code := strings.TrimSpace(in.IBAN)
		if code == "" {
			return nil, ErrInvalidRail
		}
		return IBANRail{Code: code}, nil
	case RailKindCard:
		bankID := strings.TrimSpace(in.BankID)
		cardNumber := strings.TrimSpace(in.CardNumber)
		if bankID == "" || cardNumber == "" || in.PIN == "" {
			return nil, ErrInvalidRail
		}
		return CardRail{BankID: bankID, CardNumber: cardNumber, PIN: in.PIN}, nil
	case RailKindAccount:
		bankID := strings.TrimSpace(in.BankID)
		accountNumber := strings.TrimSpace(in.AccountNumber)
		if bankID == "" || accountNumber == "" {
			return nil, ErrInvalidRail
		}
		return AccountRail{BankID: bankID, AccountNumber: accountNumber}, nil
	default:
		return nil, ErrInvalidRail
	}
}
