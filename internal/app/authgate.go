/**
 * @description
 * This file implements the authorization gate: verification of the secret
 * (PIN) bound to a payment address or card before it may be used as a
 * funding source. Stored PINs are one-way bcrypt hashes and comparison runs
 * in constant time inside bcrypt itself. An optional Redis-backed rate
 * limiter bounds failed attempts per subject.
 */

package app

import (
	"context"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPINMinLength is the platform-wide minimum PIN length, applied by
// creation paths only; verification accepts whatever was stored. The
// directory services that create addresses and cards read the same value
// through configuration.
const DefaultPINMinLength = 6

// Rate limiter scopes keyed per authorization subject.
const (
	pinScopeAddress = "address_pin"
	pinScopeCard    = "card_pin"
)

// PINRateLimiter bounds failed PIN verification attempts. Peek reads the
// failure count without charging an attempt; Consume records one failure.
// Implementations must be safe for concurrent use; a nil limiter disables
// limiting.
type PINRateLimiter interface {
	PeekRateLimit(ctx context.Context, scope, subject string) (count int, retryAfterSeconds int, err error)
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// HashPIN derives the stored one-way hash for a PIN. Used by creation paths;
// the settlement core itself only verifies.
func HashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ValidatePINLength enforces the minimum length policy at creation time.
func ValidatePINLength(pin string, minLength int) error {
	if minLength <= 0 {
		minLength = DefaultPINMinLength
	}
	if len(pin) < minLength {
		return ErrInvalidPIN
	}
	return nil
}

// VerifyAddressPIN checks a supplied PIN against the hash stored for a
// payment address.
func (s *Service) VerifyAddressPIN(ctx context.Context, address, pin string) error {
	addr, err := s.repo.FindPaymentAddress(ctx, address)
	if err != nil {
		return err
	}
	return s.verifyPIN(ctx, pinScopeAddress, addr.Address, addr.PINHash, pin)
}

// verifyPIN compares the supplied PIN against the stored hash under the
// subject's failure budget. Only mismatches charge an attempt: a run of
// correct PINs never locks the subject out. Limiter outages fail open: an
// unavailable Redis never blocks an otherwise valid authorization.
func (s *Service) verifyPIN(ctx context.Context, scope, subject, pinHash, pin string) error {
	if s.pinLimiter != nil && s.pinMaxAttempts > 0 {
		count, retryAfter, err := s.pinLimiter.PeekRateLimit(ctx, scope, subject)
		if err != nil {
			log.Printf("level=warn component=authgate msg=\"pin rate limiter unavailable\" scope=%s err=%v", scope, err)
		} else if count >= s.pinMaxAttempts {
			log.Printf("level=warn component=authgate msg=\"pin attempts exceeded\" scope=%s retry_after_s=%d", scope, retryAfter)
			return ErrPINAttemptsExceeded
		}
	}

	if pinHash == "" {
		s.recordPINFailure(ctx, scope, subject)
		return ErrInvalidPIN
	}
	if err := bcrypt.CompareHashAndPassword([]byte(pinHash), []byte(pin)); err != nil {
		s.recordPINFailure(ctx, scope, subject)
		return ErrInvalidPIN
	}
	return nil
}

// recordPINFailure charges one attempt against the subject's failure budget.
func (s *Service) recordPINFailure(ctx context.Context, scope, subject string) {
	if s.pinLimiter == nil || s.pinMaxAttempts <= 0 {
		return
	}
	if _, _, err := s.pinLimiter.ConsumeRateLimit(ctx, scope, subject, s.pinMaxAttempts, s.pinWindow); err != nil {
		log.Printf("level=warn component=authgate msg=\"pin failure not recorded\" scope=%s err=%v", scope, err)
	}
}
