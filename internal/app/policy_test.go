package app

import (
	"errors"
	"testing"

	"github.com/instapay/settlement-service/internal/domain"
)

func TestCheckPolicy(t *testing.T) {
	tests := []struct {
		name        string
		amount      int64
		settings    domain.SystemSettings
		wantErr     error
		wantBlocked bool
		wantMessage string
	}{
		{
			name:     "no policy restrictions",
			amount:   50000,
			settings: domain.SystemSettings{},
		},
		{
			name:     "limit enabled and amount within limit",
			amount:   50000,
			settings: domain.SystemSettings{TransferLimitEnabled: true, TransferLimitAmount: 100000},
		},
		{
			name:     "limit enabled and amount at limit",
			amount:   100000,
			settings: domain.SystemSettings{TransferLimitEnabled: true, TransferLimitAmount: 100000},
		},
		{
			name:     "limit enabled and amount above limit",
			amount:   100001,
			settings: domain.SystemSettings{TransferLimitEnabled: true, TransferLimitAmount: 100000},
			wantErr:  ErrTransferLimitExceeded,
		},
		{
			name:     "limit disabled ignores amount",
			amount:   100001,
			settings: domain.SystemSettings{TransferLimitEnabled: false, TransferLimitAmount: 100000},
		},
		{
			name:        "blocked with custom message",
			amount:      100,
			settings:    domain.SystemSettings{TransactionsBlocked: true, BlockMessage: "maintenance window"},
			wantBlocked: true,
			wantMessage: "maintenance window",
		},
		{
			name:        "blocked with default message",
			amount:      100,
			settings:    domain.SystemSettings{TransactionsBlocked: true},
			wantBlocked: true,
			wantMessage: defaultBlockMessage,
		},
		{
			name:        "block wins over limit",
			amount:      100001,
			settings:    domain.SystemSettings{TransactionsBlocked: true, TransferLimitEnabled: true, TransferLimitAmount: 100000},
			wantBlocked: true,
			wantMessage: defaultBlockMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkPolicy(tt.amount, &tt.settings)

			if tt.wantBlocked {
				var blocked *TransactionsBlockedError
				if !errors.As(err, &blocked) {
					t.Fatalf("expected TransactionsBlockedError, got %v", err)
				}
				if blocked.Message != tt.wantMessage {
					t.Fatalf("expected block message %q, got %q", tt.wantMessage, blocked.Message)
				}
				return
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
