package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/instapay/settlement-service/internal/domain"
	"github.com/instapay/settlement-service/internal/store"
)

// requestFixture wires a repo stub around one pending money request between
// two users who each own one IPA-addressed account.
type requestFixture struct {
	repo        *repoStub
	requesterID uuid.UUID
	requestedID uuid.UUID
	request     *domain.MoneyRequest
}

func newRequestFixture(t *testing.T) *requestFixture {
	t.Helper()

	requesterID := uuid.New()
	requestedID := uuid.New()
	requestedHash := mustHashPIN(t, "123456")

	request := &domain.MoneyRequest{
		ID:               uuid.New(),
		RequesterUserID:  requesterID,
		RequestedUserID:  requestedID,
		RequesterName:    "Alice",
		RequestedName:    "Bob",
		RequesterAddress: "alice@instapay",
		RequestedAddress: "bob@instapay",
		Amount:           5000,
		Status:           domain.RequestStatusPending,
		CreatedAt:        time.Now(),
	}

	addresses := map[string]*domain.PaymentAddress{
		"alice@instapay": {Address: "alice@instapay", BankID: "bank-1", AccountNumber: "1000", UserID: requesterID},
		"bob@instapay":   {Address: "bob@instapay", BankID: "bank-2", AccountNumber: "2000", UserID: requestedID, PINHash: requestedHash},
	}
	users := map[uuid.UUID]*domain.PlatformUser{
		requesterID: {ID: requesterID, DisplayName: "Alice"},
		requestedID: {ID: requestedID, DisplayName: "Bob"},
	}

	repo := &repoStub{
		findPaymentAddress: func(address string) (*domain.PaymentAddress, error) {
			addr, ok := addresses[address]
			if !ok {
				return nil, store.ErrAddressNotFound
			}
			return addr, nil
		},
		findDefaultPaymentAddress: func(userID uuid.UUID) (*domain.PaymentAddress, error) {
			for _, addr := range addresses {
				if addr.UserID == userID {
					return addr, nil
				}
			}
			return nil, store.ErrAddressNotFound
		},
		findPlatformUserByID: func(userID uuid.UUID) (*domain.PlatformUser, error) {
			user, ok := users[userID]
			if !ok {
				return nil, store.ErrUserNotFound
			}
			return user, nil
		},
		getMoneyRequestByID: func(requestID uuid.UUID) (*domain.MoneyRequest, error) {
			if requestID != request.ID {
				return nil, store.ErrMoneyRequestNotFound
			}
			copied := *request
			return &copied, nil
		},
		createMoneyRequest: func(req *domain.MoneyRequest) (*domain.MoneyRequest, error) {
			created := *req
			created.CreatedAt = time.Now()
			created.UpdatedAt = created.CreatedAt
			return &created, nil
		},
		settleMoneyRequest: func(params store.SettleMoneyRequestParams) (*domain.MoneyRequest, *domain.Transaction, error) {
			settled := *request
			settled.Status = domain.RequestStatusAccepted
			record := &domain.Transaction{ID: uuid.New(), Amount: params.Transfer.Amount, Rail: params.Transfer.Rail}
			settled.TransactionID = &record.ID
			return &settled, record, nil
		},
		declineMoneyRequest: func(requestID, requestedUserID uuid.UUID) (*domain.MoneyRequest, error) {
			declined := *request
			declined.Status = domain.RequestStatusDeclined
			return &declined, nil
		},
	}

	return &requestFixture{repo: repo, requesterID: requesterID, requestedID: requestedID, request: request}
}

func TestCreateMoneyRequest_Success(t *testing.T) {
	fx := newRequestFixture(t)
	events := &publisherStub{}
	pushes := &pushStub{}
	service := NewService(fx.repo, pushes, events)

	message := "split the bill"
	created, err := service.CreateMoneyRequest(context.Background(), fx.requesterID, domain.CreateMoneyRequestPayload{
		RequestedAddress: "bob@instapay",
		Amount:           7500,
		Message:          &message,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Status != domain.RequestStatusPending {
		t.Fatalf("expected pending status, got %q", created.Status)
	}
	if created.RequesterUserID != fx.requesterID || created.RequestedUserID != fx.requestedID {
		t.Fatal("request parties not recorded correctly")
	}
	if created.RequesterName != "Alice" || created.RequestedName != "Bob" {
		t.Fatalf("display names not recorded: %q/%q", created.RequesterName, created.RequestedName)
	}

	if len(events.routingKeys) != 1 || events.routingKeys[0] != "money_request.created" {
		t.Fatalf("expected money_request.created event, got %v", events.routingKeys)
	}
	if len(pushes.pushes) != 1 || pushes.pushes[0].To != fx.requestedID.String() {
		t.Fatalf("expected push to the requested user, got %+v", pushes.pushes)
	}
}

func TestCreateMoneyRequest_InvalidAmount(t *testing.T) {
	fx := newRequestFixture(t)
	service := NewService(fx.repo, nil, nil)

	_, err := service.CreateMoneyRequest(context.Background(), fx.requesterID, domain.CreateMoneyRequestPayload{
		RequestedAddress: "bob@instapay",
		Amount:           0,
	})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestCreateMoneyRequest_SelfRequest(t *testing.T) {
	fx := newRequestFixture(t)
	service := NewService(fx.repo, nil, nil)

	_, err := service.CreateMoneyRequest(context.Background(), fx.requesterID, domain.CreateMoneyRequestPayload{
		RequestedAddress: "alice@instapay",
		Amount:           100,
	})
	if !errors.Is(err, ErrSelfRequest) {
		t.Fatalf("expected ErrSelfRequest, got %v", err)
	}
}

func TestAcceptMoneyRequest_Success(t *testing.T) {
	fx := newRequestFixture(t)
	events := &publisherStub{}
	service := NewService(fx.repo, nil, events)

	result, err := service.AcceptMoneyRequest(context.Background(), fx.requestedID, fx.request.ID, domain.AcceptMoneyRequestPayload{
		FundingAddress: "bob@instapay",
		PIN:            "123456",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Request.Status != domain.RequestStatusAccepted {
		t.Fatalf("expected accepted status, got %q", result.Request.Status)
	}
	if result.Transaction == nil || result.Transaction.Amount != fx.request.Amount {
		t.Fatalf("expected settlement transaction over %d, got %+v", fx.request.Amount, result.Transaction)
	}

	params := fx.repo.lastSettleParams
	if params.RequestID != fx.request.ID || params.RequestedUserID != fx.requestedID {
		t.Fatal("settlement bound to wrong request or actor")
	}
	if params.Transfer.Rail != domain.RailKindIPA {
		t.Fatalf("expected ipa rail settlement, got %q", params.Transfer.Rail)
	}
	if params.Transfer.SenderBankID != "bank-2" || params.Transfer.ReceiverBankID != "bank-1" {
		t.Fatal("settlement moves funds in the wrong direction")
	}
	if params.Transfer.Note != "Money request settlement" {
		t.Fatalf("expected default note, got %q", params.Transfer.Note)
	}

	if len(events.routingKeys) != 1 || events.routingKeys[0] != "money_request.accepted" {
		t.Fatalf("expected money_request.accepted event, got %v", events.routingKeys)
	}
}

func TestAcceptMoneyRequest_UsesMessageAsNote(t *testing.T) {
	fx := newRequestFixture(t)
	message := "for the concert tickets"
	fx.request.Message = &message
	service := NewService(fx.repo, nil, nil)

	if _, err := service.AcceptMoneyRequest(context.Background(), fx.requestedID, fx.request.ID, domain.AcceptMoneyRequestPayload{
		FundingAddress: "bob@instapay",
		PIN:            "123456",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fx.repo.lastSettleParams.Transfer.Note != message {
		t.Fatalf("expected request message as note, got %q", fx.repo.lastSettleParams.Transfer.Note)
	}
}

func TestAcceptMoneyRequest_OnlyRecipientMayAccept(t *testing.T) {
	fx := newRequestFixture(t)
	service := NewService(fx.repo, nil, nil)

	_, err := service.AcceptMoneyRequest(context.Background(), fx.requesterID, fx.request.ID, domain.AcceptMoneyRequestPayload{
		FundingAddress: "alice@instapay",
		PIN:            "123456",
	})
	if !errors.Is(err, store.ErrNotRequestRecipient) {
		t.Fatalf("expected ErrNotRequestRecipient, got %v", err)
	}
	if fx.repo.settleCalled {
		t.Fatal("expected no settlement attempt")
	}
}

func TestAcceptMoneyRequest_TerminalStateConflicts(t *testing.T) {
	for _, status := range []string{domain.RequestStatusAccepted, domain.RequestStatusDeclined, domain.RequestStatusExpired} {
		t.Run(status, func(t *testing.T) {
			fx := newRequestFixture(t)
			fx.request.Status = status
			service := NewService(fx.repo, nil, nil)

			_, err := service.AcceptMoneyRequest(context.Background(), fx.requestedID, fx.request.ID, domain.AcceptMoneyRequestPayload{
				FundingAddress: "bob@instapay",
				PIN:            "123456",
			})
			if !errors.Is(err, store.ErrMoneyRequestNotPending) {
				t.Fatalf("expected ErrMoneyRequestNotPending, got %v", err)
			}
		})
	}
}

func TestAcceptMoneyRequest_ForeignFundingAddress(t *testing.T) {
	fx := newRequestFixture(t)
	service := NewService(fx.repo, nil, nil)

	// Bob tries to fund the settlement from Alice's address.
	_, err := service.AcceptMoneyRequest(context.Background(), fx.requestedID, fx.request.ID, domain.AcceptMoneyRequestPayload{
		FundingAddress: "alice@instapay",
		PIN:            "123456",
	})
	if !errors.Is(err, ErrAddressNotOwned) {
		t.Fatalf("expected ErrAddressNotOwned, got %v", err)
	}
}

func TestAcceptMoneyRequest_WrongPIN(t *testing.T) {
	fx := newRequestFixture(t)
	service := NewService(fx.repo, nil, nil)

	_, err := service.AcceptMoneyRequest(context.Background(), fx.requestedID, fx.request.ID, domain.AcceptMoneyRequestPayload{
		FundingAddress: "bob@instapay",
		PIN:            "000000",
	})
	if !errors.Is(err, ErrInvalidPIN) {
		t.Fatalf("expected ErrInvalidPIN, got %v", err)
	}
	if fx.repo.settleCalled {
		t.Fatal("expected no settlement attempt after pin failure")
	}
}

func TestAcceptMoneyRequest_TransferFailureLeavesRequestPending(t *testing.T) {
	fx := newRequestFixture(t)
	fx.repo.settleMoneyRequest = func(params store.SettleMoneyRequestParams) (*domain.MoneyRequest, *domain.Transaction, error) {
		return nil, nil, store.ErrInsufficientFunds
	}
	events := &publisherStub{}
	service := NewService(fx.repo, nil, events)

	_, err := service.AcceptMoneyRequest(context.Background(), fx.requestedID, fx.request.ID, domain.AcceptMoneyRequestPayload{
		FundingAddress: "bob@instapay",
		PIN:            "123456",
	})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if len(events.routingKeys) != 0 {
		t.Fatalf("expected no events for a failed settlement, got %v", events.routingKeys)
	}
}

func TestDeclineMoneyRequest(t *testing.T) {
	fx := newRequestFixture(t)
	events := &publisherStub{}
	service := NewService(fx.repo, nil, events)

	declined, err := service.DeclineMoneyRequest(context.Background(), fx.requestedID, fx.request.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if declined.Status != domain.RequestStatusDeclined {
		t.Fatalf("expected declined status, got %q", declined.Status)
	}
	if !fx.repo.declineCalled {
		t.Fatal("expected repository decline to run")
	}
	if len(events.routingKeys) != 1 || events.routingKeys[0] != "money_request.declined" {
		t.Fatalf("expected money_request.declined event, got %v", events.routingKeys)
	}
}

func TestDeclineMoneyRequest_OnlyRecipientMayDecline(t *testing.T) {
	fx := newRequestFixture(t)
	service := NewService(fx.repo, nil, nil)

	if _, err := service.DeclineMoneyRequest(context.Background(), fx.requesterID, fx.request.ID); !errors.Is(err, store.ErrNotRequestRecipient) {
		t.Fatalf("expected ErrNotRequestRecipient, got %v", err)
	}
	if fx.repo.declineCalled {
		t.Fatal("expected no decline attempt")
	}
}

func TestGetMoneyRequest_ParticipantsOnly(t *testing.T) {
	fx := newRequestFixture(t)
	service := NewService(fx.repo, nil, nil)

	if _, err := service.GetMoneyRequest(context.Background(), fx.requesterID, fx.request.ID); err != nil {
		t.Fatalf("requester read failed: %v", err)
	}
	if _, err := service.GetMoneyRequest(context.Background(), fx.requestedID, fx.request.ID); err != nil {
		t.Fatalf("requested read failed: %v", err)
	}
	if _, err := service.GetMoneyRequest(context.Background(), uuid.New(), fx.request.ID); !errors.Is(err, ErrNotRequestParticipant) {
		t.Fatalf("expected ErrNotRequestParticipant, got %v", err)
	}
}
