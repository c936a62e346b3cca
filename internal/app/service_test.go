package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/instapay/settlement-service/internal/domain"
	"github.com/instapay/settlement-service/internal/store"
	"github.com/instapay/settlement-service/pkg/pushclient"
)

// repoStub satisfies store.Repository through the embedded interface; any
// method a test does not override panics, which surfaces unexpected calls.
type repoStub struct {
	store.Repository

	findPlatformUserByID        func(userID uuid.UUID) (*domain.PlatformUser, error)
	findPaymentAddress          func(address string) (*domain.PaymentAddress, error)
	findDefaultPaymentAddress   func(userID uuid.UUID) (*domain.PaymentAddress, error)
	findLedgerAccount           func(bankID, accountNumber string) (*domain.LedgerAccount, error)
	findLedgerAccountByIBAN     func(iban string) (*domain.LedgerAccount, error)
	findLedgerAccountByBankUser func(bankID string, bankUserID uuid.UUID) (*domain.LedgerAccount, error)
	findCard                    func(bankID, cardNumber string) (*domain.Card, error)
	getSystemSettings           func() (*domain.SystemSettings, error)
	executeTransfer             func(params store.TransferParams) (*domain.Transaction, error)
	findTransactionByID         func(transactionID uuid.UUID) (*domain.Transaction, error)
	createMoneyRequest          func(req *domain.MoneyRequest) (*domain.MoneyRequest, error)
	getMoneyRequestByID         func(requestID uuid.UUID) (*domain.MoneyRequest, error)
	settleMoneyRequest          func(params store.SettleMoneyRequestParams) (*domain.MoneyRequest, *domain.Transaction, error)
	declineMoneyRequest         func(requestID, requestedUserID uuid.UUID) (*domain.MoneyRequest, error)

	executeTransferCalled bool
	lastTransferParams    store.TransferParams
	settleCalled          bool
	lastSettleParams      store.SettleMoneyRequestParams
	declineCalled         bool
}

func (s *repoStub) FindPlatformUserByID(ctx context.Context, userID uuid.UUID) (*domain.PlatformUser, error) {
	return s.findPlatformUserByID(userID)
}

func (s *repoStub) FindPaymentAddress(ctx context.Context, address string) (*domain.PaymentAddress, error) {
	return s.findPaymentAddress(address)
}

func (s *repoStub) FindDefaultPaymentAddressByUserID(ctx context.Context, userID uuid.UUID) (*domain.PaymentAddress, error) {
	return s.findDefaultPaymentAddress(userID)
}

func (s *repoStub) FindLedgerAccount(ctx context.Context, bankID, accountNumber string) (*domain.LedgerAccount, error) {
	return s.findLedgerAccount(bankID, accountNumber)
}

func (s *repoStub) FindLedgerAccountByIBAN(ctx context.Context, iban string) (*domain.LedgerAccount, error) {
	return s.findLedgerAccountByIBAN(iban)
}

func (s *repoStub) FindLedgerAccountByBankUser(ctx context.Context, bankID string, bankUserID uuid.UUID) (*domain.LedgerAccount, error) {
	return s.findLedgerAccountByBankUser(bankID, bankUserID)
}

func (s *repoStub) FindCard(ctx context.Context, bankID, cardNumber string) (*domain.Card, error) {
	return s.findCard(bankID, cardNumber)
}

func (s *repoStub) GetSystemSettings(ctx context.Context) (*domain.SystemSettings, error) {
	if s.getSystemSettings == nil {
		return &domain.SystemSettings{}, nil
	}
	return s.getSystemSettings()
}

func (s *repoStub) ExecuteTransfer(ctx context.Context, params store.TransferParams) (*domain.Transaction, error) {
	s.executeTransferCalled = true
	s.lastTransferParams = params
	return s.executeTransfer(params)
}

func (s *repoStub) FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	return s.findTransactionByID(transactionID)
}

func (s *repoStub) CreateMoneyRequest(ctx context.Context, req *domain.MoneyRequest) (*domain.MoneyRequest, error) {
	return s.createMoneyRequest(req)
}

func (s *repoStub) GetMoneyRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.MoneyRequest, error) {
	return s.getMoneyRequestByID(requestID)
}

func (s *repoStub) SettleMoneyRequest(ctx context.Context, params store.SettleMoneyRequestParams) (*domain.MoneyRequest, *domain.Transaction, error) {
	s.settleCalled = true
	s.lastSettleParams = params
	return s.settleMoneyRequest(params)
}

func (s *repoStub) DeclineMoneyRequest(ctx context.Context, requestID, requestedUserID uuid.UUID) (*domain.MoneyRequest, error) {
	s.declineCalled = true
	return s.declineMoneyRequest(requestID, requestedUserID)
}

// publisherStub records published routing keys.
type publisherStub struct {
	routingKeys []string
	publishErr  error
}

func (p *publisherStub) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.routingKeys = append(p.routingKeys, routingKey)
	return p.publishErr
}

func (p *publisherStub) Close() {}

// pushStub records delivered pushes.
type pushStub struct {
	pushes  []pushclient.Push
	sendErr error
}

func (p *pushStub) Send(ctx context.Context, push pushclient.Push) error {
	p.pushes = append(p.pushes, push)
	return p.sendErr
}

func mustHashPIN(t *testing.T, pin string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash pin: %v", err)
	}
	return string(hash)
}

// transferFixture wires a repo stub holding two IPA-addressed accounts with
// their owners and PINs.
type transferFixture struct {
	repo       *repoStub
	senderID   uuid.UUID
	receiverID uuid.UUID
}

func newTransferFixture(t *testing.T) *transferFixture {
	t.Helper()

	senderID := uuid.New()
	receiverID := uuid.New()
	senderHash := mustHashPIN(t, "123456")
	receiverHash := mustHashPIN(t, "654321")

	addresses := map[string]*domain.PaymentAddress{
		"alice@instapay": {Address: "alice@instapay", BankID: "bank-1", AccountNumber: "1000", UserID: senderID, PINHash: senderHash},
		"bob@instapay":   {Address: "bob@instapay", BankID: "bank-2", AccountNumber: "2000", UserID: receiverID, PINHash: receiverHash},
	}
	accounts := map[string]*domain.LedgerAccount{
		"bank-1/1000": {BankID: "bank-1", AccountNumber: "1000", Status: domain.AccountStatusActive, Balance: 100000},
		"bank-2/2000": {BankID: "bank-2", AccountNumber: "2000", Status: domain.AccountStatusActive, Balance: 5000},
	}

	repo := &repoStub{
		findPaymentAddress: func(address string) (*domain.PaymentAddress, error) {
			addr, ok := addresses[address]
			if !ok {
				return nil, store.ErrAddressNotFound
			}
			return addr, nil
		},
		findLedgerAccount: func(bankID, accountNumber string) (*domain.LedgerAccount, error) {
			account, ok := accounts[bankID+"/"+accountNumber]
			if !ok {
				return nil, store.ErrAccountNotFound
			}
			return account, nil
		},
		executeTransfer: func(params store.TransferParams) (*domain.Transaction, error) {
			return &domain.Transaction{
				ID:                    uuid.New(),
				SenderUserID:          params.SenderUserID,
				ReceiverUserID:        params.ReceiverUserID,
				SenderBankID:          params.SenderBankID,
				SenderAccountNumber:   params.SenderAccountNumber,
				ReceiverBankID:        params.ReceiverBankID,
				ReceiverAccountNumber: params.ReceiverAccountNumber,
				Amount:                params.Amount,
				Rail:                  params.Rail,
				Note:                  params.Note,
				CreatedAt:             time.Now(),
			}, nil
		},
	}
	return &transferFixture{repo: repo, senderID: senderID, receiverID: receiverID}
}

func ipaTransferRequest(amount int64) domain.TransferRequest {
	return domain.TransferRequest{
		Sender:   domain.RailInput{Kind: "ipa", Address: "alice@instapay", PIN: "123456"},
		Receiver: domain.RailInput{Kind: "ipa", Address: "bob@instapay"},
		Amount:   amount,
		Note:     "lunch",
	}
}

func TestExecuteTransfer_Success(t *testing.T) {
	fx := newTransferFixture(t)
	events := &publisherStub{}
	pushes := &pushStub{}
	service := NewService(fx.repo, pushes, events)

	record, err := service.ExecuteTransfer(context.Background(), fx.senderID, ipaTransferRequest(2500))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Amount != 2500 {
		t.Fatalf("expected amount 2500, got %d", record.Amount)
	}

	params := fx.repo.lastTransferParams
	if params.SenderBankID != "bank-1" || params.SenderAccountNumber != "1000" {
		t.Fatalf("unexpected sender account: %s/%s", params.SenderBankID, params.SenderAccountNumber)
	}
	if params.ReceiverBankID != "bank-2" || params.ReceiverAccountNumber != "2000" {
		t.Fatalf("unexpected receiver account: %s/%s", params.ReceiverBankID, params.ReceiverAccountNumber)
	}
	if params.SenderUserID == nil || *params.SenderUserID != fx.senderID {
		t.Fatalf("expected sender user id %s, got %v", fx.senderID, params.SenderUserID)
	}
	if params.ReceiverUserID == nil || *params.ReceiverUserID != fx.receiverID {
		t.Fatalf("expected receiver user id %s, got %v", fx.receiverID, params.ReceiverUserID)
	}
	if params.Rail != domain.RailKindIPA {
		t.Fatalf("expected rail %q, got %q", domain.RailKindIPA, params.Rail)
	}
	if params.SenderAddress == nil || *params.SenderAddress != "alice@instapay" {
		t.Fatalf("expected sender address recorded, got %v", params.SenderAddress)
	}

	if len(events.routingKeys) != 1 || events.routingKeys[0] != "transfer.settled" {
		t.Fatalf("expected one transfer.settled event, got %v", events.routingKeys)
	}
	if len(pushes.pushes) != 2 {
		t.Fatalf("expected pushes to both parties, got %d", len(pushes.pushes))
	}
}

func TestExecuteTransfer_NotificationFailureDoesNotFailTransfer(t *testing.T) {
	fx := newTransferFixture(t)
	events := &publisherStub{publishErr: errors.New("broker down")}
	pushes := &pushStub{sendErr: errors.New("gateway down")}
	service := NewService(fx.repo, pushes, events)

	if _, err := service.ExecuteTransfer(context.Background(), fx.senderID, ipaTransferRequest(2500)); err != nil {
		t.Fatalf("expected settled transfer despite notification failures, got %v", err)
	}
}

func TestExecuteTransfer_InvalidAmount(t *testing.T) {
	fx := newTransferFixture(t)
	service := NewService(fx.repo, nil, nil)

	for _, amount := range []int64{0, -100} {
		if _, err := service.ExecuteTransfer(context.Background(), fx.senderID, ipaTransferRequest(amount)); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	if fx.repo.executeTransferCalled {
		t.Fatal("expected no transfer execution for invalid amounts")
	}
}

func TestExecuteTransfer_InvalidRail(t *testing.T) {
	fx := newTransferFixture(t)
	service := NewService(fx.repo, nil, nil)

	req := ipaTransferRequest(2500)
	req.Sender = domain.RailInput{Kind: "wallet"}
	if _, err := service.ExecuteTransfer(context.Background(), fx.senderID, req); !errors.Is(err, domain.ErrInvalidRail) {
		t.Fatalf("expected ErrInvalidRail, got %v", err)
	}
}

func TestExecuteTransfer_SenderAddressNotOwned(t *testing.T) {
	fx := newTransferFixture(t)
	service := NewService(fx.repo, nil, nil)

	// The receiver's id tries to spend from alice's address.
	if _, err := service.ExecuteTransfer(context.Background(), fx.receiverID, ipaTransferRequest(2500)); !errors.Is(err, ErrAddressNotOwned) {
		t.Fatalf("expected ErrAddressNotOwned, got %v", err)
	}
	if fx.repo.executeTransferCalled {
		t.Fatal("expected no transfer execution for a foreign funding address")
	}
}

func TestExecuteTransfer_WrongPIN(t *testing.T) {
	fx := newTransferFixture(t)
	service := NewService(fx.repo, nil, nil)

	req := ipaTransferRequest(2500)
	req.Sender.PIN = "000000"
	if _, err := service.ExecuteTransfer(context.Background(), fx.senderID, req); !errors.Is(err, ErrInvalidPIN) {
		t.Fatalf("expected ErrInvalidPIN, got %v", err)
	}
	if fx.repo.executeTransferCalled {
		t.Fatal("expected no transfer execution after pin failure")
	}
}

func TestExecuteTransfer_SelfTransfer(t *testing.T) {
	fx := newTransferFixture(t)
	service := NewService(fx.repo, nil, nil)

	req := ipaTransferRequest(2500)
	req.Receiver = domain.RailInput{Kind: "account", BankID: "bank-1", AccountNumber: "1000"}
	if _, err := service.ExecuteTransfer(context.Background(), fx.senderID, req); !errors.Is(err, store.ErrSelfTransfer) {
		t.Fatalf("expected ErrSelfTransfer, got %v", err)
	}
}

func TestExecuteTransfer_PolicyBlocked(t *testing.T) {
	fx := newTransferFixture(t)
	fx.repo.getSystemSettings = func() (*domain.SystemSettings, error) {
		return &domain.SystemSettings{TransactionsBlocked: true, BlockMessage: "maintenance"}, nil
	}
	service := NewService(fx.repo, nil, nil)

	_, err := service.ExecuteTransfer(context.Background(), fx.senderID, ipaTransferRequest(2500))
	var blocked *TransactionsBlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected TransactionsBlockedError, got %v", err)
	}
	if blocked.Message != "maintenance" {
		t.Fatalf("expected admin block message, got %q", blocked.Message)
	}
	if fx.repo.executeTransferCalled {
		t.Fatal("expected no transfer execution while transactions are blocked")
	}
}

func TestExecuteTransfer_LimitExceeded(t *testing.T) {
	fx := newTransferFixture(t)
	fx.repo.getSystemSettings = func() (*domain.SystemSettings, error) {
		return &domain.SystemSettings{TransferLimitEnabled: true, TransferLimitAmount: 1000}, nil
	}
	service := NewService(fx.repo, nil, nil)

	if _, err := service.ExecuteTransfer(context.Background(), fx.senderID, ipaTransferRequest(2500)); !errors.Is(err, ErrTransferLimitExceeded) {
		t.Fatalf("expected ErrTransferLimitExceeded, got %v", err)
	}
	if fx.repo.executeTransferCalled {
		t.Fatal("expected no transfer execution above the platform limit")
	}
}

func TestExecuteTransfer_InsufficientFundsPropagates(t *testing.T) {
	fx := newTransferFixture(t)
	fx.repo.executeTransfer = func(params store.TransferParams) (*domain.Transaction, error) {
		return nil, store.ErrInsufficientFunds
	}
	events := &publisherStub{}
	service := NewService(fx.repo, nil, events)

	if _, err := service.ExecuteTransfer(context.Background(), fx.senderID, ipaTransferRequest(2500)); !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if len(events.routingKeys) != 0 {
		t.Fatalf("expected no events for a failed transfer, got %v", events.routingKeys)
	}
}

func TestGetTransaction_NonParticipantReadsAsNotFound(t *testing.T) {
	actorID := uuid.New()
	senderID := uuid.New()
	receiverID := uuid.New()
	transactionID := uuid.New()

	repo := &repoStub{
		findTransactionByID: func(id uuid.UUID) (*domain.Transaction, error) {
			return &domain.Transaction{ID: id, SenderUserID: &senderID, ReceiverUserID: &receiverID}, nil
		},
	}
	service := NewService(repo, nil, nil)

	if _, err := service.GetTransaction(context.Background(), actorID, transactionID); !errors.Is(err, store.ErrTransactionNotFound) {
		t.Fatalf("expected not-found for non-participant, got %v", err)
	}

	record, err := service.GetTransaction(context.Background(), senderID, transactionID)
	if err != nil {
		t.Fatalf("unexpected error for participant: %v", err)
	}
	if record.ID != transactionID {
		t.Fatalf("expected transaction %s, got %s", transactionID, record.ID)
	}
}
