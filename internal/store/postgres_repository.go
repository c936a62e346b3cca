/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the database tables
 * related to ledger accounts, payment addresses, cards, transactions, and money
 * requests.
 *
 * The transfer executor lives here: both ledger accounts are locked with
 * `SELECT ... FOR UPDATE` in ascending (bank_id, account_number) order, the
 * funds check runs under the lock, and the debit, credit, and transaction
 * insert commit as a single database transaction.
 *
 * @dependencies
 * - context, time, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/instapay/settlement-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrAccountNotFound        = errors.New("account not found")
	ErrAddressNotFound        = errors.New("payment address not found")
	ErrCardNotFound           = errors.New("card not found")
	ErrAccountInactive        = errors.New("account is not active")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrSelfTransfer           = errors.New("sender and receiver accounts are the same")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrSettingsNotFound       = errors.New("system settings not found")
	ErrMoneyRequestNotFound   = errors.New("money request not found")
	ErrMoneyRequestNotPending = errors.New("money request is not pending")
	ErrNotRequestRecipient    = errors.New("user is not the recipient of this money request")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindPlatformUserByID retrieves a platform user by their ID.
func (r *PostgresRepository) FindPlatformUserByID(ctx context.Context, userID uuid.UUID) (*domain.PlatformUser, error) {
	var user domain.PlatformUser
	query := `SELECT id, display_name, default_address FROM platform_users WHERE id = $1`
	err := r.db.QueryRow(ctx, query, userID).Scan(&user.ID, &user.DisplayName, &user.DefaultAddress)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindPaymentAddress retrieves a payment address by its alias, case-insensitively.
func (r *PostgresRepository) FindPaymentAddress(ctx context.Context, address string) (*domain.PaymentAddress, error) {
	var addr domain.PaymentAddress
	query := `
		SELECT address, bank_id, account_number, user_id, pin_hash, created_at
		FROM payment_addresses
		WHERE lower(btrim(address)) = lower(btrim($1))
	`
	err := r.db.QueryRow(ctx, query, address).Scan(
		&addr.Address, &addr.BankID, &addr.AccountNumber, &addr.UserID, &addr.PINHash, &addr.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAddressNotFound
		}
		return nil, err
	}
	return &addr, nil
}

// FindDefaultPaymentAddressByUserID retrieves the platform user's default
// payment address, falling back to their oldest address when no default is set.
func (r *PostgresRepository) FindDefaultPaymentAddressByUserID(ctx context.Context, userID uuid.UUID) (*domain.PaymentAddress, error) {
	var addr domain.PaymentAddress
	query := `
		SELECT pa.address, pa.bank_id, pa.account_number, pa.user_id, pa.pin_hash, pa.created_at
		FROM payment_addresses pa
		LEFT JOIN platform_users pu ON pu.id = pa.user_id
		WHERE pa.user_id = $1
		ORDER BY (lower(pa.address) = lower(COALESCE(pu.default_address, ''))) DESC, pa.created_at ASC
		LIMIT 1
	`
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&addr.Address, &addr.BankID, &addr.AccountNumber, &addr.UserID, &addr.PINHash, &addr.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAddressNotFound
		}
		return nil, err
	}
	return &addr, nil
}

// FindLedgerAccount retrieves a ledger account by its composite key.
func (r *PostgresRepository) FindLedgerAccount(ctx context.Context, bankID, accountNumber string) (*domain.LedgerAccount, error) {
	query := `
		SELECT bank_id, account_number, iban, bank_user_id, status, type, balance, created_at, updated_at
		FROM ledger_accounts
		WHERE bank_id = $1 AND account_number = $2
	`
	return r.scanLedgerAccount(r.db.QueryRow(ctx, query, bankID, accountNumber))
}

// FindLedgerAccountByIBAN retrieves a ledger account directly by IBAN.
func (r *PostgresRepository) FindLedgerAccountByIBAN(ctx context.Context, iban string) (*domain.LedgerAccount, error) {
	query := `
		SELECT bank_id, account_number, iban, bank_user_id, status, type, balance, created_at, updated_at
		FROM ledger_accounts
		WHERE upper(btrim(iban)) = upper(btrim($1))
	`
	return r.scanLedgerAccount(r.db.QueryRow(ctx, query, iban))
}

// FindLedgerAccountByBankUser retrieves the account a bank-side user holds at
// a specific bank. Used by the card rail after PIN authorization.
func (r *PostgresRepository) FindLedgerAccountByBankUser(ctx context.Context, bankID string, bankUserID uuid.UUID) (*domain.LedgerAccount, error) {
	query := `
		SELECT bank_id, account_number, iban, bank_user_id, status, type, balance, created_at, updated_at
		FROM ledger_accounts
		WHERE bank_id = $1 AND bank_user_id = $2
		ORDER BY created_at ASC
		LIMIT 1
	`
	return r.scanLedgerAccount(r.db.QueryRow(ctx, query, bankID, bankUserID))
}

func (r *PostgresRepository) scanLedgerAccount(row pgx.Row) (*domain.LedgerAccount, error) {
	var account domain.LedgerAccount
	err := row.Scan(
		&account.BankID, &account.AccountNumber, &account.IBAN, &account.BankUserID,
		&account.Status, &account.Type, &account.Balance, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindCard retrieves a card by its composite key.
func (r *PostgresRepository) FindCard(ctx context.Context, bankID, cardNumber string) (*domain.Card, error) {
	var card domain.Card
	query := `
		SELECT bank_id, card_number, bank_user_id, pin_hash, created_at
		FROM cards
		WHERE bank_id = $1 AND card_number = $2
	`
	err := r.db.QueryRow(ctx, query, bankID, cardNumber).Scan(
		&card.BankID, &card.CardNumber, &card.BankUserID, &card.PINHash, &card.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return &card, nil
}

// GetSystemSettings reads the singleton settings row as one snapshot.
func (r *PostgresRepository) GetSystemSettings(ctx context.Context) (*domain.SystemSettings, error) {
	var settings domain.SystemSettings
	query := `
		SELECT transfer_limit_enabled, transfer_limit_amount, transactions_blocked, COALESCE(block_message, '')
		FROM system_settings
		LIMIT 1
	`
	err := r.db.QueryRow(ctx, query).Scan(
		&settings.TransferLimitEnabled, &settings.TransferLimitAmount,
		&settings.TransactionsBlocked, &settings.BlockMessage,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}
	return &settings, nil
}

// ExecuteTransfer atomically moves funds between two ledger accounts and
// records the transaction. Either every step commits or none do.
func (r *PostgresRepository) ExecuteTransfer(ctx context.Context, params TransferParams) (*domain.Transaction, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	record, err := r.executeTransferInTx(ctx, tx, params)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transfer: %w", err)
	}
	return record, nil
}

// executeTransferInTx runs the locked debit/credit/record sequence inside an
// already-open database transaction so money request settlement can share it.
func (r *PostgresRepository) executeTransferInTx(ctx context.Context, tx pgx.Tx, params TransferParams) (*domain.Transaction, error) {
	if params.SenderBankID == params.ReceiverBankID && params.SenderAccountNumber == params.ReceiverAccountNumber {
		return nil, ErrSelfTransfer
	}

	// 1. Lock both accounts. The ORDER BY fixes the lock acquisition order to
	// ascending (bank_id, account_number) regardless of transfer direction,
	// which prevents deadlock between opposing concurrent transfers.
	lockQuery := `
		SELECT bank_id, account_number, status, balance
		FROM ledger_accounts
		WHERE (bank_id, account_number) IN (($1, $2), ($3, $4))
		ORDER BY bank_id, account_number
		FOR UPDATE
	`
	rows, err := tx.Query(ctx, lockQuery,
		params.SenderBankID, params.SenderAccountNumber,
		params.ReceiverBankID, params.ReceiverAccountNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}

	type lockedAccount struct {
		status  string
		balance int64
	}
	locked := make(map[string]lockedAccount, 2)
	for rows.Next() {
		var bankID, accountNumber, status string
		var balance int64
		if err := rows.Scan(&bankID, &accountNumber, &status, &balance); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan locked account: %w", err)
		}
		locked[bankID+"/"+accountNumber] = lockedAccount{status: status, balance: balance}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read locked accounts: %w", err)
	}

	sender, ok := locked[params.SenderBankID+"/"+params.SenderAccountNumber]
	if !ok {
		return nil, ErrAccountNotFound
	}
	receiver, ok := locked[params.ReceiverBankID+"/"+params.ReceiverAccountNumber]
	if !ok {
		return nil, ErrAccountNotFound
	}
	if sender.status != domain.AccountStatusActive || receiver.status != domain.AccountStatusActive {
		return nil, ErrAccountInactive
	}

	// 2. Funds check runs under the lock, so a concurrent transfer cannot
	// drain the balance between the check and the debit.
	if sender.balance < params.Amount {
		return nil, ErrInsufficientFunds
	}

	// 3. Debit, credit, and record.
	debitQuery := `
		UPDATE ledger_accounts
		SET balance = balance - $1, updated_at = NOW()
		WHERE bank_id = $2 AND account_number = $3
	`
	if _, err := tx.Exec(ctx, debitQuery, params.Amount, params.SenderBankID, params.SenderAccountNumber); err != nil {
		return nil, fmt.Errorf("failed to debit sender: %w", err)
	}

	creditQuery := `
		UPDATE ledger_accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE bank_id = $2 AND account_number = $3
	`
	if _, err := tx.Exec(ctx, creditQuery, params.Amount, params.ReceiverBankID, params.ReceiverAccountNumber); err != nil {
		return nil, fmt.Errorf("failed to credit receiver: %w", err)
	}

	record := &domain.Transaction{
		ID:                    uuid.New(),
		SenderUserID:          params.SenderUserID,
		ReceiverUserID:        params.ReceiverUserID,
		SenderBankID:          params.SenderBankID,
		SenderAccountNumber:   params.SenderAccountNumber,
		ReceiverBankID:        params.ReceiverBankID,
		ReceiverAccountNumber: params.ReceiverAccountNumber,
		Amount:                params.Amount,
		Rail:                  params.Rail,
		SenderAddress:         params.SenderAddress,
		ReceiverAddress:       params.ReceiverAddress,
		Note:                  params.Note,
	}
	insertQuery := `
		INSERT INTO transactions (
			id, sender_user_id, receiver_user_id,
			sender_bank_id, sender_account_number,
			receiver_bank_id, receiver_account_number,
			amount, rail, sender_address, receiver_address, note, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, insertQuery,
		record.ID, record.SenderUserID, record.ReceiverUserID,
		record.SenderBankID, record.SenderAccountNumber,
		record.ReceiverBankID, record.ReceiverAccountNumber,
		record.Amount, record.Rail, record.SenderAddress, record.ReceiverAddress, record.Note,
	).Scan(&record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	return record, nil
}

// FindTransactionByID retrieves a single transaction record.
func (r *PostgresRepository) FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	var t domain.Transaction
	query := `
		SELECT id, sender_user_id, receiver_user_id, sender_bank_id, sender_account_number,
		       receiver_bank_id, receiver_account_number, amount, rail,
		       sender_address, receiver_address, COALESCE(note, ''), created_at
		FROM transactions
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, transactionID).Scan(
		&t.ID, &t.SenderUserID, &t.ReceiverUserID, &t.SenderBankID, &t.SenderAccountNumber,
		&t.ReceiverBankID, &t.ReceiverAccountNumber, &t.Amount, &t.Rail,
		&t.SenderAddress, &t.ReceiverAddress, &t.Note, &t.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindTransactionsByUserID retrieves transactions where the user is sender or receiver.
func (r *PostgresRepository) FindTransactionsByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var transactions []domain.Transaction
	query := `
		SELECT id, sender_user_id, receiver_user_id, sender_bank_id, sender_account_number,
		       receiver_bank_id, receiver_account_number, amount, rail,
		       sender_address, receiver_address, COALESCE(note, ''), created_at
		FROM transactions
		WHERE sender_user_id = $1 OR receiver_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.Transaction
		err := rows.Scan(
			&t.ID, &t.SenderUserID, &t.ReceiverUserID, &t.SenderBankID, &t.SenderAccountNumber,
			&t.ReceiverBankID, &t.ReceiverAccountNumber, &t.Amount, &t.Rail,
			&t.SenderAddress, &t.ReceiverAddress, &t.Note, &t.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}

	return transactions, rows.Err()
}

const moneyRequestColumns = `
	id, requester_user_id, requested_user_id, requester_name, requested_name,
	requester_address, requested_address, amount, message, status,
	transaction_id, responded_at, created_at, updated_at
`

func scanMoneyRequest(row pgx.Row) (*domain.MoneyRequest, error) {
	var req domain.MoneyRequest
	err := row.Scan(
		&req.ID, &req.RequesterUserID, &req.RequestedUserID, &req.RequesterName, &req.RequestedName,
		&req.RequesterAddress, &req.RequestedAddress, &req.Amount, &req.Message, &req.Status,
		&req.TransactionID, &req.RespondedAt, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// CreateMoneyRequest persists a new money request in the pending state.
func (r *PostgresRepository) CreateMoneyRequest(ctx context.Context, req *domain.MoneyRequest) (*domain.MoneyRequest, error) {
	query := `
		INSERT INTO money_requests (
			id, requester_user_id, requested_user_id, requester_name, requested_name,
			requester_address, requested_address, amount, message, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING ` + moneyRequestColumns
	return scanMoneyRequest(r.db.QueryRow(ctx, query,
		req.ID, req.RequesterUserID, req.RequestedUserID, req.RequesterName, req.RequestedName,
		req.RequesterAddress, req.RequestedAddress, req.Amount, req.Message, req.Status,
	))
}

// GetMoneyRequestByID retrieves a single money request.
func (r *PostgresRepository) GetMoneyRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.MoneyRequest, error) {
	query := `SELECT ` + moneyRequestColumns + ` FROM money_requests WHERE id = $1`
	req, err := scanMoneyRequest(r.db.QueryRow(ctx, query, requestID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrMoneyRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// ListMoneyRequestsByRequester retrieves requests created by a user.
func (r *PostgresRepository) ListMoneyRequestsByRequester(ctx context.Context, requesterID uuid.UUID, opts domain.MoneyRequestListOptions) ([]domain.MoneyRequest, error) {
	return r.listMoneyRequests(ctx, "requester_user_id", requesterID, opts)
}

// ListIncomingMoneyRequests retrieves requests addressed to a user.
func (r *PostgresRepository) ListIncomingMoneyRequests(ctx context.Context, requestedID uuid.UUID, opts domain.MoneyRequestListOptions) ([]domain.MoneyRequest, error) {
	return r.listMoneyRequests(ctx, "requested_user_id", requestedID, opts)
}

func (r *PostgresRepository) listMoneyRequests(ctx context.Context, ownerColumn string, ownerID uuid.UUID, opts domain.MoneyRequestListOptions) ([]domain.MoneyRequest, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + moneyRequestColumns + `
		FROM money_requests
		WHERE ` + ownerColumn + ` = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, ownerID, opts.Status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []domain.MoneyRequest
	for rows.Next() {
		req, err := scanMoneyRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// SettleMoneyRequest performs the pending->accepted transition and the
// settlement transfer as one atomic unit. The request row is locked first so
// a concurrent accept or decline observes the terminal state and conflicts.
func (r *PostgresRepository) SettleMoneyRequest(ctx context.Context, params SettleMoneyRequestParams) (*domain.MoneyRequest, *domain.Transaction, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Lock the request row and validate its state.
	var status string
	var requestedUserID uuid.UUID
	lockQuery := `SELECT requested_user_id, status FROM money_requests WHERE id = $1 FOR UPDATE`
	err = tx.QueryRow(ctx, lockQuery, params.RequestID).Scan(&requestedUserID, &status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, ErrMoneyRequestNotFound
		}
		return nil, nil, fmt.Errorf("failed to lock money request: %w", err)
	}
	if requestedUserID != params.RequestedUserID {
		return nil, nil, ErrNotRequestRecipient
	}
	if status != domain.RequestStatusPending {
		return nil, nil, ErrMoneyRequestNotPending
	}

	// 2. Run the transfer inside the same database transaction. Any failure
	// rolls everything back and the request stays pending.
	record, err := r.executeTransferInTx(ctx, tx, params.Transfer)
	if err != nil {
		return nil, nil, err
	}

	// 3. Mark the request accepted and attach the settlement transaction.
	updateQuery := `
		UPDATE money_requests
		SET status = $1, transaction_id = $2, responded_at = NOW(), updated_at = NOW()
		WHERE id = $3
		RETURNING ` + moneyRequestColumns
	req, err := scanMoneyRequest(tx.QueryRow(ctx, updateQuery, domain.RequestStatusAccepted, record.ID, params.RequestID))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to mark money request accepted: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit settlement: %w", err)
	}
	return req, record, nil
}

// DeclineMoneyRequest performs the pending->declined transition. The status
// predicate makes the update a no-op when the request already transitioned,
// which callers surface as a conflict.
func (r *PostgresRepository) DeclineMoneyRequest(ctx context.Context, requestID, requestedUserID uuid.UUID) (*domain.MoneyRequest, error) {
	query := `
		UPDATE money_requests
		SET status = $1, responded_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND requested_user_id = $3 AND status = $4
		RETURNING ` + moneyRequestColumns
	req, err := scanMoneyRequest(r.db.QueryRow(ctx, query,
		domain.RequestStatusDeclined, requestID, requestedUserID, domain.RequestStatusPending,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrMoneyRequestNotPending
		}
		return nil, err
	}
	return req, nil
}

// ExpireMoneyRequestsBefore marks pending requests created before the cutoff
// as expired and reports how many rows transitioned.
func (r *PostgresRepository) ExpireMoneyRequestsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE money_requests
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND created_at < $3
	`
	result, err := r.db.Exec(ctx, query, domain.RequestStatusExpired, domain.RequestStatusPending, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
