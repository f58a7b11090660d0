package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository provides the append-only ledger and cached balance operations.
// Every balance mutation runs inside a transaction holding a FOR UPDATE lock
// on the account row, so concurrent spends serialize instead of racing.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) EnsureAccount(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, balance_cents)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

func (r *Repository) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	if err := r.EnsureAccount(ctx, userID); err != nil {
		return 0, err
	}

	var balance int64
	err := r.db.GetContext(ctx, &balance, `SELECT balance_cents FROM accounts WHERE user_id = $1`, userID)
	return balance, err
}

func (r *Repository) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var tr Transaction
	err := r.db.GetContext(ctx, &tr, `
		SELECT id, user_id, amount_cents, type, status, payment_method,
		       external_id, reference_id, reversed_by, description, created_at
		FROM transactions
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID, p Pagination) ([]Transaction, error) {
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 20
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	items := []Transaction{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT id, user_id, amount_cents, type, status, payment_method,
		       external_id, reference_id, reversed_by, description, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, p.Limit, p.Offset)
	return items, err
}

func (r *Repository) CountTransactions(ctx context.Context, userID uuid.UUID) (int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM transactions WHERE user_id = $1`, userID)
	return total, err
}

func (r *Repository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

// lockAccount creates the account row if missing and takes a FOR UPDATE lock
// on it, returning the current balance.
func (r *Repository) lockAccount(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (user_id, balance_cents)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return 0, err
	}

	var balance int64
	err := tx.GetContext(ctx, &balance, `SELECT balance_cents FROM accounts WHERE user_id = $1 FOR UPDATE`, userID)
	return balance, err
}

func (r *Repository) updateBalance(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, balance int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE accounts SET balance_cents = $1, updated_at = now() WHERE user_id = $2`, balance, userID)
	return err
}

func (r *Repository) insertTransaction(ctx context.Context, tx *sqlx.Tx, tr *Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount_cents, type, status, payment_method,
		                          external_id, reference_id, reversed_by, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, tr.ID, tr.UserID, tr.AmountCents, string(tr.Type), string(tr.Status), tr.PaymentMethod,
		tr.ExternalID, tr.ReferenceID, tr.ReversedBy, tr.Description, tr.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateExternalID
		}
		return err
	}
	return nil
}

// CreditTx appends a completed credit entry and raises the cached balance
// within the caller's transaction. The caller commits or rolls back.
func (r *Repository) CreditTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, txType TransactionType, method, referenceID, description string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	balance, err := r.lockAccount(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	tr := newCompleted(userID, amount, txType, method, referenceID, description)
	if err := r.insertTransaction(ctx, tx, tr); err != nil {
		return nil, err
	}
	if err := r.updateBalance(ctx, tx, userID, balance+amount); err != nil {
		return nil, err
	}
	return tr, nil
}

// DebitTx checks the balance and appends a completed debit entry within the
// caller's transaction. Fails with ErrInsufficientFunds without mutating.
func (r *Repository) DebitTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, txType TransactionType, referenceID, description string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	balance, err := r.lockAccount(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if balance < amount {
		return nil, ErrInsufficientFunds
	}

	tr := newCompleted(userID, -amount, txType, "", referenceID, description)
	if err := r.insertTransaction(ctx, tx, tr); err != nil {
		return nil, err
	}
	if err := r.updateBalance(ctx, tx, userID, balance-amount); err != nil {
		return nil, err
	}
	return tr, nil
}

// Credit atomically credits the user's balance.
func (r *Repository) Credit(ctx context.Context, userID uuid.UUID, amount int64, txType TransactionType, method, referenceID, description string) (*Transaction, error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tr, err := r.CreditTx(ctx, tx, userID, amount, txType, method, referenceID, description)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return tr, nil
}

// Debit atomically checks and debits the user's balance.
func (r *Repository) Debit(ctx context.Context, userID uuid.UUID, amount int64, txType TransactionType, referenceID, description string) (*Transaction, error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tr, err := r.DebitTx(ctx, tx, userID, amount, txType, referenceID, description)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return tr, nil
}

// ReverseTx appends a compensating entry of opposite sign for a completed
// transaction within the caller's transaction. The original row is locked and
// marked so a second reversal fails with ErrAlreadyReversed.
func (r *Repository) ReverseTx(ctx context.Context, tx *sqlx.Tx, transactionID uuid.UUID, description string) (*Transaction, error) {
	var original Transaction
	err := tx.GetContext(ctx, &original, `
		SELECT id, user_id, amount_cents, type, status, payment_method,
		       external_id, reference_id, reversed_by, description, created_at
		FROM transactions
		WHERE id = $1
		FOR UPDATE
	`, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}

	if original.Status != TxStatusCompleted {
		return nil, ErrNotReversible
	}
	if original.ReversedBy.Valid {
		return nil, ErrAlreadyReversed
	}

	balance, err := r.lockAccount(ctx, tx, original.UserID)
	if err != nil {
		return nil, err
	}

	nextBalance := balance - original.AmountCents
	if nextBalance < 0 {
		return nil, ErrInsufficientFunds
	}

	compensating := newCompleted(original.UserID, -original.AmountCents, TxTypeBalanceAdjustment, "", original.ID.String(), description)
	if err := r.insertTransaction(ctx, tx, compensating); err != nil {
		return nil, err
	}
	if err := r.updateBalance(ctx, tx, original.UserID, nextBalance); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE transactions SET reversed_by = $1 WHERE id = $2`, compensating.ID, original.ID); err != nil {
		return nil, err
	}
	return compensating, nil
}

// Reverse atomically reverses a completed transaction.
func (r *Repository) Reverse(ctx context.Context, transactionID uuid.UUID, description string) (*Transaction, error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tr, err := r.ReverseTx(ctx, tx, transactionID, description)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return tr, nil
}

// FindCompletedByReference returns the completed, not-yet-reversed entry of a
// given type carrying the reference, within the caller's transaction.
func (r *Repository) FindCompletedByReference(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, txType TransactionType, referenceID string) (*Transaction, error) {
	var tr Transaction
	err := tx.GetContext(ctx, &tr, `
		SELECT id, user_id, amount_cents, type, status, payment_method,
		       external_id, reference_id, reversed_by, description, created_at
		FROM transactions
		WHERE user_id = $1 AND type = $2 AND status = 'completed' AND reference_id = $3
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, string(txType), referenceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

// CreatePending inserts a pending entry that does not touch the balance.
// Gateway settlement later completes or fails it.
func (r *Repository) CreatePending(ctx context.Context, userID uuid.UUID, amount int64, txType TransactionType, method, externalID, description string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := r.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := r.EnsureAccount(ctx, userID); err != nil {
		return nil, err
	}

	tr := &Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		AmountCents: amount,
		Type:        txType,
		Status:      TxStatusPending,
		Description: description,
		CreatedAt:   time.Now(),
	}
	if method != "" {
		tr.PaymentMethod = sql.NullString{String: method, Valid: true}
	}
	if externalID != "" {
		tr.ExternalID = sql.NullString{String: externalID, Valid: true}
	}

	if err := r.insertTransaction(ctx, tx, tr); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return tr, nil
}

// SettleByExternalID finalizes a pending entry identified by the gateway's
// payment id. Approved settlements credit the balance; rejected ones mark the
// entry failed. Replays of an already-settled entry return ErrAlreadySettled.
func (r *Repository) SettleByExternalID(ctx context.Context, externalID string, approved bool) (*Transaction, error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var tr Transaction
	err = tx.GetContext(ctx, &tr, `
		SELECT id, user_id, amount_cents, type, status, payment_method,
		       external_id, reference_id, reversed_by, description, created_at
		FROM transactions
		WHERE external_id = $1
		FOR UPDATE
	`, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}

	if tr.Status != TxStatusPending && tr.Status != TxStatusProcessing {
		return nil, ErrAlreadySettled
	}

	if approved {
		balance, err := r.lockAccount(ctx, tx, tr.UserID)
		if err != nil {
			return nil, err
		}
		if err := r.updateBalance(ctx, tx, tr.UserID, balance+tr.AmountCents); err != nil {
			return nil, err
		}
		tr.Status = TxStatusCompleted
	} else {
		tr.Status = TxStatusFailed
	}

	if _, err := tx.ExecContext(ctx, `UPDATE transactions SET status = $1 WHERE id = $2`, string(tr.Status), tr.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &tr, nil
}

func newCompleted(userID uuid.UUID, amount int64, txType TransactionType, method, referenceID, description string) *Transaction {
	tr := &Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		AmountCents: amount,
		Type:        txType,
		Status:      TxStatusCompleted,
		Description: description,
		CreatedAt:   time.Now(),
	}
	if method != "" {
		tr.PaymentMethod = sql.NullString{String: method, Valid: true}
	}
	if referenceID != "" {
		tr.ReferenceID = sql.NullString{String: referenceID, Valid: true}
	}
	return tr
}
