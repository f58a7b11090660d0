package withdrawal

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/heroncosmo/plano-junto-sub000/internal/domain/ledger"
)

const withdrawalColumns = `
	id, user_id, amount_cents, pix_key, status, transaction_id,
	fail_reason, created_at, processed_at`

// Repository owns withdrawal rows. The request debit and the row insert share
// one transaction; settlement transitions lock the row so a payout is never
// applied twice.
type Repository struct {
	db     *sqlx.DB
	ledger *ledger.Repository
}

func NewRepository(db *sqlx.DB, ledgerRepo *ledger.Repository) *Repository {
	return &Repository{db: db, ledger: ledgerRepo}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Withdrawal, error) {
	var w Withdrawal
	err := r.db.GetContext(ctx, &w, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Withdrawal, error) {
	items := []Withdrawal{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	return items, err
}

// Request debits the balance and records the pending payout in one atomic
// unit. The funds leave the spendable balance immediately.
func (r *Repository) Request(ctx context.Context, userID uuid.UUID, amount int64, pixKey string) (*Withdrawal, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w := &Withdrawal{
		ID:          uuid.New(),
		UserID:      userID,
		AmountCents: amount,
		PixKey:      pixKey,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}

	debit, err := r.ledger.DebitTx(ctx, tx, userID, amount, ledger.TxTypeWithdrawal, w.ID.String(), "withdrawal request")
	if err != nil {
		return nil, err
	}
	w.TransactionID = debit.ID

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO withdrawals (id, user_id, amount_cents, pix_key, status, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, w.ID, w.UserID, w.AmountCents, w.PixKey, string(w.Status), w.TransactionID, w.CreatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return w, nil
}

func (r *Repository) lockWithdrawal(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Withdrawal, error) {
	var w Withdrawal
	err := tx.GetContext(ctx, &w, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// MarkProcessing moves a pending payout to processing. Idempotent for rows
// already processing.
func (r *Repository) MarkProcessing(ctx context.Context, id uuid.UUID) (*Withdrawal, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := r.lockWithdrawal(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if w.IsFinal() {
		return nil, ErrAlreadySettled
	}
	if w.Status == StatusProcessing {
		return w, tx.Commit()
	}

	w.Status = StatusProcessing
	if _, err := tx.ExecContext(ctx, `UPDATE withdrawals SET status = 'processing' WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return w, tx.Commit()
}

// MarkCompleted finalizes a settled payout. A repeat call reports
// ErrAlreadySettled and changes nothing.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID) (*Withdrawal, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := r.lockWithdrawal(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if w.IsFinal() {
		return nil, ErrAlreadySettled
	}

	now := time.Now()
	w.Status = StatusCompleted
	w.ProcessedAt = sql.NullTime{Time: now, Valid: true}
	if _, err := tx.ExecContext(ctx, `
		UPDATE withdrawals SET status = 'completed', processed_at = $2 WHERE id = $1
	`, id, now); err != nil {
		return nil, err
	}
	return w, tx.Commit()
}

// MarkFailed finalizes a failed payout and credits the original amount back
// by reversing the request debit in the same atomic unit.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (*Withdrawal, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := r.lockWithdrawal(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if w.IsFinal() {
		return nil, ErrAlreadySettled
	}

	if _, err := r.ledger.ReverseTx(ctx, tx, w.TransactionID, "withdrawal failed: "+reason); err != nil {
		return nil, err
	}

	now := time.Now()
	w.Status = StatusFailed
	w.FailReason = sql.NullString{String: reason, Valid: true}
	w.ProcessedAt = sql.NullTime{Time: now, Valid: true}
	if _, err := tx.ExecContext(ctx, `
		UPDATE withdrawals SET status = 'failed', fail_reason = $2, processed_at = $3 WHERE id = $1
	`, id, reason, now); err != nil {
		return nil, err
	}
	return w, tx.Commit()
}
