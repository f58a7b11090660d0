package withdrawal

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status follows pending -> processing -> {completed, failed}.
// Completed and failed are final.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Withdrawal is a payout request. The balance debit happens at request time,
// so TransactionID always points at the completed debit backing this payout.
type Withdrawal struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	UserID        uuid.UUID      `db:"user_id" json:"user_id"`
	AmountCents   int64          `db:"amount_cents" json:"amount_cents"`
	PixKey        string         `db:"pix_key" json:"pix_key"`
	Status        Status         `db:"status" json:"status"`
	TransactionID uuid.UUID      `db:"transaction_id" json:"transaction_id"`
	FailReason    sql.NullString `db:"fail_reason" json:"fail_reason,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	ProcessedAt   sql.NullTime   `db:"processed_at" json:"processed_at,omitempty"`
}

// IsFinal reports whether no further transition is allowed.
func (w *Withdrawal) IsFinal() bool {
	return w.Status == StatusCompleted || w.Status == StatusFailed
}
