package ledger

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// TransactionType defines supported ledger transaction types.
type TransactionType string

const (
	TxTypeCreditPurchase    TransactionType = "credit_purchase"
	TxTypeGroupPayment      TransactionType = "group_payment"
	TxTypeWithdrawal        TransactionType = "withdrawal"
	TxTypeAdminFee          TransactionType = "admin_fee"
	TxTypeBalanceAdjustment TransactionType = "balance_adjustment"
)

// TransactionStatus defines the lifecycle of a ledger entry. Only pending and
// processing entries may transition; completed and failed are final.
type TransactionStatus string

const (
	TxStatusPending    TransactionStatus = "pending"
	TxStatusProcessing TransactionStatus = "processing"
	TxStatusCompleted  TransactionStatus = "completed"
	TxStatusFailed     TransactionStatus = "failed"
)

// Account caches the balance derived from completed transactions.
// The cached value must always equal the signed sum of the user's
// completed ledger entries.
type Account struct {
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	BalanceCents int64     `db:"balance_cents" json:"balance_cents"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction is an immutable ledger row. Amounts are signed minor units:
// positive is a credit, negative is a debit.
type Transaction struct {
	ID            uuid.UUID         `db:"id" json:"id"`
	UserID        uuid.UUID         `db:"user_id" json:"user_id"`
	AmountCents   int64             `db:"amount_cents" json:"amount_cents"`
	Type          TransactionType   `db:"type" json:"type"`
	Status        TransactionStatus `db:"status" json:"status"`
	PaymentMethod sql.NullString    `db:"payment_method" json:"payment_method,omitempty"`
	ExternalID    sql.NullString    `db:"external_id" json:"external_id,omitempty"`
	ReferenceID   sql.NullString    `db:"reference_id" json:"reference_id,omitempty"`
	ReversedBy    uuid.NullUUID     `db:"reversed_by" json:"reversed_by,omitempty"`
	Description   string            `db:"description" json:"description"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
}

// Pagination controls transaction history listing.
type Pagination struct {
	Limit  int
	Offset int
}
