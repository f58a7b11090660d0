package group

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status represents the group lifecycle state. A group becomes joinable only
// after both the platform and the subscription owner approve it.
type Status string

const (
	StatusWaitingSubscription Status = "waiting_subscription"
	StatusActiveWithSlots     Status = "active_with_slots"
	StatusFull                Status = "full"
	StatusTerminated          Status = "terminated"
)

// MembershipStatus represents the state of a join record.
type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "active"
	MembershipCancelled MembershipStatus = "cancelled"
)

// Group is a sellable pool of slots backed by the administrator's subscription.
type Group struct {
	ID                uuid.UUID      `db:"id" json:"id"`
	AdminID           uuid.UUID      `db:"admin_id" json:"admin_id"`
	Name              string         `db:"name" json:"name"`
	MaxMembers        int            `db:"max_members" json:"max_members"`
	CurrentMembers    int            `db:"current_members" json:"current_members"`
	PricePerSlotCents int64          `db:"price_per_slot_cents" json:"price_per_slot_cents"`
	AdminFeeCents     int64          `db:"admin_fee_cents" json:"admin_fee_cents"`
	AdminApproved     bool           `db:"admin_approved" json:"admin_approved"`
	OwnerApproved     bool           `db:"owner_approved" json:"owner_approved"`
	Status            Status         `db:"status" json:"status"`
	TerminationMode   sql.NullString `db:"termination_mode" json:"termination_mode,omitempty"`
	TerminationReason sql.NullString `db:"termination_reason" json:"termination_reason,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// HasSlots reports whether another member fits.
func (g *Group) HasSlots() bool {
	return g.CurrentMembers < g.MaxMembers
}

// ComputeStatus derives the status from the approval gates and occupancy.
// Terminated is terminal and never recomputed.
func (g *Group) ComputeStatus() Status {
	if g.Status == StatusTerminated {
		return StatusTerminated
	}
	if !g.AdminApproved || !g.OwnerApproved {
		return StatusWaitingSubscription
	}
	if g.CurrentMembers >= g.MaxMembers {
		return StatusFull
	}
	return StatusActiveWithSlots
}

// Membership is a join record. At most one active membership exists per
// (group, user) pair.
type Membership struct {
	ID               uuid.UUID        `db:"id" json:"id"`
	GroupID          uuid.UUID        `db:"group_id" json:"group_id"`
	UserID           uuid.UUID        `db:"user_id" json:"user_id"`
	RelationshipType string           `db:"relationship_type" json:"relationship_type"`
	Status           MembershipStatus `db:"status" json:"status"`
	PaidAmountCents  int64            `db:"paid_amount_cents" json:"paid_amount_cents"`
	CancelReason     sql.NullString   `db:"cancel_reason" json:"cancel_reason,omitempty"`
	JoinedAt         time.Time        `db:"joined_at" json:"joined_at"`
	CancelledAt      sql.NullTime     `db:"cancelled_at" json:"cancelled_at,omitempty"`

	// PaymentTransactionID is the slot-payment debit recorded at join time.
	// Populated on the value returned by Join, not stored on the row.
	PaymentTransactionID uuid.UUID `db:"-" json:"payment_transaction_id,omitempty"`
}

// Pagination controls group listing.
type Pagination struct {
	Limit  int
	Offset int
}
