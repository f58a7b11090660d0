package group

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/heroncosmo/plano-junto-sub000/internal/domain/ledger"
)

const groupColumns = `
	id, admin_id, name, max_members, current_members, price_per_slot_cents,
	admin_fee_cents, admin_approved, owner_approved, status,
	termination_mode, termination_reason, created_at, updated_at`

const membershipColumns = `
	id, group_id, user_id, relationship_type, status, paid_amount_cents,
	cancel_reason, joined_at, cancelled_at`

// Repository owns group and membership rows. Joins and cancellations lock the
// group row so the capacity check and the counter update are one atomic unit.
type Repository struct {
	db     *sqlx.DB
	ledger *ledger.Repository
}

func NewRepository(db *sqlx.DB, ledgerRepo *ledger.Repository) *Repository {
	return &Repository{db: db, ledger: ledgerRepo}
}

func (r *Repository) Create(ctx context.Context, g *Group) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO groups (id, admin_id, name, max_members, current_members, price_per_slot_cents,
		                    admin_fee_cents, admin_approved, owner_approved, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, false, false, $7, $8, $8)
	`, g.ID, g.AdminID, g.Name, g.MaxMembers, g.PricePerSlotCents, g.AdminFeeCents, string(StatusWaitingSubscription), g.CreatedAt)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Group, error) {
	var g Group
	err := r.db.GetContext(ctx, &g, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *Repository) ListJoinable(ctx context.Context, p Pagination) ([]Group, error) {
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 20
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	items := []Group{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT `+groupColumns+`
		FROM groups
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, string(StatusActiveWithSlots), p.Limit, p.Offset)
	return items, err
}

func (r *Repository) GetMembership(ctx context.Context, id uuid.UUID) (*Membership, error) {
	var m Membership
	err := r.db.GetContext(ctx, &m, `SELECT `+membershipColumns+` FROM group_memberships WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetActiveMembership returns the active membership for a (group, user) pair.
func (r *Repository) GetActiveMembership(ctx context.Context, groupID, userID uuid.UUID) (*Membership, error) {
	var m Membership
	err := r.db.GetContext(ctx, &m, `
		SELECT `+membershipColumns+`
		FROM group_memberships
		WHERE group_id = $1 AND user_id = $2 AND status = 'active'
		LIMIT 1
	`, groupID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) ListMemberships(ctx context.Context, groupID uuid.UUID) ([]Membership, error) {
	items := []Membership{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT `+membershipColumns+`
		FROM group_memberships
		WHERE group_id = $1
		ORDER BY joined_at
	`, groupID)
	return items, err
}

func (r *Repository) lockGroup(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Group, error) {
	var g Group
	err := tx.GetContext(ctx, &g, `SELECT `+groupColumns+` FROM groups WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *Repository) updateGroupState(ctx context.Context, tx *sqlx.Tx, g *Group) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE groups
		SET current_members = $2, admin_approved = $3, owner_approved = $4, status = $5,
		    termination_mode = $6, termination_reason = $7, updated_at = now()
		WHERE id = $1
	`, g.ID, g.CurrentMembers, g.AdminApproved, g.OwnerApproved, string(g.Status),
		g.TerminationMode, g.TerminationReason)
	return err
}

// Join admits a user into a group as one atomic unit keyed on the group row:
// the status check, the capacity check, the duplicate-membership check, the
// ledger debits and the counter update either all commit or none do. A debit
// followed by any later failure is undone by the transaction rollback.
func (r *Repository) Join(ctx context.Context, groupID, userID uuid.UUID, relationshipType string) (*Membership, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	g, err := r.lockGroup(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}

	if g.Status != StatusActiveWithSlots {
		if g.Status == StatusFull {
			return nil, ErrGroupFull
		}
		return nil, ErrGroupNotJoinable
	}
	if !g.HasSlots() {
		return nil, ErrGroupFull
	}

	var exists bool
	err = tx.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM group_memberships
			WHERE group_id = $1 AND user_id = $2 AND status = 'active'
		)
	`, groupID, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyMember
	}

	m := &Membership{
		ID:               uuid.New(),
		GroupID:          groupID,
		UserID:           userID,
		RelationshipType: relationshipType,
		Status:           MembershipActive,
		PaidAmountCents:  g.PricePerSlotCents + g.AdminFeeCents,
		JoinedAt:         time.Now(),
	}

	payTx, err := r.ledger.DebitTx(ctx, tx, userID, g.PricePerSlotCents, ledger.TxTypeGroupPayment, m.ID.String(),
		fmt.Sprintf("slot payment for group %s", g.Name))
	if err != nil {
		return nil, err
	}
	m.PaymentTransactionID = payTx.ID
	if g.AdminFeeCents > 0 {
		if _, err := r.ledger.DebitTx(ctx, tx, userID, g.AdminFeeCents, ledger.TxTypeAdminFee, m.ID.String(),
			fmt.Sprintf("platform fee for group %s", g.Name)); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO group_memberships (id, group_id, user_id, relationship_type, status, paid_amount_cents, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.GroupID, m.UserID, m.RelationshipType, string(m.Status), m.PaidAmountCents, m.JoinedAt); err != nil {
		return nil, err
	}

	g.CurrentMembers++
	g.Status = g.ComputeStatus()
	if err := r.updateGroupState(ctx, tx, g); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return m, nil
}

// CancelMembership flips the membership to cancelled and frees the slot.
// It does not refund; refund policy lives with the caller.
func (r *Repository) CancelMembership(ctx context.Context, membershipID uuid.UUID, reason string) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var m Membership
	err = tx.GetContext(ctx, &m, `SELECT `+membershipColumns+` FROM group_memberships WHERE id = $1`, membershipID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMembershipNotFound
	}
	if err != nil {
		return err
	}
	if m.Status == MembershipCancelled {
		return ErrAlreadyCancelled
	}

	g, err := r.lockGroup(ctx, tx, m.GroupID)
	if err != nil {
		return err
	}

	// Re-check under the group lock; a concurrent cancel serializes here
	var status string
	if err := tx.GetContext(ctx, &status, `SELECT status FROM group_memberships WHERE id = $1 FOR UPDATE`, membershipID); err != nil {
		return err
	}
	if MembershipStatus(status) == MembershipCancelled {
		return ErrAlreadyCancelled
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE group_memberships
		SET status = 'cancelled', cancel_reason = $2, cancelled_at = now()
		WHERE id = $1
	`, membershipID, reason); err != nil {
		return err
	}

	if g.CurrentMembers > 0 {
		g.CurrentMembers--
	}
	g.Status = g.ComputeStatus()
	if err := r.updateGroupState(ctx, tx, g); err != nil {
		return err
	}

	return tx.Commit()
}

// ApproveByPlatform opens the platform review gate. Idempotent.
func (r *Repository) ApproveByPlatform(ctx context.Context, groupID uuid.UUID) (*Group, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	g, err := r.lockGroup(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	if g.Status == StatusTerminated {
		return nil, ErrGroupTerminated
	}

	g.AdminApproved = true
	g.Status = g.ComputeStatus()
	if err := r.updateGroupState(ctx, tx, g); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return g, nil
}

// ApproveByOwner opens the owner release gate. Requires platform approval first.
func (r *Repository) ApproveByOwner(ctx context.Context, groupID, userID uuid.UUID) (*Group, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	g, err := r.lockGroup(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	if g.Status == StatusTerminated {
		return nil, ErrGroupTerminated
	}
	if g.AdminID != userID {
		return nil, ErrNotGroupAdmin
	}
	if !g.AdminApproved {
		return nil, ErrPlatformApprovalRequired
	}

	g.OwnerApproved = true
	g.Status = g.ComputeStatus()
	if err := r.updateGroupState(ctx, tx, g); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return g, nil
}

// Terminate sets the terminal status. Members are cancelled by the caller.
func (r *Repository) Terminate(ctx context.Context, groupID, actorID uuid.UUID, mode, reason string) (*Group, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	g, err := r.lockGroup(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	if g.AdminID != actorID {
		return nil, ErrNotGroupAdmin
	}
	if g.Status == StatusTerminated {
		return nil, ErrGroupTerminated
	}

	g.Status = StatusTerminated
	g.TerminationMode = sql.NullString{String: mode, Valid: mode != ""}
	g.TerminationReason = sql.NullString{String: reason, Valid: reason != ""}
	if err := r.updateGroupState(ctx, tx, g); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return g, nil
}
