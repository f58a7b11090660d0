package complaint

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/heroncosmo/plano-junto-sub000/internal/domain/ledger"
)

const complaintColumns = `
	id, user_id, group_id, admin_id, problem_type, description, desired_solution,
	status, user_contacted_admin, admin_contacted_user,
	admin_response_deadline, intervention_deadline, created_at, resolved_at, closed_at`

const messageColumns = `id, complaint_id, user_id, message, message_type, created_at`

// Repository owns complaint and message rows. Status transitions lock the
// complaint row; the refund on resolution shares the same transaction as the
// status flip so the money and the state can never diverge.
type Repository struct {
	db     *sqlx.DB
	ledger *ledger.Repository
}

func NewRepository(db *sqlx.DB, ledgerRepo *ledger.Repository) *Repository {
	return &Repository{db: db, ledger: ledgerRepo}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Complaint, error) {
	var c Complaint
	err := r.db.GetContext(ctx, &c, `SELECT `+complaintColumns+` FROM complaints WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Complaint, error) {
	items := []Complaint{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT `+complaintColumns+`
		FROM complaints
		WHERE user_id = $1 OR admin_id = $1
		ORDER BY created_at DESC
	`, userID)
	return items, err
}

func (r *Repository) ListMessages(ctx context.Context, complaintID uuid.UUID) ([]Message, error) {
	items := []Message{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT `+messageColumns+`
		FROM complaint_messages
		WHERE complaint_id = $1
		ORDER BY created_at
	`, complaintID)
	return items, err
}

// ListReadyForIntervention returns non-terminal complaints whose intervention
// deadline has passed. Polled by the mediation sweep worker.
func (r *Repository) ListReadyForIntervention(ctx context.Context, now time.Time, limit int) ([]Complaint, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	items := []Complaint{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT `+complaintColumns+`
		FROM complaints
		WHERE status NOT IN ('resolved', 'closed') AND intervention_deadline < $1
		ORDER BY intervention_deadline
		LIMIT $2
	`, now, limit)
	return items, err
}

func (r *Repository) findOpenForPair(ctx context.Context, q sqlx.QueryerContext, userID, groupID uuid.UUID) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := sqlx.GetContext(ctx, q, &id, `
		SELECT id FROM complaints
		WHERE user_id = $1 AND group_id = $2 AND status NOT IN ('resolved', 'closed')
		LIMIT 1
	`, userID, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}

// Open inserts the complaint and its opening message. The existence check and
// the insert share one transaction; a partial unique index backstops the race
// and is surfaced as AlreadyOpenError with the existing id.
func (r *Repository) Open(ctx context.Context, c *Complaint, openingMessage string) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	existing, found, err := r.findOpenForPair(ctx, tx, c.UserID, c.GroupID)
	if err != nil {
		return err
	}
	if found {
		return &AlreadyOpenError{ExistingID: existing}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO complaints (id, user_id, group_id, admin_id, problem_type, description,
		                        desired_solution, status, user_contacted_admin, admin_contacted_user,
		                        admin_response_deadline, intervention_deadline, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, false, $9, $10, $11)
	`, c.ID, c.UserID, c.GroupID, c.AdminID, c.ProblemType, c.Description,
		c.DesiredSolution, string(c.Status), c.AdminResponseDeadline, c.InterventionDeadline, c.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// Lost the race; report the winner's id
			existing, found, checkErr := r.findOpenForPair(ctx, r.db, c.UserID, c.GroupID)
			if checkErr == nil && found {
				return &AlreadyOpenError{ExistingID: existing}
			}
			return ErrAlreadyOpen
		}
		return err
	}

	if err := r.insertMessage(ctx, tx, c.ID, c.UserID, openingMessage, MessageOpening); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *Repository) insertMessage(ctx context.Context, tx *sqlx.Tx, complaintID, authorID uuid.UUID, message string, msgType MessageType) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO complaint_messages (id, complaint_id, user_id, message, message_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), complaintID, authorID, message, string(msgType), time.Now())
	return err
}

func (r *Repository) lockComplaint(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Complaint, error) {
	var c Complaint
	err := tx.GetContext(ctx, &c, `SELECT `+complaintColumns+` FROM complaints WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Respond appends a party message and flips the status toward the author's
// side, marking the contact flag.
func (r *Repository) Respond(ctx context.Context, complaintID, authorID uuid.UUID, message string) (*Complaint, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c, err := r.lockComplaint(ctx, tx, complaintID)
	if err != nil {
		return nil, err
	}
	if c.IsTerminal() {
		return nil, ErrAlreadyResolved
	}

	var msgType MessageType
	switch authorID {
	case c.UserID:
		msgType = MessageUser
		c.Status = StatusUserResponded
		c.UserContactedAdmin = true
	case c.AdminID:
		msgType = MessageAdmin
		c.Status = StatusAdminResponded
		c.AdminContactedUser = true
	default:
		return nil, ErrNotParty
	}

	if err := r.insertMessage(ctx, tx, complaintID, authorID, message, msgType); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE complaints
		SET status = $2, user_contacted_admin = $3, admin_contacted_user = $4
		WHERE id = $1
	`, complaintID, string(c.Status), c.UserContactedAdmin, c.AdminContactedUser); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return c, nil
}

// Mediate appends a system message without changing the status.
func (r *Repository) Mediate(ctx context.Context, complaintID, mediatorID uuid.UUID, message string) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c, err := r.lockComplaint(ctx, tx, complaintID)
	if err != nil {
		return err
	}
	if c.IsTerminal() {
		return ErrAlreadyResolved
	}

	author := mediatorID
	if author == uuid.Nil {
		author = SystemUserID
	}
	if err := r.insertMessage(ctx, tx, complaintID, author, message, MessageSystem); err != nil {
		return err
	}

	return tx.Commit()
}

// ExtendDeadline moves the administrator's response deadline. The intervention
// deadline is pushed along when needed to keep it strictly later.
func (r *Repository) ExtendDeadline(ctx context.Context, complaintID uuid.UUID, newDeadline time.Time) (*Complaint, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c, err := r.lockComplaint(ctx, tx, complaintID)
	if err != nil {
		return nil, err
	}
	if c.IsTerminal() {
		return nil, ErrAlreadyResolved
	}

	c.AdminResponseDeadline = newDeadline
	if !c.InterventionDeadline.After(newDeadline) {
		c.InterventionDeadline = newDeadline.Add(24 * time.Hour)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE complaints SET admin_response_deadline = $2, intervention_deadline = $3 WHERE id = $1
	`, complaintID, c.AdminResponseDeadline, c.InterventionDeadline); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return c, nil
}

// MarkIntervention flips a non-terminal complaint to intervention.
func (r *Repository) MarkIntervention(ctx context.Context, complaintID uuid.UUID) (*Complaint, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c, err := r.lockComplaint(ctx, tx, complaintID)
	if err != nil {
		return nil, err
	}
	if c.IsTerminal() {
		return nil, ErrAlreadyResolved
	}
	if c.Status == StatusIntervention {
		return c, tx.Commit()
	}

	c.Status = StatusIntervention
	if _, err := tx.ExecContext(ctx, `UPDATE complaints SET status = 'intervention' WHERE id = $1`, complaintID); err != nil {
		return nil, err
	}
	return c, tx.Commit()
}

// ResolveWithRefund reverses the complainant's group payment and marks the
// case resolved in one atomic unit, so repeating the call can never refund
// twice.
func (r *Repository) ResolveWithRefund(ctx context.Context, complaintID, mediatorID uuid.UUID) (*Complaint, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c, err := r.lockComplaint(ctx, tx, complaintID)
	if err != nil {
		return nil, err
	}
	if c.IsTerminal() {
		return nil, ErrAlreadyResolved
	}

	// The slot payment references the membership id
	var membershipID uuid.UUID
	err = tx.GetContext(ctx, &membershipID, `
		SELECT id FROM group_memberships
		WHERE group_id = $1 AND user_id = $2
		ORDER BY joined_at DESC
		LIMIT 1
	`, c.GroupID, c.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRefundablePayment
	}
	if err != nil {
		return nil, err
	}

	payment, err := r.ledger.FindCompletedByReference(ctx, tx, c.UserID, ledger.TxTypeGroupPayment, membershipID.String())
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound) {
			return nil, ErrNoRefundablePayment
		}
		return nil, err
	}
	if _, err := r.ledger.ReverseTx(ctx, tx, payment.ID, "complaint refund"); err != nil {
		if errors.Is(err, ledger.ErrAlreadyReversed) {
			return nil, ErrNoRefundablePayment
		}
		return nil, err
	}

	now := time.Now()
	c.Status = StatusResolved
	c.ResolvedAt = sql.NullTime{Time: now, Valid: true}
	if _, err := tx.ExecContext(ctx, `
		UPDATE complaints SET status = 'resolved', resolved_at = $2 WHERE id = $1
	`, complaintID, now); err != nil {
		return nil, err
	}

	author := mediatorID
	if author == uuid.Nil {
		author = SystemUserID
	}
	if err := r.insertMessage(ctx, tx, complaintID, author, "complaint resolved with refund", MessageSystem); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return c, nil
}

// CloseWithoutRefund marks the case closed with no ledger effect.
func (r *Repository) CloseWithoutRefund(ctx context.Context, complaintID, mediatorID uuid.UUID) (*Complaint, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c, err := r.lockComplaint(ctx, tx, complaintID)
	if err != nil {
		return nil, err
	}
	if c.IsTerminal() {
		return nil, ErrAlreadyResolved
	}

	now := time.Now()
	c.Status = StatusClosed
	c.ClosedAt = sql.NullTime{Time: now, Valid: true}
	if _, err := tx.ExecContext(ctx, `
		UPDATE complaints SET status = 'closed', closed_at = $2 WHERE id = $1
	`, complaintID, now); err != nil {
		return nil, err
	}

	author := mediatorID
	if author == uuid.Nil {
		author = SystemUserID
	}
	if err := r.insertMessage(ctx, tx, complaintID, author, "complaint closed without refund", MessageSystem); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return c, nil
}
