package complaint

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status follows pending -> {admin_responded, user_responded} -> intervention
// -> {resolved, closed}. Resolved and closed are terminal.
type Status string

const (
	StatusPending        Status = "pending"
	StatusAdminResponded Status = "admin_responded"
	StatusUserResponded  Status = "user_responded"
	StatusIntervention   Status = "intervention"
	StatusResolved       Status = "resolved"
	StatusClosed         Status = "closed"
)

// MessageType tags conversation entries.
type MessageType string

const (
	MessageOpening MessageType = "opening"
	MessageUser    MessageType = "user_message"
	MessageAdmin   MessageType = "admin_message"
	MessageSystem  MessageType = "system_message"
)

// SystemUserID is the reserved author identity for mediator messages.
var SystemUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Complaint is a dispute between a participant and a group administrator.
// Deadlines drive escalation: past AdminResponseDeadline the case is overdue,
// past InterventionDeadline the platform takes a binding decision.
type Complaint struct {
	ID                    uuid.UUID    `db:"id" json:"id"`
	UserID                uuid.UUID    `db:"user_id" json:"user_id"`
	GroupID               uuid.UUID    `db:"group_id" json:"group_id"`
	AdminID               uuid.UUID    `db:"admin_id" json:"admin_id"`
	ProblemType           string       `db:"problem_type" json:"problem_type"`
	Description           string       `db:"description" json:"description"`
	DesiredSolution       string       `db:"desired_solution" json:"desired_solution"`
	Status                Status       `db:"status" json:"status"`
	UserContactedAdmin    bool         `db:"user_contacted_admin" json:"user_contacted_admin"`
	AdminContactedUser    bool         `db:"admin_contacted_user" json:"admin_contacted_user"`
	AdminResponseDeadline time.Time    `db:"admin_response_deadline" json:"admin_response_deadline"`
	InterventionDeadline  time.Time    `db:"intervention_deadline" json:"intervention_deadline"`
	CreatedAt             time.Time    `db:"created_at" json:"created_at"`
	ResolvedAt            sql.NullTime `db:"resolved_at" json:"resolved_at,omitempty"`
	ClosedAt              sql.NullTime `db:"closed_at" json:"closed_at,omitempty"`
}

// IsTerminal reports whether the case reached resolved or closed.
func (c *Complaint) IsTerminal() bool {
	return c.Status == StatusResolved || c.Status == StatusClosed
}

// IsOverdue reports whether the administrator missed the response deadline.
// Pure function of now so external schedulers can poll it.
func (c *Complaint) IsOverdue(now time.Time) bool {
	return now.After(c.AdminResponseDeadline) && !c.IsTerminal()
}

// IsReadyForIntervention reports whether the platform must take over.
func (c *Complaint) IsReadyForIntervention(now time.Time) bool {
	return now.After(c.InterventionDeadline) && !c.IsTerminal()
}

// Message is an append-only conversation entry tied to a complaint.
type Message struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	ComplaintID uuid.UUID   `db:"complaint_id" json:"complaint_id"`
	UserID      uuid.UUID   `db:"user_id" json:"user_id"`
	Message     string      `db:"message" json:"message"`
	MessageType MessageType `db:"message_type" json:"message_type"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}
