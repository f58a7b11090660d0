package complaint

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/heroncosmo/plano-junto-sub000/internal/domain/group"
)

// Service coordinates the mediation flow. Deadlines are derived from the
// opening time; overdue checks are pure functions of the clock handed in, so
// nothing ticks in the background except the sweep worker polling.
type Service struct {
	repo                 *Repository
	groups               *group.Service
	adminDeadline        time.Duration
	interventionDeadline time.Duration
	logger               zerolog.Logger
}

func NewService(repo *Repository, groups *group.Service, adminDeadline, interventionDeadline time.Duration, logger zerolog.Logger) *Service {
	if interventionDeadline <= adminDeadline {
		interventionDeadline = adminDeadline * 2
	}
	return &Service{
		repo:                 repo,
		groups:               groups,
		adminDeadline:        adminDeadline,
		interventionDeadline: interventionDeadline,
		logger:               logger.With().Str("component", "complaint_service").Logger(),
	}
}

// Open files a complaint against the group's administrator. Only an active
// member of the group may complain, and a user carries at most one open case
// per group.
func (s *Service) Open(ctx context.Context, userID, groupID uuid.UUID, problemType, description, desiredSolution string) (*Complaint, error) {
	g, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g.AdminID == userID {
		return nil, ErrNotParticipant
	}
	if _, err := s.groups.GetActiveMembership(ctx, groupID, userID); err != nil {
		if errors.Is(err, group.ErrMembershipNotFound) {
			return nil, ErrNotParticipant
		}
		return nil, err
	}

	now := time.Now()
	c := &Complaint{
		ID:                    uuid.New(),
		UserID:                userID,
		GroupID:               groupID,
		AdminID:               g.AdminID,
		ProblemType:           problemType,
		Description:           description,
		DesiredSolution:       desiredSolution,
		Status:                StatusPending,
		AdminResponseDeadline: now.Add(s.adminDeadline),
		InterventionDeadline:  now.Add(s.interventionDeadline),
		CreatedAt:             now,
	}
	if err := s.repo.Open(ctx, c, description); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("complaint_id", c.ID.String()).
		Str("user_id", userID.String()).
		Str("group_id", groupID.String()).
		Str("problem_type", problemType).
		Msg("complaint opened")
	return c, nil
}

func (s *Service) GetForParty(ctx context.Context, complaintID, actorID uuid.UUID, operator bool) (*Complaint, error) {
	c, err := s.repo.GetByID(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if !operator && actorID != c.UserID && actorID != c.AdminID {
		return nil, ErrNotParty
	}
	return c, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]Complaint, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) ListMessages(ctx context.Context, complaintID, actorID uuid.UUID, operator bool) ([]Message, error) {
	if _, err := s.GetForParty(ctx, complaintID, actorID, operator); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, complaintID)
}

// Respond appends a message from one of the two parties.
func (s *Service) Respond(ctx context.Context, complaintID, authorID uuid.UUID, message string) (*Complaint, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	c, err := s.repo.Respond(ctx, complaintID, authorID, message)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("complaint_id", complaintID.String()).
		Str("author_id", authorID.String()).
		Str("status", string(c.Status)).
		Msg("complaint response recorded")
	return c, nil
}

// Mediate posts an operator note into the conversation.
func (s *Service) Mediate(ctx context.Context, complaintID, mediatorID uuid.UUID, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}
	return s.repo.Mediate(ctx, complaintID, mediatorID, message)
}

// ExtendDeadline grants the administrator more response time. The new
// deadline must be in the future.
func (s *Service) ExtendDeadline(ctx context.Context, complaintID uuid.UUID, newDeadline time.Time) (*Complaint, error) {
	if !newDeadline.After(time.Now()) {
		return nil, ErrInvalidDeadline
	}
	c, err := s.repo.ExtendDeadline(ctx, complaintID, newDeadline)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("complaint_id", complaintID.String()).
		Time("admin_response_deadline", c.AdminResponseDeadline).
		Time("intervention_deadline", c.InterventionDeadline).
		Msg("complaint deadline extended")
	return c, nil
}

// Resolve settles the case: with a refund the member's slot payment is
// reversed, without one the case is simply closed.
func (s *Service) Resolve(ctx context.Context, complaintID, mediatorID uuid.UUID, refund bool) (*Complaint, error) {
	var (
		c   *Complaint
		err error
	)
	if refund {
		c, err = s.repo.ResolveWithRefund(ctx, complaintID, mediatorID)
	} else {
		c, err = s.repo.CloseWithoutRefund(ctx, complaintID, mediatorID)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("complaint_id", complaintID.String()).
		Bool("refund", refund).
		Str("status", string(c.Status)).
		Msg("complaint settled")
	return c, nil
}

// SweepOverdue escalates complaints past the intervention deadline. A case
// where the administrator never engaged is refunded; one with an ongoing
// conversation is closed for manual follow-up after a mediation note.
func (s *Service) SweepOverdue(ctx context.Context, now time.Time, limit int) (int, error) {
	overdue, err := s.repo.ListReadyForIntervention(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	settled := 0
	for i := range overdue {
		c := &overdue[i]
		if _, err := s.repo.MarkIntervention(ctx, c.ID); err != nil {
			if errors.Is(err, ErrAlreadyResolved) {
				continue
			}
			s.logger.Error().Err(err).Str("complaint_id", c.ID.String()).Msg("failed to mark intervention")
			continue
		}

		if c.AdminContactedUser {
			_, err = s.repo.CloseWithoutRefund(ctx, c.ID, SystemUserID)
		} else {
			_, err = s.repo.ResolveWithRefund(ctx, c.ID, SystemUserID)
			if errors.Is(err, ErrNoRefundablePayment) {
				// Payment already reversed or never made; close instead
				_, err = s.repo.CloseWithoutRefund(ctx, c.ID, SystemUserID)
			}
		}
		if err != nil {
			if errors.Is(err, ErrAlreadyResolved) {
				continue
			}
			s.logger.Error().Err(err).Str("complaint_id", c.ID.String()).Msg("failed to escalate complaint")
			continue
		}
		settled++
	}
	return settled, nil
}
