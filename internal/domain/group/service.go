package group

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// CreateGroup registers a new group awaiting both approval gates.
func (s *Service) CreateGroup(ctx context.Context, adminID uuid.UUID, name string, maxMembers int, priceCents, adminFeeCents int64) (*Group, error) {
	if maxMembers < 2 {
		return nil, ErrInvalidCapacity
	}
	if priceCents <= 0 {
		return nil, ErrInvalidPrice
	}
	if adminFeeCents < 0 {
		adminFeeCents = 0
	}

	g := &Group{
		ID:                uuid.New(),
		AdminID:           adminID,
		Name:              name,
		MaxMembers:        maxMembers,
		PricePerSlotCents: priceCents,
		AdminFeeCents:     adminFeeCents,
		Status:            StatusWaitingSubscription,
		CreatedAt:         time.Now(),
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, err
	}
	log.Info().Str("group_id", g.ID.String()).Str("admin_id", adminID.String()).Msg("group created")
	return g, nil
}

func (s *Service) GetGroup(ctx context.Context, id uuid.UUID) (*Group, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListJoinable(ctx context.Context, p Pagination) ([]Group, error) {
	return s.repo.ListJoinable(ctx, p)
}

func (s *Service) GetMembership(ctx context.Context, id uuid.UUID) (*Membership, error) {
	return s.repo.GetMembership(ctx, id)
}

func (s *Service) GetActiveMembership(ctx context.Context, groupID, userID uuid.UUID) (*Membership, error) {
	return s.repo.GetActiveMembership(ctx, groupID, userID)
}

func (s *Service) ListMemberships(ctx context.Context, groupID uuid.UUID) ([]Membership, error) {
	return s.repo.ListMemberships(ctx, groupID)
}

// Join admits the user, debiting the slot price atomically with the
// capacity check.
func (s *Service) Join(ctx context.Context, groupID, userID uuid.UUID, relationshipType string) (*Membership, error) {
	if relationshipType == "" {
		relationshipType = "participant"
	}
	m, err := s.repo.Join(ctx, groupID, userID, relationshipType)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("group_id", groupID.String()).
		Str("user_id", userID.String()).
		Str("membership_id", m.ID.String()).
		Int64("paid_amount_cents", m.PaidAmountCents).
		Msg("group joined")
	return m, nil
}

// CancelMembership frees a slot. Only the member or the group administrator
// may cancel.
func (s *Service) CancelMembership(ctx context.Context, membershipID, actorID uuid.UUID, reason string) error {
	m, err := s.repo.GetMembership(ctx, membershipID)
	if err != nil {
		return err
	}
	if m.UserID != actorID {
		g, err := s.repo.GetByID(ctx, m.GroupID)
		if err != nil {
			return err
		}
		if g.AdminID != actorID {
			return ErrNotGroupAdmin
		}
	}

	if err := s.repo.CancelMembership(ctx, membershipID, reason); err != nil {
		return err
	}
	log.Info().
		Str("membership_id", membershipID.String()).
		Str("reason", reason).
		Msg("membership cancelled")
	return nil
}

// ApproveByPlatform opens the platform gate (operator action).
func (s *Service) ApproveByPlatform(ctx context.Context, groupID uuid.UUID) (*Group, error) {
	g, err := s.repo.ApproveByPlatform(ctx, groupID)
	if err != nil {
		return nil, err
	}
	log.Info().Str("group_id", groupID.String()).Str("status", string(g.Status)).Msg("group approved by platform")
	return g, nil
}

// ApproveByOwner opens the owner gate; the group becomes joinable when both
// gates are open.
func (s *Service) ApproveByOwner(ctx context.Context, groupID, userID uuid.UUID) (*Group, error) {
	g, err := s.repo.ApproveByOwner(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	log.Info().Str("group_id", groupID.String()).Str("status", string(g.Status)).Msg("group released by owner")
	return g, nil
}

// Terminate flips the group to its terminal state and cancels the remaining
// active memberships, freeing their slots. Refunds stay a mediation concern.
func (s *Service) Terminate(ctx context.Context, groupID, actorID uuid.UUID, mode, reason string) (*Group, error) {
	g, err := s.repo.Terminate(ctx, groupID, actorID, mode, reason)
	if err != nil {
		return nil, err
	}

	members, err := s.repo.ListMemberships(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.Status != MembershipActive {
			continue
		}
		if err := s.repo.CancelMembership(ctx, m.ID, "group terminated: "+reason); err != nil {
			log.Error().Err(err).Str("membership_id", m.ID.String()).Msg("failed to cancel membership on termination")
		}
	}

	log.Info().Str("group_id", groupID.String()).Str("mode", mode).Msg("group terminated")
	return g, nil
}
