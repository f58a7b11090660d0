package withdrawal

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/heroncosmo/plano-junto-sub000/internal/domain/ledger"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Withdrawal, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]Withdrawal, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Request earmarks the amount for payout. The debit happens now; a later
// failure credits it back.
func (s *Service) Request(ctx context.Context, userID uuid.UUID, amount int64, pixKey string) (*Withdrawal, error) {
	if amount <= 0 {
		return nil, ledger.ErrInvalidAmount
	}
	pixKey = strings.TrimSpace(pixKey)
	if len(pixKey) < 5 {
		return nil, ErrInvalidPixKey
	}

	w, err := s.repo.Request(ctx, userID, amount, pixKey)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("withdrawal_id", w.ID.String()).
		Str("user_id", userID.String()).
		Int64("amount_cents", amount).
		Msg("withdrawal requested")
	return w, nil
}

// MarkProcessing is called when the payout is handed to the bank.
func (s *Service) MarkProcessing(ctx context.Context, id uuid.UUID) (*Withdrawal, error) {
	return s.repo.MarkProcessing(ctx, id)
}

// MarkCompleted confirms external settlement. Never pays twice.
func (s *Service) MarkCompleted(ctx context.Context, id uuid.UUID) (*Withdrawal, error) {
	w, err := s.repo.MarkCompleted(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Info().Str("withdrawal_id", id.String()).Msg("withdrawal completed")
	return w, nil
}

// MarkFailed records the failure and restores the user's balance.
func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (*Withdrawal, error) {
	w, err := s.repo.MarkFailed(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	log.Warn().Str("withdrawal_id", id.String()).Str("reason", reason).Msg("withdrawal failed, amount credited back")
	return w, nil
}
