package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.GetBalance(ctx, userID)
}

func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, p Pagination) ([]Transaction, int, error) {
	items, err := s.repo.ListTransactions(ctx, userID, p)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountTransactions(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Credit appends a completed credit entry and raises the balance.
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amount int64, txType TransactionType, method, referenceID, description string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	tr, err := s.repo.Credit(ctx, userID, amount, txType, method, referenceID, description)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("user_id", userID.String()).
		Int64("amount_cents", amount).
		Str("type", string(txType)).
		Msg("ledger credit applied")
	return tr, nil
}

// Debit atomically checks and lowers the balance.
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, amount int64, txType TransactionType, referenceID, description string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	tr, err := s.repo.Debit(ctx, userID, amount, txType, referenceID, description)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("user_id", userID.String()).
		Int64("amount_cents", amount).
		Str("type", string(txType)).
		Msg("ledger debit applied")
	return tr, nil
}

// Reverse appends a compensating entry for a completed transaction.
func (s *Service) Reverse(ctx context.Context, transactionID uuid.UUID, description string) (*Transaction, error) {
	tr, err := s.repo.Reverse(ctx, transactionID, description)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("transaction_id", transactionID.String()).
		Str("compensating_id", tr.ID.String()).
		Msg("ledger entry reversed")
	return tr, nil
}

// CreatePending records a gateway top-up awaiting settlement.
func (s *Service) CreatePending(ctx context.Context, userID uuid.UUID, amount int64, method, externalID, description string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.repo.CreatePending(ctx, userID, amount, TxTypeCreditPurchase, method, externalID, description)
}

// SettleExternal finalizes a pending gateway top-up.
func (s *Service) SettleExternal(ctx context.Context, externalID string, approved bool) (*Transaction, error) {
	tr, err := s.repo.SettleByExternalID(ctx, externalID, approved)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("external_id", externalID).
		Bool("approved", approved).
		Str("status", string(tr.Status)).
		Msg("gateway settlement applied")
	return tr, nil
}
