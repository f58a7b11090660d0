package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/heroncosmo/plano-junto-sub000/internal/domain/ledger"
)

// Service bridges the external payment processor and the ledger. Initiation
// records a pending top-up under a fresh external id; the webhook settles it.
// Replayed notifications are absorbed by the ledger's settlement idempotence.
type Service struct {
	ledger        *ledger.Service
	webhookSecret string
	logger        zerolog.Logger
}

func NewService(ledgerSvc *ledger.Service, webhookSecret string, logger zerolog.Logger) *Service {
	return &Service{
		ledger:        ledgerSvc,
		webhookSecret: webhookSecret,
		logger:        logger.With().Str("component", "payment_service").Logger(),
	}
}

// Initiate opens a pending gateway top-up. The returned transaction carries
// the external id the processor must echo back in its webhook.
func (s *Service) Initiate(ctx context.Context, userID uuid.UUID, amountCents int64, method string) (*ledger.Transaction, error) {
	externalID := fmt.Sprintf("pj-%s", uuid.New())
	tr, err := s.ledger.CreatePending(ctx, userID, amountCents, method, externalID, "gateway top-up")
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("external_id", externalID).
		Str("user_id", userID.String()).
		Int64("amount_cents", amountCents).
		Msg("gateway payment initiated")
	return tr, nil
}

// VerifySignature checks the hex HMAC-SHA256 of the raw webhook body.
func (s *Service) VerifySignature(payload []byte, signature string) error {
	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature))) {
		return ErrInvalidSignature
	}
	return nil
}

// HandleWebhook applies one gateway notification. Approved credits the
// pending transaction, rejected finalizes it without credit, pending is a
// no-op. A replay of a settled payment returns the already-final transaction.
func (s *Service) HandleWebhook(ctx context.Context, event WebhookEvent) (*ledger.Transaction, error) {
	if event.ExternalPaymentID == "" {
		return nil, ErrMissingExternalID
	}

	switch event.Status {
	case GatewayPending:
		s.logger.Debug().Str("external_id", event.ExternalPaymentID).Msg("gateway still processing")
		return nil, nil
	case GatewayApproved, GatewayRejected:
	default:
		return nil, ErrUnknownStatus
	}

	tr, err := s.ledger.SettleExternal(ctx, event.ExternalPaymentID, event.Status == GatewayApproved)
	if err != nil {
		if errors.Is(err, ledger.ErrAlreadySettled) {
			s.logger.Warn().Str("external_id", event.ExternalPaymentID).Msg("webhook replay ignored")
			return nil, err
		}
		return nil, err
	}

	s.logger.Info().
		Str("external_id", event.ExternalPaymentID).
		Str("status", string(event.Status)).
		Msg("gateway webhook settled")
	return tr, nil
}
