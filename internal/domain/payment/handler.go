package payment

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/heroncosmo/plano-junto-sub000/internal/domain/ledger"
	"github.com/heroncosmo/plano-junto-sub000/internal/middleware"
	"github.com/heroncosmo/plano-junto-sub000/internal/pkg/response"
	"github.com/heroncosmo/plano-junto-sub000/internal/pkg/validator"
)

const signatureHeader = "X-Gateway-Signature"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type initiatePaymentRequest struct {
	AmountCents   int64  `json:"amount_cents" validate:"required,gt=0"`
	PaymentMethod string `json:"payment_method" validate:"required,payment_method"`
}

// Initiate handles POST /payments
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req initiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	tr, err := h.svc.Initiate(r.Context(), userID, req.AmountCents, req.PaymentMethod)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidAmount) {
			response.BadRequest(w, "amount_cents must be greater than zero")
			return
		}
		response.InternalError(w)
		return
	}
	response.Created(w, tr)
}

// Webhook handles POST /webhooks/gateway. The body is authenticated with an
// HMAC header, never a user session.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		response.BadRequest(w, "unreadable body")
		return
	}

	if err := h.svc.VerifySignature(body, r.Header.Get(signatureHeader)); err != nil {
		response.Unauthorized(w, "invalid webhook signature")
		return
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	event.RawPayload = body

	tr, err := h.svc.HandleWebhook(r.Context(), event)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingExternalID), errors.Is(err, ErrUnknownStatus):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ledger.ErrAlreadySettled):
			// Replay; acknowledge so the gateway stops retrying
			response.OK(w, map[string]interface{}{"status": "already_settled"})
		case errors.Is(err, ledger.ErrTransactionNotFound):
			response.NotFound(w, "unknown payment")
		default:
			response.InternalError(w)
		}
		return
	}
	if tr == nil {
		response.OK(w, map[string]interface{}{"status": "pending"})
		return
	}
	response.OK(w, map[string]interface{}{"status": string(tr.Status)})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Initiate)
	return r
}

// WebhookRoutes are mounted outside the authenticated API tree.
func (h *Handler) WebhookRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/gateway", h.Webhook)
	return r
}
