package withdrawal

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/heroncosmo/plano-junto-sub000/internal/domain/ledger"
	"github.com/heroncosmo/plano-junto-sub000/internal/middleware"
	"github.com/heroncosmo/plano-junto-sub000/internal/pkg/response"
	"github.com/heroncosmo/plano-junto-sub000/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type requestWithdrawalRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	PixKey      string `json:"pix_key" validate:"required,pix_key"`
}

type failWithdrawalRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// Request handles POST /withdrawals
func (h *Handler) Request(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req requestWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	wd, err := h.svc.Request(r.Context(), userID, req.AmountCents, req.PixKey)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			response.BadRequest(w, "amount_cents must be greater than zero")
		case errors.Is(err, ErrInvalidPixKey):
			response.BadRequest(w, "invalid pix key")
		case errors.Is(err, ledger.ErrInsufficientFunds):
			response.UnprocessableEntity(w, "INSUFFICIENT_FUNDS", "insufficient balance for withdrawal")
		default:
			response.InternalError(w)
		}
		return
	}
	response.Created(w, wd)
}

// ListMine handles GET /withdrawals
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	items, err := h.svc.ListByUser(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, items)
}

// Settle handles POST /withdrawals/{id}/settle (operator only)
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid withdrawal id")
		return
	}

	wd, err := h.svc.MarkCompleted(r.Context(), id)
	if err != nil {
		h.writeSettlementError(w, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"withdrawal": wd,
		"message":    "withdrawal settled",
	})
}

// MarkProcessing handles POST /withdrawals/{id}/processing (operator only)
func (h *Handler) MarkProcessing(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid withdrawal id")
		return
	}

	wd, err := h.svc.MarkProcessing(r.Context(), id)
	if err != nil {
		h.writeSettlementError(w, err)
		return
	}
	response.OK(w, wd)
}

// Fail handles POST /withdrawals/{id}/fail (operator only)
func (h *Handler) Fail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid withdrawal id")
		return
	}

	var req failWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	wd, err := h.svc.MarkFailed(r.Context(), id, req.Reason)
	if err != nil {
		h.writeSettlementError(w, err)
		return
	}
	response.OK(w, wd)
}

func (h *Handler) writeSettlementError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "withdrawal not found")
	case errors.Is(err, ErrAlreadySettled):
		response.Conflict(w, "withdrawal already settled")
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware, operatorMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/", h.Request)
	r.Get("/", h.ListMine)
	r.With(operatorMiddleware).Post("/{id}/processing", h.MarkProcessing)
	r.With(operatorMiddleware).Post("/{id}/settle", h.Settle)
	r.With(operatorMiddleware).Post("/{id}/fail", h.Fail)

	return r
}
