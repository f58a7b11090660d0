package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

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

type addCreditsRequest struct {
	AmountCents       int64  `json:"amount_cents" validate:"required,gt=0"`
	Method            string `json:"method" validate:"required,payment_method"`
	ExternalPaymentID string `json:"external_payment_id"`
}

// AddCredits handles POST /wallet/credits. A request carrying an external
// payment id creates a pending entry settled later by the gateway webhook;
// a manual request credits immediately and is restricted to operators.
func (h *Handler) AddCredits(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req addCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	var tr *Transaction
	var err error
	if req.ExternalPaymentID != "" {
		tr, err = h.svc.CreatePending(r.Context(), userID, req.AmountCents, req.Method, req.ExternalPaymentID, "credit purchase")
	} else {
		if req.Method != "manual" || middleware.GetRole(r.Context()) != "operator" {
			response.BadRequest(w, "external_payment_id is required for gateway methods")
			return
		}
		tr, err = h.svc.Credit(r.Context(), userID, req.AmountCents, TxTypeBalanceAdjustment, req.Method, "", "manual balance adjustment")
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(w, "amount_cents must be greater than zero")
		case errors.Is(err, ErrDuplicateExternalID):
			response.Conflict(w, "external_payment_id already recorded")
		default:
			response.InternalError(w)
		}
		return
	}

	balance, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{
		"transaction": tr,
		"new_balance": balance,
	})
}

// Balance handles GET /wallet/balance
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	balance, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"balance_cents": balance})
}

// History handles GET /wallet/transactions
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	items, total, err := h.svc.ListTransactions(r.Context(), userID, Pagination{Limit: limit, Offset: offset})
	if err != nil {
		response.InternalError(w)
		return
	}

	pages := (total + limit - 1) / limit
	page := offset/limit + 1
	response.WithMeta(w, items, response.Meta{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
		HasNext: offset+limit < total,
		HasPrev: offset > 0,
	})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/credits", h.AddCredits)
	r.Get("/balance", h.Balance)
	r.Get("/transactions", h.History)
	return r
}
