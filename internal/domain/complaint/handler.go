package complaint

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/heroncosmo/plano-junto-sub000/internal/domain/group"
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

type openComplaintRequest struct {
	GroupID         string `json:"group_id" validate:"required,uuid"`
	ProblemType     string `json:"problem_type" validate:"required,problem_type"`
	Description     string `json:"description" validate:"required,min=10,max=2000"`
	DesiredSolution string `json:"desired_solution" validate:"required,desired_solution"`
}

type respondRequest struct {
	Message string `json:"message" validate:"required,min=1,max=2000"`
}

type mediateRequest struct {
	Message string `json:"message" validate:"required,min=1,max=2000"`
}

type extendDeadlineRequest struct {
	NewDeadline time.Time `json:"new_deadline" validate:"required"`
}

type resolveRequest struct {
	Refund bool `json:"refund"`
}

// Open handles POST /complaints
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req openComplaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}
	groupID, err := uuid.Parse(req.GroupID)
	if err != nil {
		response.BadRequest(w, "invalid group id")
		return
	}

	c, err := h.svc.Open(r.Context(), userID, groupID, req.ProblemType, req.Description, req.DesiredSolution)
	if err != nil {
		var open *AlreadyOpenError
		switch {
		case errors.As(err, &open):
			response.ErrorWithDetails(w, http.StatusConflict, "COMPLAINT_ALREADY_OPEN",
				"an open complaint already exists for this group",
				map[string]string{"complaint_id": open.ExistingID.String()})
		case errors.Is(err, ErrAlreadyOpen):
			response.Conflict(w, "an open complaint already exists for this group")
		case errors.Is(err, ErrNotParticipant):
			response.Forbidden(w, "only active group participants can open a complaint")
		case errors.Is(err, group.ErrGroupNotFound):
			response.NotFound(w, "group not found")
		default:
			response.InternalError(w)
		}
		return
	}
	response.Created(w, c)
}

// ListMine handles GET /complaints
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	items, err := h.svc.ListForUser(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, items)
}

// Get handles GET /complaints/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid complaint id")
		return
	}

	c, err := h.svc.GetForParty(r.Context(), id, userID, h.isOperator(r))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	response.OK(w, c)
}

// Messages handles GET /complaints/{id}/messages
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid complaint id")
		return
	}

	items, err := h.svc.ListMessages(r.Context(), id, userID, h.isOperator(r))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	response.OK(w, items)
}

// Respond handles POST /complaints/{id}/messages
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid complaint id")
		return
	}

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	c, err := h.svc.Respond(r.Context(), id, userID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyMessage):
			response.BadRequest(w, "message must not be empty")
		case errors.Is(err, ErrNotParty):
			response.Forbidden(w, "not a party to this complaint")
		default:
			h.writeLookupError(w, err)
		}
		return
	}
	response.OK(w, c)
}

// Mediate handles POST /complaints/{id}/mediate (operator only)
func (h *Handler) Mediate(w http.ResponseWriter, r *http.Request) {
	mediatorID := middleware.GetUserID(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid complaint id")
		return
	}

	var req mediateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	if err := h.svc.Mediate(r.Context(), id, mediatorID, req.Message); err != nil {
		h.writeLookupError(w, err)
		return
	}
	response.OK(w, map[string]interface{}{"message": "mediation note recorded"})
}

// ExtendDeadline handles POST /complaints/{id}/extend (operator only)
func (h *Handler) ExtendDeadline(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid complaint id")
		return
	}

	var req extendDeadlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	c, err := h.svc.ExtendDeadline(r.Context(), id, req.NewDeadline)
	if err != nil {
		if errors.Is(err, ErrInvalidDeadline) {
			response.BadRequest(w, "new deadline must be in the future")
			return
		}
		h.writeLookupError(w, err)
		return
	}
	response.OK(w, c)
}

// Resolve handles POST /complaints/{id}/resolve (operator only)
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	mediatorID := middleware.GetUserID(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid complaint id")
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	c, err := h.svc.Resolve(r.Context(), id, mediatorID, req.Refund)
	if err != nil {
		if errors.Is(err, ErrNoRefundablePayment) {
			response.UnprocessableEntity(w, "NO_REFUNDABLE_PAYMENT", "no refundable group payment found")
			return
		}
		h.writeLookupError(w, err)
		return
	}
	response.OK(w, c)
}

func (h *Handler) isOperator(r *http.Request) bool {
	return middleware.GetRole(r.Context()) == "operator"
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "complaint not found")
	case errors.Is(err, ErrNotParty):
		response.Forbidden(w, "not a party to this complaint")
	case errors.Is(err, ErrAlreadyResolved):
		response.Conflict(w, "complaint already resolved or closed")
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware, operatorMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/", h.Open)
	r.Get("/", h.ListMine)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/messages", h.Messages)
	r.Post("/{id}/messages", h.Respond)
	r.With(operatorMiddleware).Post("/{id}/mediate", h.Mediate)
	r.With(operatorMiddleware).Post("/{id}/extend", h.ExtendDeadline)
	r.With(operatorMiddleware).Post("/{id}/resolve", h.Resolve)

	return r
}
