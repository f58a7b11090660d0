package group

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

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

type createGroupRequest struct {
	Name              string `json:"name" validate:"required,min=3,max=120"`
	MaxMembers        int    `json:"max_members" validate:"required,gte=2,lte=50"`
	PricePerSlotCents int64  `json:"price_per_slot_cents" validate:"required,gt=0"`
	AdminFeeCents     int64  `json:"admin_fee_cents" validate:"gte=0"`
}

type joinGroupRequest struct {
	RelationshipType string `json:"relationship_type"`
}

type cancelMembershipRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

type terminateGroupRequest struct {
	Mode   string `json:"mode" validate:"required,oneof=immediate end_of_cycle"`
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	g, err := h.svc.CreateGroup(r.Context(), userID, req.Name, req.MaxMembers, req.PricePerSlotCents, req.AdminFeeCents)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCapacity), errors.Is(err, ErrInvalidPrice):
			response.BadRequest(w, err.Error())
		default:
			response.InternalError(w)
		}
		return
	}
	response.Created(w, g)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.svc.ListJoinable(r.Context(), Pagination{Limit: limit, Offset: offset})
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, items)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid group id")
		return
	}

	g, err := h.svc.GetGroup(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			response.NotFound(w, "group not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, g)
}

// Join handles POST /groups/{id}/join. The slot payment is debited in the
// same atomic unit as the capacity check.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	groupID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid group id")
		return
	}

	var req joinGroupRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON body")
			return
		}
	}

	m, err := h.svc.Join(r.Context(), groupID, userID, req.RelationshipType)
	if err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound):
			response.NotFound(w, "group not found")
		case errors.Is(err, ErrGroupFull):
			response.Conflict(w, "group just filled up")
		case errors.Is(err, ErrGroupNotJoinable):
			response.Conflict(w, "group is not accepting members")
		case errors.Is(err, ErrAlreadyMember):
			response.Conflict(w, "already an active member of this group")
		case errors.Is(err, ledger.ErrInsufficientFunds):
			response.UnprocessableEntity(w, "INSUFFICIENT_FUNDS", "insufficient balance for the slot price")
		default:
			response.InternalError(w)
		}
		return
	}

	g, err := h.svc.GetGroup(r.Context(), groupID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.Created(w, map[string]interface{}{
		"membership":     m,
		"group_full":     g.Status == StatusFull,
		"transaction_id": m.PaymentTransactionID.String(),
	})
}

func (h *Handler) CancelMembership(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	membershipID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid membership id")
		return
	}

	var req cancelMembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	if err := h.svc.CancelMembership(r.Context(), membershipID, userID, req.Reason); err != nil {
		switch {
		case errors.Is(err, ErrMembershipNotFound):
			response.NotFound(w, "membership not found")
		case errors.Is(err, ErrAlreadyCancelled):
			response.Conflict(w, "membership already cancelled")
		case errors.Is(err, ErrNotGroupAdmin):
			response.Forbidden(w, "not allowed to cancel this membership")
		default:
			response.InternalError(w)
		}
		return
	}
	response.NoContent(w)
}

// Approve handles POST /groups/{id}/approve (platform review, operator only)
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid group id")
		return
	}

	g, err := h.svc.ApproveByPlatform(r.Context(), groupID)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	response.OK(w, g)
}

// Release handles POST /groups/{id}/release (owner release)
func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	groupID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid group id")
		return
	}

	g, err := h.svc.ApproveByOwner(r.Context(), groupID, userID)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	response.OK(w, g)
}

// Terminate handles POST /groups/{id}/terminate (owner only, terminal)
func (h *Handler) Terminate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	groupID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid group id")
		return
	}

	var req terminateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	g, err := h.svc.Terminate(r.Context(), groupID, userID, req.Mode, req.Reason)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	response.OK(w, g)
}

func (h *Handler) writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrGroupNotFound):
		response.NotFound(w, "group not found")
	case errors.Is(err, ErrNotGroupAdmin):
		response.Forbidden(w, "only the group administrator may do this")
	case errors.Is(err, ErrPlatformApprovalRequired):
		response.Conflict(w, "platform approval required first")
	case errors.Is(err, ErrGroupTerminated):
		response.Conflict(w, "group is terminated")
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware, operatorMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/join", h.Join)
	r.Post("/{id}/release", h.Release)
	r.Post("/{id}/terminate", h.Terminate)
	r.With(operatorMiddleware).Post("/{id}/approve", h.Approve)
	r.Post("/memberships/{id}/cancel", h.CancelMembership)

	return r
}
