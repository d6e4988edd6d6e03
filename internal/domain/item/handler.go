package item

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/unitrade/unitrade-api/internal/domain/ledger"
	"github.com/unitrade/unitrade-api/internal/middleware"
	"github.com/unitrade/unitrade-api/internal/pkg/response"
	"github.com/unitrade/unitrade-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	it, err := h.svc.CreateListing(r.Context(), userID, req.CampusID, req.Title, req.Description, req.Price)
	if err != nil {
		writeItemError(w, err)
		return
	}

	response.Created(w, it)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid item id")
		return
	}

	it, err := h.svc.Get(r.Context(), itemID)
	if err != nil {
		writeItemError(w, err)
		return
	}

	response.OK(w, it)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	campusID := r.URL.Query().Get("campus_id")
	if campusID == "" {
		response.BadRequest(w, "campus_id is required")
		return
	}

	status := ItemStatus(r.URL.Query().Get("status"))
	if status != "" && validator.ValidateVar(string(status), "item_status") != nil {
		response.BadRequest(w, "invalid status filter")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.svc.ListByCampus(r.Context(), campusID, status, limit, offset)
	if err != nil {
		writeItemError(w, err)
		return
	}

	response.OK(w, items)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.svc.ListMine(r.Context(), userID, limit, offset)
	if err != nil {
		writeItemError(w, err)
		return
	}

	response.OK(w, items)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid item id")
		return
	}

	var req updateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	it, err := h.svc.UpdateListing(r.Context(), userID, itemID, req.Title, req.Description, req.Price)
	if err != nil {
		writeItemError(w, err)
		return
	}

	response.OK(w, it)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid item id")
		return
	}

	isAdmin := middleware.GetRole(r.Context()) == "admin"
	if err := h.svc.Remove(r.Context(), userID, itemID, isAdmin); err != nil {
		writeItemError(w, err)
		return
	}

	response.NoContent(w)
}

func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid item id")
		return
	}

	until, err := h.svc.Reserve(r.Context(), itemID, userID)
	if err != nil {
		writeItemError(w, err)
		return
	}

	response.OK(w, reserveResponse{ReservedUntil: until.Format(time.RFC3339)})
}

func writeItemError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound):
		response.NotFound(w, ErrItemNotFound.Error())
	case errors.Is(err, ErrItemNotAvailable):
		response.BadRequest(w, ErrItemNotAvailable.Error())
	case errors.Is(err, ErrNotOwner):
		response.Forbidden(w, ErrNotOwner.Error())
	case errors.Is(err, ErrInvalidPrice):
		response.BadRequest(w, ErrInvalidPrice.Error())
	case errors.Is(err, ErrStatusImmutable):
		response.BadRequest(w, ErrStatusImmutable.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		response.BadRequest(w, ledger.ErrInsufficientFunds.Error())
	case errors.Is(err, ledger.ErrConcurrentConflict):
		response.Conflict(w, ledger.ErrConcurrentConflict.Error())
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Create)
		r.Get("/mine", h.ListMine)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Remove)
		r.Post("/{id}/reserve", h.Reserve)
	})

	return r
}
