package purchase

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/unitrade/unitrade-api/internal/domain/item"
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

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	buyerID := middleware.GetUserID(r.Context())
	if buyerID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		response.BadRequest(w, "invalid item id")
		return
	}

	key := req.IdempotencyKey
	if key == "" {
		key = r.Header.Get("X-Idempotency-Key")
	}

	receipt, err := h.svc.Purchase(r.Context(), buyerID, itemID, key)
	if err != nil {
		writePurchaseError(w, err)
		return
	}

	response.OK(w, receipt)
}

func writePurchaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, item.ErrItemNotFound):
		response.NotFound(w, item.ErrItemNotFound.Error())
	case errors.Is(err, item.ErrItemNotAvailable):
		response.BadRequest(w, item.ErrItemNotAvailable.Error())
	case errors.Is(err, ErrSelfPurchase):
		response.BadRequest(w, ErrSelfPurchase.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		response.BadRequest(w, ledger.ErrInsufficientFunds.Error())
	case errors.Is(err, ledger.ErrIdempotencyConflict):
		response.Conflict(w, ledger.ErrIdempotencyConflict.Error())
	case errors.Is(err, ledger.ErrConcurrentConflict):
		response.Conflict(w, ledger.ErrConcurrentConflict.Error())
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Purchase)
	return r
}
