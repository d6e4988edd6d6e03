package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

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

	response.OK(w, balanceResponse{Balance: balance})
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	txns, err := h.svc.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, txns)
}

func (h *Handler) AdminCredit(w http.ResponseWriter, r *http.Request) {
	h.handleAdminAdjust(w, r, h.svc.AdminCredit)
}

func (h *Handler) AdminDebit(w http.ResponseWriter, r *http.Request) {
	h.handleAdminAdjust(w, r, h.svc.AdminDebit)
}

func (h *Handler) handleAdminAdjust(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, adminID, userID uuid.UUID, amount int64, description, idempotencyKey string) (uuid.UUID, error)) {
	adminID := middleware.GetUserID(r.Context())
	if adminID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req adminAdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.BadRequest(w, "invalid user_id")
		return
	}

	txnID, err := fn(r.Context(), adminID, userID, req.Amount, req.Description, req.IdempotencyKey)
	if err != nil {
		writeTransferError(w, err)
		return
	}

	balance, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, transferResponse{TransactionID: txnID.String(), Balance: balance})
}

// writeTransferError maps ledger sentinels to HTTP statuses. Business-rule
// failures carry their message verbatim so clients can render them directly.
func writeTransferError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		response.BadRequest(w, ErrInvalidAmount.Error())
	case errors.Is(err, ErrSelfTransfer):
		response.BadRequest(w, ErrSelfTransfer.Error())
	case errors.Is(err, ErrInsufficientFunds):
		response.BadRequest(w, ErrInsufficientFunds.Error())
	case errors.Is(err, ErrIdempotencyConflict):
		response.Conflict(w, ErrIdempotencyConflict.Error())
	case errors.Is(err, ErrConcurrentConflict):
		response.Conflict(w, ErrConcurrentConflict.Error())
	case errors.Is(err, ErrTransactionNotFound):
		response.NotFound(w, ErrTransactionNotFound.Error())
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/balance", h.Balance)
	r.Get("/transactions", h.Transactions)
	return r
}

func (h *Handler) AdminRoutes(authMiddleware, adminMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(adminMiddleware)
	r.Post("/credit", h.AdminCredit)
	r.Post("/debit", h.AdminDebit)
	return r
}
