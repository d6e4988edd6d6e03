package reward

import (
	"encoding/json"
	"errors"
	"net/http"

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

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	profile, err := h.svc.GetProfile(r.Context(), userID)
	if err != nil {
		writeRewardError(w, err)
		return
	}

	response.OK(w, profile)
}

func (h *Handler) ReferralCode(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	code, err := h.svc.EnsureReferralCode(r.Context(), userID)
	if err != nil {
		writeRewardError(w, err)
		return
	}

	response.OK(w, referralCodeResponse{ReferralCode: code})
}

// SignupBonus is invoked by the identity provider's post-signup hook, so it
// carries the new account id in the body instead of a bearer token.
func (h *Handler) SignupBonus(w http.ResponseWriter, r *http.Request) {
	var req signupBonusRequest
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

	profile, err := h.svc.SignupBonus(r.Context(), userID, req.Email, req.ReferralCode)
	if err != nil {
		writeRewardError(w, err)
		return
	}

	response.OK(w, profile)
}

func writeRewardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProfileNotFound):
		response.NotFound(w, ErrProfileNotFound.Error())
	case errors.Is(err, ErrInvalidReferralCode):
		response.BadRequest(w, ErrInvalidReferralCode.Error())
	case errors.Is(err, ErrSelfReferral):
		response.BadRequest(w, ErrSelfReferral.Error())
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
	r.Get("/profile", h.Profile)
	r.Post("/referral-code", h.ReferralCode)
	return r
}
