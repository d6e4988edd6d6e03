package ledger_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/unitrade/unitrade-api/internal/domain/ledger"
	"github.com/unitrade/unitrade-api/internal/middleware"
	"github.com/unitrade/unitrade-api/internal/pkg/jwt"
)

type walletAPIResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Balance       int64  `json:"balance"`
		TransactionID string `json:"transaction_id"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestWalletEndpointsIntegration(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	repo := ledger.NewRepository(db)
	svc := ledger.NewService(repo)
	h := ledger.NewHandler(svc)

	userID := uuid.New()

	jwtSvc := jwt.NewService("wallet-integration-secret", time.Hour)
	userToken, err := jwtSvc.GenerateAccessToken(userID, "student")
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	adminToken, err := jwtSvc.GenerateAccessToken(uuid.New(), "admin")
	if err != nil {
		t.Fatalf("generate admin token failed: %v", err)
	}

	authMw := middleware.Auth(jwtSvc)
	r := chi.NewRouter()
	r.Mount("/api/v1/wallet", h.Routes(authMw))
	r.Mount("/api/v1/admin/wallet", h.AdminRoutes(authMw, middleware.RequireAdmin()))

	t.Run("GET /balance initial", func(t *testing.T) {
		resp := performRequest(t, r, userToken, http.MethodGet, "/api/v1/wallet/balance", nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.Code)
		}
		body := decodeResponse(t, resp)
		if !body.Success || body.Data.Balance != 0 {
			t.Fatalf("expected balance=0, got success=%v balance=%d", body.Success, body.Data.Balance)
		}
	})

	t.Run("POST /credit as admin", func(t *testing.T) {
		resp := performRequest(t, r, adminToken, http.MethodPost, "/api/v1/admin/wallet/credit", map[string]interface{}{
			"user_id":         userID.String(),
			"amount":          int64(1000),
			"description":     "event prize",
			"idempotency_key": "credit_1",
		})
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
		}
		body := decodeResponse(t, resp)
		if !body.Success || body.Data.Balance != 1000 {
			t.Fatalf("expected balance=1000, got %d", body.Data.Balance)
		}
	})

	t.Run("POST /credit idempotent retry", func(t *testing.T) {
		resp := performRequest(t, r, adminToken, http.MethodPost, "/api/v1/admin/wallet/credit", map[string]interface{}{
			"user_id":         userID.String(),
			"amount":          int64(1000),
			"description":     "event prize",
			"idempotency_key": "credit_1",
		})
		if resp.Code != http.StatusOK {
			t.Fatalf("retry expected 200, got %d", resp.Code)
		}
		body := decodeResponse(t, resp)
		if body.Data.Balance != 1000 {
			t.Fatalf("idempotent retry moved coins: balance=%d", body.Data.Balance)
		}
	})

	t.Run("POST /debit over balance", func(t *testing.T) {
		resp := performRequest(t, r, adminToken, http.MethodPost, "/api/v1/admin/wallet/debit", map[string]interface{}{
			"user_id":         userID.String(),
			"amount":          int64(5000),
			"description":     "penalty",
			"idempotency_key": "debit_1",
		})
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.Code)
		}
	})

	t.Run("POST /credit as student forbidden", func(t *testing.T) {
		resp := performRequest(t, r, userToken, http.MethodPost, "/api/v1/admin/wallet/credit", map[string]interface{}{
			"user_id":         userID.String(),
			"amount":          int64(10),
			"idempotency_key": "credit_2",
		})
		if resp.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", resp.Code)
		}
	})

	t.Run("GET /transactions", func(t *testing.T) {
		resp := performRequest(t, r, userToken, http.MethodGet, "/api/v1/wallet/transactions", nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.Code)
		}
		var out struct {
			Success bool                 `json:"success"`
			Data    []ledger.Transaction `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if len(out.Data) != 1 {
			t.Fatalf("expected 1 transaction, got %d", len(out.Data))
		}
		if out.Data[0].Type != ledger.TypeAdminCredit {
			t.Fatalf("expected ADMIN_CREDIT, got %s", out.Data[0].Type)
		}
	})

	t.Run("JWT required", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without jwt, got %d", rec.Code)
		}
	})
}

func performRequest(t *testing.T, handler http.Handler, token, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload failed: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) walletAPIResponse {
	t.Helper()
	var out walletAPIResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response failed: %v; body=%s", err, rec.Body.String())
	}
	return out
}
