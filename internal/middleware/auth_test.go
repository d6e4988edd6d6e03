package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/unitrade/unitrade-api/internal/middleware"
	"github.com/unitrade/unitrade-api/internal/pkg/jwt"
)

func TestAuthMiddleware(t *testing.T) {
	jwtService := jwt.NewService("test-secret", 15*time.Minute)
	userID := uuid.New()

	token, err := jwtService.GenerateAccessToken(userID, "student")
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}

	var gotUserID uuid.UUID
	var gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = middleware.GetUserID(r.Context())
		gotRole = middleware.GetRole(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := middleware.Auth(jwtService)(next)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Token " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/wallet/balance", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}

	if gotUserID != userID {
		t.Fatalf("expected user %s in context, got %s", userID, gotUserID)
	}
	if gotRole != "student" {
		t.Fatalf("expected role student, got %q", gotRole)
	}
}

func TestRequireAdmin(t *testing.T) {
	jwtService := jwt.NewService("test-secret", 15*time.Minute)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.Auth(jwtService)(middleware.RequireAdmin()(next))

	studentToken, _ := jwtService.GenerateAccessToken(uuid.New(), "student")
	adminToken, _ := jwtService.GenerateAccessToken(uuid.New(), "admin")

	req := httptest.NewRequest(http.MethodPost, "/admin/wallet/credit", nil)
	req.Header.Set("Authorization", "Bearer "+studentToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for student, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/wallet/credit", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
}
