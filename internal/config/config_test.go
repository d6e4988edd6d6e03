package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port == "" {
		t.Fatal("expected default port")
	}
	if cfg.PlatformFeeRate != 0.05 {
		t.Fatalf("expected default fee rate 0.05, got %v", cfg.PlatformFeeRate)
	}
	if cfg.ReservationTTL != 5*time.Minute {
		t.Fatalf("expected default reservation TTL 5m, got %v", cfg.ReservationTTL)
	}
	if cfg.SignupBonus != 100 || cfg.FirstPostBonus != 25 || cfg.FirstSaleBonus != 150 || cfg.ReferralBonus != 200 {
		t.Fatalf("unexpected reward defaults: %+v", cfg)
	}
	if len(cfg.AllowedEmailDomains) == 0 {
		t.Fatal("expected a default email domain allow-list")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PLATFORM_FEE_RATE", "0.1")
	t.Setenv("RESERVATION_TTL", "10m")
	t.Setenv("ALLOWED_EMAIL_DOMAINS", "a.edu, b.edu")

	cfg := Load()

	if cfg.PlatformFeeRate != 0.1 {
		t.Fatalf("expected fee rate 0.1, got %v", cfg.PlatformFeeRate)
	}
	if cfg.ReservationTTL != 10*time.Minute {
		t.Fatalf("expected TTL 10m, got %v", cfg.ReservationTTL)
	}
	if len(cfg.AllowedEmailDomains) != 2 || cfg.AllowedEmailDomains[1] != "b.edu" {
		t.Fatalf("expected trimmed two-domain list, got %v", cfg.AllowedEmailDomains)
	}
}

func TestInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("PLATFORM_FEE_RATE", "not-a-number")
	t.Setenv("RESERVATION_TTL", "soon")

	cfg := Load()

	if cfg.PlatformFeeRate != 0.05 {
		t.Fatalf("expected fallback fee rate 0.05, got %v", cfg.PlatformFeeRate)
	}
	if cfg.ReservationTTL != 5*time.Minute {
		t.Fatalf("expected fallback TTL 5m, got %v", cfg.ReservationTTL)
	}
}
