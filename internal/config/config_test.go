package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("MANAGER_PIN", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.ManagerPIN != "" {
		t.Fatalf("expected empty MANAGER_PIN when unset, got %q", cfg.ManagerPIN)
	}
}

func TestLoadFallsBackOnBadNumbers(t *testing.T) {
	t.Setenv("FORECAST_LOOKBACK_DAYS", "zero")
	t.Setenv("FORECAST_THRESHOLD_DAYS", "-3")
	t.Setenv("LOYALTY_POINTS_PER_RUFIYAA", "0")
	t.Setenv("STATEMENT_DUE_DAY", "31")

	cfg := Load()
	if cfg.ForecastLookbackDays != 14 {
		t.Fatalf("expected lookback fallback 14, got %d", cfg.ForecastLookbackDays)
	}
	if cfg.ForecastThresholdDays != 7 {
		t.Fatalf("expected threshold fallback 7, got %v", cfg.ForecastThresholdDays)
	}
	if cfg.LoyaltyPointsPerRufiyaa != 1 {
		t.Fatalf("expected points fallback 1, got %d", cfg.LoyaltyPointsPerRufiyaa)
	}
	if cfg.StatementDueDay != 28 {
		t.Fatalf("expected due day clamp 28, got %d", cfg.StatementDueDay)
	}
}

func TestLoadParsesLoyaltyToggle(t *testing.T) {
	t.Setenv("LOYALTY_ENABLED", "false")
	if cfg := Load(); cfg.LoyaltyEnabled {
		t.Fatalf("expected loyalty disabled")
	}
	t.Setenv("LOYALTY_ENABLED", "not-a-bool")
	if cfg := Load(); !cfg.LoyaltyEnabled {
		t.Fatalf("expected fallback true on malformed value")
	}
}
