package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.ExchangeRateTTL != time.Hour {
			t.Errorf("expected 1h exchange rate TTL, got %v", cfg.ExchangeRateTTL)
		}
		if cfg.RetryAttempts != 3 {
			t.Errorf("expected 3 retry attempts, got %d", cfg.RetryAttempts)
		}
		if cfg.ReportingTimezone != "America/Los_Angeles" {
			t.Errorf("unexpected reporting timezone %q", cfg.ReportingTimezone)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("EXCHANGE_RATE_TTL", "15m")
		t.Setenv("RETRY_ATTEMPTS", "5")
		t.Setenv("DB_NAME", "ledger")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.ExchangeRateTTL != 15*time.Minute {
			t.Errorf("expected 15m, got %v", cfg.ExchangeRateTTL)
		}
		if cfg.RetryAttempts != 5 {
			t.Errorf("expected 5 attempts, got %d", cfg.RetryAttempts)
		}
		if cfg.DBName != "ledger" {
			t.Errorf("expected DB name ledger, got %q", cfg.DBName)
		}
	})

	t.Run("invalid_duration", func(t *testing.T) {
		t.Setenv("REQUEST_TIMEOUT", "soon")
		if _, err := Load(); err == nil {
			t.Fatal("expected error for invalid REQUEST_TIMEOUT")
		}
	})

	t.Run("invalid_attempts", func(t *testing.T) {
		t.Setenv("RETRY_ATTEMPTS", "0")
		if _, err := Load(); err == nil {
			t.Fatal("expected error for zero RETRY_ATTEMPTS")
		}
	})

	t.Run("invalid_timezone", func(t *testing.T) {
		t.Setenv("REPORTING_TIMEZONE", "Mars/Olympus")
		if _, err := Load(); err == nil {
			t.Fatal("expected error for unknown timezone")
		}
	})
}
