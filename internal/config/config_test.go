package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/umoja")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.AppEnv != "development" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MinDeposit != 100 || cfg.MinWithdraw != 500 || cfg.MaxWithdraw != 20000 {
		t.Fatalf("unexpected policy defaults: %+v", cfg)
	}
	if cfg.MaxApprovedLoans != 3 {
		t.Fatalf("MaxApprovedLoans = %d, want 3", cfg.MaxApprovedLoans)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestLoadRequiresRedisURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/umoja")
	t.Setenv("REDIS_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without REDIS_URL")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("MIN_DEPOSIT", "250")
	t.Setenv("MAX_APPROVED_LOANS", "5")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "30")
	t.Setenv("LEDGER_LOCK_TIMEOUT", "500ms")
	t.Setenv("DB_MAX_CONNS", "12")
	t.Setenv("ADMIN_TOKEN", "ops-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MinDeposit != 250 {
		t.Fatalf("MinDeposit = %d, want 250", cfg.MinDeposit)
	}
	if cfg.MaxApprovedLoans != 5 {
		t.Fatalf("MaxApprovedLoans = %d, want 5", cfg.MaxApprovedLoans)
	}
	if cfg.ShutdownPeriod != 30*time.Second {
		t.Fatalf("ShutdownPeriod = %s, want 30s", cfg.ShutdownPeriod)
	}
	if cfg.LockTimeout != 500*time.Millisecond {
		t.Fatalf("LockTimeout = %s, want 500ms", cfg.LockTimeout)
	}
	if cfg.DBMaxConns != 12 {
		t.Fatalf("DBMaxConns = %d, want 12", cfg.DBMaxConns)
	}
	if cfg.AdminToken != "ops-secret" {
		t.Fatalf("AdminToken = %q", cfg.AdminToken)
	}
}

func TestAdminTokenDefaultsEmpty(t *testing.T) {
	setRequired(t)
	t.Setenv("ADMIN_TOKEN", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AdminToken != "" {
		t.Fatalf("AdminToken must default to disabled, got %q", cfg.AdminToken)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	setRequired(t)
	t.Setenv("MIN_DEPOSIT", "lots")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed MIN_DEPOSIT")
	}
}

func TestAddress(t *testing.T) {
	if got := (Config{Port: "8080"}).Address(); got != ":8080" {
		t.Fatalf("Address() = %s", got)
	}
	if got := (Config{Port: ":9090"}).Address(); got != ":9090" {
		t.Fatalf("Address() = %s", got)
	}
}
