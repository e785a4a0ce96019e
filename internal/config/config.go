package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "UmojaBank"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultAccessTTL      = 15 * time.Minute
	defaultRefreshTTL     = 7 * 24 * time.Hour

	defaultMinDeposit       = 100
	defaultMinWithdraw      = 500
	defaultMaxWithdraw      = 20000
	defaultMaxApprovedLoans = 3
	defaultLockTimeout      = 3 * time.Second
	defaultLockRetries      = 2
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	DBMaxConns     int32
	RedisURL       string
	JWTSecret      string
	RefreshSecret  string
	AdminToken     string
	AccessTokenTTL time.Duration
	RefreshTTL     time.Duration
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	// Ledger policy thresholds. Amounts are minor currency units.
	MinDeposit       int64
	MinWithdraw      int64
	MaxWithdraw      int64
	MinTransfer      int64
	MaxTransfer      int64
	MaxApprovedLoans int
	LockTimeout      time.Duration
	LockRetries      int
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		AppEnv:           getEnv("APP_ENV", defaultAppEnv),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		JWTSecret:        getEnv("JWT_SECRET", "dev-access-secret"),
		RefreshSecret:    getEnv("REFRESH_SECRET", "dev-refresh-secret"),
		AdminToken:       os.Getenv("ADMIN_TOKEN"),
		AccessTokenTTL:   defaultAccessTTL,
		RefreshTTL:       defaultRefreshTTL,
		ShutdownPeriod:   defaultShutdownDelay,
		IdempotencyTTL:   defaultIdempotencyTTL,
		MinDeposit:       defaultMinDeposit,
		MinWithdraw:      defaultMinWithdraw,
		MaxWithdraw:      defaultMaxWithdraw,
		MinTransfer:      defaultMinWithdraw,
		MaxTransfer:      defaultMaxWithdraw,
		MaxApprovedLoans: defaultMaxApprovedLoans,
		LockTimeout:      defaultLockTimeout,
		LockRetries:      defaultLockRetries,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL, err = durationEnv("REFRESH_TOKEN_TTL", cfg.RefreshTTL); err != nil {
		return Config{}, err
	}
	if cfg.LockTimeout, err = durationEnv("LEDGER_LOCK_TIMEOUT", cfg.LockTimeout); err != nil {
		return Config{}, err
	}

	if cfg.MinDeposit, err = amountEnv("MIN_DEPOSIT", cfg.MinDeposit); err != nil {
		return Config{}, err
	}
	if cfg.MinWithdraw, err = amountEnv("MIN_WITHDRAW", cfg.MinWithdraw); err != nil {
		return Config{}, err
	}
	if cfg.MaxWithdraw, err = amountEnv("MAX_WITHDRAW", cfg.MaxWithdraw); err != nil {
		return Config{}, err
	}
	if cfg.MinTransfer, err = amountEnv("MIN_TRANSFER", cfg.MinWithdraw); err != nil {
		return Config{}, err
	}
	if cfg.MaxTransfer, err = amountEnv("MAX_TRANSFER", cfg.MaxWithdraw); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid DB_MAX_CONNS: %q", v)
		}
		cfg.DBMaxConns = int32(n)
	}

	if v := os.Getenv("MAX_APPROVED_LOANS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid MAX_APPROVED_LOANS: %q", v)
		}
		cfg.MaxApprovedLoans = n
	}
	if v := os.Getenv("LEDGER_LOCK_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid LEDGER_LOCK_RETRIES: %q", v)
		}
		cfg.LockRetries = n
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_SECONDS: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}

func amountEnv(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	amount, err := strconv.ParseInt(v, 10, 64)
	if err != nil || amount < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return amount, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
