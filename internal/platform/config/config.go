package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "coffer/pkg/platform/strings"
)

// Backend selects the ledger and audit storage implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
	BackendRedis    Backend = "redis"
)

// Server captures process level configuration.
type Server struct {
	Addr           string
	Env            string
	LogLevel       string
	Backend        Backend
	PostgresDSN    string
	RedisAddr      string
	KafkaBrokers   []string
	JWTSigningKey  string
	MinimumBalance uint64
	SweepInterval  time.Duration
	GenesisPath    string
	RateLimit      int
	RateWindow     time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:          envOr("COFFER_ADDR", ":8080"),
		Env:           envOr("COFFER_ENV", "development"),
		LogLevel:      envOr("COFFER_LOG_LEVEL", "info"),
		Backend:       Backend(envOr("COFFER_BACKEND", string(BackendMemory))),
		PostgresDSN:   os.Getenv("COFFER_POSTGRES_DSN"),
		RedisAddr:     os.Getenv("COFFER_REDIS_ADDR"),
		JWTSigningKey: envOr("COFFER_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		GenesisPath:   os.Getenv("COFFER_GENESIS_PATH"),
	}

	switch cfg.Backend {
	case BackendMemory, BackendPostgres, BackendRedis:
	default:
		return Server{}, fmt.Errorf("unknown COFFER_BACKEND %q", cfg.Backend)
	}
	if cfg.Backend == BackendPostgres && cfg.PostgresDSN == "" {
		return Server{}, fmt.Errorf("COFFER_POSTGRES_DSN is required for the postgres backend")
	}
	if cfg.Backend == BackendRedis && cfg.RedisAddr == "" {
		return Server{}, fmt.Errorf("COFFER_REDIS_ADDR is required for the redis backend")
	}

	if brokers := os.Getenv("COFFER_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = platformstrings.DedupeAndTrim(strings.Split(brokers, ","))
	}

	minimum, err := strconv.ParseUint(envOr("COFFER_MINIMUM_BALANCE", "1"), 10, 64)
	if err != nil {
		return Server{}, fmt.Errorf("parse COFFER_MINIMUM_BALANCE: %w", err)
	}
	cfg.MinimumBalance = minimum

	interval, err := time.ParseDuration(envOr("COFFER_SWEEP_INTERVAL", "1m"))
	if err != nil {
		return Server{}, fmt.Errorf("parse COFFER_SWEEP_INTERVAL: %w", err)
	}
	cfg.SweepInterval = interval

	// Zero disables throttling; useful for load tests and demo mode.
	rateLimit, err := strconv.Atoi(envOr("COFFER_RATE_LIMIT", "60"))
	if err != nil || rateLimit < 0 {
		return Server{}, fmt.Errorf("COFFER_RATE_LIMIT must be a non-negative integer")
	}
	cfg.RateLimit = rateLimit

	rateWindow, err := time.ParseDuration(envOr("COFFER_RATE_WINDOW", "1m"))
	if err != nil {
		return Server{}, fmt.Errorf("parse COFFER_RATE_WINDOW: %w", err)
	}
	cfg.RateWindow = rateWindow

	return cfg, nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
