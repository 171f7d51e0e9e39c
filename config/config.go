// Package config loads process configuration from the environment,
// following the teacher's config/config.go pattern: a nested Config
// struct populated by Load(), with getEnv-style helpers providing
// defaults so the demo binary runs with no .env file present.
package config

import (
	"log"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the demo server's configuration.
type Config struct {
	Port        string
	Environment string

	JWT   JWTConfig
	Admin AdminConfig

	Oracle OracleConfig
}

// JWTConfig configures the bearer tokens auth.Service mints. cmd/server
// passes only Secret to auth.NewService; Expiry is loaded but not read,
// and tokens carry a fixed 24-hour lifetime.
type JWTConfig struct {
	Secret string
	Expiry string
}

// AdminConfig configures the demo admin credential auth.Service verifies
// with bcrypt.
type AdminConfig struct {
	Email        string
	PasswordHash string
}

// OracleConfig holds the oracle tick interval. cmd/server has no oracle
// feed loop and does not read it; ticks arrive only through the
// /api/oracle/tick endpoint.
type OracleConfig struct {
	TickIntervalMs int
}

// Load loads a .env file if present (ignoring its absence) and populates
// Config from environment variables, falling back to development
// defaults exactly like the teacher's Load().
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
			Expiry: getEnv("JWT_EXPIRY", "24h"),
		},
		Admin: AdminConfig{
			Email:        getEnv("ADMIN_EMAIL", "admin@example.com"),
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		Oracle: OracleConfig{
			TickIntervalMs: getEnvAsInt("ORACLE_TICK_INTERVAL_MS", 1000),
		},
	}

	if cfg.Environment == "production" && cfg.JWT.Secret == "" {
		log.Println("[config] WARNING: JWT_SECRET not set in production environment")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if v := lookupEnv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	v := lookupEnv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}
