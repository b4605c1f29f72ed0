package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"portfolio/internal/storage"
)

const (
	defaultAddr      = ":8080"
	defaultJWTTTL    = "24h"
	defaultJWTSecret = "change-me-jwt-secret"
)

// Config is the full runtime configuration, assembled once at startup and
// injected everywhere. Storage settings are hard-required: the pipeline is
// useless without a backend, so a missing value stops the process before it
// serves traffic.
type Config struct {
	Addr        string
	DatabaseURL string

	JWTSecret string
	JWTTTL    time.Duration

	AdminEmail        string
	AdminPasswordHash string // bcrypt

	Storage storage.Config

	// Workers bounds the pipeline pool; 0 means NumCPU.
	Workers int
}

func Load() (*Config, error) {
	cfg := &Config{
		Addr:        getEnv("ADDR", defaultAddr),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:   strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret)),

		AdminEmail:        strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		AdminPasswordHash: strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH")),

		Storage: storage.Config{
			Endpoint:      strings.TrimSpace(os.Getenv("STORAGE_ENDPOINT")),
			Region:        strings.TrimSpace(os.Getenv("STORAGE_REGION")),
			AccessKey:     strings.TrimSpace(os.Getenv("STORAGE_ACCESS_KEY")),
			SecretKey:     strings.TrimSpace(os.Getenv("STORAGE_SECRET_KEY")),
			Bucket:        strings.TrimSpace(os.Getenv("STORAGE_BUCKET")),
			UseSSL:        !strings.EqualFold(os.Getenv("STORAGE_USE_SSL"), "false"),
			PublicBaseURL: strings.TrimSpace(os.Getenv("STORAGE_PUBLIC_URL")),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	ttl, err := time.ParseDuration(getEnv("JWT_TTL", defaultJWTTTL))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	cfg.JWTTTL = ttl

	if raw := os.Getenv("PIPELINE_WORKERS"); raw != "" {
		workers, err := strconv.Atoi(raw)
		if err != nil || workers < 0 {
			return nil, fmt.Errorf("invalid PIPELINE_WORKERS: %q", raw)
		}
		cfg.Workers = workers
	}

	if err := cfg.Storage.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
