package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/imelapp/auth-server/internal/common/constants"
	commonerrors "github.com/imelapp/auth-server/internal/common/errors"
)

type AuthConfig struct {
	HTTPPort        string
	DatabaseURL     string
	JWTSecret       string
	TokenTTL        time.Duration
	LockoutThreshold int
	LockoutDuration time.Duration
	RequestTimeout  time.Duration
	AllowedOrigin   string
	RunMigrations   bool
}

func LoadAuthConfig() (AuthConfig, error) {
	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return AuthConfig{}, err
	}

	if err := validateJWTSecret(jwtSecret); err != nil {
		return AuthConfig{}, err
	}

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return AuthConfig{}, err
	}

	return AuthConfig{
		HTTPPort:         getEnv("AUTH_HTTP_PORT", constants.DefaultHTTPPort),
		DatabaseURL:      databaseURL,
		JWTSecret:        jwtSecret,
		TokenTTL:         getDurationEnv("AUTH_TOKEN_TTL", constants.DefaultTokenTTL),
		LockoutThreshold: getIntEnv("AUTH_LOCKOUT_THRESHOLD", constants.DefaultLockoutThreshold),
		LockoutDuration:  getDurationEnv("AUTH_LOCKOUT_DURATION", constants.DefaultLockoutDuration),
		RequestTimeout:   getDurationEnv("AUTH_REQUEST_TIMEOUT", constants.DefaultRequestTimeout),
		AllowedOrigin:    getEnv("AUTH_ALLOWED_ORIGIN", "*"),
		RunMigrations:    getBoolEnv("AUTH_MIGRATE", false),
	}, nil
}

func validateJWTSecret(secret string) error {
	if len(secret) < constants.JWTSecretMinLength {
		return commonerrors.ErrInvalidJWTSecret.WithMessage(
			fmt.Sprintf("JWT_SECRET must be at least %d bytes, got %d", constants.JWTSecretMinLength, len(secret)),
		)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", commonerrors.ErrMissingRequiredEnv.WithMessage(
			fmt.Sprintf("missing required environment variable: %s", key),
		)
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getIntEnv(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBoolEnv(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
