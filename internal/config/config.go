package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	JWTIssuer   string
	JWTTTL      time.Duration
	CORSOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LoginMaxAttempts int
	LoginLockout     time.Duration

	S3Region        string
	S3Endpoint      string
	S3BucketPrefix  string
	S3PublicBaseURL string
	UploadMaxBytes  int64

	IdentityURL string
	ContentDir  string

	KeepAliveInterval time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:        fallback(os.Getenv("PORT"), "8080"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:   strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:   fallback(os.Getenv("JWT_ISSUER"), "claims-portal"),
		JWTTTL:      minutes("JWT_TTL_MINUTES", 720),
		CORSOrigins: parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),

		RedisAddr:     fallback(os.Getenv("REDIS_ADDR"), "localhost:6379"),
		RedisPassword: strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		RedisDB:       integer("REDIS_DB", 0),

		LoginMaxAttempts: integer("LOGIN_MAX_ATTEMPTS", 5),
		LoginLockout:     minutes("LOGIN_LOCKOUT_MINUTES", 15),

		S3Region:        fallback(os.Getenv("S3_REGION"), "us-east-1"),
		S3Endpoint:      strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		S3BucketPrefix:  strings.TrimSpace(os.Getenv("S3_BUCKET_PREFIX")),
		S3PublicBaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("S3_PUBLIC_BASE_URL")), "/"),
		UploadMaxBytes:  int64(integer("UPLOAD_MAX_MB", 200)) * 1024 * 1024,

		IdentityURL: strings.TrimRight(strings.TrimSpace(os.Getenv("IDENTITY_URL")), "/"),
		ContentDir:  fallback(os.Getenv("CONTENT_DIR"), "content/homepage"),

		KeepAliveInterval: minutes("KEEPALIVE_MINUTES", 10),

		LogLevel:  fallback(os.Getenv("LOG_LEVEL"), "info"),
		LogFormat: fallback(os.Getenv("LOG_FORMAT"), "json"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

// integer returns the positive (or zero) integer value of key, or def when unset or malformed.
func integer(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func minutes(key string, def int) time.Duration {
	m := integer(key, def)
	if m == 0 {
		m = def
	}
	return time.Duration(m) * time.Minute
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
