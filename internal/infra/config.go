package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	// Identity provider (session verification + usage ledger).
	IdentityIssuer    string
	IdentityJWKSURL   string
	IdentityAPIBase   string
	IdentitySecretKey string

	// LLM completions (OpenAI-compatible surface).
	LLMAPIKey  string
	LLMModel   string
	LLMBaseURL string

	// Image generation.
	ClipDropAPIKey  string
	ClipDropBaseURL string

	// Media store (uploads + AI transforms).
	MediaCloudName string
	MediaAPIKey    string
	MediaAPISecret string
	MediaBaseURL   string

	RedisURL    string
	GeoIPDBPath string

	FreeTierQuota   int
	MaxUploadBytes  int64
	AllowedOrigins  []string
	RateLimitPerMin int

	HTTPReadTimeout       time.Duration
	HTTPReadHeaderTimeout time.Duration
	HTTPWriteTimeout      time.Duration
	HTTPIdleTimeout       time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		IdentityIssuer:    os.Getenv("IDENTITY_ISSUER"),
		IdentityJWKSURL:   os.Getenv("IDENTITY_JWKS_URL"),
		IdentityAPIBase:   getEnv("IDENTITY_API_BASE", "https://api.clerk.com/v1"),
		IdentitySecretKey: os.Getenv("IDENTITY_SECRET_KEY"),

		LLMAPIKey:  os.Getenv("GEMINI_API_KEY"),
		LLMModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		LLMBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai"),

		ClipDropAPIKey:  os.Getenv("CLIPDROP_API_KEY"),
		ClipDropBaseURL: getEnv("CLIPDROP_BASE_URL", "https://clipdrop-api.co"),

		MediaCloudName: os.Getenv("MEDIA_CLOUD_NAME"),
		MediaAPIKey:    os.Getenv("MEDIA_API_KEY"),
		MediaAPISecret: os.Getenv("MEDIA_API_SECRET"),
		MediaBaseURL:   getEnv("MEDIA_BASE_URL", "https://api.cloudinary.com/v1_1"),

		RedisURL:    os.Getenv("REDIS_URL"),
		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),

		FreeTierQuota:   getEnvInt("FREE_TIER_QUOTA", 10),
		MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_BYTES", 5*1024*1024)),
		AllowedOrigins:  splitList(getEnv("ALLOWED_ORIGINS", "*")),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		HTTPReadTimeout:       time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPReadHeaderTimeout: time.Second * time.Duration(getEnvInt("HTTP_READ_HEADER_TIMEOUT_SECONDS", 5)),
		HTTPWriteTimeout:      time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:       time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IdentityIssuer == "" {
		return nil, fmt.Errorf("IDENTITY_ISSUER is required")
	}

	if cfg.IdentitySecretKey == "" {
		return nil, fmt.Errorf("IDENTITY_SECRET_KEY is required")
	}

	if cfg.IdentityJWKSURL == "" {
		cfg.IdentityJWKSURL = strings.TrimRight(cfg.IdentityIssuer, "/") + "/.well-known/jwks.json"
	}

	// NewApp treats a non-positive quota as unset and falls back to the
	// default, so an explicit zero must fail here rather than silently
	// re-enable the free tier.
	if cfg.FreeTierQuota <= 0 {
		return nil, fmt.Errorf("FREE_TIER_QUOTA must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
