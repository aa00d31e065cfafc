package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string

	APIBaseURL string        // LMS REST backend, e.g. https://lms.example.com/api
	APITimeout time.Duration // per request

	DBDriver string // sqlite|postgres
	DBDSN    string

	CORSOrigins []string

	EnableJournal bool

	// Optional: verify bearer tokens locally before forwarding them.
	AuthHMACSecret string

	// Optional: encrypt the stored session at rest.
	SessionKey string

	// Service mode (client credentials instead of a user session).
	ClientID     string
	ClientSecret string
	TokenURL     string
}

func FromEnv() Config {
	return Config{
		HTTPAddr:       envOr("HTTP_ADDR", ":8090"),
		APIBaseURL:     strings.TrimSuffix(envOr("LMS_API_URL", "http://localhost:8080/api"), "/"),
		APITimeout:     envDuration("LMS_API_TIMEOUT", 15*time.Second),
		DBDriver:       envOr("DB_DRIVER", "sqlite"),
		DBDSN:          envOr("DB_DSN", ""),
		CORSOrigins:    csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		EnableJournal:  envBool("ENABLE_JOURNAL", true),
		AuthHMACSecret: os.Getenv("AUTH_HMAC_SECRET"),
		SessionKey:     os.Getenv("SESSION_KEY"),
		ClientID:       os.Getenv("LMS_CLIENT_ID"),
		ClientSecret:   os.Getenv("LMS_CLIENT_SECRET"),
		TokenURL:       os.Getenv("LMS_TOKEN_URL"),
	}
}

// ServiceMode reports whether client credentials are fully configured.
func (c Config) ServiceMode() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.TokenURL != ""
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	// bare integers are seconds
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
