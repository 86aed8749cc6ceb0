// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// GeminiAPIKey authenticates the content generator. Required.
	GeminiAPIKey string
	// GeminiModel names the generator model. Defaults to "gemini-2.5-flash".
	GeminiModel string
	// GeneratorTimeout bounds each generator call. Defaults to 90s.
	GeneratorTimeout time.Duration
	// GeneratorRPS is the outbound request rate to the generator. Defaults to 1.
	GeneratorRPS float64

	GeocoderURL       string
	GeocoderUserAgent string
	// GeocodeTimeout bounds each upstream geocoder call. Defaults to 8s.
	GeocodeTimeout time.Duration

	// RedisURL enables the shared geocode cache when set.
	RedisURL        string
	GeocodeCacheTTL time.Duration

	// ChatRateLimit and ChatRateBurst throttle conversation endpoints per client IP.
	ChatRateLimit float64
	ChatRateBurst int

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64
}

// Load reads configuration from environment variables and returns a Config.
// A .env file in the working directory is loaded first when present; real
// environment variables take precedence over it.
// Returns an error listing any required variables that are not set, and any
// values that cannot be parsed.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var bad []string
	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		CORSOrigins:       splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeneratorTimeout:  getEnvDuration("GENERATOR_TIMEOUT", 90*time.Second, &bad),
		GeneratorRPS:      getEnvFloat("GENERATOR_RPS", 1, &bad),
		GeocoderURL:       getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org/search"),
		GeocoderUserAgent: getEnv("GEOCODER_USER_AGENT", "tripchat/1.0"),
		GeocodeTimeout:    getEnvDuration("GEOCODE_TIMEOUT", 8*time.Second, &bad),
		RedisURL:          os.Getenv("REDIS_URL"),
		GeocodeCacheTTL:   getEnvDuration("GEOCODE_CACHE_TTL", 720*time.Hour, &bad),
		ChatRateLimit:     getEnvFloat("CHAT_RATE_LIMIT", 2, &bad),
		ChatRateBurst:     getEnvInt("CHAT_RATE_BURST", 5, &bad),
		MaxBodyBytes:      int64(getEnvInt("MAX_BODY_BYTES", 1<<20, &bad)),
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if cfg.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if len(bad) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(bad, ", "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt parses key as a positive integer. Unparsable values are appended to bad.
func getEnvInt(key string, fallback int, bad *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		*bad = append(*bad, key)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64, bad *[]string) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		*bad = append(*bad, key)
		return fallback
	}
	return f
}

// getEnvDuration parses key with time.ParseDuration, e.g. "90s" or "2m".
func getEnvDuration(key string, fallback time.Duration, bad *[]string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		*bad = append(*bad, key)
		return fallback
	}
	return d
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
