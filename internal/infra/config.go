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
	AppEnv        string
	Port          string
	DatabaseURL   string
	JWTSecret     string
	StoragePath   string
	GeoIPDBPath   string
	DefaultLocale string

	EnhancerEndpoint string
	EnhancerAPIKey   string

	Milestones    []int
	StepDelay     time.Duration
	StallWindow   time.Duration
	SweepInterval time.Duration

	RateLimitPerMin    int
	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:      getEnv("DEFAULT_LOCALE", "en"),
		EnhancerEndpoint:   os.Getenv("ENHANCER_ENDPOINT"),
		EnhancerAPIKey:     os.Getenv("ENHANCER_API_KEY"),
		StepDelay:          time.Millisecond * time.Duration(getEnvInt("PROCESSING_STEP_DELAY_MS", 1000)),
		StallWindow:        time.Second * time.Duration(getEnvInt("STALL_WINDOW_SECONDS", 300)),
		SweepInterval:      time.Second * time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	milestones, err := parseMilestones(os.Getenv("PROCESSING_MILESTONES"))
	if err != nil {
		return nil, err
	}
	cfg.Milestones = milestones

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// parseMilestones parses a comma-separated list of progress checkpoints.
// Values must be ascending and within (10, 100]; empty input defers to the
// pipeline defaults.
func parseMilestones(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	milestones := make([]int, 0, len(parts))
	prev := 10
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("PROCESSING_MILESTONES: invalid value %q", part)
		}
		if v <= prev || v > 100 {
			return nil, fmt.Errorf("PROCESSING_MILESTONES: values must be ascending within (10, 100], got %d", v)
		}
		milestones = append(milestones, v)
		prev = v
	}
	return milestones, nil
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

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
