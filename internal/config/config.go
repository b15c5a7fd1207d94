// Package config loads the service configuration from the environment. The
// resulting Config is an immutable value handed to constructors; nothing in
// the service reads the environment after startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/kkin1995/bmtc-transit-app/internal/learning"
)

// ServerVersion is reported by /v1/config and the X-API-Version header.
const ServerVersion = "0.2.0"

// Config is the full application configuration.
type Config struct {
	Port   string
	DBPath string

	// Auth
	APIKey     string
	HMACSecret string // optional, enables JWT bearer tokens

	// Learning engine tuning
	Learning           learning.Params
	MaxSegmentsPerRide int

	// Request plumbing
	RateLimitEnabled bool
	RateLimitPerHour int
	IdempotencyTTL   time.Duration

	// Fixed reference timezone for time-bin resolution
	Location *time.Location
}

// Load reads configuration from the environment, with a .env file as
// fallback. All variables use the BMTC_ prefix.
func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getenvDefault("BMTC_PORT", ":8080"),
		DBPath:             getenvDefault("BMTC_DB_PATH", "./data/bmtc.db"),
		APIKey:             os.Getenv("BMTC_API_KEY"),
		HMACSecret:         os.Getenv("BMTC_HMAC_SECRET_KEY"),
		Learning:           learning.DefaultParams,
		MaxSegmentsPerRide: 50,
		RateLimitEnabled:   true,
		RateLimitPerHour:   500,
		IdempotencyTTL:     24 * time.Hour,
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("BMTC_API_KEY must be set")
	}

	var err error
	if cfg.Learning.N0, err = getenvInt("BMTC_N0", cfg.Learning.N0); err != nil {
		return nil, err
	}
	if cfg.Learning.BaseAlpha, err = getenvFloat("BMTC_EMA_ALPHA", cfg.Learning.BaseAlpha); err != nil {
		return nil, err
	}
	if cfg.Learning.HalfLifeDays, err = getenvInt("BMTC_HALF_LIFE_DAYS", cfg.Learning.HalfLifeDays); err != nil {
		return nil, err
	}
	if cfg.Learning.OutlierSigma, err = getenvFloat("BMTC_OUTLIER_SIGMA", cfg.Learning.OutlierSigma); err != nil {
		return nil, err
	}
	if cfg.Learning.MapmatchMinConf, err = getenvFloat("BMTC_MAPMATCH_MIN_CONF", cfg.Learning.MapmatchMinConf); err != nil {
		return nil, err
	}
	if cfg.Learning.StaleThresholdDays, err = getenvInt("BMTC_STALE_THRESHOLD_DAYS", cfg.Learning.StaleThresholdDays); err != nil {
		return nil, err
	}
	if cfg.MaxSegmentsPerRide, err = getenvInt("BMTC_MAX_SEGMENTS_PER_RIDE", cfg.MaxSegmentsPerRide); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerHour, err = getenvInt("BMTC_RATE_LIMIT_PER_HOUR", cfg.RateLimitPerHour); err != nil {
		return nil, err
	}

	if v := os.Getenv("BMTC_RATE_LIMIT_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BMTC_RATE_LIMIT_ENABLED: %q", v)
		}
		cfg.RateLimitEnabled = b
	}

	if v, err := getenvInt("BMTC_IDEMPOTENCY_TTL_HOURS", 24); err != nil {
		return nil, err
	} else {
		cfg.IdempotencyTTL = time.Duration(v) * time.Hour
	}

	// Reference timezone: bin resolution must be server-authoritative, so a
	// concrete zone is always loaded rather than trusting time.Local.
	tzName := getenvDefault("BMTC_TZ", "Asia/Kolkata")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid BMTC_TZ: %w", err)
	}
	cfg.Location = loc

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return n, nil
}

func getenvFloat(k string, def float64) (float64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return f, nil
}
