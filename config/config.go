package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// RevenueConfig holds the process-wide revenue constants. It is injected
// into the run manager at construction so tests and per-region overrides
// never touch global state.
type RevenueConfig struct {
	// DailyStreamCap bounds how many plays from one user for one song
	// count toward revenue in a single day
	DailyStreamCap int64

	// StreamRateMicrocents is the payout per capped play, in microcents
	// (revenue is floor-divided from microcents to cents)
	StreamRateMicrocents int64

	// SponsorImpressionRateCents is the gross payout per ad impression
	SponsorImpressionRateCents int64

	// SponsorVenueSplitPct is the venue's percentage of sponsorship gross;
	// the platform keeps the remainder
	SponsorVenueSplitPct int

	// MaxRegionRetries bounds per-region attempts during orchestration
	MaxRegionRetries int

	// StaleRunTimeout is how long a run may sit in 'running' before the
	// supervisory sweep flags it as failed
	StaleRunTimeout time.Duration
}

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// Revenue constants with env overrides
	Revenue RevenueConfig

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// DefaultRevenueConfig returns the standard rates and caps.
func DefaultRevenueConfig() RevenueConfig {
	return RevenueConfig{
		DailyStreamCap:             50,
		StreamRateMicrocents:       30000, // 0.30 cents per stream
		SponsorImpressionRateCents: 2,
		SponsorVenueSplitPct:       80,
		MaxRegionRetries:           3,
		StaleRunTimeout:            time.Hour,
	}
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Revenue:     DefaultRevenueConfig(),
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override revenue defaults if environment variables are set
	if cap := os.Getenv("DAILY_STREAM_CAP"); cap != "" {
		if parsed, err := strconv.ParseInt(cap, 10, 64); err == nil {
			config.Revenue.DailyStreamCap = parsed
		}
	}
	if rate := os.Getenv("STREAM_RATE_MICROCENTS"); rate != "" {
		if parsed, err := strconv.ParseInt(rate, 10, 64); err == nil {
			config.Revenue.StreamRateMicrocents = parsed
		}
	}
	if rate := os.Getenv("SPONSOR_IMPRESSION_RATE_CENTS"); rate != "" {
		if parsed, err := strconv.ParseInt(rate, 10, 64); err == nil {
			config.Revenue.SponsorImpressionRateCents = parsed
		}
	}
	if split := os.Getenv("SPONSOR_VENUE_SPLIT_PCT"); split != "" {
		if parsed, err := strconv.Atoi(split); err == nil && parsed >= 0 && parsed <= 100 {
			config.Revenue.SponsorVenueSplitPct = parsed
		}
	}
	if retries := os.Getenv("MAX_REGION_RETRIES"); retries != "" {
		if parsed, err := strconv.Atoi(retries); err == nil && parsed > 0 {
			config.Revenue.MaxRegionRetries = parsed
		}
	}
	if timeout := os.Getenv("STALE_RUN_TIMEOUT"); timeout != "" {
		if parsed, err := time.ParseDuration(timeout); err == nil {
			config.Revenue.StaleRunTimeout = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
