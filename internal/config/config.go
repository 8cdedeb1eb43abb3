// internal/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	DBURL              string        `mapstructure:"DB_URL"`
	HTTPAddr           string        `mapstructure:"HTTP_ADDR"`
	CongressAPIKey     string        `mapstructure:"CONGRESS_API_KEY"`
	CongressAPIBaseURL string        `mapstructure:"CONGRESS_API_BASE_URL"`
	TargetCongress     int           `mapstructure:"TARGET_CONGRESS"`
	SyncInterval       time.Duration `mapstructure:"SYNC_INTERVAL"`
	LookbackWindowDays int           `mapstructure:"LOOKBACK_WINDOW_DAYS"`
	PageSize           int           `mapstructure:"PAGE_SIZE"`
	HourlyRequestCap   int           `mapstructure:"HOURLY_REQUEST_CAP"`
	SafetyStopMargin   int           `mapstructure:"SAFETY_STOP_MARGIN"`
	SyncConcurrency    int           `mapstructure:"SYNC_CONCURRENCY"`
	RequestDelay       time.Duration `mapstructure:"REQUEST_DELAY"`
	RetryEnabled       bool          `mapstructure:"RETRY_ENABLED"`
	MaxRetries         int           `mapstructure:"MAX_RETRIES"`
	StaleThreshold     time.Duration `mapstructure:"STALE_THRESHOLD"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	// Set default values
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("CONGRESS_API_BASE_URL", "https://api.congress.gov/v3")
	viper.SetDefault("TARGET_CONGRESS", 118)
	viper.SetDefault("SYNC_INTERVAL", "6h")
	viper.SetDefault("LOOKBACK_WINDOW_DAYS", 14)
	viper.SetDefault("PAGE_SIZE", 250)
	viper.SetDefault("HOURLY_REQUEST_CAP", 5000)
	viper.SetDefault("SAFETY_STOP_MARGIN", 500)
	viper.SetDefault("SYNC_CONCURRENCY", 3)
	viper.SetDefault("REQUEST_DELAY", "150ms")
	viper.SetDefault("RETRY_ENABLED", true)
	viper.SetDefault("MAX_RETRIES", 2)
	viper.SetDefault("STALE_THRESHOLD", "72h")

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Required keys have no defaults, so Unmarshal only sees their env
	// values once they are bound.
	_ = viper.BindEnv("DB_URL")
	_ = viper.BindEnv("CONGRESS_API_KEY")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if cfg.CongressAPIKey == "" {
		return nil, errors.New("CONGRESS_API_KEY is a required configuration field")
	}
	if cfg.PageSize <= 0 {
		return nil, errors.New("PAGE_SIZE must be positive")
	}
	if cfg.HourlyRequestCap <= 0 {
		return nil, errors.New("HOURLY_REQUEST_CAP must be positive")
	}
	if cfg.SafetyStopMargin < 0 || cfg.SafetyStopMargin >= cfg.HourlyRequestCap {
		return nil, errors.New("SAFETY_STOP_MARGIN must be non-negative and below HOURLY_REQUEST_CAP")
	}
	if cfg.SyncConcurrency <= 0 {
		return nil, errors.New("SYNC_CONCURRENCY must be positive")
	}

	return &cfg, nil
}
