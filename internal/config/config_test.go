// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadWithEnv(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	for k, v := range env {
		t.Setenv(k, v)
	}
	return LoadConfig()
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadWithEnv(t, map[string]string{
		"DB_URL":           "postgres://localhost/congress",
		"CONGRESS_API_KEY": "test-key",
	})
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "https://api.congress.gov/v3", cfg.CongressAPIBaseURL)
	assert.Equal(t, 118, cfg.TargetCongress)
	assert.Equal(t, 6*time.Hour, cfg.SyncInterval)
	assert.Equal(t, 14, cfg.LookbackWindowDays)
	assert.Equal(t, 250, cfg.PageSize)
	assert.Equal(t, 5000, cfg.HourlyRequestCap)
	assert.Equal(t, 500, cfg.SafetyStopMargin)
	assert.Equal(t, 3, cfg.SyncConcurrency)
	assert.Equal(t, 150*time.Millisecond, cfg.RequestDelay)
	assert.True(t, cfg.RetryEnabled)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 72*time.Hour, cfg.StaleThreshold)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	cfg, err := loadWithEnv(t, map[string]string{
		"DB_URL":           "postgres://localhost/congress",
		"CONGRESS_API_KEY": "test-key",
		"TARGET_CONGRESS":  "119",
		"PAGE_SIZE":        "50",
		"REQUEST_DELAY":    "1s",
		"RETRY_ENABLED":    "false",
	})
	require.NoError(t, err)

	assert.Equal(t, 119, cfg.TargetCongress)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, time.Second, cfg.RequestDelay)
	assert.False(t, cfg.RetryEnabled)
}

func TestLoadConfig_Validation(t *testing.T) {
	cases := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing db url",
			env:     map[string]string{"CONGRESS_API_KEY": "test-key"},
			wantErr: "DB_URL",
		},
		{
			name:    "missing api key",
			env:     map[string]string{"DB_URL": "postgres://localhost/congress"},
			wantErr: "CONGRESS_API_KEY",
		},
		{
			name: "non-positive page size",
			env: map[string]string{
				"DB_URL":           "postgres://localhost/congress",
				"CONGRESS_API_KEY": "test-key",
				"PAGE_SIZE":        "0",
			},
			wantErr: "PAGE_SIZE",
		},
		{
			name: "margin at least the cap",
			env: map[string]string{
				"DB_URL":             "postgres://localhost/congress",
				"CONGRESS_API_KEY":   "test-key",
				"HOURLY_REQUEST_CAP": "100",
				"SAFETY_STOP_MARGIN": "100",
			},
			wantErr: "SAFETY_STOP_MARGIN",
		},
		{
			name: "non-positive concurrency",
			env: map[string]string{
				"DB_URL":           "postgres://localhost/congress",
				"CONGRESS_API_KEY": "test-key",
				"SYNC_CONCURRENCY": "0",
			},
			wantErr: "SYNC_CONCURRENCY",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadWithEnv(t, tc.env)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
