package config

import (
	"testing"
	"time"

	"github.com/BaSui01/uniconnect/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- DefaultConfig aggregate ---

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.NotEqual(t, LogConfig{}, cfg.Log)
	assert.NotEqual(t, RetryConfig{}, cfg.Retry)
	assert.NotEqual(t, HTTPConfig{}, cfg.HTTP)
	assert.NotEqual(t, MetricsConfig{}, cfg.Metrics)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
	assert.NotEqual(t, ScanConfig{}, cfg.Scan)
	assert.NoError(t, cfg.Validate())
}

// --- Individual Default*Config functions ---

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)
}

func TestDefaultRetryConfig_MatchesPolicy(t *testing.T) {
	p, err := DefaultRetryConfig().Policy()
	require.NoError(t, err)
	assert.Equal(t, retry.DefaultPolicy(), p)
}

func TestDefaultHTTPConfig(t *testing.T) {
	cfg := DefaultHTTPConfig()
	assert.Zero(t, cfg.Timeout)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
}

func TestDefaultMetricsAndTelemetry(t *testing.T) {
	m := DefaultMetricsConfig()
	assert.False(t, m.Enabled)
	assert.Equal(t, "uniconnect", m.Namespace)
	assert.Empty(t, m.TextfilePath)

	tel := DefaultTelemetryConfig()
	assert.False(t, tel.Enabled)
	assert.Equal(t, "localhost:4317", tel.OTLPEndpoint)
	assert.Equal(t, "uniconnect", tel.ServiceName)
	assert.InDelta(t, 0.1, tel.SampleRate, 0.001)
}

func TestDefaultScanConfig(t *testing.T) {
	cfg := DefaultScanConfig()
	assert.Zero(t, cfg.RatePerSecond)
	assert.Equal(t, 1, cfg.Burst)
	assert.Empty(t, cfg.ResultsDB)
	assert.Zero(t, cfg.Seed)
}
