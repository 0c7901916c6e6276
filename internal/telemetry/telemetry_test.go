package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/uniconnect/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"
)

// saveAndRestoreGlobalProviders snapshots the global OTel providers
// and restores them via t.Cleanup so tests don't leak state.
func saveAndRestoreGlobalProviders(t *testing.T) {
	t.Helper()
	origTP := otel.GetTracerProvider()
	origMP := otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(origTP)
		otel.SetMeterProvider(origMP)
	})
}

func enabledConfig(name string) config.TelemetryConfig {
	return config.TelemetryConfig{
		Enabled:      true,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  name,
		SampleRate:   1.0,
	}
}

func shutdownQuietly(t *testing.T, p *Providers) {
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})
}

func TestInit_Disabled(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	p, err := Init(config.TelemetryConfig{Enabled: false}, "", zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.tp)
	assert.Nil(t, p.mp)

	_, isSDK := p.TracerProvider().(*sdktrace.TracerProvider)
	assert.False(t, isSDK, "disabled telemetry hands out a noop tracer")
}

func TestInit_Enabled(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	p, err := Init(enabledConfig("uniconnect-test"), "1.2.3", zaptest.NewLogger(t))
	require.NoError(t, err)
	shutdownQuietly(t, p)

	assert.True(t, p.Enabled())
	assert.Same(t, p.tp, p.TracerProvider())

	_, tpIsSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	_, mpIsSDK := otel.GetMeterProvider().(*sdkmetric.MeterProvider)
	assert.True(t, tpIsSDK, "global TracerProvider should be the SDK provider")
	assert.True(t, mpIsSDK, "global MeterProvider should be the SDK provider")
}

func TestInit_NilLogger(t *testing.T) {
	saveAndRestoreGlobalProviders(t)
	p, err := Init(config.TelemetryConfig{}, "", nil)
	require.NoError(t, err)
	assert.False(t, p.Enabled())
}

func TestProviders_Nil(t *testing.T) {
	var p *Providers
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.False(t, p.Enabled())
	assert.NotNil(t, p.TracerProvider())
}

func TestProviders_Shutdown_Real(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	p, err := Init(enabledConfig("uniconnect-shutdown-test"), "", zaptest.NewLogger(t))
	require.NoError(t, err)

	// No collector is running; the exporter may report connection errors.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NotPanics(t, func() { _ = p.Shutdown(ctx) })
}

func TestBuildVersion(t *testing.T) {
	assert.Equal(t, "dev", buildVersion())
}
