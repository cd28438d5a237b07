package telemetry

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

func TestNewMeterProvider_Disabled(t *testing.T) {
	t.Parallel()

	for _, mc := range []*MetricsConfig{nil, {Enabled: false}} {
		mp, err := newMeterProvider(context.Background(), &Config{Enabled: true, Metrics: mc}, resource.Empty(), nil)
		require.NoError(t, err)
		assert.IsType(t, noop.MeterProvider{}, mp)
	}
}

func TestNewMeterProvider_OTLP(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Enabled:  true,
		Endpoint: "localhost:4318",
		Insecure: true,
		Metrics:  &MetricsConfig{Enabled: true},
	}
	mp, err := newMeterProvider(context.Background(), cfg, resource.Empty(), nil)
	require.NoError(t, err)
	sdkMP, ok := mp.(*sdkmetric.MeterProvider)
	require.True(t, ok)
	_ = sdkMP.Shutdown(context.Background())
}

func TestNewMeterProvider_Prometheus(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	cfg := &Config{
		Enabled: true,
		Metrics: &MetricsConfig{Enabled: true, Exporter: MetricsExporterPrometheus},
	}
	mp, err := newMeterProvider(context.Background(), cfg, resource.Empty(), registry)
	require.NoError(t, err)
	sdkMP, ok := mp.(*sdkmetric.MeterProvider)
	require.True(t, ok)
	defer func() { _ = sdkMP.Shutdown(context.Background()) }()

	metrics, err := NewSyncMetrics(mp)
	require.NoError(t, err)
	metrics.RecordRetry(context.Background())

	families, err := registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "fitsync_sync_retries_total")
}
