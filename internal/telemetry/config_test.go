package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	assert.Equal(t, DefaultServiceName, cfg.GetServiceName())
	assert.Equal(t, "unknown", cfg.GetServiceVersion())
	assert.Equal(t, DefaultEndpoint, cfg.GetEndpoint())
	assert.False(t, cfg.GetInsecure())
	assert.InDelta(t, DefaultSampling, (&TracingConfig{}).GetSampling(), 0)

	var metrics *MetricsConfig
	assert.Equal(t, MetricsExporterOTLP, metrics.GetExporter())
	assert.Equal(t, MetricsExporterPrometheus, (&MetricsConfig{Exporter: "prometheus"}).GetExporter())

	custom := &Config{ServiceName: "svc", ServiceVersion: "1.2.3", Endpoint: "otel:4318", Insecure: true}
	assert.Equal(t, "svc", custom.GetServiceName())
	assert.Equal(t, "1.2.3", custom.GetServiceVersion())
	assert.Equal(t, "otel:4318", custom.GetEndpoint())
	assert.True(t, custom.GetInsecure())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{name: "nil config", cfg: nil},
		{name: "disabled ignores bad values", cfg: &Config{
			Tracing: &TracingConfig{Enabled: true, Sampling: 5},
		}},
		{name: "valid", cfg: &Config{
			Enabled: true,
			Tracing: &TracingConfig{Enabled: true, Sampling: 0.5},
			Metrics: &MetricsConfig{Enabled: true, Exporter: MetricsExporterPrometheus},
		}},
		{name: "sampling out of range", cfg: &Config{
			Enabled: true,
			Tracing: &TracingConfig{Enabled: true, Sampling: 1.5},
		}, wantErr: "tracing: sampling must be between"},
		{name: "negative sampling", cfg: &Config{
			Enabled: true,
			Tracing: &TracingConfig{Enabled: true, Sampling: -0.1},
		}, wantErr: "sampling must be between"},
		{name: "unknown exporter", cfg: &Config{
			Enabled: true,
			Metrics: &MetricsConfig{Enabled: true, Exporter: "statsd"},
		}, wantErr: "metrics: exporter must be"},
		{name: "disabled metrics ignore exporter", cfg: &Config{
			Enabled: true,
			Metrics: &MetricsConfig{Exporter: "statsd"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
