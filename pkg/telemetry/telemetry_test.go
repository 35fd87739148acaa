package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/abgdnv/smartstock/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func Test_NewTracerProvider(t *testing.T) {
	testCases := []struct {
		name string
		cfg  config.TelemetryConfig
	}{
		{
			name: "disabled",
			cfg:  config.TelemetryConfig{},
		},
		{
			name: "otlp http exporter",
			cfg: config.TelemetryConfig{
				Enabled: true,
				Traces: config.TracesConfig{OtlpHttp: config.OtlpHttpConfig{
					Endpoint: "localhost:4318",
					Insecure: true,
					Timeout:  time.Second,
				}},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			tp, err := NewTracerProvider(context.Background(), "proxy", tc.cfg)
			// then
			require.NoError(t, err)
			assert.Same(t, tp, otel.GetTracerProvider())
			assert.NotEmpty(t, otel.GetTextMapPropagator().Fields())

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			assert.NoError(t, tp.Shutdown(ctx))
		})
	}
}
