package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMetricsRecordStepEmitsDurationAndOutcome(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	m, err := NewMetrics(meter)
	require.NoError(t, err)

	m.RecordStep(context.Background(), "VALIDATE", "OK", 12.5)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.NotEmpty(t, rm.ScopeMetrics)

	var names []string
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			names = append(names, metric.Name)
		}
	}
	require.Contains(t, names, "triage.step.duration_ms")
	require.Contains(t, names, "triage.step.outcomes")
}

func TestMetricsRecordRequestEmitsRequestCounter(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	m, err := NewMetrics(meter)
	require.NoError(t, err)

	m.RecordRequest(context.Background(), "abc123", false)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name == "triage.requests.total" {
				found = true
			}
		}
	}
	require.True(t, found, "expected triage.requests.total to have been recorded")
}

func TestMetricsRecordStepOnNilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordStep(context.Background(), "VALIDATE", "OK", 1)
	m.RecordRequest(context.Background(), "hash", true)
}
