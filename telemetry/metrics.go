package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the engine's cached instruments: step duration, step
// outcome counts, and a request counter tagged by config hash so a
// threshold rollout can be correlated with its effect on throughput.
type Metrics struct {
	stepDuration   metric.Float64Histogram
	stepOutcomes   metric.Int64Counter
	requestsTotal  metric.Int64Counter
}

// NewMetrics builds the instrument set against the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	stepDuration, err := meter.Float64Histogram(
		"triage.step.duration_ms",
		metric.WithDescription("Step execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating step duration histogram: %w", err)
	}

	stepOutcomes, err := meter.Int64Counter(
		"triage.step.outcomes",
		metric.WithDescription("Count of step completions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating step outcome counter: %w", err)
	}

	requestsTotal, err := meter.Int64Counter(
		"triage.requests.total",
		metric.WithDescription("Count of processed requests by config hash"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	return &Metrics{
		stepDuration:  stepDuration,
		stepOutcomes:  stepOutcomes,
		requestsTotal: requestsTotal,
	}, nil
}

// RecordStep records one step's terminal outcome and duration.
func (m *Metrics) RecordStep(ctx context.Context, stepName, outcome string, durationMS float64) {
	if m == nil {
		return
	}
	attrs := attribute.NewSet(
		attribute.String("step", stepName),
		attribute.String("outcome", outcome),
	)
	m.stepDuration.Record(ctx, durationMS, metric.WithAttributeSet(attrs))
	m.stepOutcomes.Add(ctx, 1, metric.WithAttributeSet(attrs))
}

// RecordRequest records one processed request tagged by its bound config
// hash and final partial/complete status.
func (m *Metrics) RecordRequest(ctx context.Context, configHash string, partial bool) {
	if m == nil {
		return
	}
	attrs := attribute.NewSet(
		attribute.String("config_hash", configHash),
		attribute.Bool("partial", partial),
	)
	m.requestsTotal.Add(ctx, 1, metric.WithAttributeSet(attrs))
}
