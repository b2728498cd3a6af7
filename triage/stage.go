package triage

import (
	"context"
	"time"

	"github.com/tanishka786/triage-orchestrator/core"
)

// Stage adapts the pure Assess function to the core.Stage contract so the
// orchestrator can schedule TRIAGE like any other step. It reads
// detections left behind by whichever detector(s) ran and the request's
// (already-redacted) symptoms text.
type Stage struct{}

// NewStage constructs the TRIAGE stage handler.
func NewStage() *Stage { return &Stage{} }

// Run implements core.Stage. It never returns an error:
// the kernel always produces a result, even the AMBER fallback, so TRIAGE
// has no error_kind of its own to surface.
func (s *Stage) Run(ctx context.Context, request *core.ProcessingRequest, graph core.StepGraphView, policy core.PolicyView, deadline time.Time) (*core.StageResult, error) {
	detections := collectDetections(graph)
	thresholds := ThresholdsFromPolicy(policy)

	result := Assess(detections, request.Symptoms, thresholds)

	confidence := result.Confidence
	return &core.StageResult{
		Confidence: &confidence,
		Extras: map[string]interface{}{
			"level":     result.Level,
			"rationale": result.Rationale,
			"score":     result.Score,
			"method":    result.Method,
			"partial":   result.Partial,
		},
	}, nil
}

// collectDetections reads the detections extras left by whichever
// detector step(s) ran, in DETECT_HAND-then-DETECT_LEG order.
func collectDetections(graph core.StepGraphView) []core.Detection {
	var out []core.Detection
	for _, step := range []core.StepName{core.StepDetectHand, core.StepDetectLeg} {
		if v, ok := graph.StepExtra(step, "detections"); ok {
			if ds, ok := v.([]core.Detection); ok {
				out = append(out, ds...)
			}
		}
	}
	return out
}
