package main

// Demo-only stage fakes. Production deployments would replace these with
// real detector/LLM-backed handlers behind the same core.Stage contract;
// none of this file is part of the orchestration engine itself.

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tanishka786/triage-orchestrator/core"
)

// validateStage rejects empty image references, matching the only
// boundary check the engine itself is responsible for.
type validateStage struct{}

func (validateStage) Run(ctx context.Context, request *core.ProcessingRequest, graph core.StepGraphView, policy core.PolicyView, deadline time.Time) (*core.StageResult, error) {
	if request.ImageRef == "" {
		return nil, core.NewStageError(core.ErrorKindInvalidInput, "image_ref is required")
	}
	return &core.StageResult{}, nil
}

// routeStage lets the demo script a deterministic routing decision per
// run instead of hard-coding one body part.
type routeStage struct {
	bodyPart   core.BodyPart
	confidence float64
}

func (r routeStage) Run(ctx context.Context, request *core.ProcessingRequest, graph core.StepGraphView, policy core.PolicyView, deadline time.Time) (*core.StageResult, error) {
	confidence := r.confidence
	return &core.StageResult{
		Confidence: &confidence,
		Extras:     map[string]interface{}{"body_part": r.bodyPart},
	}, nil
}

// detectStage returns a scripted detection list for one body part.
type detectStage struct {
	detections []core.Detection
}

func (d detectStage) Run(ctx context.Context, request *core.ProcessingRequest, graph core.StepGraphView, policy core.PolicyView, deadline time.Time) (*core.StageResult, error) {
	var confidence float64
	for _, det := range d.detections {
		if det.Score > confidence {
			confidence = det.Score
		}
	}
	return &core.StageResult{
		Confidence: &confidence,
		Extras: map[string]interface{}{
			"detections":        d.detections,
			"inference_time_ms": int64(40),
		},
	}, nil
}

// diagnoseStage composes a minimal diagnosis summary referencing the
// routed body part and triage level.
type diagnoseStage struct{}

func (diagnoseStage) Run(ctx context.Context, request *core.ProcessingRequest, graph core.StepGraphView, policy core.PolicyView, deadline time.Time) (*core.StageResult, error) {
	bodyPart, _ := graph.DetectedBodyPart()
	level, _ := graph.TriageLevel()
	return &core.StageResult{
		Extras: map[string]interface{}{
			"diagnosis_result": map[string]interface{}{
				"body_part": string(bodyPart),
				"level":     string(level),
				"summary":   fmt.Sprintf("Automated assessment for %s: %s", bodyPart, level),
			},
		},
	}, nil
}

// reportStage stores a rendered manifest as an artifact and records its id.
type reportStage struct {
	store core.ArtifactStore
}

func (r reportStage) Run(ctx context.Context, request *core.ProcessingRequest, graph core.StepGraphView, policy core.PolicyView, deadline time.Time) (*core.StageResult, error) {
	level, _ := graph.TriageLevel()
	body := []byte(fmt.Sprintf(`{"request_id":%q,"triage_level":%q}`, request.RequestID, level))

	art, err := r.store.Put(ctx, core.BucketReports, body, "application/json", "json")
	if err != nil {
		return nil, core.NewStageError(core.ErrorKindInternal, "failed to persist report manifest")
	}

	return &core.StageResult{
		Artifacts: map[string]string{"report_json": art.ID},
		Extras: map[string]interface{}{
			"report_manifest": map[string]interface{}{
				"json_id": art.ID,
			},
		},
	}, nil
}

// hospitalsStage returns a fixed nearby-facilities list.
type hospitalsStage struct{}

func (hospitalsStage) Run(ctx context.Context, request *core.ProcessingRequest, graph core.StepGraphView, policy core.PolicyView, deadline time.Time) (*core.StageResult, error) {
	return &core.StageResult{
		Extras: map[string]interface{}{
			"hospitals_result": map[string]interface{}{
				"facilities": []string{"General Hospital", "Community Urgent Care"},
			},
		},
	}, nil
}

func newRequestID() string {
	return uuid.NewString()
}
