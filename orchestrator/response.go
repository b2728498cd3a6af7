package orchestrator

import (
	"github.com/tanishka786/triage-orchestrator/core"
	"github.com/tanishka786/triage-orchestrator/policy"
	"github.com/tanishka786/triage-orchestrator/stepgraph"
)

// assembleResponse implements Phase 4: collect artifacts,
// attach semantic outputs, and apply the TRIAGE fallback invariant — a
// response carries a triage decision whenever TRIAGE was actually attempted,
// even if the step itself ended in ERROR. When a prior fatal step stopped
// the pipeline before TRIAGE ever ran, TriageResult stays nil.
func (o *Orchestrator) assembleResponse(request *core.ProcessingRequest, g *stepgraph.Graph, cfg *policy.Config, guidedPrompts []core.GuidedPrompt, consentPrompts []core.ConsentPrompt) *core.ProcessingResponse {
	bodyPart, _ := g.DetectedBodyPart()
	level, _ := g.TriageLevel()

	resp := &core.ProcessingResponse{
		RequestID:      request.RequestID,
		Mode:           request.Mode,
		Partial:        g.Partial(),
		Steps:          g.Projections(),
		DetectedPart:   bodyPart,
		TriageLevel:    level,
		Artifacts:      g.AllArtifacts(),
		GuidedPrompts:  guidedPrompts,
		ConsentPrompts: consentPrompts,
		ConfigHash:     cfg.Hash,
		CreatedAt:      g.CreatedAt,
		UpdatedAt:      g.UpdatedAt,
	}

	resp.TriageResult = triageResultFor(g)
	if resp.TriageResult != nil && resp.TriageResult.Partial && !g.HasFatalError() {
		resp.Partial = true
	}

	if v, ok := g.StepExtra(core.StepDiagnose, "diagnosis_result"); ok {
		if m, ok := v.(map[string]interface{}); ok {
			resp.DiagnosisResult = m
		}
	}
	if v, ok := g.StepExtra(core.StepReport, "report_manifest"); ok {
		if m, ok := v.(map[string]interface{}); ok {
			resp.ReportManifest = m
		}
	}
	if v, ok := g.StepExtra(core.StepHospitals, "hospitals_result"); ok {
		if m, ok := v.(map[string]interface{}); ok {
			resp.HospitalsResult = m
		}
	}

	return resp
}

// triageResultFor reads the TRIAGE step's recorded extras. If TRIAGE was
// started but didn't end OK — despite retry_policy = NEVER and the kernel
// itself never throwing, the orchestrator's own invocation of it may still
// fail on cancellation — a best-effort AMBER fallback is attached so
// downstream consumers still see a triage decision. If TRIAGE was never
// started at all (a prior fatal step already stopped the pipeline), no
// triage decision exists and nil is returned, matching that downstream
// semantic fields are absent on a fatal failure.
func triageResultFor(g *stepgraph.Graph) *core.TriageResult {
	step := g.GetStep(core.StepTriage)
	if step == nil || step.StartedAt == nil {
		return nil
	}

	if step.Status != core.StatusOK {
		return &core.TriageResult{
			Level:      core.TriageAmber,
			Rationale:  []string{"Triage assessment unavailable, recommend medical evaluation"},
			Confidence: 0,
			Score:      0.5,
			Method:     "error_fallback",
			Partial:    true,
		}
	}

	level, _ := g.TriageLevel()
	result := &core.TriageResult{Level: level}

	if v, ok := g.StepExtra(core.StepTriage, "rationale"); ok {
		if r, ok := v.([]string); ok {
			result.Rationale = r
		}
	}
	if v, ok := g.StepExtra(core.StepTriage, "score"); ok {
		if s, ok := v.(float64); ok {
			result.Score = s
		}
	}
	if v, ok := g.StepExtra(core.StepTriage, "method"); ok {
		if m, ok := v.(string); ok {
			result.Method = m
		}
	}
	if s := g.GetStep(core.StepTriage); s != nil && s.Confidence != nil {
		result.Confidence = *s.Confidence
	}

	return result
}
