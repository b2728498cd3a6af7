package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tanishka786/triage-orchestrator/artifact"
	"github.com/tanishka786/triage-orchestrator/core"
	"github.com/tanishka786/triage-orchestrator/policy"
	"github.com/tanishka786/triage-orchestrator/stage"
	"github.com/tanishka786/triage-orchestrator/triage"
)

// okStage is a Stage that always succeeds, optionally stamping extras/confidence.
type okStage struct {
	confidence *float64
	extras     map[string]interface{}
}

func (s okStage) Run(ctx context.Context, request *core.ProcessingRequest, graph core.StepGraphView, pol core.PolicyView, deadline time.Time) (*core.StageResult, error) {
	return &core.StageResult{Confidence: s.confidence, Extras: s.extras}, nil
}

// failingStage always returns a StageError of the given kind.
type failingStage struct {
	kind core.ErrorKind
}

func (s failingStage) Run(ctx context.Context, request *core.ProcessingRequest, graph core.StepGraphView, pol core.PolicyView, deadline time.Time) (*core.StageResult, error) {
	return nil, core.NewStageError(s.kind, "synthetic failure")
}

// timeoutStage never returns before its deadline, forcing the orchestrator
// to race it out via context.WithDeadline.
type timeoutStage struct {
	attempts *int32
}

func (s timeoutStage) Run(ctx context.Context, request *core.ProcessingRequest, graph core.StepGraphView, pol core.PolicyView, deadline time.Time) (*core.StageResult, error) {
	if s.attempts != nil {
		atomic.AddInt32(s.attempts, 1)
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func floatPtr(f float64) *float64 { return &f }

func buildOrchestrator(stages *stage.Registry, store core.ArtifactStore) *Orchestrator {
	policies := policy.NewRegistry(nil, nil)
	return New(policies, stages, store, nil, nil)
}

// AUTO mode, a single clear hand routing, a RED
// detection plus a severe symptom, full pipeline success, partial=false.
func TestScenarioS1AutoFullPipelineRed(t *testing.T) {
	stages := stage.NewRegistry()
	_ = stages.Register(core.StepValidate, okStage{})
	_ = stages.Register(core.StepRoute, okStage{
		confidence: floatPtr(0.95),
		extras:     map[string]interface{}{"body_part": core.BodyPartHand},
	})
	_ = stages.Register(core.StepDetectHand, okStage{
		extras: map[string]interface{}{"detections": []core.Detection{{Label: "displaced_fracture", Score: 0.9}}},
	})
	_ = stages.Register(core.StepTriage, triage.NewStage())
	_ = stages.Register(core.StepDiagnose, okStage{})
	_ = stages.Register(core.StepReport, okStage{})

	store := artifact.NewMemoryStore(nil, nil)
	orch := buildOrchestrator(stages, store)

	req := &core.ProcessingRequest{RequestID: "s1", Mode: core.ModeAuto, Symptoms: "severe pain"}
	resp, err := orch.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Partial {
		t.Fatal("expected partial=false for a fully successful pipeline")
	}
	if resp.TriageResult == nil || resp.TriageResult.Level != core.TriageRed {
		t.Fatalf("expected RED triage level, got %+v", resp.TriageResult)
	}
	if resp.DetectedPart != core.BodyPartHand {
		t.Fatalf("expected detected body part hand, got %v", resp.DetectedPart)
	}
}

// AUTO mode, UNKNOWN routing fans out to both
// detectors concurrently; triage level is whatever the canonical formula
// computes, not hard-coded.
func TestScenarioS2UnknownRoutingRunsBothDetectorsConcurrently(t *testing.T) {
	stages := stage.NewRegistry()
	_ = stages.Register(core.StepValidate, okStage{})
	_ = stages.Register(core.StepRoute, okStage{
		confidence: floatPtr(0.5),
		extras:     map[string]interface{}{"body_part": core.BodyPartUnknown},
	})
	_ = stages.Register(core.StepDetectHand, okStage{
		extras: map[string]interface{}{"detections": []core.Detection{{Label: "hairline_fracture", Score: 0.4}}},
	})
	_ = stages.Register(core.StepDetectLeg, okStage{
		extras: map[string]interface{}{"detections": []core.Detection{{Label: "no fractures", Score: 0.1}}},
	})
	_ = stages.Register(core.StepTriage, triage.NewStage())
	_ = stages.Register(core.StepDiagnose, okStage{})
	_ = stages.Register(core.StepReport, okStage{})

	store := artifact.NewMemoryStore(nil, nil)
	orch := buildOrchestrator(stages, store)

	req := &core.ProcessingRequest{RequestID: "s2", Mode: core.ModeAuto}
	resp, err := orch.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.TriageResult == nil {
		t.Fatal("expected a triage result")
	}
	if resp.TriageResult.Method != triage.MethodDynamicScoring {
		t.Fatalf("expected dynamic_scoring method, got %v", resp.TriageResult.Method)
	}

	statuses := make(map[core.StepName]core.StepStatus)
	for _, s := range resp.Steps {
		statuses[s.Name] = s.Status
	}
	if statuses[core.StepDetectHand] != core.StatusOK || statuses[core.StepDetectLeg] != core.StatusOK {
		t.Fatalf("expected both detector steps to end OK, got hand=%q leg=%q", statuses[core.StepDetectHand], statuses[core.StepDetectLeg])
	}

	// The hand's hairline finding (severity 0.05) outscores the leg's
	// "no fractures" finding (severity 0.00), so it drives the score.
	expectedScore := 0.7*0.4 + 0.3*0.05
	expectedLevel := core.TriageGreen
	switch {
	case expectedScore >= 0.75:
		expectedLevel = core.TriageRed
	case expectedScore >= 0.40:
		expectedLevel = core.TriageAmber
	}
	if resp.TriageResult.Level != expectedLevel {
		t.Fatalf("expected level %v from score %v, got %v", expectedLevel, expectedScore, resp.TriageResult.Level)
	}
}

// DETECT_HAND times out on both attempts, retry is
// exhausted, the step ends TIMEOUT (non-fatal), and the rest of the
// pipeline still completes with partial=true.
func TestScenarioS3DetectorTimeoutExhaustsRetryStillPartial(t *testing.T) {
	stages := stage.NewRegistry()
	_ = stages.Register(core.StepValidate, okStage{})
	_ = stages.Register(core.StepRoute, okStage{
		confidence: floatPtr(0.95),
		extras:     map[string]interface{}{"body_part": core.BodyPartHand},
	})
	var attempts int32
	_ = stages.Register(core.StepDetectHand, timeoutStage{attempts: &attempts})
	_ = stages.Register(core.StepTriage, triage.NewStage())
	_ = stages.Register(core.StepDiagnose, okStage{})
	_ = stages.Register(core.StepReport, okStage{})

	store := artifact.NewMemoryStore(nil, nil)
	policies := policy.NewRegistry(overrideTimeouts(), nil)
	orch := New(policies, stages, store, nil, nil)

	req := &core.ProcessingRequest{RequestID: "s3", Mode: core.ModeAuto}
	resp, err := orch.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if atomic.LoadInt32(&attempts) != 2 {
		t.Fatalf("expected exactly 2 attempts (initial + 1 retry), got %d", attempts)
	}
	if !resp.Partial {
		t.Fatal("expected partial=true: DETECT_HAND is not fatal_on_error")
	}
	if resp.TriageResult == nil {
		t.Fatal("expected TRIAGE to still run and produce a result")
	}
}

// VALIDATE fails with invalid_input; the pipeline
// stops immediately, no later steps run, partial stays false (fatal
// failure, not a partial one, per P4).
func TestScenarioS4ValidateFatalStopsImmediately(t *testing.T) {
	stages := stage.NewRegistry()
	_ = stages.Register(core.StepValidate, failingStage{kind: core.ErrorKindInvalidInput})
	routeCalled := false
	_ = stages.Register(core.StepRoute, stageFunc(func() { routeCalled = true }))

	store := artifact.NewMemoryStore(nil, nil)
	orch := buildOrchestrator(stages, store)

	req := &core.ProcessingRequest{RequestID: "s4", Mode: core.ModeAuto}
	resp, err := orch.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if routeCalled {
		t.Fatal("ROUTE must never run once VALIDATE fails fatally")
	}
	if resp.Partial {
		t.Fatal("a fatal failure must not be reported as partial")
	}
	if resp.TriageResult != nil {
		t.Fatalf("expected no triage result: TRIAGE was never started, got %+v", resp.TriageResult)
	}
}

// ADVANCED mode with a detect timeout override binds a
// config whose hash differs from the default hash.
func TestScenarioS5AdvancedModeOverridesChangeConfigHash(t *testing.T) {
	stages := stage.NewRegistry()
	_ = stages.Register(core.StepValidate, okStage{})
	_ = stages.Register(core.StepRoute, okStage{
		confidence: floatPtr(0.95),
		extras:     map[string]interface{}{"body_part": core.BodyPartHand},
	})
	_ = stages.Register(core.StepDetectHand, okStage{})
	_ = stages.Register(core.StepTriage, triage.NewStage())
	_ = stages.Register(core.StepDiagnose, okStage{})
	_ = stages.Register(core.StepReport, okStage{})

	store := artifact.NewMemoryStore(nil, nil)
	policies := policy.NewRegistry(nil, nil)
	orch := New(policies, stages, store, nil, nil)

	defaultHash := policies.DefaultConfig().Hash

	req := &core.ProcessingRequest{
		RequestID: "s5",
		Mode:      core.ModeAdvanced,
		Overrides: map[string]interface{}{
			"timeout_overrides": map[string]interface{}{"detect": 1},
		},
	}
	resp, err := orch.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ConfigHash == defaultHash {
		t.Fatal("expected ADVANCED overrides to produce a distinct config hash")
	}
}

// overrideTimeouts returns a default config with DETECT_HAND's timeout
// shrunk so the timeout scenario doesn't need to sleep for 12 real seconds.
func overrideTimeouts() *policy.Config {
	cfg := policy.DefaultConfig()
	p := cfg.Steps[core.StepDetectHand]
	p.TimeoutSeconds = 0
	cfg.Steps[core.StepDetectHand] = p
	return cfg
}

// stageFunc adapts a side-effecting closure into a Stage for "must never
// run" assertions.
type stageFuncType func()

func stageFunc(f stageFuncType) core.Stage {
	return stageFuncStage{f}
}

type stageFuncStage struct {
	f stageFuncType
}

func (s stageFuncStage) Run(ctx context.Context, request *core.ProcessingRequest, graph core.StepGraphView, pol core.PolicyView, deadline time.Time) (*core.StageResult, error) {
	s.f()
	return &core.StageResult{}, nil
}
