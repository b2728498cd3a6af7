package stepgraph

import (
	"testing"

	"github.com/tanishka786/triage-orchestrator/core"
)

func fatalOnlyValidate(name core.StepName) bool {
	return name == core.StepValidate
}

func TestAddStepRejectsDuplicateNames(t *testing.T) {
	g := New("req-1", core.ModeAuto, fatalOnlyValidate)
	if err := g.AddStep(core.StepValidate); err != nil {
		t.Fatalf("unexpected error adding step: %v", err)
	}
	if err := g.AddStep(core.StepValidate); err == nil {
		t.Fatal("expected an error adding the same step twice")
	}
}

func TestIsCompleteRequiresAllTerminal(t *testing.T) {
	g := New("req-2", core.ModeAuto, fatalOnlyValidate)
	_ = g.AddStep(core.StepValidate)
	_ = g.AddStep(core.StepRoute)

	g.Start(core.StepValidate, 0)
	g.Complete(core.StepValidate, nil, nil, nil)
	if g.IsComplete() {
		t.Fatal("graph should not be complete while ROUTE is still PENDING")
	}

	g.Start(core.StepRoute, 0)
	g.Complete(core.StepRoute, nil, nil, nil)
	if !g.IsComplete() {
		t.Fatal("graph should be complete once every step reaches a terminal status")
	}
}

func TestPartialTrueOnlyWithoutFatalFailure(t *testing.T) {
	g := New("req-3", core.ModeAuto, fatalOnlyValidate)
	_ = g.AddStep(core.StepDiagnose)

	g.Start(core.StepDiagnose, 0)
	g.Fail(core.StepDiagnose, "boom")

	if !g.Partial() {
		t.Fatal("a non-fatal step error should mark the graph partial")
	}
	if g.HasFatalError() {
		t.Fatal("DIAGNOSE is not fatal_on_error; HasFatalError must be false")
	}
}

func TestFatalFailureIsNotPartial(t *testing.T) {
	g := New("req-4", core.ModeAuto, fatalOnlyValidate)
	_ = g.AddStep(core.StepValidate)

	g.Start(core.StepValidate, 0)
	g.Fail(core.StepValidate, "invalid input")

	if g.Partial() {
		t.Fatal("a fatal step failure must not also mark the response partial")
	}
	if !g.HasFatalError() {
		t.Fatal("VALIDATE is fatal_on_error; HasFatalError must be true")
	}
}

func TestResetForRetryReturnsStepToPending(t *testing.T) {
	g := New("req-5", core.ModeAuto, fatalOnlyValidate)
	_ = g.AddStep(core.StepRoute)

	g.Start(core.StepRoute, 0)
	g.Timeout(core.StepRoute)
	g.ResetForRetry(core.StepRoute)

	status, ok := g.StepStatus(core.StepRoute)
	if !ok || status != core.StatusPending {
		t.Fatalf("expected PENDING after reset, got %v", status)
	}
}

func TestDurationRecordedOnCompletion(t *testing.T) {
	g := New("req-6", core.ModeAuto, fatalOnlyValidate)
	_ = g.AddStep(core.StepRoute)

	g.Start(core.StepRoute, 0)
	g.Complete(core.StepRoute, nil, nil, nil)

	s := g.GetStep(core.StepRoute)
	if s.DurationMS() == nil {
		t.Fatal("expected a non-nil duration once a step completes")
	}
	if s.StartedAt == nil || s.CompletedAt == nil {
		t.Fatal("both started_at and completed_at must be populated")
	}
}

func TestCompleteProjectsRouteAndTriageExtras(t *testing.T) {
	g := New("req-7", core.ModeAuto, fatalOnlyValidate)
	_ = g.AddStep(core.StepRoute)
	_ = g.AddStep(core.StepTriage)

	g.Start(core.StepRoute, 0)
	g.Complete(core.StepRoute, nil, nil, map[string]interface{}{"body_part": core.BodyPartHand})

	bodyPart, ok := g.DetectedBodyPart()
	if !ok || bodyPart != core.BodyPartHand {
		t.Fatalf("expected detected body part hand, got %v (ok=%v)", bodyPart, ok)
	}

	g.Start(core.StepTriage, 0)
	g.Complete(core.StepTriage, nil, nil, map[string]interface{}{"level": core.TriageRed})

	level, ok := g.TriageLevel()
	if !ok || level != core.TriageRed {
		t.Fatalf("expected triage level red, got %v (ok=%v)", level, ok)
	}
}

func TestSuccessfulAndFailedStepsPartitionCorrectly(t *testing.T) {
	g := New("req-8", core.ModeAuto, fatalOnlyValidate)
	_ = g.AddStep(core.StepRoute)
	_ = g.AddStep(core.StepDiagnose)

	g.Start(core.StepRoute, 0)
	g.Complete(core.StepRoute, nil, nil, nil)

	g.Start(core.StepDiagnose, 0)
	g.Fail(core.StepDiagnose, "boom")

	ok := g.SuccessfulSteps()
	failed := g.FailedSteps()

	if len(ok) != 1 || ok[0] != core.StepRoute {
		t.Fatalf("expected ROUTE in successful steps, got %v", ok)
	}
	if len(failed) != 1 || failed[0] != core.StepDiagnose {
		t.Fatalf("expected DIAGNOSE in failed steps, got %v", failed)
	}
}
