package triage

import (
	"testing"

	"github.com/tanishka786/triage-orchestrator/core"
)

func defaultThresholds() Thresholds {
	return Thresholds{RedCutoff: 0.75, AmberCutoff: 0.40, HighConfidenceCutoff: 0.80}
}

// A single high-severity detection plus a severe
// symptom should clear the RED cutoff.
func TestAssessScenarioS1RedFromSevereDetectionAndSymptom(t *testing.T) {
	detections := []core.Detection{{Label: "displaced_fracture", Score: 0.88}}
	result := Assess(detections, "severe pain", defaultThresholds())

	if result.Level != core.TriageRed {
		t.Fatalf("expected RED, got %v (score %v)", result.Level, result.Score)
	}
	if result.Score < 0.75 {
		t.Fatalf("expected score >= 0.75, got %v", result.Score)
	}
	if result.Method != MethodDynamicScoring {
		t.Fatalf("expected dynamic_scoring method, got %v", result.Method)
	}
}

// Computed from the canonical formula rather than hard-coded.
func TestAssessScenarioS2ComputedFromCanonicalFormula(t *testing.T) {
	detections := []core.Detection{{Label: "hairline_fracture", Score: 0.55}}
	result := Assess(detections, "", defaultThresholds())

	expectedScore := 0.7*0.55 + 0.3*0.05
	if result.Score < expectedScore-1e-9 || result.Score > expectedScore+1e-9 {
		t.Fatalf("expected score %v, got %v", expectedScore, result.Score)
	}

	var expectedLevel core.TriageLevel
	switch {
	case expectedScore >= 0.75:
		expectedLevel = core.TriageRed
	case expectedScore >= 0.40:
		expectedLevel = core.TriageAmber
	default:
		expectedLevel = core.TriageGreen
	}
	if result.Level != expectedLevel {
		t.Fatalf("expected level %v from score %v, got %v", expectedLevel, expectedScore, result.Level)
	}
}

func TestAssessEmptyDetectionsNoSymptoms(t *testing.T) {
	result := Assess(nil, "", defaultThresholds())
	if result.Score != 0.0 {
		t.Fatalf("expected score 0.0 for no detections and no symptoms, got %v", result.Score)
	}
	if result.Level != core.TriageGreen {
		t.Fatalf("expected GREEN, got %v", result.Level)
	}
	if result.Confidence != 0.8 {
		t.Fatalf("expected confidence 0.8 when detections is empty, got %v", result.Confidence)
	}
}

func TestAssessEmptyDetectionsWithSevereSymptom(t *testing.T) {
	result := Assess(nil, "unable to bear weight", defaultThresholds())
	// step 1 adds 0.3, step 3's unconditional symptom check adds another 0.10.
	expected := 0.4
	if result.Score < expected-1e-9 || result.Score > expected+1e-9 {
		t.Fatalf("expected score %v, got %v", expected, result.Score)
	}
}

func TestAssessDominantDetectionDrivesScore(t *testing.T) {
	detections := []core.Detection{
		{Label: "possible fracture", Score: 0.50}, // severity 0.05, contribution 0.365
		{Label: "minor", Score: 0.60},              // severity 0.05, contribution 0.435 (higher)
	}
	result := Assess(detections, "", defaultThresholds())
	expectedContribution := 0.7*0.60 + 0.3*0.05
	if result.Score < expectedContribution-1e-9 || result.Score > expectedContribution+1e-9 {
		t.Fatalf("expected dominant detection's contribution %v, got %v", expectedContribution, result.Score)
	}
}

func TestAssessNeverPanics(t *testing.T) {
	weird := []core.Detection{{Label: "", Score: -5}}
	result := Assess(weird, "", Thresholds{})
	if result.Level == "" {
		t.Fatal("expected a non-empty level even for degenerate input")
	}
}

func TestAssessScoreIsPure(t *testing.T) {
	detections := []core.Detection{{Label: "fracture detected", Score: 0.6}}
	first := Assess(detections, "severe pain", defaultThresholds())
	second := Assess(detections, "severe pain", defaultThresholds())

	if first.Level != second.Level || first.Score != second.Score || first.Confidence != second.Confidence {
		t.Fatal("expected bit-identical output for identical input")
	}
}

func TestSeverityBuckets(t *testing.T) {
	cases := map[string]float64{
		"Compound fracture":    0.30,
		"confirmed fracture":   0.20,
		"suspected fracture":   0.10,
		"hairline fracture":    0.05,
		"no fractures visible": 0.00,
		"something unrelated":  0.10,
	}
	for label, want := range cases {
		if got := severity(label); got != want {
			t.Errorf("severity(%q) = %v, want %v", label, got, want)
		}
	}
}
