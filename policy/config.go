// Package policy implements the Policy & Gates subsystem (C2): a versioned,
// hashable configuration snapshot per request, threshold overrides, the
// retry/timeout table, and the triage rule patterns.
package policy

import (
	"time"

	"github.com/tanishka786/triage-orchestrator/core"
)

// StepPolicy governs retry/timeout/fatality behavior for one step.
type StepPolicy struct {
	TimeoutSeconds int              `json:"timeout_seconds"`
	RetryPolicy    core.RetryPolicy `json:"retry_policy"`
	MaxRetries     int              `json:"max_retries"`
	FatalOnError   bool             `json:"fatal_on_error"`
	Skippable      bool             `json:"skippable"`
}

// Timeout returns the step's timeout as a time.Duration.
func (p StepPolicy) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// DetectionThresholds holds router/detector/NMS cutoffs.
type DetectionThresholds struct {
	RouterThreshold  float64 `json:"router_threshold"`
	DetectorScoreMin float64 `json:"detector_score_min"`
	NMSIoU           float64 `json:"nms_iou"`
}

// TriageThresholds holds the score cutoffs the kernel maps onto a
// TriageLevel, plus the high-confidence cutoff used to short-circuit LLM
// fallback paths in the (non-core) diagnosis collaborator.
type TriageThresholds struct {
	RedThreshold           float64 `json:"triage_red_threshold"`
	AmberThreshold         float64 `json:"triage_amber_threshold"`
	HighConfidenceCutoff   float64 `json:"triage_high_confidence_threshold"`
}

// TriagePatterns are label-substring lists kept only as a telemetry/
// rationale helper.
type TriagePatterns struct {
	Red   []string `json:"triage_red_patterns"`
	Amber []string `json:"triage_amber_patterns"`
	Green []string `json:"triage_green_patterns"`
}

// Config is the complete, immutable PolicyConfig. Once
// constructed its ConfigHash is fixed; ApplyOverrides returns a new
// instance rather than mutating in place.
type Config struct {
	Detection  DetectionThresholds         `json:"detection_thresholds"`
	Triage     TriageThresholds            `json:"triage_thresholds"`
	Patterns   TriagePatterns              `json:"triage_patterns"`
	Steps      map[core.StepName]StepPolicy `json:"step_policies"`
	MaxRetries int                         `json:"max_retries"`
	Version    string                      `json:"version"`
	Hash       string                      `json:"config_hash"`
}

// DefaultDetectionThresholds returns the canonical defaults.
func DefaultDetectionThresholds() DetectionThresholds {
	return DetectionThresholds{RouterThreshold: 0.70, DetectorScoreMin: 0.35, NMSIoU: 0.50}
}

// DefaultTriageThresholds returns the canonical cutoffs.
func DefaultTriageThresholds() TriageThresholds {
	return TriageThresholds{RedThreshold: 0.75, AmberThreshold: 0.40, HighConfidenceCutoff: 0.80}
}

// DefaultTriagePatterns mirrors the rationale-label lists used for
// human-readable triage explanations.
func DefaultTriagePatterns() TriagePatterns {
	return TriagePatterns{
		Red:   []string{"displaced_fracture", "comminuted_fracture", "open_fracture", "multiple_fractures"},
		Amber: []string{"fracture", "oblique_fracture", "spiral_fracture"},
		Green: []string{"hairline_fracture", "stress_fracture", "avulsion_fracture"},
	}
}

// DefaultStepPolicies is the canonical per-step policy table.
func DefaultStepPolicies() map[core.StepName]StepPolicy {
	return map[core.StepName]StepPolicy{
		core.StepValidate:   {TimeoutSeconds: 5, RetryPolicy: core.RetryNever, MaxRetries: 0, FatalOnError: true, Skippable: false},
		core.StepRoute:      {TimeoutSeconds: 2, RetryPolicy: core.RetryOnce, MaxRetries: 1, FatalOnError: true, Skippable: false},
		core.StepDetectHand: {TimeoutSeconds: 12, RetryPolicy: core.RetryOnce, MaxRetries: 1, FatalOnError: false, Skippable: true},
		core.StepDetectLeg:  {TimeoutSeconds: 12, RetryPolicy: core.RetryOnce, MaxRetries: 1, FatalOnError: false, Skippable: true},
		// TRIAGE must always be RetryNever: the kernel is internally
		// fault-tolerant and must never be re-entered.
		core.StepTriage:    {TimeoutSeconds: 2, RetryPolicy: core.RetryNever, MaxRetries: 0, FatalOnError: false, Skippable: false},
		core.StepDiagnose:  {TimeoutSeconds: 5, RetryPolicy: core.RetryOnce, MaxRetries: 1, FatalOnError: false, Skippable: true},
		core.StepReport:    {TimeoutSeconds: 5, RetryPolicy: core.RetryOnce, MaxRetries: 1, FatalOnError: false, Skippable: true},
		core.StepHospitals: {TimeoutSeconds: 3, RetryPolicy: core.RetryOnce, MaxRetries: 1, FatalOnError: false, Skippable: true},
	}
}

// DefaultConfig builds the canonical default PolicyConfig and stamps its
// hash. Version bumps should happen here when the default table changes.
func DefaultConfig() *Config {
	c := &Config{
		Detection:  DefaultDetectionThresholds(),
		Triage:     DefaultTriageThresholds(),
		Patterns:   DefaultTriagePatterns(),
		Steps:      DefaultStepPolicies(),
		MaxRetries: 1,
		Version:    "1.0.0",
	}
	c.Hash = computeHash(c)
	return c
}

// StepPolicy returns the policy for a step, or a conservative fallback
// (never retried, skippable, non-fatal) when the step is not in the table.
func (c *Config) StepPolicy(name core.StepName) StepPolicy {
	if p, ok := c.Steps[name]; ok {
		return p
	}
	return StepPolicy{TimeoutSeconds: 30, RetryPolicy: core.RetryNever, MaxRetries: 0, FatalOnError: false, Skippable: true}
}

// DetectionThresholds implements core.PolicyView.
func (c *Config) DetectionThresholds() (router, detectorMin, nms float64) {
	return c.Detection.RouterThreshold, c.Detection.DetectorScoreMin, c.Detection.NMSIoU
}

// TriageThresholds implements core.PolicyView.
func (c *Config) TriageThresholds() (red, amber, highConfidence float64) {
	return c.Triage.RedThreshold, c.Triage.AmberThreshold, c.Triage.HighConfidenceCutoff
}

// ConfigHash implements core.PolicyView.
func (c *Config) ConfigHash() string { return c.Hash }
