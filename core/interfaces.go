package core

import (
	"context"
	"time"
)

// Logger is the structured logging contract used throughout the engine.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})

	InfoWithContext(ctx context.Context, msg string, fields map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, fields map[string]interface{})
	DebugWithContext(ctx context.Context, msg string, fields map[string]interface{})
}

// NoOpLogger discards everything. It is the zero-value default so that
// components never need to nil-check their logger.
type NoOpLogger struct{}

func (NoOpLogger) Info(string, map[string]interface{})  {}
func (NoOpLogger) Error(string, map[string]interface{}) {}
func (NoOpLogger) Warn(string, map[string]interface{})  {}
func (NoOpLogger) Debug(string, map[string]interface{}) {}

func (NoOpLogger) InfoWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) ErrorWithContext(context.Context, string, map[string]interface{}) {}
func (NoOpLogger) WarnWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) DebugWithContext(context.Context, string, map[string]interface{}) {}

// ArtifactStore is the contract for C1: content-addressed
// blob put/get/delete with SHA-256 integrity and optional signed retrieval.
type ArtifactStore interface {
	Put(ctx context.Context, bucket ArtifactBucket, data []byte, contentType, extension string) (*Artifact, error)
	Get(ctx context.Context, id string) ([]byte, *Artifact, error)
	Delete(ctx context.Context, id string) (bool, error)
	SignedURL(ctx context.Context, id string, ttl time.Duration) (string, bool)
}

// StageResult is the uniform output of a Stage invocation.
// Extras carries step-specific fields (body_part, detections, level, ...);
// the orchestrator validates and projects the relevant keys before writing
// them onto the StepGraph.
type StageResult struct {
	Confidence *float64
	Artifacts  map[string]string
	Extras     map[string]interface{}
}

// Stage is the pluggable capability contract every step handler implements.
// The orchestrator never inspects a Stage's internals: it supplies a
// read-only request/graph view, a policy view, and an absolute deadline,
// and expects either a StageResult or a *StageError — never a panic.
type Stage interface {
	Run(ctx context.Context, request *ProcessingRequest, graph StepGraphView, policy PolicyView, deadline time.Time) (*StageResult, error)
}

// StepGraphView is the read-only projection of a StepGraph a Stage may
// consult (e.g. DIAGNOSE reading ROUTE's detected body part).
type StepGraphView interface {
	DetectedBodyPart() (BodyPart, bool)
	TriageLevel() (TriageLevel, bool)
	StepStatus(name StepName) (StepStatus, bool)
	StepExtra(name StepName, key string) (interface{}, bool)
}

// PolicyView is the read-only policy surface a Stage may consult for
// thresholds relevant to its own work (e.g. a detector reading
// detector_score_min).
type PolicyView interface {
	DetectionThresholds() (routerThreshold, detectorScoreMin, nmsIOU float64)
	TriageThresholds() (red, amber, highConfidence float64)
	ConfigHash() string
}
