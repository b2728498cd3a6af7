// Package core holds the data model shared by every component of the triage
// orchestration engine: enumerations, request/response shapes, and the
// interfaces that let the Orchestrator, Policy Registry, Step Graph, Stage
// Registry, Triage Kernel, and Artifact Store collaborate without importing
// each other directly.
package core

import "time"

// BodyPart is the routed anatomical region for an incoming image.
type BodyPart string

const (
	BodyPartHand    BodyPart = "hand"
	BodyPartLeg     BodyPart = "leg"
	BodyPartUnknown BodyPart = "unknown"
)

// TriageLevel is the urgency classification produced by the triage kernel.
type TriageLevel string

const (
	TriageRed   TriageLevel = "red"
	TriageAmber TriageLevel = "amber"
	TriageGreen TriageLevel = "green"
)

// ProcessingMode selects the orchestrator's control-flow variant.
type ProcessingMode string

const (
	ModeAuto     ProcessingMode = "auto"
	ModeGuided   ProcessingMode = "guided"
	ModeAdvanced ProcessingMode = "advanced"
)

// StepName identifies a stage slot in the pipeline.
type StepName string

const (
	StepValidate   StepName = "validate"
	StepRoute      StepName = "route"
	StepDetectHand StepName = "detect_hand"
	StepDetectLeg  StepName = "detect_leg"
	StepTriage     StepName = "triage"
	StepDiagnose   StepName = "diagnose"
	StepReport     StepName = "report"
	StepHospitals  StepName = "hospitals"
)

// StepStatus is the lifecycle state of a single Step.
type StepStatus string

const (
	StatusPending StepStatus = "pending"
	StatusRunning StepStatus = "running"
	StatusOK      StepStatus = "ok"
	StatusError   StepStatus = "error"
	StatusTimeout StepStatus = "timeout"
	StatusSkipped StepStatus = "skipped"
)

// IsTerminal reports whether a status is one-way terminal.
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StatusOK, StatusError, StatusTimeout, StatusSkipped:
		return true
	default:
		return false
	}
}

// RetryPolicy governs whether a failed/timed-out step may be retried.
type RetryPolicy string

const (
	RetryNever       RetryPolicy = "never"
	RetryOnce        RetryPolicy = "once"
	RetryExponential RetryPolicy = "exponential"
)

// ErrorKind is the closed set of stage-error tags the orchestrator inspects
// for retry decisions.
type ErrorKind string

const (
	ErrorKindTimeout      ErrorKind = "timeout"
	ErrorKindConnection   ErrorKind = "connection"
	ErrorKindTemporary    ErrorKind = "temporary"
	ErrorKindRateLimit    ErrorKind = "rate_limit"
	ErrorKindInvalidInput ErrorKind = "invalid_input"
	ErrorKindInternal     ErrorKind = "internal"
	ErrorKindUnavailable  ErrorKind = "unavailable"
)

// IsTransient reports whether the kind belongs to the transient-error set
// consulted by EXPONENTIAL retry policy.
func (k ErrorKind) IsTransient() bool {
	switch k {
	case ErrorKindTimeout, ErrorKindConnection, ErrorKindTemporary, ErrorKindRateLimit:
		return true
	default:
		return false
	}
}

// Detection is a single bounding-box finding from a body-part detector.
// Immutable once produced.
type Detection struct {
	Label string  `json:"label"`
	X     int     `json:"x"`
	Y     int     `json:"y"`
	W     int     `json:"w"`
	H     int     `json:"h"`
	Score float64 `json:"score"`
}

// GuidedPrompt records a point in GUIDED mode where the orchestrator made a
// forward-progress default instead of blocking on user input.
type GuidedPrompt struct {
	Message    string   `json:"message"`
	PromptType string   `json:"prompt_type"`
	StepName   StepName `json:"step_name"`
	Options    []string `json:"options"`
}

// ConsentPrompt records a step skipped for lack of a required consent.
type ConsentPrompt struct {
	Message  string   `json:"message"`
	StepName StepName `json:"step_name"`
	Consent  string   `json:"consent"`
}

// ProcessingRequest is the input to Orchestrator.Process.
type ProcessingRequest struct {
	RequestID  string                 `json:"request_id"`
	ImageRef   string                 `json:"image_ref"`
	Mode       ProcessingMode         `json:"mode"`
	Symptoms   string                 `json:"symptoms,omitempty"`
	Consents   map[string]bool        `json:"consents,omitempty"`
	Overrides  map[string]interface{} `json:"overrides,omitempty"`
}

// ArtifactBucket is a disjoint namespace within the Artifact Store.
type ArtifactBucket string

const (
	BucketRaw       ArtifactBucket = "raw"
	BucketAnnotated ArtifactBucket = "annotated"
	BucketReports   ArtifactBucket = "reports"
	BucketManifests ArtifactBucket = "manifests"
)

// Artifact is the metadata record for a content-addressed blob.
type Artifact struct {
	ID          string         `json:"id"`
	Bucket      ArtifactBucket `json:"bucket"`
	ContentType string         `json:"content_type"`
	Size        int64          `json:"size"`
	SHA256      string         `json:"sha256"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TriageResult is the projection of the Triage Kernel's output onto a
// ProcessingResponse.
type TriageResult struct {
	Level      TriageLevel `json:"level"`
	Rationale  []string    `json:"rationale"`
	Confidence float64     `json:"confidence"`
	Score      float64     `json:"score"`
	Method     string      `json:"method"`
	Partial    bool        `json:"partial"`
}

// ProcessingResponse is the output of Orchestrator.Process.
type ProcessingResponse struct {
	RequestID       string                 `json:"request_id"`
	Mode            ProcessingMode         `json:"mode"`
	Partial         bool                   `json:"partial"`
	Steps           []StepProjection       `json:"steps"`
	DetectedPart    BodyPart               `json:"detected_body_part,omitempty"`
	TriageLevel     TriageLevel            `json:"triage_level,omitempty"`
	TriageResult    *TriageResult          `json:"triage_result,omitempty"`
	DiagnosisResult map[string]interface{} `json:"diagnosis_result,omitempty"`
	ReportManifest  map[string]interface{} `json:"report_manifest,omitempty"`
	HospitalsResult map[string]interface{} `json:"hospitals_result,omitempty"`
	Artifacts       map[string]string      `json:"artifacts"`
	GuidedPrompts   []GuidedPrompt         `json:"guided_prompts,omitempty"`
	ConsentPrompts  []ConsentPrompt        `json:"consent_prompts,omitempty"`
	ConfigHash      string                 `json:"config_hash"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// StepProjection is the read-only view of a Step attached to a response.
type StepProjection struct {
	Name         StepName          `json:"name"`
	Status       StepStatus        `json:"status"`
	Confidence   *float64          `json:"confidence,omitempty"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	DurationMS   *int64            `json:"duration_ms,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	RetryCount   int               `json:"retry_count"`
	Artifacts    map[string]string `json:"artifacts,omitempty"`
}

// RequestSummary is the listing projection for "list active requests".
type RequestSummary struct {
	RequestID       string         `json:"request_id"`
	Mode            ProcessingMode `json:"mode"`
	Status          string         `json:"status"`
	Partial         bool           `json:"partial"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	StepsCompleted  int            `json:"steps_completed"`
	StepsTotal      int            `json:"steps_total"`
	DetectedPart    BodyPart       `json:"detected_body_part,omitempty"`
	TriageLevel     TriageLevel    `json:"triage_level,omitempty"`
}

// CleanupCounts reports what a cleanup sweep removed for one request.
type CleanupCounts struct {
	StepsRemoved     int `json:"steps_removed"`
	ArtifactsRemoved int `json:"artifacts_removed"`
}
