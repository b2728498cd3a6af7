// Package stepgraph implements the Step Graph: a mutable state
// container tracking the ordered list of Step records for one request,
// mutated only by the Orchestrator through serialized operations.
package stepgraph

import (
	"time"

	"github.com/tanishka786/triage-orchestrator/core"
)

// Step is a single unit of pipeline work with its status record. Invariants
//: started_at <= completed_at; duration_ms is derived; status
// transitions are one-way terminal once in {OK, ERROR, TIMEOUT, SKIPPED},
// except for the orchestrator's internal reset-for-retry operation.
type Step struct {
	Name         core.StepName
	Status       core.StepStatus
	Confidence   *float64
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string
	RetryCount   int
	Artifacts    map[string]string
	Extras       map[string]interface{}
}

func newStep(name core.StepName) *Step {
	return &Step{
		Name:      name,
		Status:    core.StatusPending,
		Artifacts: make(map[string]string),
		Extras:    make(map[string]interface{}),
	}
}

// DurationMS returns the derived duration, or nil if the step has not
// completed.
func (s *Step) DurationMS() *int64 {
	if s.StartedAt == nil || s.CompletedAt == nil {
		return nil
	}
	ms := s.CompletedAt.Sub(*s.StartedAt).Milliseconds()
	return &ms
}

// start marks the step RUNNING and records the attempt number as
// RetryCount.
func (s *Step) start(attempt int, now time.Time) {
	s.Status = core.StatusRunning
	s.StartedAt = &now
	s.RetryCount = attempt
}

func (s *Step) complete(confidence *float64, artifacts map[string]string, extras map[string]interface{}, now time.Time) {
	s.Status = core.StatusOK
	s.CompletedAt = &now
	if confidence != nil {
		s.Confidence = confidence
	}
	for k, v := range artifacts {
		s.Artifacts[k] = v
	}
	for k, v := range extras {
		s.Extras[k] = v
	}
}

func (s *Step) fail(message string, now time.Time) {
	s.Status = core.StatusError
	s.CompletedAt = &now
	s.ErrorMessage = message
}

func (s *Step) timeoutNow(now time.Time) {
	s.Status = core.StatusTimeout
	s.CompletedAt = &now
	s.ErrorMessage = "step timed out"
}

func (s *Step) skip(reason string, now time.Time) {
	s.Status = core.StatusSkipped
	s.CompletedAt = &now
	s.ErrorMessage = reason
}

// resetForRetry reverts an ERROR/TIMEOUT step back to PENDING as a single
// internal operation; external observers never see this intermediate
// state.
func (s *Step) resetForRetry() {
	s.Status = core.StatusPending
	s.CompletedAt = nil
	s.ErrorMessage = ""
}

// Projection renders the external, read-only view of a Step.
func (s *Step) Projection() core.StepProjection {
	artifacts := make(map[string]string, len(s.Artifacts))
	for k, v := range s.Artifacts {
		artifacts[k] = v
	}
	return core.StepProjection{
		Name:         s.Name,
		Status:       s.Status,
		Confidence:   s.Confidence,
		StartedAt:    s.StartedAt,
		CompletedAt:  s.CompletedAt,
		DurationMS:   s.DurationMS(),
		ErrorMessage: s.ErrorMessage,
		RetryCount:   s.RetryCount,
		Artifacts:    artifacts,
	}
}
