package stepgraph

import (
	"sync"
	"time"

	"github.com/tanishka786/triage-orchestrator/core"
)

// FatalCheck tells the graph whether a given step's policy marks it fatal
// on error, so HasFatalError can be computed without the graph importing
// the policy package (keeping the graph decoupled from policy lookups).
type FatalCheck func(core.StepName) bool

// Graph is the mutable StepGraph. All mutation goes through its methods,
// which are serialized by an internal mutex — the graph is mutated only
// from the orchestrator task, never from a stage, and a single owner per
// request id makes the mutex a formality rather than a contention point.
type Graph struct {
	mu sync.Mutex

	RequestID        string
	Mode             core.ProcessingMode
	ConfigHash       string
	Thresholds       map[string]float64
	Timeouts         map[string]int
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DetectedBodyPartValue BodyPartSlot
	TriageLevelValue      TriageLevelSlot

	order []core.StepName
	steps map[core.StepName]*Step

	isFatal FatalCheck
}

// BodyPartSlot and TriageLevelSlot are optional-value holders so the zero
// value of Graph doesn't ambiguously mean BodyPartHand/TriageRed.
type BodyPartSlot struct {
	Value core.BodyPart
	Set   bool
}

type TriageLevelSlot struct {
	Value core.TriageLevel
	Set   bool
}

// New constructs an empty Graph for one request.
func New(requestID string, mode core.ProcessingMode, isFatal FatalCheck) *Graph {
	now := time.Now()
	return &Graph{
		RequestID: requestID,
		Mode:      mode,
		CreatedAt: now,
		UpdatedAt: now,
		order:     nil,
		steps:     make(map[core.StepName]*Step),
		isFatal:   isFatal,
	}
}

func (g *Graph) touch() {
	g.UpdatedAt = time.Now()
}

// AddStep appends a Step in PENDING; fails if the name already exists.
func (g *Graph) AddStep(name core.StepName) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.steps[name]; exists {
		return core.ErrStepAlreadyAdded
	}
	g.steps[name] = newStep(name)
	g.order = append(g.order, name)
	g.touch()
	return nil
}

// GetStep returns the step, or nil if it has not been added.
func (g *Graph) GetStep(name core.StepName) *Step {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.steps[name]
}

// Start marks a step RUNNING with the given attempt number.
func (g *Graph) Start(name core.StepName, attempt int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.steps[name]; ok {
		s.start(attempt, time.Now())
		g.touch()
	}
}

// Complete marks a step OK and projects extras.
func (g *Graph) Complete(name core.StepName, confidence *float64, artifacts map[string]string, extras map[string]interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.steps[name]
	if !ok {
		return
	}
	s.complete(confidence, artifacts, extras, time.Now())

	if name == core.StepRoute {
		if bp, ok := extras["body_part"].(core.BodyPart); ok {
			g.DetectedBodyPartValue = BodyPartSlot{Value: bp, Set: true}
		} else if bpStr, ok := extras["body_part"].(string); ok {
			g.DetectedBodyPartValue = BodyPartSlot{Value: core.BodyPart(bpStr), Set: true}
		}
	}
	if name == core.StepTriage {
		if lvl, ok := extras["level"].(core.TriageLevel); ok {
			g.TriageLevelValue = TriageLevelSlot{Value: lvl, Set: true}
		} else if lvlStr, ok := extras["level"].(string); ok {
			g.TriageLevelValue = TriageLevelSlot{Value: core.TriageLevel(lvlStr), Set: true}
		}
	}
	g.touch()
}

// Fail marks a step ERROR.
func (g *Graph) Fail(name core.StepName, message string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.steps[name]; ok {
		s.fail(message, time.Now())
		g.touch()
	}
}

// Timeout marks a step TIMEOUT.
func (g *Graph) Timeout(name core.StepName) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.steps[name]; ok {
		s.timeoutNow(time.Now())
		g.touch()
	}
}

// Skip marks a step SKIPPED with a reason.
func (g *Graph) Skip(name core.StepName, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.steps[name]; ok {
		s.skip(reason, time.Now())
		g.touch()
	}
}

// ResetForRetry reverts an ERROR/TIMEOUT step back to PENDING as a single
// internal operation.
func (g *Graph) ResetForRetry(name core.StepName) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.steps[name]; ok {
		s.resetForRetry()
		g.touch()
	}
}

// IsComplete reports whether every step is in a terminal status.
func (g *Graph) IsComplete() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, name := range g.order {
		if !g.steps[name].Status.IsTerminal() {
			return false
		}
	}
	return true
}

// HasFatalError reports whether any step whose policy marks it
// fatal_on_error ended in ERROR or TIMEOUT.
func (g *Graph) HasFatalError() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, name := range g.order {
		s := g.steps[name]
		if (s.Status == core.StatusError || s.Status == core.StatusTimeout) && g.isFatal != nil && g.isFatal(name) {
			return true
		}
	}
	return false
}

// Partial reports whether partial should be set: true iff at least one
// step is ERROR or TIMEOUT but no fatal-error step failed.
func (g *Graph) Partial() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	hasFailure := false
	hasFatal := false
	for _, name := range g.order {
		s := g.steps[name]
		if s.Status == core.StatusError || s.Status == core.StatusTimeout {
			hasFailure = true
			if g.isFatal != nil && g.isFatal(name) {
				hasFatal = true
			}
		}
	}
	return hasFailure && !hasFatal
}

// SuccessfulSteps returns the names of steps that ended OK.
func (g *Graph) SuccessfulSteps() []core.StepName {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []core.StepName
	for _, name := range g.order {
		if g.steps[name].Status == core.StatusOK {
			out = append(out, name)
		}
	}
	return out
}

// FailedSteps returns the names of steps that ended ERROR or TIMEOUT.
func (g *Graph) FailedSteps() []core.StepName {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []core.StepName
	for _, name := range g.order {
		if g.steps[name].Status == core.StatusError || g.steps[name].Status == core.StatusTimeout {
			out = append(out, name)
		}
	}
	return out
}

// Names returns the step names in insertion order.
func (g *Graph) Names() []core.StepName {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]core.StepName, len(g.order))
	copy(out, g.order)
	return out
}

// Projections renders every step's read-only view, in insertion order.
func (g *Graph) Projections() []core.StepProjection {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]core.StepProjection, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.steps[name].Projection())
	}
	return out
}

// AllArtifacts flattens every step's artifact map, last-write-wins on key
// collisions.
func (g *Graph) AllArtifacts() map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]string)
	for _, name := range g.order {
		for k, v := range g.steps[name].Artifacts {
			out[k] = v
		}
	}
	return out
}

// --- core.StepGraphView ---

// DetectedBodyPart implements core.StepGraphView.
func (g *Graph) DetectedBodyPart() (core.BodyPart, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.DetectedBodyPartValue.Value, g.DetectedBodyPartValue.Set
}

// TriageLevel implements core.StepGraphView.
func (g *Graph) TriageLevel() (core.TriageLevel, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.TriageLevelValue.Value, g.TriageLevelValue.Set
}

// StepStatus implements core.StepGraphView.
func (g *Graph) StepStatus(name core.StepName) (core.StepStatus, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.steps[name]
	if !ok {
		return "", false
	}
	return s.Status, true
}

// StepExtra implements core.StepGraphView.
func (g *Graph) StepExtra(name core.StepName, key string) (interface{}, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.steps[name]
	if !ok {
		return nil, false
	}
	v, ok := s.Extras[key]
	return v, ok
}
