// Package stage holds the Stage Registry: a thread-safe lookup from step
// name to handler.
package stage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tanishka786/triage-orchestrator/core"
)

// Registry maps step names to their Stage handler. Get reports a step with
// no registered handler as core.ErrNoStageHandler; the orchestrator then
// skips that step with the reason "No handler available".
type Registry struct {
	mu       sync.RWMutex
	handlers map[core.StepName]core.Stage
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[core.StepName]core.Stage)}
}

// Register binds a handler to a step name. Registering the same step name
// twice replaces the previous handler — useful for tests that swap in a
// fake mid-suite.
func (r *Registry) Register(name core.StepName, handler core.Stage) error {
	if handler == nil {
		return fmt.Errorf("stage registry: nil handler for step %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
	return nil
}

// Get returns the handler for a step, or core.ErrNoStageHandler if none is
// registered.
func (r *Registry) Get(name core.StepName) (core.Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrNoStageHandler, name)
	}
	return h, nil
}

// Has reports whether a step has a registered handler.
func (r *Registry) Has(name core.StepName) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Names returns every registered step name, sorted for deterministic
// iteration.
func (r *Registry) Names() []core.StepName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.StepName, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
