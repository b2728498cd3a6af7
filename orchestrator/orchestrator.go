// Package orchestrator implements the request orchestration engine (C6):
// the top-level executor that derives policy, builds the step graph,
// drives stage execution under per-step deadlines and retry policies, and
// assembles the final ProcessingResponse.
package orchestrator

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/tanishka786/triage-orchestrator/core"
	"github.com/tanishka786/triage-orchestrator/policy"
	"github.com/tanishka786/triage-orchestrator/stage"
	"github.com/tanishka786/triage-orchestrator/stepgraph"
	"github.com/tanishka786/triage-orchestrator/telemetry"
)

// minRetryBackoff is the floor on the sleep between retry attempts.
const minRetryBackoff = 500 * time.Millisecond

// Orchestrator wires the Policy Registry, Stage Registry, Artifact Store,
// and Telemetry Hooks together and owns the active-requests table.
type Orchestrator struct {
	policies  *policy.Registry
	stages    *stage.Registry
	store     core.ArtifactStore
	hooks     *telemetry.Hooks
	logger    core.Logger
	snapshots SnapshotStore

	mu     sync.RWMutex
	active map[string]*stepgraph.Graph
}

// New constructs an Orchestrator. Pass nil for hooks/logger to use no-op
// defaults. Use WithSnapshotStore to attach durable snapshot persistence.
func New(policies *policy.Registry, stages *stage.Registry, store core.ArtifactStore, hooks *telemetry.Hooks, logger core.Logger) *Orchestrator {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Orchestrator{
		policies: policies,
		stages:   stages,
		store:    store,
		hooks:    hooks,
		logger:   logger,
		active:   make(map[string]*stepgraph.Graph),
	}
}

// WithSnapshotStore attaches a SnapshotStore and returns the same
// Orchestrator for chaining.
func (o *Orchestrator) WithSnapshotStore(s SnapshotStore) *Orchestrator {
	o.snapshots = s
	return o
}

// Process is the single entry point: Phase 1 construction through Phase 4
// response assembly.
func (o *Orchestrator) Process(ctx context.Context, request *core.ProcessingRequest) (*core.ProcessingResponse, error) {
	cfg, validationErrs, err := o.policies.ConfigFor(request.RequestID, request.Mode, request.Overrides)
	if err != nil {
		return nil, fmt.Errorf("deriving policy config: %w (%v)", err, validationErrs)
	}
	defer o.policies.Release(request.RequestID)

	g := stepgraph.New(request.RequestID, request.Mode, func(step core.StepName) bool {
		return o.policies.IsFatal(request.RequestID, step)
	})
	g.ConfigHash = cfg.Hash
	_, g.Thresholds, g.Timeouts = o.policies.Metadata(request.RequestID)

	o.register(request.RequestID, g)

	o.logger.InfoWithContext(ctx, "request started", map[string]interface{}{
		"request_id":  request.RequestID,
		"mode":        string(request.Mode),
		"config_hash": cfg.Hash,
	})

	seedConstruction(g, request)

	guidedPrompts, consentPrompts := o.executeControlFlow(ctx, request, g)

	response := o.assembleResponse(request, g, cfg, guidedPrompts, consentPrompts)

	if o.hooks != nil {
		o.hooks.RequestDone(request.RequestID, cfg.Hash, response.Partial)
	}
	o.persistSnapshot(response)

	return response, nil
}

// register/unregister/GetStatus/ListActive/Cleanup implement the external
// interfaces that need the shared active-requests table.

func (o *Orchestrator) register(requestID string, g *stepgraph.Graph) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active[requestID] = g
}

func (o *Orchestrator) unregister(requestID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, requestID)
}

// GetStatus returns the step projections for a registered request, whether
// still in flight or completed and not yet cleaned up.
func (o *Orchestrator) GetStatus(requestID string) ([]core.StepProjection, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	g, ok := o.active[requestID]
	if !ok {
		return nil, fmt.Errorf("request %q: %w", requestID, core.ErrRequestNotFound)
	}
	return g.Projections(), nil
}

// ListActive returns up to 50 summaries, most recently updated first.
func (o *Orchestrator) ListActive() []core.RequestSummary {
	o.mu.RLock()
	graphs := make([]*stepgraph.Graph, 0, len(o.active))
	for _, g := range o.active {
		graphs = append(graphs, g)
	}
	o.mu.RUnlock()

	sort.Slice(graphs, func(i, j int) bool { return graphs[i].UpdatedAt.After(graphs[j].UpdatedAt) })

	limit := 50
	if len(graphs) < limit {
		limit = len(graphs)
	}

	out := make([]core.RequestSummary, 0, limit)
	for _, g := range graphs[:limit] {
		out = append(out, summarize(g))
	}
	return out
}

func summarize(g *stepgraph.Graph) core.RequestSummary {
	status := "running"
	if g.IsComplete() {
		if g.HasFatalError() {
			status = "failed"
		} else {
			status = "completed"
		}
	}

	names := g.Names()
	completed := 0
	for _, n := range names {
		if st, ok := g.StepStatus(n); ok && st.IsTerminal() {
			completed++
		}
	}

	bodyPart, _ := g.DetectedBodyPart()
	level, _ := g.TriageLevel()

	return core.RequestSummary{
		RequestID:      g.RequestID,
		Mode:           g.Mode,
		Status:         status,
		Partial:        g.Partial(),
		CreatedAt:      g.CreatedAt,
		UpdatedAt:      g.UpdatedAt,
		StepsCompleted: completed,
		StepsTotal:     len(names),
		DetectedPart:   bodyPart,
		TriageLevel:    level,
	}
}

// Cleanup deletes a request's step graph and every artifact it referenced.
func (o *Orchestrator) Cleanup(ctx context.Context, requestID string) (core.CleanupCounts, error) {
	o.mu.Lock()
	g, ok := o.active[requestID]
	delete(o.active, requestID)
	o.mu.Unlock()

	if !ok {
		return core.CleanupCounts{}, fmt.Errorf("request %q: %w", requestID, core.ErrRequestNotFound)
	}

	artifacts := g.AllArtifacts()
	removed := 0
	for _, id := range artifacts {
		if ok, _ := o.store.Delete(ctx, id); ok {
			removed++
		}
	}

	return core.CleanupCounts{
		StepsRemoved:     len(g.Names()),
		ArtifactsRemoved: removed,
	}, nil
}

// runStep implements Phase 3 for a single step: lookup,
// deadline race, retry/fatal/continue decision. It returns true iff the
// step failed fatally and the caller should stop scheduling further steps.
func (o *Orchestrator) runStep(ctx context.Context, request *core.ProcessingRequest, g *stepgraph.Graph, step core.StepName) bool {
	handler, err := o.stages.Get(step)
	if err != nil {
		g.Skip(step, "No handler available")
		o.emitCompleted(request.RequestID, g, step)
		return false
	}

	attempt := 0
	for {
		g.Start(step, attempt)
		if o.hooks != nil {
			o.hooks.StepStarted(request.RequestID, step)
		}

		timeoutSecs := o.policies.StepTimeoutSeconds(request.RequestID, step)
		deadline := time.Now().Add(time.Duration(timeoutSecs) * time.Second)

		kind, fatal, result := o.invoke(ctx, request, g, handler, step, deadline)

		switch {
		case kind == "":
			g.Complete(step, result.Confidence, result.Artifacts, result.Extras)
			o.emitCompleted(request.RequestID, g, step)
			return false

		default:
			if o.policies.ShouldRetry(request.RequestID, step, attempt, kind) {
				o.emitCompleted(request.RequestID, g, step)
				time.Sleep(retryBackoff(attempt))
				g.ResetForRetry(step)
				attempt++
				continue
			}
			o.emitCompleted(request.RequestID, g, step)
			return fatal
		}
	}
}

// invoke runs one attempt of a stage, racing it against its deadline. It
// returns the error_kind ("" on success), whether the step's policy marks
// it fatal, and the StageResult on success.
func (o *Orchestrator) invoke(ctx context.Context, request *core.ProcessingRequest, g *stepgraph.Graph, handler core.Stage, step core.StepName, deadline time.Time) (core.ErrorKind, bool, *core.StageResult) {
	stageCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	cfg := o.policies.ConfigForRequest(request.RequestID)

	type outcome struct {
		result *core.StageResult
		err    error
	}
	resultCh := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- outcome{nil, core.NewStageError(core.ErrorKindInternal, fmt.Sprintf("stage panic: %v", r))}
			}
		}()
		res, err := handler.Run(stageCtx, request, g, cfg, deadline)
		resultCh <- outcome{res, err}
	}()

	select {
	case <-stageCtx.Done():
		g.Timeout(step)
		return core.ErrorKindTimeout, o.policies.IsFatal(request.RequestID, step), nil

	case out := <-resultCh:
		if out.err != nil {
			se := core.AsStageError(out.err)
			g.Fail(step, se.Message)
			return se.Kind, o.policies.IsFatal(request.RequestID, step), nil
		}
		return "", false, out.result
	}
}

func (o *Orchestrator) emitCompleted(requestID string, g *stepgraph.Graph, step core.StepName) {
	if o.hooks == nil {
		return
	}
	status, _ := g.StepStatus(step)
	var durationMS int64
	if s := g.GetStep(step); s != nil {
		if d := s.DurationMS(); d != nil {
			durationMS = *d
		}
	}
	o.hooks.StepCompleted(requestID, step, status, durationMS)
}

func retryBackoff(attempt int) time.Duration {
	factor := math.Pow(2, float64(attempt))
	d := time.Duration(float64(minRetryBackoff) * factor)
	const maxBackoff = 5 * time.Second
	if d > maxBackoff {
		return maxBackoff
	}
	if d < minRetryBackoff {
		return minRetryBackoff
	}
	return d
}

// runConcurrently executes several steps in parallel, waiting for all to
// reach a terminal status. It returns true iff any of them
// failed fatally.
func (o *Orchestrator) runConcurrently(ctx context.Context, request *core.ProcessingRequest, g *stepgraph.Graph, steps []core.StepName) bool {
	var wg sync.WaitGroup
	fatal := make([]bool, len(steps))

	for i, step := range steps {
		wg.Add(1)
		go func(i int, step core.StepName) {
			defer wg.Done()
			fatal[i] = o.runStep(ctx, request, g, step)
		}(i, step)
	}
	wg.Wait()

	for _, f := range fatal {
		if f {
			return true
		}
	}
	return false
}
