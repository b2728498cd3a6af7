package telemetry

import (
	"context"
	"time"

	"github.com/tanishka786/triage-orchestrator/core"
)

// Event is one auditable record: a step transition or a request-level
// milestone, emitting auditable per-step telemetry.
type Event struct {
	RequestID  string                 `json:"request_id"`
	StepName   core.StepName          `json:"step_name,omitempty"`
	Kind       string                 `json:"kind"`
	Status     core.StepStatus        `json:"status,omitempty"`
	ConfigHash string                 `json:"config_hash,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Event kinds.
const (
	EventStepStarted   = "step_started"
	EventStepCompleted = "step_completed"
	EventRequestDone   = "request_done"
)

// Sink receives Events. Implementations must not block the caller for long
// — Hooks already buffers and drops under backpressure, but a Sink that
// blocks inside Consume defeats that.
type Sink interface {
	Consume(Event)
}

// Hooks fans Events out to zero or more Sinks over a buffered channel. A
// full buffer drops the event rather than blocking the orchestrator's hot
// path.
type Hooks struct {
	events  chan Event
	sinks   []Sink
	logger  core.Logger
	metrics *Metrics
	done    chan struct{}
}

// NewHooks starts the background fan-out goroutine. Call Close to stop it.
func NewHooks(bufferSize int, logger core.Logger, metrics *Metrics, sinks ...Sink) *Hooks {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if bufferSize <= 0 {
		bufferSize = 256
	}
	h := &Hooks{
		events:  make(chan Event, bufferSize),
		sinks:   sinks,
		logger:  logger,
		metrics: metrics,
		done:    make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hooks) run() {
	for ev := range h.events {
		for _, sink := range h.sinks {
			sink.Consume(ev)
		}
	}
	close(h.done)
}

// Emit queues an event without blocking; if the buffer is full the event is
// dropped and a warning is logged.
func (h *Hooks) Emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case h.events <- ev:
	default:
		h.logger.Warn("telemetry event dropped: buffer full", map[string]interface{}{
			"request_id": ev.RequestID,
			"kind":       ev.Kind,
		})
	}
}

// StepStarted emits a step_started event.
func (h *Hooks) StepStarted(requestID string, step core.StepName) {
	h.Emit(Event{RequestID: requestID, StepName: step, Kind: EventStepStarted})
}

// StepCompleted emits a step_completed event and records the matching
// metric sample.
func (h *Hooks) StepCompleted(requestID string, step core.StepName, status core.StepStatus, durationMS int64) {
	h.Emit(Event{RequestID: requestID, StepName: step, Kind: EventStepCompleted, Status: status})
	if h.metrics != nil {
		h.metrics.RecordStep(context.Background(), string(step), string(status), float64(durationMS))
	}
}

// RequestDone emits a request_done event and records the request metric.
func (h *Hooks) RequestDone(requestID, configHash string, partial bool) {
	h.Emit(Event{RequestID: requestID, Kind: EventRequestDone, ConfigHash: configHash, Fields: map[string]interface{}{"partial": partial}})
	if h.metrics != nil {
		h.metrics.RecordRequest(context.Background(), configHash, partial)
	}
}

// Close stops the fan-out goroutine once the buffer drains.
func (h *Hooks) Close() {
	close(h.events)
	<-h.done
}
