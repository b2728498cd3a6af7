package policy

import (
	"fmt"
	"sync"

	"github.com/tanishka786/triage-orchestrator/core"
)

// Registry is the Policy & Gates subsystem (C2). It holds a default
// Config, derives per-request configs from overrides, and exposes the
// query helpers the Orchestrator uses during execution.
type Registry struct {
	defaultConfig *Config
	logger        core.Logger

	mu      sync.RWMutex
	bound   map[string]*Config // request_id -> derived config
}

// NewRegistry constructs a Registry seeded with the canonical default
// Config. Pass nil to use DefaultConfig().
func NewRegistry(defaultConfig *Config, logger core.Logger) *Registry {
	if defaultConfig == nil {
		defaultConfig = DefaultConfig()
	}
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Registry{
		defaultConfig: defaultConfig,
		logger:        logger,
		bound:         make(map[string]*Config),
	}
}

// DefaultConfig returns the registry's default configuration.
func (r *Registry) DefaultConfig() *Config {
	return r.defaultConfig
}

// ConfigFor derives and binds the PolicyConfig for a request. AUTO and GUIDED get the default config; ADVANCED validates and
// applies the supplied overrides. The chosen config is stored keyed by
// request id until Release is called.
func (r *Registry) ConfigFor(requestID string, mode core.ProcessingMode, overrides map[string]interface{}) (*Config, []string, error) {
	var cfg *Config

	switch mode {
	case core.ModeAuto, core.ModeGuided:
		cfg = r.defaultConfig
	case core.ModeAdvanced:
		if len(overrides) > 0 {
			if errs := ValidateOverrides(overrides); len(errs) > 0 {
				return nil, errs, fmt.Errorf("%w: %d validation error(s)", core.ErrInvalidOverride, len(errs))
			}
			cfg = ApplyOverrides(r.defaultConfig, overrides)
		} else {
			cfg = r.defaultConfig
		}
	default:
		return nil, nil, fmt.Errorf("unsupported processing mode %q", mode)
	}

	r.mu.Lock()
	r.bound[requestID] = cfg
	r.mu.Unlock()

	r.logger.Debug("bound policy config to request", map[string]interface{}{
		"request_id":  requestID,
		"mode":        string(mode),
		"config_hash": cfg.Hash,
	})

	return cfg, nil, nil
}

// get returns the bound config for a request, falling back to the default
// if none has been bound yet (defensive: callers should always ConfigFor
// first, but stray lookups must never panic).
func (r *Registry) get(requestID string) *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cfg, ok := r.bound[requestID]; ok {
		return cfg
	}
	return r.defaultConfig
}

// StepTimeoutSeconds returns the effective timeout for a step.
func (r *Registry) StepTimeoutSeconds(requestID string, step core.StepName) int {
	return r.get(requestID).StepPolicy(step).TimeoutSeconds
}

// ShouldRetry implements the retry semantics: retryCount <
// max_retries AND retry_policy != NEVER AND, for EXPONENTIAL, the error
// kind is transient.
func (r *Registry) ShouldRetry(requestID string, step core.StepName, retryCount int, errorKind core.ErrorKind) bool {
	p := r.get(requestID).StepPolicy(step)

	if p.RetryPolicy == core.RetryNever {
		return false
	}
	if retryCount >= p.MaxRetries {
		return false
	}
	switch p.RetryPolicy {
	case core.RetryOnce:
		return retryCount == 0
	case core.RetryExponential:
		return errorKind.IsTransient()
	default:
		return false
	}
}

// IsFatal reports whether a step's failure should stop the pipeline.
func (r *Registry) IsFatal(requestID string, step core.StepName) bool {
	return r.get(requestID).StepPolicy(step).FatalOnError
}

// CanSkip reports whether a step's outputs are optional in the response.
func (r *Registry) CanSkip(requestID string, step core.StepName) bool {
	return r.get(requestID).StepPolicy(step).Skippable
}

// DetectionThresholds returns the effective detection thresholds.
func (r *Registry) DetectionThresholds(requestID string) DetectionThresholds {
	return r.get(requestID).Detection
}

// TriageConfig returns the effective triage thresholds and patterns.
func (r *Registry) TriageConfig(requestID string) (TriageThresholds, TriagePatterns) {
	cfg := r.get(requestID)
	return cfg.Triage, cfg.Patterns
}

// Metadata returns a snapshot suitable for StepGraph.Thresholds/Timeouts
// and for telemetry tagging.
func (r *Registry) Metadata(requestID string) (configHash string, thresholds map[string]float64, timeouts map[string]int) {
	cfg := r.get(requestID)
	thresholds = map[string]float64{
		"router_threshold":                 cfg.Detection.RouterThreshold,
		"detector_score_min":               cfg.Detection.DetectorScoreMin,
		"nms_iou":                          cfg.Detection.NMSIoU,
		"triage_red_threshold":             cfg.Triage.RedThreshold,
		"triage_amber_threshold":           cfg.Triage.AmberThreshold,
		"triage_high_confidence_threshold": cfg.Triage.HighConfidenceCutoff,
	}
	timeouts = make(map[string]int, len(cfg.Steps))
	for name, p := range cfg.Steps {
		timeouts[string(name)] = p.TimeoutSeconds
	}
	return cfg.Hash, thresholds, timeouts
}

// ConfigForRequest exposes the bound Config directly (used by the
// orchestrator to build a core.PolicyView without re-deriving anything).
func (r *Registry) ConfigForRequest(requestID string) *Config {
	return r.get(requestID)
}

// Release discards the per-request binding.
func (r *Registry) Release(requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bound, requestID)
}
