package policy

import (
	"fmt"

	"github.com/tanishka786/triage-orchestrator/core"
)

// recognizedOverrideKeys is the closed set of override keys. Any other key
// is rejected with a validation error.
var recognizedOverrideKeys = map[string]bool{
	"router_threshold":                  true,
	"detector_score_min":                true,
	"nms_iou":                           true,
	"triage_red_threshold":              true,
	"triage_amber_threshold":            true,
	"triage_high_confidence_threshold":  true,
	"triage_red_patterns":               true,
	"triage_amber_patterns":             true,
	"triage_green_patterns":             true,
	"max_retries":                       true,
	"timeout_overrides":                 true,
}

// detectAlias is the reserved timeout_overrides key that applies to both
// detector steps.
const detectAlias = "detect"

// ValidateOverrides is a pure check: threshold ranges in [0,1], non-negative
// integers for max_retries, legal step names in timeout_overrides. It never
// mutates anything and returns every violation it finds.
func ValidateOverrides(overrides map[string]interface{}) []string {
	var errs []string

	for key := range overrides {
		if !recognizedOverrideKeys[key] {
			errs = append(errs, fmt.Sprintf("unrecognized override key %q", key))
		}
	}

	thresholdKeys := []string{
		"router_threshold", "detector_score_min", "nms_iou",
		"triage_red_threshold", "triage_amber_threshold", "triage_high_confidence_threshold",
	}
	for _, key := range thresholdKeys {
		raw, ok := overrides[key]
		if !ok {
			continue
		}
		v, ok := asFloat(raw)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s must be a number", key))
			continue
		}
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Sprintf("%s must be in [0,1], got %v", key, v))
		}
	}

	if raw, ok := overrides["max_retries"]; ok {
		v, isInt := asInt(raw)
		if !isInt || v < 0 {
			errs = append(errs, "max_retries must be a non-negative integer")
		}
	}

	if raw, ok := overrides["timeout_overrides"]; ok {
		m, ok := asStringMap(raw)
		if !ok {
			errs = append(errs, "timeout_overrides must be a mapping of step name to seconds")
		} else {
			for stepName, timeoutRaw := range m {
				if stepName != detectAlias && !isLegalStepName(stepName) {
					errs = append(errs, fmt.Sprintf("timeout_overrides: unknown step %q", stepName))
					continue
				}
				if v, isInt := asInt(timeoutRaw); !isInt || v <= 0 {
					errs = append(errs, fmt.Sprintf("timeout_overrides[%s] must be a positive integer", stepName))
				}
			}
		}
	}

	for _, key := range []string{"triage_red_patterns", "triage_amber_patterns", "triage_green_patterns"} {
		raw, ok := overrides[key]
		if !ok {
			continue
		}
		if _, ok := asStringSlice(raw); !ok {
			errs = append(errs, fmt.Sprintf("%s must be a list of strings", key))
		}
	}

	return errs
}

func isLegalStepName(name string) bool {
	switch core.StepName(name) {
	case core.StepValidate, core.StepRoute, core.StepDetectHand, core.StepDetectLeg,
		core.StepTriage, core.StepDiagnose, core.StepReport, core.StepHospitals:
		return true
	default:
		return false
	}
}

// ApplyOverrides returns a new Config with the indicated fields replaced.
// The base config is never mutated. Callers MUST validate overrides first; ApplyOverrides
// assumes well-formed input.
func ApplyOverrides(base *Config, overrides map[string]interface{}) *Config {
	next := &Config{
		Detection:  base.Detection,
		Triage:     base.Triage,
		Patterns:   base.Patterns,
		Steps:      copySteps(base.Steps),
		MaxRetries: base.MaxRetries,
		Version:    base.Version,
	}

	if v, ok := asFloat(overrides["router_threshold"]); ok {
		next.Detection.RouterThreshold = v
	}
	if v, ok := asFloat(overrides["detector_score_min"]); ok {
		next.Detection.DetectorScoreMin = v
	}
	if v, ok := asFloat(overrides["nms_iou"]); ok {
		next.Detection.NMSIoU = v
	}
	if v, ok := asFloat(overrides["triage_red_threshold"]); ok {
		next.Triage.RedThreshold = v
	}
	if v, ok := asFloat(overrides["triage_amber_threshold"]); ok {
		next.Triage.AmberThreshold = v
	}
	if v, ok := asFloat(overrides["triage_high_confidence_threshold"]); ok {
		next.Triage.HighConfidenceCutoff = v
	}
	if v, ok := asStringSlice(overrides["triage_red_patterns"]); ok {
		next.Patterns.Red = v
	}
	if v, ok := asStringSlice(overrides["triage_amber_patterns"]); ok {
		next.Patterns.Amber = v
	}
	if v, ok := asStringSlice(overrides["triage_green_patterns"]); ok {
		next.Patterns.Green = v
	}
	if v, ok := asInt(overrides["max_retries"]); ok {
		next.MaxRetries = v
		for name, p := range next.Steps {
			p.MaxRetries = v
			next.Steps[name] = p
		}
	}

	if m, ok := asStringMap(overrides["timeout_overrides"]); ok {
		for stepName, timeoutRaw := range m {
			secs, ok := asInt(timeoutRaw)
			if !ok {
				continue
			}
			targets := []core.StepName{core.StepName(stepName)}
			if stepName == detectAlias {
				targets = []core.StepName{core.StepDetectHand, core.StepDetectLeg}
			}
			for _, t := range targets {
				p, exists := next.Steps[t]
				if !exists {
					continue
				}
				p.TimeoutSeconds = secs
				next.Steps[t] = p
			}
		}
	}

	next.Hash = computeHash(next)
	return next
}

func copySteps(in map[core.StepName]StepPolicy) map[core.StepName]StepPolicy {
	out := make(map[core.StepName]StepPolicy, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func asStringSlice(v interface{}) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return s, true
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	default:
		return nil, false
	}
}

func asStringMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[string]int:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, true
	default:
		return nil, false
	}
}
