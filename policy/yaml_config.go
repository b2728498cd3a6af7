package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlConfig is the on-disk shape for a non-default baseline PolicyConfig,
// letting operators ship threshold/pattern changes without recompiling,
// following the same declarative-config-via-YAML approach used elsewhere
// in this codebase.
type yamlConfig struct {
	Detection DetectionThresholds `yaml:"detection"`
	Triage    TriageThresholds    `yaml:"triage"`
	Patterns  TriagePatterns      `yaml:"patterns"`
	Version   string              `yaml:"version"`
}

// LoadDefaultsFromYAML reads a yamlConfig file and merges it over
// DefaultConfig()'s step-policy table (the step table itself is not
// YAML-configurable; only thresholds/patterns/version are, so max_retries
// and per-step timeouts, which ADVANCED-mode overrides can change, keep
// their default values here).
func LoadDefaultsFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy config %s: %w", path, err)
	}

	var parsed yamlConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing policy config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if parsed.Detection != (DetectionThresholds{}) {
		cfg.Detection = parsed.Detection
	}
	if parsed.Triage != (TriageThresholds{}) {
		cfg.Triage = parsed.Triage
	}
	if len(parsed.Patterns.Red) > 0 {
		cfg.Patterns.Red = parsed.Patterns.Red
	}
	if len(parsed.Patterns.Amber) > 0 {
		cfg.Patterns.Amber = parsed.Patterns.Amber
	}
	if len(parsed.Patterns.Green) > 0 {
		cfg.Patterns.Green = parsed.Patterns.Green
	}
	if parsed.Version != "" {
		cfg.Version = parsed.Version
	}
	cfg.Hash = computeHash(cfg)
	return cfg, nil
}
