package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// hashableConfig is the subset of Config fields that participate in
// ConfigHash: thresholds, triage pattern lists, step policy
// table, version. Anything outside this set never affects the hash.
type hashableConfig struct {
	Detection DetectionThresholds           `json:"detection"`
	Triage    TriageThresholds              `json:"triage"`
	Patterns  TriagePatterns                `json:"patterns"`
	Steps     map[string]StepPolicy         `json:"steps"`
	Version   string                        `json:"version"`
}

// computeHash produces the hex-truncated SHA-256 of the canonical JSON
// serialization with sorted keys. Go's encoding/json already
// serializes struct fields in declaration order and map keys in sorted
// order, so we only need to ensure our input maps use string keys (sorted
// automatically by the encoder) and that no field outside the hashable set
// leaks in.
func computeHash(c *Config) string {
	steps := make(map[string]StepPolicy, len(c.Steps))
	for name, p := range c.Steps {
		steps[string(name)] = p
	}

	h := hashableConfig{
		Detection: c.Detection,
		Triage:    c.Triage,
		Patterns:  canonicalPatterns(c.Patterns),
		Steps:     steps,
		Version:   c.Version,
	}

	// json.Marshal on a map[string]T already sorts keys; struct fields
	// serialize in declaration order, giving a stable byte sequence for
	// identical logical configs.
	b, err := json.Marshal(h)
	if err != nil {
		// Marshaling a struct of plain value types never fails; this
		// branch exists only to satisfy the compiler.
		return ""
	}

	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:16]
}

// canonicalPatterns sorts each pattern list so that reordering the same set
// of overrides never changes the hash.
func canonicalPatterns(p TriagePatterns) TriagePatterns {
	sortCopy := func(in []string) []string {
		out := make([]string, len(in))
		copy(out, in)
		sort.Strings(out)
		return out
	}
	return TriagePatterns{
		Red:   sortCopy(p.Red),
		Amber: sortCopy(p.Amber),
		Green: sortCopy(p.Green),
	}
}
