package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigHashDeterministic(t *testing.T) {
	base := DefaultConfig()
	overrides := map[string]interface{}{
		"triage_red_patterns": []interface{}{"b_pattern", "a_pattern"},
		"router_threshold":    0.80,
	}

	first := ApplyOverrides(base, overrides)

	reordered := map[string]interface{}{
		"router_threshold":    0.80,
		"triage_red_patterns": []interface{}{"a_pattern", "b_pattern"},
	}
	second := ApplyOverrides(base, reordered)

	require.Equal(t, first.Hash, second.Hash, "reordered override keys must hash identically")
	assert.NotEqual(t, base.Hash, first.Hash, "an override hash must differ from the default hash")
}

func TestConfigHashStableAcrossEquivalentDefaults(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	assert.Equal(t, a.Hash, b.Hash)
}

func TestConfigHashLength(t *testing.T) {
	cfg := DefaultConfig()
	assert.Len(t, cfg.Hash, 16)
}
