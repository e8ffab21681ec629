package tolerance_test

import (
	"regexp"
	"testing"

	"engine-bridge/core/tolerance"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestFirstMatchWins(t *testing.T) {
	// Two overlapping patterns: only the first may take effect.
	rs := tolerance.RuleSet{
		NameRules: []tolerance.NameRule{
			{Pattern: regexp.MustCompile(`^speed`), Absolute: f(0.5)},
			{Pattern: regexp.MustCompile(`speed_out`), Absolute: f(100)},
		},
	}
	cmp := rs.For(tolerance.Signal{Name: "speed_out", Kind: tolerance.KindFloatingPoint})

	assert.True(t, cmp.Decide(10.4, 10.0))
	assert.False(t, cmp.Decide(11.0, 10.0), "second rule's looser bound must not apply")
}

func TestEmptyRuleFallsThrough(t *testing.T) {
	// A matching rule without bounds must re-enter the fallback dispatch,
	// not silently pass everything.
	rs := tolerance.RuleSet{
		NameRules: []tolerance.NameRule{
			{Pattern: regexp.MustCompile(`.*`)},
		},
		FloatingPointDefault: &tolerance.Bounds{Absolute: f(0.01)},
	}
	cmp := rs.For(tolerance.Signal{Name: "anything", Kind: tolerance.KindFloatingPoint})

	assert.True(t, cmp.Decide(1.005, 1.0))
	assert.False(t, cmp.Decide(1.02, 1.0))
}

func TestFixedPointLSBMultiple(t *testing.T) {
	rs := tolerance.RuleSet{
		FixedPointDefault: &tolerance.Bounds{LSBMultiple: f(1)},
	}
	sig := tolerance.Signal{Name: "gear", Kind: tolerance.KindFixedPoint, LSB: 0.1}
	cmp := rs.For(sig)

	assert.True(t, cmp.Decide(5.1, 5.0), "|actual-reference| == 1*LSB must pass")
	assert.False(t, cmp.Decide(5.11, 5.0), "0.11 exceeds 1*LSB of 0.1")
}

func TestRelativeBound(t *testing.T) {
	rs := tolerance.RuleSet{
		FloatingPointDefault: &tolerance.Bounds{Absolute: f(1e-16), Relative: f(0.01)},
	}
	cmp := rs.For(tolerance.Signal{Name: "x", Kind: tolerance.KindFloatingPoint})

	// passes the relative bound even though the absolute bound is tiny
	assert.True(t, cmp.Decide(100.5, 100.0))
	assert.False(t, cmp.Decide(102.0, 100.0))
}

func TestStrictEqualityFallback(t *testing.T) {
	var rs tolerance.RuleSet
	cmp := rs.For(tolerance.Signal{Name: "flag", Kind: tolerance.KindOther})

	assert.True(t, cmp.Decide(1.0, 1.0))
	assert.False(t, cmp.Decide(1.0000001, 1.0))
}

func TestParseRuleSets(t *testing.T) {
	raw := map[string]any{
		"B2B": map[string]any{
			"signals": []any{
				map[string]any{"pattern": "^torque_", "abs": 0.001, "rel": "0.01"},
				map[string]any{"pattern": "(", "abs": 1}, // invalid regex, skipped
			},
			"floating-point": map[string]any{"abs": 1e-16, "rel": 1e-8},
			"fixed-point":    map[string]any{"abs": "1*LSB"},
		},
		"RBT": map[string]any{
			"floating-point": map[string]any{"rel": 0.004},
		},
	}

	sets := tolerance.ParseRuleSets(raw)
	assert.Len(t, sets, 2)

	b2b := sets["B2B"]
	assert.Len(t, b2b.NameRules, 1)
	assert.Equal(t, 0.001, *b2b.NameRules[0].Absolute)
	assert.Equal(t, 0.01, *b2b.NameRules[0].Relative)
	assert.Equal(t, 1e-16, *b2b.FloatingPointDefault.Absolute)
	assert.Nil(t, b2b.FixedPointDefault.Absolute)
	assert.Equal(t, 1.0, *b2b.FixedPointDefault.LSBMultiple)

	rbt := sets["RBT"]
	assert.Empty(t, rbt.NameRules)
	assert.Nil(t, rbt.FixedPointDefault)

	// LSB multiples from parsed config behave like configured bounds
	cmp := b2b.For(tolerance.Signal{Name: "counter", Kind: tolerance.KindFixedPoint, LSB: 0.1})
	assert.True(t, cmp.Decide(2.05, 2.0))
	assert.False(t, cmp.Decide(2.15, 2.0))
}
