package tolerance

import (
	"regexp"
	"strconv"
	"strings"
)

// ParseRuleSets converts the raw `tolerances` section of a configuration
// file into rule sets keyed by scope name (e.g. "B2B", "RBT"). Parsing is
// lenient: malformed entries are skipped, never reported as errors, so a
// broken tolerance block cannot fail configuration resolution.
func ParseRuleSets(raw map[string]any) map[string]RuleSet {
	sets := make(map[string]RuleSet, len(raw))
	for scope, v := range raw {
		m, ok := toMap(v)
		if !ok {
			continue
		}
		sets[scope] = parseRuleSet(m)
	}
	return sets
}

func parseRuleSet(raw map[string]any) RuleSet {
	var rs RuleSet
	if list, ok := raw["signals"].([]any); ok {
		for _, item := range list {
			m, ok := toMap(item)
			if !ok {
				continue
			}
			pattern, _ := m["pattern"].(string)
			if pattern == "" {
				continue
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				continue
			}
			rule := NameRule{Pattern: re}
			rule.Absolute, _ = parseBound(m["abs"])
			rule.Relative, _ = parseBound(m["rel"])
			rs.NameRules = append(rs.NameRules, rule)
		}
	}
	rs.FloatingPointDefault = parseBounds(raw["floating-point"])
	rs.FixedPointDefault = parseBounds(raw["fixed-point"])
	return rs
}

func parseBounds(v any) *Bounds {
	m, ok := toMap(v)
	if !ok {
		return nil
	}
	var b Bounds
	b.Absolute, b.LSBMultiple = parseBound(m["abs"])
	b.Relative, _ = parseBound(m["rel"])
	if b.Absolute == nil && b.Relative == nil && b.LSBMultiple == nil {
		return nil
	}
	return &b
}

// parseBound accepts numeric literals and strings. A string of the form
// "N*LSB" yields an LSB multiple instead of a plain value.
func parseBound(v any) (value, lsbMultiple *float64) {
	switch b := v.(type) {
	case float64:
		return &b, nil
	case int:
		f := float64(b)
		return &f, nil
	case int64:
		f := float64(b)
		return &f, nil
	case string:
		s := strings.ToUpper(strings.TrimSpace(b))
		if factor, ok := strings.CutSuffix(s, "*LSB"); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(factor), 64); err == nil {
				return nil, &f
			}
			return nil, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f, nil
		}
	}
	return nil, nil
}

func toMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			if key, ok := k.(string); ok {
				out[key] = val
			}
		}
		return out, true
	default:
		return nil, false
	}
}
