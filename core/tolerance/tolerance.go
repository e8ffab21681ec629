package tolerance

import (
	"math"
	"regexp"
)

// NumericKind is the declared numeric representation of a signal.
type NumericKind int

const (
	// KindOther covers signals with no tolerance semantics (booleans, enums).
	KindOther NumericKind = iota
	// KindFloatingPoint covers float/double signals.
	KindFloatingPoint
	// KindFixedPoint covers integer-coded signals with an LSB below one.
	KindFixedPoint
)

// Signal describes one comparison target.
type Signal struct {
	Name string
	Kind NumericKind
	// LSB is the least-significant-bit step size of a fixed-point signal.
	// Required when a *LSB bound applies.
	LSB float64
}

// Bounds holds the tolerance limits of a fallback rule. Absolute and
// LSBMultiple are alternatives for the absolute bound; LSBMultiple is
// evaluated per signal since the LSB varies per signal.
type Bounds struct {
	Absolute    *float64
	Relative    *float64
	LSBMultiple *float64
}

// NameRule binds tolerance limits to signals whose name matches a pattern.
type NameRule struct {
	Pattern  *regexp.Regexp
	Absolute *float64
	Relative *float64
}

// RuleSet holds the tolerance rules of one testing scope (e.g. back-to-back
// or requirements-based). NameRules are ordered: the first match wins.
type RuleSet struct {
	NameRules            []NameRule
	FloatingPointDefault *Bounds
	FixedPointDefault    *Bounds
}

// Comparator judges pass/fail for one signal. The zero value demands strict
// equality.
type Comparator struct {
	absolute *float64
	relative *float64
}

// For resolves the comparator for a signal.
//
// Name rules are walked in declaration order and the first pattern matching
// the signal name wins. A rule that matches but defines neither bound is
// treated as if it did not exist. When no name rule applies the fallback for
// the signal's numeric kind is used; when that is absent too, the comparator
// demands strict equality.
func (rs RuleSet) For(sig Signal) Comparator {
	for _, rule := range rs.NameRules {
		if rule.Pattern == nil || !rule.Pattern.MatchString(sig.Name) {
			continue
		}
		if rule.Absolute == nil && rule.Relative == nil {
			continue
		}
		return Comparator{absolute: rule.Absolute, relative: rule.Relative}
	}

	var def *Bounds
	switch sig.Kind {
	case KindFloatingPoint:
		def = rs.FloatingPointDefault
	case KindFixedPoint:
		def = rs.FixedPointDefault
	}
	if def == nil {
		return Comparator{}
	}

	cmp := Comparator{absolute: def.Absolute, relative: def.Relative}
	if sig.Kind == KindFixedPoint && def.LSBMultiple != nil {
		abs := *def.LSBMultiple * sig.LSB
		cmp.absolute = &abs
	}
	return cmp
}

// Decide reports whether actual is within tolerance of reference. A value
// passes if it satisfies the absolute bound or the relative bound, whichever
// is configured; with both absent the values must be exactly equal.
func (c Comparator) Decide(actual, reference float64) bool {
	if c.absolute == nil && c.relative == nil {
		return actual == reference
	}
	diff := math.Abs(actual - reference)
	if c.absolute != nil && diff <= *c.absolute {
		return true
	}
	if c.relative != nil && diff <= math.Abs(reference)*(*c.relative) {
		return true
	}
	return false
}
