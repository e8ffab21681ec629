// Package tolerance resolves numeric pass/fail comparators for signal
// comparisons.
//
// A RuleSet per testing scope holds ordered name-pattern rules plus two
// kind-based fallbacks (floating-point and fixed-point). Resolution walks
// the name rules first — first match wins — and falls back to the kind
// defaults, where fixed-point bounds may be expressed in multiples of the
// signal's LSB. When nothing applies the comparator demands strict equality,
// so resolution is total and never fails.
//
// # Usage
//
//	cmp := ruleSets["B2B"].For(tolerance.Signal{
//	    Name: "engine_speed",
//	    Kind: tolerance.KindFixedPoint,
//	    LSB:  0.1,
//	})
//	passed := cmp.Decide(actual, reference)
package tolerance
