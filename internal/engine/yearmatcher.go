package engine

// YearMatcher is an inclusive year range. Either bound may be absent
// (unbounded): nil Start means "beginning" (no lower bound), nil End means
// "onwards" (no upper bound).
type YearMatcher struct {
	Start *int
	End   *int
}

// AllYears matches every year.
func AllYears() YearMatcher {
	return YearMatcher{}
}

// NewYearMatcher builds a matcher from optional bounds, swapping them if
// both are present and out of order (spec.md §3 invariant: "when both
// bounds concrete, lower ≤ upper (swap if needed on construction)").
func NewYearMatcher(start, end *int) YearMatcher {
	if start != nil && end != nil && *start > *end {
		start, end = end, start
	}
	return YearMatcher{Start: start, End: end}
}

// FromBeginning matches every year up to and including end.
func FromBeginning(end int) YearMatcher {
	return YearMatcher{End: &end}
}

// Onwards matches every year from start onwards.
func Onwards(start int) YearMatcher {
	return YearMatcher{Start: &start}
}

// InRange reports whether y falls within the matcher's bounds, inclusive.
// InRange is idempotent and monotone under bound widening (spec.md §8
// property 5): widening either bound can only grow the set of matched
// years.
func (m YearMatcher) InRange(y int) bool {
	if m.Start != nil && y < *m.Start {
		return false
	}
	if m.End != nil && y > *m.End {
		return false
	}
	return true
}
