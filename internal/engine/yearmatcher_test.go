package engine

import "testing"

func TestYearMatcherInRangeBounds(t *testing.T) {
	m := FromBeginning(2030)
	if !m.InRange(2030) || m.InRange(2031) {
		t.Fatal("FromBeginning(2030) should include 2030 and exclude 2031")
	}

	m = Onwards(2030)
	if !m.InRange(2030) || m.InRange(2029) {
		t.Fatal("Onwards(2030) should include 2030 and exclude 2029")
	}

	if !AllYears().InRange(1900) || !AllYears().InRange(2100) {
		t.Fatal("AllYears should match any year")
	}
}

func TestYearMatcherConstructionSwapsInvertedBounds(t *testing.T) {
	start, end := 2035, 2025
	m := NewYearMatcher(&start, &end)
	if !m.InRange(2030) {
		t.Fatal("expected inverted bounds to be swapped on construction")
	}
	if m.InRange(2036) || m.InRange(2024) {
		t.Fatal("expected swapped bounds to still exclude years outside the range")
	}
}

func TestYearMatcherWideningIsMonotone(t *testing.T) {
	start, end := 2030, 2035
	narrow := NewYearMatcher(&start, &end)
	widerEnd := 2040
	wide := NewYearMatcher(&start, &widerEnd)

	for y := 2020; y <= 2045; y++ {
		if narrow.InRange(y) && !wide.InRange(y) {
			t.Fatalf("widening end bound should never shrink the matched set (year %d)", y)
		}
	}
}
