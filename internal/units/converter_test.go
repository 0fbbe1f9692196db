package units

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func decOf(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func TestConverter_SameDimension(t *testing.T) {
	c := NewConverter()
	cases := []struct {
		name   string
		value  EngineNumber
		target string
		want   string
	}{
		{"kg to mt", NewFromFloat(1000, "kg"), "mt", "1"},
		{"mt to kg", NewFromFloat(1, "mt"), "kg", "1000"},
		{"units passthrough", NewFromFloat(5, "units"), "unit", "5"},
		{"percent passthrough", NewFromFloat(50, "%"), "percent", "50"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.Convert(tc.value, tc.target, StateSnapshot{})
			if err != nil {
				t.Fatalf("Convert failed: %v", err)
			}
			if !got.Value.Equal(decOf(t, tc.want)) {
				t.Errorf("got %s, want %s", got.Value, tc.want)
			}
		})
	}
}

func TestConverter_KgToUnitsNeedsAmortizedVolume(t *testing.T) {
	c := NewConverter()
	_, err := c.Convert(NewFromFloat(150, "kg"), "units", StateSnapshot{})
	if err == nil {
		t.Fatal("expected MissingConversionContext error, got nil")
	}

	amortized := decOf(t, "0.15")
	state := StateSnapshot{AmortizedUnitVolume: &amortized}
	got, err := c.Convert(NewFromFloat(150, "kg"), "units", state)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if !got.Value.Equal(decOf(t, "1000")) {
		t.Errorf("got %s, want 1000", got.Value)
	}
}

func TestConverter_KgToTco2eUsesGhgIntensity(t *testing.T) {
	c := NewConverter()
	intensity := decOf(t, "1430")
	state := StateSnapshot{GhgIntensity: &intensity}

	got, err := c.Convert(NewFromFloat(1_000_000, "kg"), "tCO2e", state)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	want := decOf(t, "1430000000")
	if !got.Value.Equal(want) {
		t.Errorf("got %s, want %s", got.Value, want)
	}
}

func TestConverter_RatioDenomination(t *testing.T) {
	c := NewConverter()
	got, err := c.Convert(NewFromFloat(0.15, "kg / unit"), "mt / unit", StateSnapshot{})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	want := decOf(t, "0.00015")
	if !got.Value.Equal(want) {
		t.Errorf("got %s, want %s", got.Value, want)
	}
}

// TestConverter_RoundTrip exercises spec.md §8 property 6: converting out
// and back along a path that doesn't need extra context returns the
// original value.
func TestConverter_RoundTrip(t *testing.T) {
	c := NewConverter()
	original := NewFromFloat(2.5, "mt")

	toKg, err := c.Convert(original, "kg", StateSnapshot{})
	if err != nil {
		t.Fatalf("Convert to kg failed: %v", err)
	}
	back, err := c.Convert(toKg, "mt", StateSnapshot{})
	if err != nil {
		t.Fatalf("Convert back to mt failed: %v", err)
	}
	if !back.Value.Equal(original.Value) {
		t.Errorf("round trip mismatch: got %s, want %s", back.Value, original.Value)
	}
}

// TestConverter_DivisionKeepsAtLeast34SignificantDigits exercises spec.md
// §3's "at least 34 significant digits" floor: a division that doesn't
// terminate in decimal (10 / 3) must not be truncated down to
// shopspring/decimal's package default of 16 digits after the point.
func TestConverter_DivisionKeepsAtLeast34SignificantDigits(t *testing.T) {
	c := NewConverter()
	amortized := decOf(t, "3")
	state := StateSnapshot{AmortizedUnitVolume: &amortized}

	got, err := c.Convert(NewFromFloat(10, "kg"), "units", state)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	frac := got.Value.String()
	dot := strings.IndexByte(frac, '.')
	if dot < 0 {
		t.Fatalf("expected a non-terminating fractional result, got %s", frac)
	}
	if digits := len(frac) - dot - 1; digits < 34 {
		t.Fatalf("expected at least 34 digits after the decimal point, got %d (%s)", digits, frac)
	}
}

func TestConverter_UnknownUnit(t *testing.T) {
	c := NewConverter()
	_, err := c.Convert(NewFromFloat(1, "furlongs"), "kg", StateSnapshot{})
	if err == nil {
		t.Fatal("expected BadUnits error, got nil")
	}
}
