package units

import "github.com/shopspring/decimal"

// ScalarKey names one of the scalars the converter may need from the
// current simulation context to complete a cross-dimension conversion.
type ScalarKey string

const (
	ScalarPopulation          ScalarKey = "population"
	ScalarVolume              ScalarKey = "volume"
	ScalarConsumption         ScalarKey = "consumption"
	ScalarGhgIntensity        ScalarKey = "ghgIntensity"
	ScalarEnergyIntensity     ScalarKey = "energyIntensity"
	ScalarAmortizedUnitVolume ScalarKey = "amortizedUnitVolume"
	ScalarYearsElapsed        ScalarKey = "yearsElapsed"
	ScalarYearAbsolute        ScalarKey = "yearAbsolute"
)

// StateSnapshot is a plain record of optional scalars describing "current
// context" at the moment of a conversion: population, sales volume, GHG
// intensity, energy intensity, amortized unit volume, years elapsed, and
// the absolute year. Every field is a pointer so absence is distinguishable
// from a legitimate zero value (design note in spec.md §9: "a plain record
// of Option<EngineNumber> fields layered over a base snapshot").
type StateSnapshot struct {
	Population          *decimal.Decimal
	Volume               *decimal.Decimal
	Consumption          *decimal.Decimal
	GhgIntensity         *decimal.Decimal
	EnergyIntensity      *decimal.Decimal
	AmortizedUnitVolume  *decimal.Decimal
	YearsElapsed         *decimal.Decimal
	YearAbsolute         *decimal.Decimal
}

// Dec is a small helper for call sites building a snapshot from literals.
func Dec(v decimal.Decimal) *decimal.Decimal { return &v }

// get returns the scalar named by key, or nil if unset.
func (s StateSnapshot) get(key ScalarKey) *decimal.Decimal {
	switch key {
	case ScalarPopulation:
		return s.Population
	case ScalarVolume:
		return s.Volume
	case ScalarConsumption:
		return s.Consumption
	case ScalarGhgIntensity:
		return s.GhgIntensity
	case ScalarEnergyIntensity:
		return s.EnergyIntensity
	case ScalarAmortizedUnitVolume:
		return s.AmortizedUnitVolume
	case ScalarYearsElapsed:
		return s.YearsElapsed
	case ScalarYearAbsolute:
		return s.YearAbsolute
	default:
		return nil
	}
}

// require returns the named scalar or a *ScalarError describing what's
// missing and why the conversion needed it.
func (s StateSnapshot) require(key ScalarKey, reason string) (decimal.Decimal, error) {
	if v := s.get(key); v != nil {
		return *v, nil
	}
	return decimal.Decimal{}, &ScalarError{Scalar: key, Reason: reason}
}

// WithOverlay layers non-nil fields of overlay over s, returning a new
// snapshot. Neither s nor overlay is mutated; the result is scoped to a
// single conversion call, matching spec.md §4.1's "short-lived, scoped to a
// single conversion call" overlay semantics.
func (s StateSnapshot) WithOverlay(overlay StateSnapshot) StateSnapshot {
	merged := s
	if overlay.Population != nil {
		merged.Population = overlay.Population
	}
	if overlay.Volume != nil {
		merged.Volume = overlay.Volume
	}
	if overlay.Consumption != nil {
		merged.Consumption = overlay.Consumption
	}
	if overlay.GhgIntensity != nil {
		merged.GhgIntensity = overlay.GhgIntensity
	}
	if overlay.EnergyIntensity != nil {
		merged.EnergyIntensity = overlay.EnergyIntensity
	}
	if overlay.AmortizedUnitVolume != nil {
		merged.AmortizedUnitVolume = overlay.AmortizedUnitVolume
	}
	if overlay.YearsElapsed != nil {
		merged.YearsElapsed = overlay.YearsElapsed
	}
	if overlay.YearAbsolute != nil {
		merged.YearAbsolute = overlay.YearAbsolute
	}
	return merged
}
