package units

import (
	"strings"

	"github.com/shopspring/decimal"
)

// minDivisionPrecision is the significant-digit floor spec.md §3 requires
// ("at least 34 significant digits") for values carried through
// shopspring/decimal's division. The package default
// (decimal.DivisionPrecision) is 16, tuned for float64 parity; every
// .Div call below — same-dimension rescales, kg/unit/tCO2e/kwh
// cross-dimension conversions, and ratio-denomination rescales — would
// silently truncate large population/kg magnitudes at that precision,
// which breaks the round-trip law convert(convert(x,u),orig)==x (spec.md
// §8 property 6) for values wider than 16 digits. Raised once at package
// load, since DivisionPrecision is a package-level global rather than
// something scoped to one Decimal or one Converter.
const minDivisionPrecision = 34

func init() {
	if decimal.DivisionPrecision < minDivisionPrecision {
		decimal.DivisionPrecision = minDivisionPrecision
	}
}

// dimension categorizes a non-ratio unit string and gives its scale factor
// relative to the stream's base unit for that dimension (kg for mass,
// units for population, tCO2e for GHG, kwh for energy, fraction for
// percent, a bare count for year/years).
type dimension struct {
	kind  string
	scale decimal.Decimal
}

var knownUnits = map[string]dimension{
	"kg":      {"mass", decimal.NewFromInt(1)},
	"mt":      {"mass", decimal.NewFromInt(1000)},
	"unit":    {"population", decimal.NewFromInt(1)},
	"units":   {"population", decimal.NewFromInt(1)},
	"tco2e":   {"ghg", decimal.NewFromInt(1)},
	"kwh":     {"energy", decimal.NewFromInt(1)},
	"%":       {"percent", decimal.NewFromInt(1)},
	"percent": {"percent", decimal.NewFromInt(1)},
	"year":    {"year", decimal.NewFromInt(1)},
	"years":   {"year", decimal.NewFromInt(1)},
}

func lookupDimension(unit string) (dimension, bool) {
	d, ok := knownUnits[strings.ToLower(strings.TrimSpace(unit))]
	return d, ok
}

// Converter translates an EngineNumber into a target unit string. It holds
// no state of its own: every call supplies the StateSnapshot that resolves
// cross-dimension conversions needing "current context" (spec.md §4.1).
type Converter struct{}

// NewConverter returns a ready-to-use Converter.
func NewConverter() *Converter {
	return &Converter{}
}

// Convert translates value into targetUnit using state for any
// cross-dimension context it requires. state is expected to already be the
// result of layering a call-scoped overlay over the engine's base
// snapshot (StateSnapshot.WithOverlay).
func (c *Converter) Convert(value EngineNumber, targetUnit string, state StateSnapshot) (EngineNumber, error) {
	if value.Units == targetUnit {
		return value, nil
	}

	srcNum, srcDen, srcRatio := splitRatio(value.Units)
	dstNum, dstDen, dstRatio := splitRatio(targetUnit)

	if srcRatio || dstRatio {
		return c.convertRatio(value, srcNum, srcDen, dstNum, dstDen, srcRatio, dstRatio, state)
	}

	result, err := c.convertScalar(value.Value, value.Units, targetUnit, state)
	if err != nil {
		return EngineNumber{}, err
	}
	return EngineNumber{Value: result, Units: targetUnit}, nil
}

// splitRatio splits a unit like "kg / unit" into ("kg", "unit", true); a
// plain unit like "kg" returns ("kg", "", false).
func splitRatio(unit string) (numerator, denominator string, isRatio bool) {
	if !strings.Contains(unit, "/") {
		return strings.TrimSpace(unit), "", false
	}
	parts := strings.SplitN(unit, "/", 2)
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

// convertScalar converts a plain (non-ratio) unit, consulting state for any
// of the cross-dimension pairs spec.md §4.1 lists.
func (c *Converter) convertScalar(value decimal.Decimal, src, dst string, state StateSnapshot) (decimal.Decimal, error) {
	srcDim, ok := lookupDimension(src)
	if !ok {
		return decimal.Decimal{}, &BadUnitsError{From: src, To: dst}
	}
	dstDim, ok := lookupDimension(dst)
	if !ok {
		return decimal.Decimal{}, &BadUnitsError{From: src, To: dst}
	}

	// "years"/"year" as a conversion target reads the engine's current
	// context rather than rescaling the input magnitude (spec.md §4.1:
	// "years/year constants (uses years elapsed / absolute year)").
	if dstDim.kind == "year" && srcDim.kind != "year" {
		if strings.EqualFold(dst, "years") {
			v, err := state.require(ScalarYearsElapsed, "converting to years")
			return v, err
		}
		v, err := state.require(ScalarYearAbsolute, "converting to year")
		return v, err
	}

	if srcDim.kind == dstDim.kind {
		base := value.Mul(srcDim.scale)
		return base.Div(dstDim.scale), nil
	}

	switch {
	case srcDim.kind == "mass" && dstDim.kind == "population":
		amortized, err := state.require(ScalarAmortizedUnitVolume, "kg to unit conversion")
		if err != nil {
			return decimal.Decimal{}, err
		}
		if amortized.IsZero() {
			return decimal.Decimal{}, &ScalarError{Scalar: ScalarAmortizedUnitVolume, Reason: "amortized unit volume is zero"}
		}
		kg := value.Mul(srcDim.scale)
		return kg.Div(amortized).Div(dstDim.scale), nil

	case srcDim.kind == "population" && dstDim.kind == "mass":
		amortized, err := state.require(ScalarAmortizedUnitVolume, "unit to kg conversion")
		if err != nil {
			return decimal.Decimal{}, err
		}
		units := value.Mul(srcDim.scale)
		return units.Mul(amortized).Div(dstDim.scale), nil

	case srcDim.kind == "mass" && dstDim.kind == "ghg":
		intensity, err := state.require(ScalarGhgIntensity, "kg to tCO2e conversion")
		if err != nil {
			return decimal.Decimal{}, err
		}
		kg := value.Mul(srcDim.scale)
		return kg.Mul(intensity).Div(dstDim.scale), nil

	case srcDim.kind == "ghg" && dstDim.kind == "mass":
		intensity, err := state.require(ScalarGhgIntensity, "tCO2e to kg conversion")
		if err != nil {
			return decimal.Decimal{}, err
		}
		if intensity.IsZero() {
			return decimal.Decimal{}, &ScalarError{Scalar: ScalarGhgIntensity, Reason: "GHG intensity is zero"}
		}
		tco2e := value.Mul(srcDim.scale)
		return tco2e.Div(intensity).Div(dstDim.scale), nil

	case srcDim.kind == "mass" && dstDim.kind == "energy":
		intensity, err := state.require(ScalarEnergyIntensity, "kg to kwh conversion")
		if err != nil {
			return decimal.Decimal{}, err
		}
		kg := value.Mul(srcDim.scale)
		return kg.Mul(intensity).Div(dstDim.scale), nil

	case srcDim.kind == "energy" && dstDim.kind == "mass":
		intensity, err := state.require(ScalarEnergyIntensity, "kwh to kg conversion")
		if err != nil {
			return decimal.Decimal{}, err
		}
		if intensity.IsZero() {
			return decimal.Decimal{}, &ScalarError{Scalar: ScalarEnergyIntensity, Reason: "energy intensity is zero"}
		}
		kwh := value.Mul(srcDim.scale)
		return kwh.Div(intensity).Div(dstDim.scale), nil

	case srcDim.kind == "population" && dstDim.kind == "percent":
		population, err := state.require(ScalarPopulation, "unit to percent conversion")
		if err != nil {
			return decimal.Decimal{}, err
		}
		if population.IsZero() {
			return decimal.Decimal{}, &ScalarError{Scalar: ScalarPopulation, Reason: "population is zero"}
		}
		units := value.Mul(srcDim.scale)
		fraction := units.Div(population)
		return fraction.Mul(decimal.NewFromInt(100)).Div(dstDim.scale), nil

	case srcDim.kind == "percent" && dstDim.kind == "population":
		population, err := state.require(ScalarPopulation, "percent to unit conversion")
		if err != nil {
			return decimal.Decimal{}, err
		}
		fraction := value.Mul(srcDim.scale).Div(decimal.NewFromInt(100))
		return fraction.Mul(population).Div(dstDim.scale), nil

	case srcDim.kind == "mass" && dstDim.kind == "percent":
		denom, key, err := c.volumeOrConsumption(state, "kg to percent conversion")
		if err != nil {
			return decimal.Decimal{}, err
		}
		if denom.IsZero() {
			return decimal.Decimal{}, &ScalarError{Scalar: key, Reason: "denominator is zero"}
		}
		kg := value.Mul(srcDim.scale)
		return kg.Div(denom).Mul(decimal.NewFromInt(100)).Div(dstDim.scale), nil

	case srcDim.kind == "percent" && dstDim.kind == "mass":
		denom, _, err := c.volumeOrConsumption(state, "percent to kg conversion")
		if err != nil {
			return decimal.Decimal{}, err
		}
		fraction := value.Mul(srcDim.scale).Div(decimal.NewFromInt(100))
		return fraction.Mul(denom).Div(dstDim.scale), nil

	default:
		return decimal.Decimal{}, &BadUnitsError{From: src, To: dst}
	}
}

// volumeOrConsumption resolves the denominator for kg<->% conversions:
// sales volume when available, consumption otherwise (spec.md §4.1: "kg ↔
// % (uses volume or consumption)").
func (c *Converter) volumeOrConsumption(state StateSnapshot, reason string) (decimal.Decimal, ScalarKey, error) {
	if state.Volume != nil {
		return *state.Volume, ScalarVolume, nil
	}
	if state.Consumption != nil {
		return *state.Consumption, ScalarConsumption, nil
	}
	return decimal.Decimal{}, ScalarVolume, &ScalarError{Scalar: ScalarVolume, Reason: reason}
}

// convertRatio handles denominated units like "kg / unit", "tCO2e / kg", or
// "kg / year": the numerator is converted as its own dimension, and the
// denominator is rescaled using the same-dimension factor between the two
// denominator units (both sides of a ratio conversion must share a
// denominator dimension; spec.md §4.1 lists this as "ratio denominations").
func (c *Converter) convertRatio(value EngineNumber, srcNum, srcDen, dstNum, dstDen string, srcRatio, dstRatio bool, state StateSnapshot) (EngineNumber, error) {
	if !srcRatio || !dstRatio {
		return EngineNumber{}, &BadUnitsError{From: value.Units, To: dstNum + " / " + dstDen}
	}

	numConverted, err := c.convertScalar(value.Value, srcNum, dstNum, state)
	if err != nil {
		return EngineNumber{}, err
	}

	srcDenDim, ok := lookupDimension(srcDen)
	if !ok {
		return EngineNumber{}, &BadUnitsError{From: srcDen, To: dstDen}
	}
	dstDenDim, ok := lookupDimension(dstDen)
	if !ok {
		return EngineNumber{}, &BadUnitsError{From: srcDen, To: dstDen}
	}
	if srcDenDim.kind != dstDenDim.kind {
		return EngineNumber{}, &BadUnitsError{From: srcDen, To: dstDen}
	}

	// A larger denominator unit (e.g. mt vs kg) means each denominator-unit
	// covers more base quantity, so the per-unit ratio grows by the same
	// factor the denominator grows.
	factor := dstDenDim.scale.Div(srcDenDim.scale)
	result := numConverted.Mul(factor)

	return EngineNumber{Value: result, Units: dstNum + " / " + dstDen}, nil
}
