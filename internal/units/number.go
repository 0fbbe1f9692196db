// Package units implements the engine's unit-aware number type and the
// unit converter that translates between mass, population, GHG, energy,
// and percentage denominations using a short-lived, overridable snapshot
// of simulation state.
package units

import (
	"strings"

	"github.com/shopspring/decimal"
)

// EngineNumber is an immutable (magnitude, unit) pair. decimal.Decimal is
// backed by math/big so that kilogram magnitudes on million-unit
// populations never lose the precision a float64 would past ~15 digits.
type EngineNumber struct {
	Value decimal.Decimal
	Units string
}

// New builds an EngineNumber from a decimal value and a unit string.
func New(value decimal.Decimal, unit string) EngineNumber {
	return EngineNumber{Value: value, Units: unit}
}

// NewFromFloat builds an EngineNumber from a float64 magnitude, for call
// sites (tests, literal scenario constants) that don't already hold a
// decimal.Decimal.
func NewFromFloat(value float64, unit string) EngineNumber {
	return EngineNumber{Value: decimal.NewFromFloat(value), Units: unit}
}

// Zero returns the additive identity in the given unit.
func Zero(unit string) EngineNumber {
	return EngineNumber{Value: decimal.Zero, Units: unit}
}

// IsEquipmentUnits reports whether the number is denominated in equipment
// population units ("unit", "units", or a ratio with "unit"/"units" as the
// leading component, e.g. "unit / year").
func (n EngineNumber) IsEquipmentUnits() bool {
	return strings.HasPrefix(strings.TrimSpace(n.Units), "unit")
}

// IsZero reports whether the magnitude is zero, regardless of unit.
func (n EngineNumber) IsZero() bool {
	return n.Value.IsZero()
}

// Add returns a new EngineNumber with the same units and the sum of the
// magnitudes. Callers are responsible for converting to common units first;
// Add does not check unit compatibility.
func (n EngineNumber) Add(other EngineNumber) EngineNumber {
	return EngineNumber{Value: n.Value.Add(other.Value), Units: n.Units}
}

// Sub mirrors Add for subtraction.
func (n EngineNumber) Sub(other EngineNumber) EngineNumber {
	return EngineNumber{Value: n.Value.Sub(other.Value), Units: n.Units}
}

// Neg returns the additive inverse, keeping units.
func (n EngineNumber) Neg() EngineNumber {
	return EngineNumber{Value: n.Value.Neg(), Units: n.Units}
}
