package engine

import (
	"github.com/example/qubecsim/internal/units"
	"github.com/shopspring/decimal"
)

// StreamName identifies one of the per-(application, substance) time
// series the simulation maintains.
type StreamName string

const (
	StreamManufacture    StreamName = "manufacture"
	StreamImport         StreamName = "import"
	StreamExport         StreamName = "export"
	StreamRecycle        StreamName = "recycle"
	StreamSales          StreamName = "sales" // virtual: never stored directly
	StreamEquipment      StreamName = "equipment"
	StreamPriorEquipment StreamName = "priorEquipment"
	StreamNewEquipment   StreamName = "newEquipment"
	StreamConsumption    StreamName = "consumption"
	StreamRecharge       StreamName = "rechargeEmissions"
	StreamEol            StreamName = "eolEmissions"
	StreamEnergy         StreamName = "energy"
)

// storableStreams are the streams the keeper actually persists; sales is
// synthesized on read from manufacture+import+recycle (spec.md §3: "sales
// is never stored directly").
var storableStreams = map[StreamName]bool{
	StreamManufacture:    true,
	StreamImport:         true,
	StreamExport:         true,
	StreamRecycle:        true,
	StreamEquipment:      true,
	StreamPriorEquipment: true,
	StreamNewEquipment:   true,
	StreamConsumption:    true,
	StreamRecharge:       true,
	StreamEol:            true,
	StreamEnergy:         true,
}

// salesSubstreams are the channels GetDistribution allocates across.
var salesSubstreams = []StreamName{StreamManufacture, StreamImport, StreamExport}

// BaseUnit returns the unit every stored value for this stream is kept in.
func (s StreamName) BaseUnit() string {
	switch s {
	case StreamManufacture, StreamImport, StreamExport, StreamRecycle, StreamSales:
		return "kg"
	case StreamEquipment, StreamPriorEquipment, StreamNewEquipment:
		return "units"
	case StreamConsumption, StreamRecharge, StreamEol:
		return "tCO2e"
	case StreamEnergy:
		return "kwh"
	default:
		return ""
	}
}

// IsSalesSubstream reports whether s is one of the three streams
// GetDistribution allocates (manufacture, import, export).
func (s StreamName) IsSalesSubstream() bool {
	return s == StreamManufacture || s == StreamImport || s == StreamExport
}

// IsKnownStream reports whether s is a name the keeper recognizes.
func IsKnownStream(s StreamName) bool {
	return storableStreams[s] || s == StreamSales
}

// InitialChargeStreams are the substreams that each carry their own
// initial-charge parameter (spec.md §3).
var InitialChargeStreams = []StreamName{StreamManufacture, StreamImport, StreamExport, StreamRecycle}

// StreamParameterization holds the per-(application, substance) rates,
// intensities, and initial charges that the policy layer configures and
// that reset to defaults on every year increment (spec.md §3).
type StreamParameterization struct {
	GhgIntensity    units.EngineNumber // tCO2e/kg, default 0
	EnergyIntensity units.EngineNumber // kwh/kg, default 0

	InitialCharge map[StreamName]units.EngineNumber // kg/unit, default 1

	RechargePopulation decimal.Decimal    // percent, default 0
	RecoveryRate       decimal.Decimal    // percent, default 0
	YieldRate          decimal.Decimal    // percent, default 0
	RetirementRate     decimal.Decimal    // percent, default 0
	DisplacementRate   decimal.Decimal    // percent, default 100
	RechargeIntensity  units.EngineNumber // kg/unit, default 0

	LastSpecifiedUnits string // default "kg"; percent units never update this

	EnabledStreams map[StreamName]bool // subset of {manufacture, import, export}

	SalesIntentFreshlySet bool
}

// NewStreamParameterization returns a parameterization with every field at
// its spec.md §3 default.
func NewStreamParameterization() *StreamParameterization {
	p := &StreamParameterization{}
	p.setDefaults()
	return p
}

func (p *StreamParameterization) setDefaults() {
	p.GhgIntensity = units.NewFromFloat(0, "tCO2e / kg")
	p.EnergyIntensity = units.NewFromFloat(0, "kwh / kg")
	p.InitialCharge = map[StreamName]units.EngineNumber{
		StreamManufacture: units.NewFromFloat(1, "kg / unit"),
		StreamImport:      units.NewFromFloat(1, "kg / unit"),
		StreamExport:      units.NewFromFloat(1, "kg / unit"),
		StreamRecycle:     units.NewFromFloat(1, "kg / unit"),
	}
	p.RechargePopulation = decimal.Zero
	p.RecoveryRate = decimal.Zero
	p.YieldRate = decimal.Zero
	p.RetirementRate = decimal.Zero
	p.DisplacementRate = decimal.NewFromInt(100)
	p.RechargeIntensity = units.NewFromFloat(0, "kg / unit")
	p.LastSpecifiedUnits = "kg"
	if p.EnabledStreams == nil {
		p.EnabledStreams = make(map[StreamName]bool)
	}
}

// resetForNewYear re-initializes intensities, initial charges, and rates to
// their defaults, carrying enabled-stream membership over unchanged.
// priorEquipment is handled by the StreamKeeper, not here (spec.md §3:
// "Reset semantics on year increment").
func (p *StreamParameterization) resetForNewYear() {
	enabled := p.EnabledStreams
	p.setDefaults()
	p.EnabledStreams = enabled // enabled-stream membership survives the year boundary
	p.RecoveryRate = decimal.Zero
}
