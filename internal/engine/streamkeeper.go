package engine

import (
	"log/slog"
	"sort"

	"github.com/example/qubecsim/internal/units"
	"github.com/shopspring/decimal"
)

// StreamKeeper is the central per-simulation store: streams, per-substance
// parameterization, and the enabled-stream bookkeeping that drives sales
// distribution. It owns no scope or year cursor of its own — those belong
// to Engine — and it is not safe for concurrent use (spec.md §5).
type StreamKeeper struct {
	streams       map[UseKey]map[StreamName]units.EngineNumber
	params        map[UseKey]*StreamParameterization
	order         []UseKey // registration order, for deterministic result emission
	converter     *units.Converter
	checkPositive bool
	logger        *slog.Logger
}

// NewStreamKeeper returns an empty keeper. checkPositive mirrors
// CHECK_POSITIVE_STREAMS from spec.md §4.2: when true, a write that would
// go negative is a hard error; when false it clamps to zero and logs a
// warning.
func NewStreamKeeper(checkPositive bool, logger *slog.Logger) *StreamKeeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamKeeper{
		streams:       make(map[UseKey]map[StreamName]units.EngineNumber),
		params:        make(map[UseKey]*StreamParameterization),
		converter:     units.NewConverter(),
		checkPositive: checkPositive,
		logger:        logger.With("component", "stream-keeper"),
	}
}

// EnsureSubstance idempotently registers (app, substance), initializing
// every storable stream to zero and parameterization to defaults.
func (k *StreamKeeper) EnsureSubstance(key UseKey) {
	if _, ok := k.streams[key]; ok {
		return
	}
	streams := make(map[StreamName]units.EngineNumber, len(storableStreams))
	for name := range storableStreams {
		streams[name] = units.Zero(name.BaseUnit())
	}
	k.streams[key] = streams
	k.params[key] = NewStreamParameterization()
	k.order = append(k.order, key)
}

// HasSubstance reports whether (app, substance) was registered.
func (k *StreamKeeper) HasSubstance(key UseKey) bool {
	_, ok := k.streams[key]
	return ok
}

// Keys returns every registered (app, substance) pair, in registration
// order.
func (k *StreamKeeper) Keys() []UseKey {
	out := make([]UseKey, len(k.order))
	copy(out, k.order)
	return out
}

// Params returns the parameterization for key, or nil if unregistered.
func (k *StreamKeeper) Params(key UseKey) *StreamParameterization {
	return k.params[key]
}

// GetStream reads a stream's current value. sales is synthesized from
// manufacture + import + recycle (spec.md §3); it is never stored.
func (k *StreamKeeper) GetStream(key UseKey, name StreamName) (units.EngineNumber, error) {
	if !k.HasSubstance(key) {
		return units.EngineNumber{}, fault(ErrUnknownSubstance, key.Application, key.Substance, string(name), 0, "")
	}
	if name == StreamSales {
		return k.synthesizeSales(key), nil
	}
	if !IsKnownStream(name) {
		return units.EngineNumber{}, fault(ErrUnknownStream, key.Application, key.Substance, string(name), 0, "")
	}
	return k.streams[key][name], nil
}

func (k *StreamKeeper) synthesizeSales(key UseKey) units.EngineNumber {
	streams := k.streams[key]
	total := streams[StreamManufacture].Value.Add(streams[StreamImport].Value).Add(streams[StreamRecycle].Value)
	return units.EngineNumber{Value: total, Units: "kg"}
}

// setRaw stores an already-base-unit value directly, enforcing the
// non-negative/non-NaN invariants but performing no unit conversion or
// distribution splitting. Recalc strategies use this to avoid re-entering
// setStream's dispatch (cycle avoidance, spec.md §4.4).
func (k *StreamKeeper) setRaw(key UseKey, name StreamName, value decimal.Decimal, year int) error {
	if value.Sign() < 0 {
		if k.checkPositive {
			return fault(ErrNaNEncountered, key.Application, key.Substance, string(name), year,
				"negative stream value and CHECK_POSITIVE_STREAMS is enabled")
		}
		k.logger.Warn("clamping negative stream value to zero",
			"application", key.Application, "substance", key.Substance, "stream", string(name))
		value = decimal.Zero
	}
	if value.String() == "NaN" {
		return fault(ErrNaNEncountered, key.Application, key.Substance, string(name), year, "")
	}
	k.streams[key][name] = units.EngineNumber{Value: value, Units: name.BaseUnit()}
	return nil
}

// SetStream is the primitive store dispatch described in spec.md §4.2: it
// converts value into the stream's storage representation (splitting sales
// substreams set in equipment units against their initial charge, and
// splitting a combined sales figure across enabled channels by
// distribution) and enforces the non-negative/non-NaN invariants.
func (k *StreamKeeper) SetStream(key UseKey, name StreamName, value units.EngineNumber, year int) error {
	if !k.HasSubstance(key) {
		return fault(ErrUnknownSubstance, key.Application, key.Substance, string(name), year, "")
	}

	switch {
	case name.IsSalesSubstream() && value.IsEquipmentUnits():
		return k.setSalesSubstreamInEquipmentUnits(key, name, value, year)

	case name == StreamSales:
		return k.setCombinedSales(key, value, year, true)

	default:
		if !IsKnownStream(name) {
			return fault(ErrUnknownStream, key.Application, key.Substance, string(name), year, "")
		}
		state := k.StateFor(key)
		converted, err := k.converter.Convert(value, name.BaseUnit(), state)
		if err != nil {
			return fault(ErrUnitMismatch, key.Application, key.Substance, string(name), year, err.Error())
		}
		if err := k.setRaw(key, name, converted.Value, year); err != nil {
			return err
		}
		k.maybeEnable(key, name, converted.Value)
		return nil
	}
}

func (k *StreamKeeper) setSalesSubstreamInEquipmentUnits(key UseKey, name StreamName, value units.EngineNumber, year int) error {
	params := k.params[key]
	charge := params.InitialCharge[name]
	if charge.Value.IsZero() {
		return fault(ErrZeroInitialCharge, key.Application, key.Substance, string(name), year, "")
	}
	kg := value.Value.Mul(charge.Value)
	if err := k.setRaw(key, name, kg, year); err != nil {
		return err
	}
	k.maybeEnable(key, name, kg)
	return nil
}

func (k *StreamKeeper) setCombinedSales(key UseKey, value units.EngineNumber, year int, includeExports bool) error {
	state := k.StateFor(key)
	converted, err := k.converter.Convert(value, "kg", state)
	if err != nil {
		return fault(ErrUnitMismatch, key.Application, key.Substance, "sales", year, err.Error())
	}
	pm, pi, pe, err := k.GetDistribution(key, includeExports)
	if err != nil {
		return fault(err, key.Application, key.Substance, "sales", year, "")
	}
	total := converted.Value
	if err := k.setRaw(key, StreamManufacture, total.Mul(pm).Div(decimal.NewFromInt(100)), year); err != nil {
		return err
	}
	if err := k.setRaw(key, StreamImport, total.Mul(pi).Div(decimal.NewFromInt(100)), year); err != nil {
		return err
	}
	if includeExports {
		if err := k.setRaw(key, StreamExport, total.Mul(pe).Div(decimal.NewFromInt(100)), year); err != nil {
			return err
		}
	}
	return nil
}

func (k *StreamKeeper) maybeEnable(key UseKey, name StreamName, value decimal.Decimal) {
	if !name.IsSalesSubstream() {
		return
	}
	if value.Sign() != 0 {
		k.Enable(key, name)
	}
}

// Enable marks a sales substream as enabled without setting a value, so
// GetDistribution can allocate into it (spec.md §4.3 "enable").
func (k *StreamKeeper) Enable(key UseKey, name StreamName) {
	k.params[key].EnabledStreams[name] = true
}

// GetDistribution derives (percentManufacture, percentImport,
// percentExport) from the current kg values of the enabled substreams
// (spec.md §4.2). includeExports controls whether export participates in
// the split at all (callers that only ever allocate manufacture/import
// pass false).
func (k *StreamKeeper) GetDistribution(key UseKey, includeExports bool) (decimal.Decimal, decimal.Decimal, decimal.Decimal, error) {
	params := k.params[key]
	streams := k.streams[key]

	candidates := salesSubstreams
	if !includeExports {
		candidates = []StreamName{StreamManufacture, StreamImport}
	}

	var enabled []StreamName
	for _, name := range candidates {
		if params.EnabledStreams[name] {
			enabled = append(enabled, name)
		}
	}
	if len(enabled) == 0 {
		return decimal.Zero, decimal.Zero, decimal.Zero, ErrNoSalesChannelEnabled
	}

	total := decimal.Zero
	for _, name := range enabled {
		total = total.Add(streams[name].Value)
	}

	percents := map[StreamName]decimal.Decimal{
		StreamManufacture: decimal.Zero,
		StreamImport:      decimal.Zero,
		StreamExport:      decimal.Zero,
	}
	if total.IsZero() {
		even := decimal.NewFromInt(100).Div(decimal.NewFromInt(int64(len(enabled))))
		for _, name := range enabled {
			percents[name] = even
		}
	} else {
		for _, name := range enabled {
			percents[name] = streams[name].Value.Div(total).Mul(decimal.NewFromInt(100))
		}
	}
	return percents[StreamManufacture], percents[StreamImport], percents[StreamExport], nil
}

// PooledInitialCharge implements the pooled initial-charge rule of
// spec.md §4.4: weighted average kg/unit across manufacture and import,
// falling back to whichever substream carries population when the other
// is empty. When neither carries population it returns manufacture's
// charge, or import's when manufacture's is zero, and zero only when both
// charges are zero.
func (k *StreamKeeper) PooledInitialCharge(key UseKey) decimal.Decimal {
	params := k.params[key]
	streams := k.streams[key]

	chargeM := params.InitialCharge[StreamManufacture].Value
	chargeI := params.InitialCharge[StreamImport].Value
	kgM := streams[StreamManufacture].Value
	kgI := streams[StreamImport].Value

	// unitsX = kgX / chargeX, guarding zero charge as zero population.
	unitsOf := func(kg, charge decimal.Decimal) decimal.Decimal {
		if charge.IsZero() {
			return decimal.Zero
		}
		return kg.Div(charge)
	}
	unitsM := unitsOf(kgM, chargeM)
	unitsI := unitsOf(kgI, chargeI)

	totalUnits := unitsM.Add(unitsI)
	if totalUnits.IsZero() {
		switch {
		case !chargeM.IsZero():
			return chargeM
		case !chargeI.IsZero():
			return chargeI
		default:
			return decimal.Zero
		}
	}
	weighted := chargeM.Mul(unitsM).Add(chargeI.Mul(unitsI))
	return weighted.Div(totalUnits)
}

// StateFor builds the units.StateSnapshot a conversion for (app, substance)
// should use: current population, sales volume, consumption, GHG/energy
// intensity, and the pooled amortized unit volume. Engine layers its own
// years-elapsed/year-absolute overlay on top before calling the converter.
func (k *StreamKeeper) StateFor(key UseKey) units.StateSnapshot {
	streams := k.streams[key]
	params := k.params[key]

	population := streams[StreamEquipment].Value
	volume := k.synthesizeSales(key).Value
	consumption := streams[StreamConsumption].Value
	ghg := params.GhgIntensity.Value
	energy := params.EnergyIntensity.Value
	amortized := k.PooledInitialCharge(key)

	return units.StateSnapshot{
		Population:          &population,
		Volume:              &volume,
		Consumption:         &consumption,
		GhgIntensity:        &ghg,
		EnergyIntensity:     &energy,
		AmortizedUnitVolume: &amortized,
	}
}

// IncrementYear copies each registered substance's equipment into
// priorEquipment, then resets parameterization internals to defaults
// (spec.md §3 "Reset semantics on year increment").
func (k *StreamKeeper) IncrementYear() {
	keys := make([]UseKey, len(k.order))
	copy(keys, k.order)
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	for _, key := range keys {
		streams := k.streams[key]
		streams[StreamPriorEquipment] = streams[StreamEquipment]
		k.params[key].resetForNewYear()
	}
}
