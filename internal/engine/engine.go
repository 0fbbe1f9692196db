package engine

import (
	"log/slog"
	"strings"

	"github.com/example/qubecsim/internal/units"
	"github.com/shopspring/decimal"
)

// DisplaceTarget names where cap/floor/recycle should route displaced
// mass. Name is resolved against the known stream names: a match means
// "this stream of the same substance"; anything else is treated as a
// substance name, meaning "the same stream of that substance" (spec.md
// §4.3).
type DisplaceTarget struct {
	Name string
}

func (d DisplaceTarget) isStream() (StreamName, bool) {
	name := StreamName(d.Name)
	return name, IsKnownStream(name)
}

// Engine is the mutable simulation context a policy layer drives: the
// current scope, the stream store, the variable tables, and the year
// cursor. It is not safe for concurrent use (spec.md §5).
type Engine struct {
	scope   Scope
	keeper  *StreamKeeper
	vars    *VariableManager
	logger  *slog.Logger

	startYear   int
	endYear     int
	currentYear int

	optimizeRecalcs bool
}

// Config bundles the construction-time flags spec.md §9 calls out as
// "engine behavior flags": CheckPositiveStreams mirrors
// CHECK_POSITIVE_STREAMS, OptimizeRecalcs mirrors OPTIMIZE_RECALCS.
type Config struct {
	StartYear           int
	EndYear             int
	CheckPositiveStreams bool
	OptimizeRecalcs     bool
	Logger              *slog.Logger
}

// New returns an Engine positioned at the global scope and startYear.
func New(cfg Config) *Engine {
	return &Engine{
		scope:           NewScope(),
		keeper:          NewStreamKeeper(cfg.CheckPositiveStreams, cfg.Logger),
		vars:            NewVariableManager(),
		logger:          cfg.Logger,
		startYear:       cfg.StartYear,
		endYear:         cfg.EndYear,
		currentYear:     cfg.StartYear,
		optimizeRecalcs: cfg.OptimizeRecalcs,
	}
}

// Keeper exposes the underlying stream store, for result emission.
func (e *Engine) Keeper() *StreamKeeper { return e.keeper }

// CurrentYear, StartYear, EndYear report the year cursor's bounds.
func (e *Engine) CurrentYear() int { return e.currentYear }
func (e *Engine) StartYear() int   { return e.startYear }
func (e *Engine) EndYear() int     { return e.endYear }

// Done reports whether the simulation has advanced past its end year.
// endYear itself is still a year to be processed (spec.md §6: "for year =
// startYear..endYear", inclusive); the cursor only passes Done once
// IncrementYear has moved currentYear beyond endYear.
func (e *Engine) Done() bool { return e.currentYear > e.endYear }

// Scope returns the engine's current scope.
func (e *Engine) Scope() Scope { return e.scope }

// EnterStanza moves the engine to a named stanza scope.
func (e *Engine) EnterStanza(name string) {
	e.scope = e.scope.EnterStanza(name)
	e.vars.ResetFrom(LevelStanza)
}

// EnterApplication moves the engine to a named application scope under the
// current stanza.
func (e *Engine) EnterApplication(name string) error {
	scope, err := e.scope.EnterApplication(name)
	if err != nil {
		return err
	}
	e.scope = scope
	e.vars.ResetFrom(LevelApplication)
	return nil
}

// EnterSubstance moves the engine to a named substance scope under the
// current application, registering it with the stream keeper if new.
func (e *Engine) EnterSubstance(name string) error {
	scope, err := e.scope.EnterSubstance(name)
	if err != nil {
		return err
	}
	e.scope = scope
	e.vars.ResetFrom(LevelSubstance)
	e.keeper.EnsureSubstance(e.scope.Key())
	return nil
}

func (e *Engine) requireSubstanceScope() (UseKey, error) {
	if e.scope.Level() != LevelSubstance {
		return UseKey{}, fault(ErrNoAppOrSubstance, "", "", "", e.currentYear,
			"operation requires a substance scope")
	}
	return e.scope.Key(), nil
}

// yearOverlay returns the years-elapsed / absolute-year context the
// converter needs for "years"/"year" target conversions.
func (e *Engine) yearOverlay() units.StateSnapshot {
	elapsed := decimal.NewFromInt(int64(e.currentYear - e.startYear))
	absolute := decimal.NewFromInt(int64(e.currentYear))
	return units.StateSnapshot{YearsElapsed: &elapsed, YearAbsolute: &absolute}
}

func (e *Engine) stateFor(key UseKey) units.StateSnapshot {
	return e.keeper.StateFor(key).WithOverlay(e.yearOverlay())
}

func (e *Engine) convert(key UseKey, value units.EngineNumber, targetUnit string) (units.EngineNumber, error) {
	return e.keeper.converter.Convert(value, targetUnit, e.stateFor(key))
}

// triggerFor maps a stream name to the pipeline-trigger key used for that
// write, or "" if writes to that stream never propagate (spec.md §4.4).
func triggerFor(stream StreamName) StreamName {
	switch stream {
	case StreamManufacture, StreamImport, StreamExport, StreamSales,
		StreamConsumption, StreamEquipment, StreamPriorEquipment:
		return stream
	default:
		return ""
	}
}

func (e *Engine) dispatchRecalc(stream StreamName, key UseKey) error {
	trigger := triggerFor(stream)
	if trigger == "" {
		return nil
	}
	return RunRecalcPipeline(e.keeper, trigger, key, e.currentYear, e.optimizeRecalcs)
}

// Set assigns a stream's value (spec.md §4.3 "set"). Sales substreams set
// in equipment units automatically add the current recharge volume on top,
// so "set manufacture 100 units" means 100 new units plus enough kg to
// recharge the existing fleet; sales substreams set in any other unit
// clear that implicit-recharge intent.
func (e *Engine) Set(stream StreamName, value units.EngineNumber, ym YearMatcher) error {
	if !ym.InRange(e.currentYear) {
		return nil
	}
	key, err := e.requireSubstanceScope()
	if err != nil {
		return err
	}
	params := e.keeper.Params(key)

	toStore := value
	if stream.IsSalesSubstream() && value.IsEquipmentUnits() {
		charge := params.InitialCharge[stream]
		if charge.Value.IsZero() {
			return fault(ErrZeroInitialCharge, key.Application, key.Substance, string(stream), e.currentYear, "")
		}
		kg := value.Value.Mul(charge.Value).Add(rechargeVolume(e.keeper, key))
		toStore = units.New(kg, "kg")
		params.SalesIntentFreshlySet = true
	} else if stream.IsSalesSubstream() {
		params.SalesIntentFreshlySet = false
	}
	if !isPercentUnits(value.Units) {
		params.LastSpecifiedUnits = value.Units
	}

	if err := e.keeper.SetStream(key, stream, toStore, e.currentYear); err != nil {
		return err
	}
	return e.dispatchRecalc(stream, key)
}

// Change reads a stream's current value, converts delta into that value's
// units using the current stream total as conversion context, adds, and
// writes the result via Set (spec.md §4.3 "change").
func (e *Engine) Change(stream StreamName, delta units.EngineNumber, ym YearMatcher) error {
	if !ym.InRange(e.currentYear) {
		return nil
	}
	key, err := e.requireSubstanceScope()
	if err != nil {
		return err
	}
	current, err := e.keeper.GetStream(key, stream)
	if err != nil {
		return err
	}
	total := current.Value
	state := e.stateFor(key).WithOverlay(units.StateSnapshot{Volume: &total, Population: &total})
	convertedDelta, err := e.keeper.converter.Convert(delta, current.Units, state)
	if err != nil {
		return fault(ErrUnitMismatch, key.Application, key.Substance, string(stream), e.currentYear, err.Error())
	}
	params := e.keeper.Params(key)
	previousUnits := params.LastSpecifiedUnits
	if err := e.Set(stream, current.Add(convertedDelta), AllYears()); err != nil {
		return err
	}
	if isPercentUnits(delta.Units) {
		params.LastSpecifiedUnits = previousUnits
	} else {
		params.LastSpecifiedUnits = delta.Units
	}
	return nil
}

// isPercentUnits reports whether u is a percent unit ("%" or "percent");
// such units never update LastSpecifiedUnits.
func isPercentUnits(u string) bool {
	lower := strings.ToLower(strings.TrimSpace(u))
	return strings.HasPrefix(lower, "%") || strings.HasPrefix(lower, "percent")
}

// capOrFloor implements both cap() and floor(): converts the bound to kg
// (adding recharge volume on top when the bound was given in equipment
// units), compares against the stream's current kg, and writes the bound
// plus, when a displacement target is set, routes the delta there.
// donate is true for cap (excess is added to the target) and false for
// floor (shortfall is taken from the target).
func (e *Engine) capOrFloor(stream StreamName, bound units.EngineNumber, ym YearMatcher, displace *DisplaceTarget, donate bool) error {
	if !ym.InRange(e.currentYear) {
		return nil
	}
	key, err := e.requireSubstanceScope()
	if err != nil {
		return err
	}
	current, err := e.keeper.GetStream(key, stream)
	if err != nil {
		return err
	}

	boundKg, err := e.convert(key, bound, "kg")
	if err != nil {
		return fault(ErrUnitMismatch, key.Application, key.Substance, string(stream), e.currentYear, err.Error())
	}
	boundValue := boundKg.Value
	if bound.IsEquipmentUnits() {
		boundValue = boundValue.Add(rechargeVolume(e.keeper, key))
	}

	currentKg, err := e.convert(key, current, "kg")
	if err != nil {
		return fault(ErrUnitMismatch, key.Application, key.Substance, string(stream), e.currentYear, err.Error())
	}

	exceeds := currentKg.Value.GreaterThan(boundValue)
	shortBy := currentKg.Value.LessThan(boundValue)
	if (donate && !exceeds) || (!donate && !shortBy) {
		return nil
	}

	delta := currentKg.Value.Sub(boundValue) // positive when donating (excess), negative when floor-filling (shortfall)
	if err := e.Set(stream, units.New(boundValue, "kg"), AllYears()); err != nil {
		return err
	}
	if displace == nil {
		return nil
	}
	return e.applyDisplacement(key, stream, *displace, delta.Abs(), donate)
}

// Cap mirrors spec.md §4.3 "cap".
func (e *Engine) Cap(stream StreamName, max units.EngineNumber, ym YearMatcher, displace *DisplaceTarget) error {
	return e.capOrFloor(stream, max, ym, displace, true)
}

// Floor mirrors spec.md §4.3 "floor".
func (e *Engine) Floor(stream StreamName, min units.EngineNumber, ym YearMatcher, displace *DisplaceTarget) error {
	return e.capOrFloor(stream, min, ym, displace, false)
}

// applyDisplacement routes amountKg to target: donate adds it (cap case),
// !donate subtracts it (floor case). A target name matching a known
// stream means "this stream of the same substance"; otherwise it names a
// destination substance and the same stream is used there.
func (e *Engine) applyDisplacement(sourceKey UseKey, sourceStream StreamName, target DisplaceTarget, amountKg decimal.Decimal, donate bool) error {
	var targetKey UseKey
	var targetStream StreamName

	if name, ok := target.isStream(); ok {
		targetKey = sourceKey
		targetStream = name
	} else {
		targetKey = UseKey{Application: sourceKey.Application, Substance: target.Name}
		e.keeper.EnsureSubstance(targetKey)
		targetStream = sourceStream
	}

	converted, err := e.keeper.converter.Convert(units.New(amountKg, "kg"), targetStream.BaseUnit(), e.keeper.StateFor(targetKey))
	if err != nil {
		return fault(ErrUnitMismatch, targetKey.Application, targetKey.Substance, string(targetStream), e.currentYear, err.Error())
	}

	current, err := e.keeper.GetStream(targetKey, targetStream)
	if err != nil {
		return err
	}
	var newValue decimal.Decimal
	if donate {
		newValue = current.Value.Add(converted.Value)
	} else {
		newValue = current.Value.Sub(converted.Value)
	}
	if err := e.keeper.SetStream(targetKey, targetStream, units.New(newValue, targetStream.BaseUnit()), e.currentYear); err != nil {
		return err
	}
	return e.dispatchRecalc(targetStream, targetKey)
}

// Replace moves amount from the current substance's stream to the same
// stream of destinationSubstance, converting through each substance's own
// initial charge when amount is in equipment units (spec.md §4.3
// "replace").
func (e *Engine) Replace(amount units.EngineNumber, stream StreamName, destinationSubstance string, ym YearMatcher) error {
	if !ym.InRange(e.currentYear) {
		return nil
	}
	sourceKey, err := e.requireSubstanceScope()
	if err != nil {
		return err
	}
	destKey := UseKey{Application: sourceKey.Application, Substance: destinationSubstance}
	e.keeper.EnsureSubstance(destKey)

	sourceKg, err := e.convert(sourceKey, amount, "kg")
	if err != nil {
		return fault(ErrUnitMismatch, sourceKey.Application, sourceKey.Substance, string(stream), e.currentYear, err.Error())
	}
	destAmount := units.New(sourceKg.Value, "kg")
	if amount.IsEquipmentUnits() {
		destAmount = amount
	}
	destNumber, err := e.keeper.converter.Convert(destAmount, stream.BaseUnit(), e.keeper.StateFor(destKey))
	if err != nil {
		return fault(ErrUnitMismatch, destKey.Application, destKey.Substance, string(stream), e.currentYear, err.Error())
	}

	sourceCurrent, err := e.keeper.GetStream(sourceKey, stream)
	if err != nil {
		return err
	}
	if err := e.keeper.SetStream(sourceKey, stream, units.New(sourceCurrent.Value.Sub(sourceKg.Value), stream.BaseUnit()), e.currentYear); err != nil {
		return err
	}
	if err := e.dispatchRecalc(stream, sourceKey); err != nil {
		return err
	}

	destCurrent, err := e.keeper.GetStream(destKey, stream)
	if err != nil {
		return err
	}
	if err := e.keeper.SetStream(destKey, stream, units.New(destCurrent.Value.Add(destNumber.Value), stream.BaseUnit()), e.currentYear); err != nil {
		return err
	}
	return e.dispatchRecalc(stream, destKey)
}

// Recharge stores recharge parameters and triggers the
// population→sales→consumption recalc (spec.md §4.3 "recharge").
func (e *Engine) Recharge(populationPercent, intensityKgPerUnit decimal.Decimal, ym YearMatcher) error {
	if !ym.InRange(e.currentYear) {
		return nil
	}
	key, err := e.requireSubstanceScope()
	if err != nil {
		return err
	}
	params := e.keeper.Params(key)
	params.RechargePopulation = populationPercent
	params.RechargeIntensity = units.New(intensityKgPerUnit, "kg / unit")
	return e.dispatchRecalc(StreamManufacture, key)
}

// Retire stores the retirement rate and triggers the retirement recalc
// (spec.md §4.3 "retire").
func (e *Engine) Retire(percent decimal.Decimal, ym YearMatcher) error {
	if !ym.InRange(e.currentYear) {
		return nil
	}
	key, err := e.requireSubstanceScope()
	if err != nil {
		return err
	}
	e.keeper.Params(key).RetirementRate = percent
	return e.dispatchRecalc(StreamPriorEquipment, key)
}

// Recycle stores recovery and yield rates and triggers the
// sales→population→consumption recalc; with a displacement target, the
// recovered kg is folded back into sales and then displaced: subtracted
// from the named stream when the target is a stream of this substance,
// added to the target substance's recycle stream otherwise (spec.md §4.3
// "recycle").
func (e *Engine) Recycle(recoveryPercent, yieldPercent decimal.Decimal, ym YearMatcher, displace *DisplaceTarget, stage string) error {
	if !ym.InRange(e.currentYear) {
		return nil
	}
	key, err := e.requireSubstanceScope()
	if err != nil {
		return err
	}
	params := e.keeper.Params(key)
	params.RecoveryRate = recoveryPercent
	params.YieldRate = yieldPercent

	if err := e.dispatchRecalc(StreamSales, key); err != nil {
		return err
	}
	if displace == nil {
		return nil
	}

	recycled, err := e.keeper.GetStream(key, StreamRecycle)
	if err != nil {
		return err
	}
	recoveredKg := recycled.Value.Mul(yieldPercent).Div(hundred)
	manufacture, err := e.keeper.GetStream(key, StreamManufacture)
	if err != nil {
		return err
	}
	if err := e.keeper.SetStream(key, StreamManufacture, units.New(manufacture.Value.Add(recoveredKg), "kg"), e.currentYear); err != nil {
		return err
	}
	if err := e.dispatchRecalc(StreamManufacture, key); err != nil {
		return err
	}
	_, sameSubstance := displace.isStream()
	return e.applyDisplacement(key, StreamRecycle, *displace, recoveredKg, !sameSubstance)
}

// Equals sets GHG or energy intensity depending on the unit prefix of
// intensity, triggering the recharge/EOL emissions recalc for tCO2e*
// (spec.md §4.3 "equals").
func (e *Engine) Equals(intensity units.EngineNumber, ym YearMatcher) error {
	if !ym.InRange(e.currentYear) {
		return nil
	}
	key, err := e.requireSubstanceScope()
	if err != nil {
		return err
	}
	params := e.keeper.Params(key)
	lower := strings.ToLower(strings.TrimSpace(intensity.Units))

	switch {
	case strings.HasPrefix(lower, "tco2e"):
		converted, err := e.convert(key, intensity, "tCO2e / kg")
		if err != nil {
			return fault(ErrUnitMismatch, key.Application, key.Substance, "", e.currentYear, err.Error())
		}
		params.GhgIntensity = converted
		return RunRecalcPipeline(e.keeper, TriggerEqualsGHG, key, e.currentYear, e.optimizeRecalcs)

	case strings.HasPrefix(lower, "kwh"):
		converted, err := e.convert(key, intensity, "kwh / kg")
		if err != nil {
			return fault(ErrUnitMismatch, key.Application, key.Substance, "", e.currentYear, err.Error())
		}
		params.EnergyIntensity = converted
		return nil

	default:
		return fault(ErrBadEqualsUnits, key.Application, key.Substance, "", e.currentYear, intensity.Units)
	}
}

// InitialCharge sets a substream's (or, for sales, both manufacture and
// import's) initial charge and triggers the population recalc (spec.md
// §4.3 "initialCharge").
func (e *Engine) InitialCharge(value units.EngineNumber, stream StreamName, ym YearMatcher) error {
	if !ym.InRange(e.currentYear) {
		return nil
	}
	key, err := e.requireSubstanceScope()
	if err != nil {
		return err
	}
	converted, err := e.convert(key, value, "kg / unit")
	if err != nil {
		return fault(ErrUnitMismatch, key.Application, key.Substance, string(stream), e.currentYear, err.Error())
	}
	params := e.keeper.Params(key)
	if stream == StreamSales {
		params.InitialCharge[StreamManufacture] = converted
		params.InitialCharge[StreamImport] = converted
	} else {
		params.InitialCharge[stream] = converted
	}
	return e.dispatchRecalc(StreamManufacture, key)
}

// Enable marks a sales substream as enabled without setting a value
// (spec.md §4.3 "enable").
func (e *Engine) Enable(stream StreamName, ym YearMatcher) error {
	if !ym.InRange(e.currentYear) {
		return nil
	}
	key, err := e.requireSubstanceScope()
	if err != nil {
		return err
	}
	e.keeper.Enable(key, stream)
	return nil
}

// DefineVariable, SetVariable, and GetVariable delegate to the variable
// manager; yearsElapsed and yearAbsolute are synthesized on read and
// cannot be defined or set (spec.md §4.3).
func (e *Engine) DefineVariable(name string, value units.EngineNumber) error {
	return e.vars.Define(e.scope.Level(), name, value)
}

func (e *Engine) SetVariable(name string, value units.EngineNumber) error {
	return e.vars.Set(name, value)
}

func (e *Engine) GetVariable(name string) (units.EngineNumber, error) {
	switch name {
	case "yearsElapsed":
		return units.New(decimal.NewFromInt(int64(e.currentYear-e.startYear)), "years"), nil
	case "yearAbsolute":
		return units.New(decimal.NewFromInt(int64(e.currentYear)), "year"), nil
	}
	value, ok := e.vars.Get(name)
	if !ok {
		return units.EngineNumber{}, fault(ErrUnknownVariable, "", "", "", e.currentYear, name)
	}
	return value, nil
}

// IncrementYear advances the year cursor and notifies the stream keeper
// (spec.md §4.3 "incrementYear"), failing once the cursor has already
// moved past the end year (incrementing from the end year itself succeeds).
func (e *Engine) IncrementYear() error {
	if e.Done() {
		return fault(ErrSimulationComplete, "", "", "", e.currentYear, "")
	}
	e.currentYear++
	e.keeper.IncrementYear()
	return nil
}
