package engine

import "github.com/shopspring/decimal"

// TriggerEqualsGHG is not a real stream; it is the pipeline-trigger key
// Engine passes to RunRecalcPipeline after an equals() call sets GHG
// intensity, per spec.md §4.4's "equals GHG" row.
const TriggerEqualsGHG StreamName = "equals:ghg"

var hundred = decimal.NewFromInt(100)

// recalcStrategy is one step of the propagation pipeline. Strategies read
// and write stream values directly on the keeper (via setRaw, never
// SetStream) so that propagation never re-enters the dispatch that
// triggered it (spec.md §4.4 "cycle avoidance").
type recalcStrategy func(k *StreamKeeper, key UseKey, year int) error

// buildPipeline selects the strategies a write to trigger should run, per
// the table in spec.md §4.4. optimize corresponds to OPTIMIZE_RECALCS:
// when true, the idempotent propagation tail that re-confirms a value the
// primary strategy already accounts for is skipped.
func buildPipeline(trigger StreamName, optimize bool) []recalcStrategy {
	switch trigger {
	case StreamManufacture, StreamImport, StreamExport, StreamSales:
		pipeline := []recalcStrategy{populationChangeStrategy, consumptionStrategy}
		if !optimize {
			pipeline = append(pipeline, salesStrategy)
		}
		return pipeline

	case StreamConsumption:
		pipeline := []recalcStrategy{salesStrategy, populationChangeStrategy}
		if !optimize {
			pipeline = append(pipeline, consumptionStrategy)
		}
		return pipeline

	case StreamEquipment:
		pipeline := []recalcStrategy{salesStrategy, consumptionStrategy}
		if !optimize {
			pipeline = append(pipeline, populationChangeStrategy)
		}
		return pipeline

	case StreamPriorEquipment:
		return []recalcStrategy{retireStrategy}

	case TriggerEqualsGHG:
		return []recalcStrategy{rechargeEmissionsStrategy, eolEmissionsStrategy, consumptionStrategy}

	default:
		return nil
	}
}

// RunRecalcPipeline runs the strategies triggered by a write to trigger, in
// order, stopping at the first error.
func RunRecalcPipeline(k *StreamKeeper, trigger StreamName, key UseKey, year int, optimize bool) error {
	for _, strategy := range buildPipeline(trigger, optimize) {
		if err := strategy(k, key, year); err != nil {
			return err
		}
	}
	return nil
}

// rechargeVolume returns the kg needed to recharge the existing fleet this
// year: priorEquipment population times recharge percent times recharge
// intensity (kg/unit).
func rechargeVolume(k *StreamKeeper, key UseKey) decimal.Decimal {
	params := k.params[key]
	prior := k.streams[key][StreamPriorEquipment].Value
	fraction := params.RechargePopulation.Div(hundred)
	return prior.Mul(fraction).Mul(params.RechargeIntensity.Value)
}

// retiredUnits returns priorEquipment times the retirement rate.
func retiredUnits(k *StreamKeeper, key UseKey) decimal.Decimal {
	params := k.params[key]
	prior := k.streams[key][StreamPriorEquipment].Value
	return prior.Mul(params.RetirementRate).Div(hundred)
}

// populationChangeStrategy derives newEquipment from the kg available for
// new units once this year's recharge need is met, then rolls equipment
// forward from priorEquipment (spec.md §4.4 "PopulationChange strategy").
// Per the resolved reading of that paragraph, recharge volume is always
// subtracted from manufacture+import kg before computing material
// available for new equipment, regardless of which units triggered the
// write (see DESIGN.md).
func populationChangeStrategy(k *StreamKeeper, key UseKey, year int) error {
	streams := k.streams[key]
	manufactureKg := streams[StreamManufacture].Value
	importKg := streams[StreamImport].Value

	available := manufactureKg.Add(importKg).Sub(rechargeVolume(k, key))
	if available.Sign() < 0 {
		available = decimal.Zero
	}

	pooled := k.PooledInitialCharge(key)
	newUnits := decimal.Zero
	if !pooled.IsZero() {
		newUnits = available.Div(pooled)
	}
	if err := k.setRaw(key, StreamNewEquipment, newUnits, year); err != nil {
		return err
	}

	retired := retiredUnits(k, key)
	equipment := streams[StreamPriorEquipment].Value.Sub(retired).Add(newUnits)
	return k.setRaw(key, StreamEquipment, equipment, year)
}

// salesStrategy derives the manufacture/import kg needed to support the
// current newEquipment population plus this year's recharge need, then
// splits it across the enabled manufacture and import substreams by the
// current distribution (spec.md §4.4 "Sales strategy"). Export is left as
// it is, since populationChangeStrategy counts only manufacture and import
// toward new equipment. It writes with setRaw, so it does not re-trigger
// PopulationChange.
func salesStrategy(k *StreamKeeper, key UseKey, year int) error {
	streams := k.streams[key]
	newUnits := streams[StreamNewEquipment].Value
	pooled := k.PooledInitialCharge(key)
	totalKg := newUnits.Mul(pooled).Add(rechargeVolume(k, key))

	pm, pi, _, err := k.GetDistribution(key, false)
	if err != nil {
		// No enabled sales channel to receive the recalculated total: leave
		// the existing substream split untouched rather than fail a
		// propagation step.
		return nil
	}
	if err := k.setRaw(key, StreamManufacture, totalKg.Mul(pm).Div(hundred), year); err != nil {
		return err
	}
	return k.setRaw(key, StreamImport, totalKg.Mul(pi).Div(hundred), year)
}

// consumptionStrategy derives consumption and energy from the current
// manufacture and import kg and the substance's GHG/energy intensities
// (spec.md §4.4 "Consumption strategy"); export and recycle kg enter
// neither value.
func consumptionStrategy(k *StreamKeeper, key UseKey, year int) error {
	streams := k.streams[key]
	params := k.params[key]

	manufactureKg := streams[StreamManufacture].Value
	importKg := streams[StreamImport].Value

	domestic := manufactureKg.Mul(params.GhgIntensity.Value)
	imported := importKg.Mul(params.GhgIntensity.Value)
	consumption := domestic.Add(imported)
	if err := k.setRaw(key, StreamConsumption, consumption, year); err != nil {
		return err
	}

	energy := manufactureKg.Add(importKg).Mul(params.EnergyIntensity.Value)
	return k.setRaw(key, StreamEnergy, energy, year)
}

// retireStrategy subtracts this year's retirements from equipment (spec.md
// §4.4 "Retire strategy").
func retireStrategy(k *StreamKeeper, key UseKey, year int) error {
	streams := k.streams[key]
	retired := retiredUnits(k, key)
	equipment := streams[StreamEquipment].Value.Sub(retired)
	return k.setRaw(key, StreamEquipment, equipment, year)
}

// rechargeEmissionsStrategy derives this year's recharge emissions from
// recharge mass and GHG intensity (spec.md §4.4).
func rechargeEmissionsStrategy(k *StreamKeeper, key UseKey, year int) error {
	params := k.params[key]
	emissions := rechargeVolume(k, key).Mul(params.GhgIntensity.Value)
	return k.setRaw(key, StreamRecharge, emissions, year)
}

// eolEmissionsStrategy derives this year's end-of-life emissions from
// retired units, pooled initial charge, and GHG intensity (spec.md §4.4).
func eolEmissionsStrategy(k *StreamKeeper, key UseKey, year int) error {
	params := k.params[key]
	pooled := k.PooledInitialCharge(key)
	emissions := retiredUnits(k, key).Mul(pooled).Mul(params.GhgIntensity.Value)
	return k.setRaw(key, StreamEol, emissions, year)
}
