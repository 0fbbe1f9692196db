package engine

import "github.com/shopspring/decimal"

// EngineResult is one (scenario, trial, year, application, substance) row
// of simulation output (spec.md §4.5, §6). It is an immutable record: the
// trade-attribution transform below builds a new value rather than
// mutating one in place.
type EngineResult struct {
	Scenario    string
	Trial       int
	Year        int
	Application string
	Substance   string

	Manufacture decimal.Decimal // kg
	Import      decimal.Decimal // kg
	Recycle     decimal.Decimal // kg

	DomesticConsumption decimal.Decimal // tCO2e
	ImportConsumption   decimal.Decimal // tCO2e
	RecycleConsumption  decimal.Decimal // tCO2e

	Population        decimal.Decimal // units (equipment)
	PopulationNew     decimal.Decimal // units (newEquipment)
	RechargeEmissions decimal.Decimal // tCO2e
	EolEmissions      decimal.Decimal // tCO2e

	EnergyConsumption decimal.Decimal // kwh

	ImportInitialChargeValue       decimal.Decimal // kg
	ImportInitialChargeConsumption decimal.Decimal // tCO2e
	ImportPopulation                decimal.Decimal // units

	ExportInitialChargeValue       decimal.Decimal // kg
	ExportInitialChargeConsumption decimal.Decimal // tCO2e
}

// EmitResult reads the current stream values for key and builds the result
// row for it, stamped with the scenario name and trial number the driver
// is currently running (spec.md §4.5 "at year boundary ... a result is
// emitted by reading streams").
func (e *Engine) EmitResult(key UseKey, scenario string, trial int) (EngineResult, error) {
	if !e.keeper.HasSubstance(key) {
		return EngineResult{}, fault(ErrUnknownSubstance, key.Application, key.Substance, "", e.currentYear, "")
	}
	streams := e.keeper.streams[key]
	params := e.keeper.params[key]
	ghg := params.GhgIntensity.Value

	manufactureKg := streams[StreamManufacture].Value
	importKg := streams[StreamImport].Value
	exportKg := streams[StreamExport].Value
	recycleKg := streams[StreamRecycle].Value

	importCharge := params.InitialCharge[StreamImport].Value
	importPopulation := decimal.Zero
	if !importCharge.IsZero() {
		importPopulation = importKg.Div(importCharge)
	}

	// The trade supplement is only the slice of import/export kg
	// attributable to the initial charge of newly built equipment, not the
	// whole stream: salesStrategy folds this year's recharge volume into
	// manufacture and import together (spec.md §4.4 "Sales strategy"), so
	// importKg also carries a recharge share that isn't part of any
	// newly-imported unit's embodied charge. Take
	// each stream's share of the new-equipment charge mass in proportion
	// to its share of total sales (spec.md §4.5).
	newEquipmentChargeKg := streams[StreamNewEquipment].Value.Mul(e.keeper.PooledInitialCharge(key))
	totalSalesKg := manufactureKg.Add(importKg).Add(exportKg)
	importInitialChargeValue := decimal.Zero
	exportInitialChargeValue := decimal.Zero
	if !totalSalesKg.IsZero() {
		importInitialChargeValue = newEquipmentChargeKg.Mul(importKg).Div(totalSalesKg)
		exportInitialChargeValue = newEquipmentChargeKg.Mul(exportKg).Div(totalSalesKg)
	}

	return EngineResult{
		Scenario:    scenario,
		Trial:       trial,
		Year:        e.currentYear,
		Application: key.Application,
		Substance:   key.Substance,

		Manufacture: manufactureKg,
		Import:      importKg,
		Recycle:     recycleKg,

		DomesticConsumption: manufactureKg.Mul(ghg),
		ImportConsumption:   importKg.Mul(ghg),
		RecycleConsumption:  recycleKg.Mul(ghg),

		Population:        streams[StreamEquipment].Value,
		PopulationNew:     streams[StreamNewEquipment].Value,
		RechargeEmissions: streams[StreamRecharge].Value,
		EolEmissions:      streams[StreamEol].Value,

		EnergyConsumption: streams[StreamEnergy].Value,

		ImportInitialChargeValue:       importInitialChargeValue,
		ImportInitialChargeConsumption: importInitialChargeValue.Mul(ghg),
		ImportPopulation:                importPopulation,

		ExportInitialChargeValue:       exportInitialChargeValue,
		ExportInitialChargeConsumption: exportInitialChargeValue.Mul(ghg),
	}, nil
}

// AttributeToExporterResult returns a derived row that moves the trade
// supplement from the importer side to the exporter side: it subtracts
// the import initial-charge mass and consumption (now counted against the
// exporter instead) and adds the export initial-charge mass and
// consumption onto this row's own manufacture/domestic totals (spec.md
// §4.5). r is left unmodified.
func AttributeToExporterResult(r EngineResult) EngineResult {
	out := r
	out.Import = out.Import.Sub(out.ImportInitialChargeValue)
	out.ImportConsumption = out.ImportConsumption.Sub(out.ImportInitialChargeConsumption)
	out.Manufacture = out.Manufacture.Add(out.ExportInitialChargeValue)
	out.DomesticConsumption = out.DomesticConsumption.Add(out.ExportInitialChargeConsumption)
	return out
}
