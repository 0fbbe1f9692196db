package engine

import (
	"testing"

	"github.com/example/qubecsim/internal/units"
)

func TestEmitResultReadsCurrentStreams(t *testing.T) {
	e := newTestEngine(t)
	key := e.Scope().Key()
	if err := e.Equals(units.New(decOf(t, "1430"), "tCO2e / kg"), AllYears()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Set(StreamManufacture, units.New(decOf(t, "10"), "kg"), AllYears()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Set(StreamImport, units.New(decOf(t, "5"), "kg"), AllYears()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := e.EmitResult(key, "business as usual", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Scenario != "business as usual" || result.Trial != 1 || result.Year != 2025 {
		t.Fatalf("unexpected identity fields: %+v", result)
	}
	if !result.Manufacture.Equal(decOf(t, "10")) {
		t.Fatalf("expected manufacture 10, got %s", result.Manufacture)
	}
	if !result.DomesticConsumption.Equal(decOf(t, "14300")) {
		t.Fatalf("expected domestic consumption 14300, got %s", result.DomesticConsumption)
	}
}

func TestEmitResultAttributesOnlyNewEquipmentChargeToTrade(t *testing.T) {
	e := newTestEngine(t)
	key := e.Scope().Key()
	params := e.Keeper().Params(key)
	params.InitialCharge[StreamManufacture] = units.New(decOf(t, "0.5"), "kg / unit")
	params.InitialCharge[StreamImport] = units.New(decOf(t, "0.5"), "kg / unit")
	params.GhgIntensity = units.New(decOf(t, "1430"), "tCO2e / kg")

	// newEquipment*pooledCharge = 200*0.5 = 100kg of embodied new-equipment
	// charge, but manufacture/import also carry a recharge-volume share on
	// top (110kg raw vs 100kg of new-equipment charge).
	if err := e.Keeper().setRaw(key, StreamNewEquipment, decOf(t, "200"), 2025); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Keeper().setRaw(key, StreamManufacture, decOf(t, "66"), 2025); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Keeper().setRaw(key, StreamImport, decOf(t, "44"), 2025); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := e.EmitResult(key, "business as usual", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// import's share of total sales (44/110 = 0.4) of the 100kg
	// new-equipment charge mass = 40kg, strictly less than the 44kg raw
	// import stream.
	if !result.ImportInitialChargeValue.Equal(decOf(t, "40")) {
		t.Fatalf("expected import initial-charge value 40 (new-equipment share only), got %s", result.ImportInitialChargeValue)
	}
	if !result.ImportInitialChargeValue.LessThan(result.Import) {
		t.Fatalf("expected import initial-charge value to stay below the raw import stream, got charge=%s import=%s", result.ImportInitialChargeValue, result.Import)
	}
}

func TestEmitResultFailsForUnknownSubstance(t *testing.T) {
	e := newTestEngine(t)
	unknownKey := UseKey{Application: "domestic refrigeration", Substance: "never-registered"}
	if _, err := e.EmitResult(unknownKey, "scenario", 1); err == nil {
		t.Fatal("expected an error emitting a result for an unregistered substance")
	}
}

func TestAttributeToExporterResultMovesTradeSupplement(t *testing.T) {
	r := EngineResult{
		Manufacture:                    decOf(t, "100"),
		Import:                         decOf(t, "50"),
		DomesticConsumption:            decOf(t, "1000"),
		ImportConsumption:              decOf(t, "500"),
		ImportInitialChargeValue:       decOf(t, "20"),
		ImportInitialChargeConsumption: decOf(t, "200"),
		ExportInitialChargeValue:       decOf(t, "10"),
		ExportInitialChargeConsumption: decOf(t, "100"),
	}
	out := AttributeToExporterResult(r)

	if !out.Import.Equal(decOf(t, "30")) {
		t.Fatalf("expected import reduced to 30, got %s", out.Import)
	}
	if !out.ImportConsumption.Equal(decOf(t, "300")) {
		t.Fatalf("expected import consumption reduced to 300, got %s", out.ImportConsumption)
	}
	if !out.Manufacture.Equal(decOf(t, "110")) {
		t.Fatalf("expected manufacture increased to 110, got %s", out.Manufacture)
	}
	if !out.DomesticConsumption.Equal(decOf(t, "1100")) {
		t.Fatalf("expected domestic consumption increased to 1100, got %s", out.DomesticConsumption)
	}
	// r is left unmodified.
	if !r.Import.Equal(decOf(t, "50")) {
		t.Fatal("expected AttributeToExporterResult to leave its input unmodified")
	}
}
