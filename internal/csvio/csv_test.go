package csvio

import (
	"bytes"
	"testing"

	"github.com/example/qubecsim/internal/engine"
	"github.com/shopspring/decimal"
)

func sampleResult() engine.EngineResult {
	return engine.EngineResult{
		Scenario:                       "business as usual",
		Trial:                          2,
		Year:                           2031,
		Application:                    "domestic refrigeration",
		Substance:                      "HFC-134a",
		Manufacture:                    decimal.NewFromFloat(1234.5),
		Import:                         decimal.NewFromFloat(67.25),
		Recycle:                        decimal.NewFromFloat(10),
		DomesticConsumption:            decimal.NewFromFloat(1765335),
		ImportConsumption:              decimal.NewFromFloat(96167.5),
		RecycleConsumption:             decimal.NewFromFloat(14300),
		Population:                     decimal.NewFromFloat(9001),
		PopulationNew:                  decimal.NewFromFloat(450),
		RechargeEmissions:              decimal.NewFromFloat(320),
		EolEmissions:                   decimal.NewFromFloat(15),
		EnergyConsumption:              decimal.NewFromFloat(5000),
		ImportInitialChargeValue:       decimal.NewFromFloat(67.25),
		ImportInitialChargeConsumption: decimal.NewFromFloat(96167.5),
		ImportPopulation:               decimal.NewFromFloat(448),
		ExportInitialChargeValue:       decimal.Zero,
		ExportInitialChargeConsumption: decimal.Zero,
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	original := sampleResult()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Write(original); err != nil {
		t.Fatalf("unexpected error writing: %v", err)
	}
	w.Flush()

	r := NewReader(&buf)
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("unexpected error reading: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	got := rows[0]
	assertResultsEqual(t, original, got)
}

// assertResultsEqual compares field-by-field since decimal.Decimal holds
// an unexported *big.Int pointer that struct equality (==) would compare
// by identity rather than value.
func assertResultsEqual(t *testing.T, want, got engine.EngineResult) {
	t.Helper()
	if want.Scenario != got.Scenario || want.Trial != got.Trial || want.Year != got.Year ||
		want.Application != got.Application || want.Substance != got.Substance {
		t.Fatalf("identity fields mismatch:\nwant: %+v\ngot:  %+v", want, got)
	}
	decimals := []struct {
		name      string
		want, got decimal.Decimal
	}{
		{"Manufacture", want.Manufacture, got.Manufacture},
		{"Import", want.Import, got.Import},
		{"Recycle", want.Recycle, got.Recycle},
		{"DomesticConsumption", want.DomesticConsumption, got.DomesticConsumption},
		{"ImportConsumption", want.ImportConsumption, got.ImportConsumption},
		{"RecycleConsumption", want.RecycleConsumption, got.RecycleConsumption},
		{"Population", want.Population, got.Population},
		{"PopulationNew", want.PopulationNew, got.PopulationNew},
		{"RechargeEmissions", want.RechargeEmissions, got.RechargeEmissions},
		{"EolEmissions", want.EolEmissions, got.EolEmissions},
		{"EnergyConsumption", want.EnergyConsumption, got.EnergyConsumption},
		{"ImportInitialChargeValue", want.ImportInitialChargeValue, got.ImportInitialChargeValue},
		{"ImportInitialChargeConsumption", want.ImportInitialChargeConsumption, got.ImportInitialChargeConsumption},
		{"ImportPopulation", want.ImportPopulation, got.ImportPopulation},
		{"ExportInitialChargeValue", want.ExportInitialChargeValue, got.ExportInitialChargeValue},
		{"ExportInitialChargeConsumption", want.ExportInitialChargeConsumption, got.ExportInitialChargeConsumption},
	}
	for _, d := range decimals {
		if !d.want.Equal(d.got) {
			t.Fatalf("%s mismatch: want %s, got %s", d.name, d.want, d.got)
		}
	}
}

func TestWriteAllEmitsHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteAll([]engine.EngineResult{sampleResult(), sampleResult()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("unexpected error reading: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}
