package engine

import (
	"testing"

	"github.com/example/qubecsim/internal/units"
	"github.com/shopspring/decimal"
)

func testKey() UseKey {
	return UseKey{Application: "domestic refrigeration", Substance: "HFC-134a"}
}

func decOf(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal literal %q: %v", s, err)
	}
	return d
}

func TestStreamKeeperEnsureSubstanceIsIdempotent(t *testing.T) {
	k := NewStreamKeeper(true, nil)
	key := testKey()
	k.EnsureSubstance(key)
	k.EnsureSubstance(key)
	if len(k.Keys()) != 1 {
		t.Fatalf("expected EnsureSubstance to be idempotent, got %d keys", len(k.Keys()))
	}
}

func TestStreamKeeperSalesIsSynthesizedNeverStored(t *testing.T) {
	k := NewStreamKeeper(true, nil)
	key := testKey()
	k.EnsureSubstance(key)

	if err := k.SetStream(key, StreamManufacture, units.New(decOf(t, "60"), "kg"), 2025); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := k.SetStream(key, StreamImport, units.New(decOf(t, "40"), "kg"), 2025); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sales, err := k.GetStream(key, StreamSales)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sales.Value.Equal(decOf(t, "100")) {
		t.Fatalf("expected synthesized sales of 100, got %s", sales.Value)
	}
}

func TestStreamKeeperCheckPositiveStreamsRejectsNegative(t *testing.T) {
	k := NewStreamKeeper(true, nil)
	key := testKey()
	k.EnsureSubstance(key)

	if err := k.setRaw(key, StreamManufacture, decOf(t, "-5"), 2025); err == nil {
		t.Fatal("expected an error writing a negative value with CHECK_POSITIVE_STREAMS enabled")
	}
}

func TestStreamKeeperClampsNegativeWhenNotChecking(t *testing.T) {
	k := NewStreamKeeper(false, nil)
	key := testKey()
	k.EnsureSubstance(key)

	if err := k.setRaw(key, StreamManufacture, decOf(t, "-5"), 2025); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := k.GetStream(key, StreamManufacture)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Value.IsZero() {
		t.Fatalf("expected clamp to zero, got %s", got.Value)
	}
}

func TestGetDistributionRequiresAnEnabledChannel(t *testing.T) {
	k := NewStreamKeeper(true, nil)
	key := testKey()
	k.EnsureSubstance(key)

	if _, _, _, err := k.GetDistribution(key, true); err == nil {
		t.Fatal("expected an error with no enabled sales channel")
	}

	k.Enable(key, StreamManufacture)
	pm, pi, pe, err := k.GetDistribution(key, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pm.Equal(decOf(t, "100")) || !pi.IsZero() || !pe.IsZero() {
		t.Fatalf("expected 100%% to manufacture, got pm=%s pi=%s pe=%s", pm, pi, pe)
	}
}

func TestPooledInitialChargeWeightsByPopulation(t *testing.T) {
	k := NewStreamKeeper(true, nil)
	key := testKey()
	k.EnsureSubstance(key)
	params := k.Params(key)
	params.InitialCharge[StreamManufacture] = units.New(decOf(t, "0.1"), "kg / unit")
	params.InitialCharge[StreamImport] = units.New(decOf(t, "0.2"), "kg / unit")

	if err := k.setRaw(key, StreamManufacture, decOf(t, "10"), 2025); err != nil { // 100 units
		t.Fatalf("unexpected error: %v", err)
	}
	if err := k.setRaw(key, StreamImport, decOf(t, "10"), 2025); err != nil { // 50 units
		t.Fatalf("unexpected error: %v", err)
	}

	// manufacture: 10kg / 0.1 = 100 units; import: 10kg / 0.2 = 50 units.
	// weighted = (0.1*100 + 0.2*50) / 150 = 20/150 = 0.1333...
	got := k.PooledInitialCharge(key)
	want := decOf(t, "10").Div(decOf(t, "0.1")).Mul(decOf(t, "0.1")).
		Add(decOf(t, "10").Div(decOf(t, "0.2")).Mul(decOf(t, "0.2"))).
		Div(decOf(t, "10").Div(decOf(t, "0.1")).Add(decOf(t, "10").Div(decOf(t, "0.2"))))
	if !got.Equal(want) {
		t.Fatalf("expected pooled charge %s, got %s", want, got)
	}
}

func TestPooledInitialChargeFallsBackWhenBothSidesEmpty(t *testing.T) {
	k := NewStreamKeeper(true, nil)
	key := testKey()
	k.EnsureSubstance(key)
	params := k.Params(key)
	params.InitialCharge[StreamManufacture] = units.New(decOf(t, "0.3"), "kg / unit")
	params.InitialCharge[StreamImport] = units.New(decOf(t, "0.5"), "kg / unit")
	// Neither manufacture nor import has any kg yet: both populations are zero.

	got := k.PooledInitialCharge(key)
	if !got.Equal(decOf(t, "0.3")) {
		t.Fatalf("expected fallback to manufacture's charge (0.3), got %s", got)
	}
}

func TestIncrementYearCopiesEquipmentAndResetsParams(t *testing.T) {
	k := NewStreamKeeper(true, nil)
	key := testKey()
	k.EnsureSubstance(key)

	if err := k.setRaw(key, StreamEquipment, decOf(t, "1000"), 2025); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	k.Params(key).RecoveryRate = decOf(t, "40")
	k.Enable(key, StreamManufacture)

	k.IncrementYear()

	prior, err := k.GetStream(key, StreamPriorEquipment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !prior.Value.Equal(decOf(t, "1000")) {
		t.Fatalf("expected priorEquipment to carry forward 1000, got %s", prior.Value)
	}
	if !k.Params(key).RecoveryRate.IsZero() {
		t.Fatalf("expected RecoveryRate to reset to zero, got %s", k.Params(key).RecoveryRate)
	}
	if !k.Params(key).EnabledStreams[StreamManufacture] {
		t.Fatal("expected EnabledStreams to survive the year boundary")
	}
}
