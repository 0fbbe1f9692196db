package engine

import (
	"testing"

	"github.com/example/qubecsim/internal/units"
)

func TestVariableShadowingAndReset(t *testing.T) {
	v := NewVariableManager()
	if err := v.Define(LevelGlobal, "x", units.NewFromFloat(1, "kg")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.Define(LevelSubstance, "x", units.NewFromFloat(2, "kg")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := v.Get("x")
	if !ok || !got.Value.Equal(units.NewFromFloat(2, "kg").Value) {
		t.Fatalf("expected innermost shadow (2), got %+v ok=%v", got, ok)
	}

	v.ResetFrom(LevelSubstance)
	got, ok = v.Get("x")
	if !ok || !got.Value.Equal(units.NewFromFloat(1, "kg").Value) {
		t.Fatalf("expected global value (1) after substance reset, got %+v ok=%v", got, ok)
	}
}

func TestVariableSetWritesInnermostDefinedLevel(t *testing.T) {
	v := NewVariableManager()
	if err := v.Define(LevelApplication, "y", units.NewFromFloat(5, "kg")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.Set("y", units.NewFromFloat(9, "kg")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := v.Get("y")
	if !ok || !got.Value.Equal(units.NewFromFloat(9, "kg").Value) {
		t.Fatalf("expected 9, got %+v ok=%v", got, ok)
	}
}

func TestVariableSetUnknownNameFails(t *testing.T) {
	v := NewVariableManager()
	if err := v.Set("never-defined", units.NewFromFloat(1, "kg")); err == nil {
		t.Fatal("expected an error setting an undefined variable")
	}
}

func TestVariableProtectedNamesRejected(t *testing.T) {
	v := NewVariableManager()
	if err := v.Define(LevelGlobal, "yearsElapsed", units.NewFromFloat(0, "years")); err == nil {
		t.Fatal("expected an error defining a protected name")
	}
}

func TestVariableDefineTwiceAtSameLevelFails(t *testing.T) {
	v := NewVariableManager()
	if err := v.Define(LevelGlobal, "z", units.NewFromFloat(1, "kg")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.Define(LevelGlobal, "z", units.NewFromFloat(2, "kg")); err == nil {
		t.Fatal("expected an error redefining a name at the same level")
	}
}
