package engine

import "testing"

func TestScopeEnterRequiresParent(t *testing.T) {
	s := NewScope()
	if _, err := s.EnterApplication("fridges"); err == nil {
		t.Fatal("expected an error entering an application without a stanza")
	}

	s = s.EnterStanza("default")
	app, err := s.EnterApplication("fridges")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := app.EnterSubstance("HFC-134a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewScope().EnterStanza("default").EnterSubstance("HFC-134a"); err == nil {
		t.Fatal("expected an error entering a substance without an application")
	}
}

func TestScopeIsImmutable(t *testing.T) {
	base := NewScope().EnterStanza("default")
	child, err := base.EnterApplication("fridges")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.Level() != LevelStanza {
		t.Fatalf("expected base scope to remain at stanza level, got %v", base.Level())
	}
	if child.Level() != LevelApplication {
		t.Fatalf("expected child scope at application level, got %v", child.Level())
	}
}

func TestUseKeyStringUsesDashForAbsent(t *testing.T) {
	k := UseKey{}
	if got := k.String(); got != "-\t-" {
		t.Fatalf("expected \"-\\t-\", got %q", got)
	}
	k = UseKey{Application: "fridges", Substance: "HFC-134a"}
	if got := k.String(); got != "fridges\tHFC-134a" {
		t.Fatalf("unexpected key string: %q", got)
	}
}
