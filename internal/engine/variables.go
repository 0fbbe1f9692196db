package engine

import "github.com/example/qubecsim/internal/units"

// protectedNames are variable names the engine synthesizes itself; user
// code may read them but never define or shadow them (spec.md §4.3).
var protectedNames = map[string]bool{
	"yearsElapsed": true,
	"yearAbsolute": true,
}

// VariableManager holds four nested variable tables, one per ContextLevel,
// with shadowing lookup: Get walks inward-to-outward (substance, then
// application, then stanza, then global) and returns the first match; Set
// writes to the innermost level that already holds the name.
type VariableManager struct {
	tables [4]map[string]units.EngineNumber
}

// NewVariableManager returns an empty manager.
func NewVariableManager() *VariableManager {
	v := &VariableManager{}
	for i := range v.tables {
		v.tables[i] = make(map[string]units.EngineNumber)
	}
	return v
}

// Define creates name at level, failing if it is already defined there or
// if name is a protected reserved name.
func (v *VariableManager) Define(level ContextLevel, name string, value units.EngineNumber) error {
	if protectedNames[name] {
		return fault(ErrProtectedName, "", "", "", 0, name)
	}
	if _, exists := v.tables[level][name]; exists {
		return fault(ErrAlreadyDefined, "", "", "", 0, name)
	}
	v.tables[level][name] = value
	return nil
}

// Set writes value to the innermost level at which name is already
// defined, per spec.md §3: "set writes to the innermost level that holds
// the name."
func (v *VariableManager) Set(name string, value units.EngineNumber) error {
	if protectedNames[name] {
		return fault(ErrProtectedName, "", "", "", 0, name)
	}
	for level := LevelSubstance; level >= LevelGlobal; level-- {
		if _, exists := v.tables[level][name]; exists {
			v.tables[level][name] = value
			return nil
		}
	}
	return fault(ErrUnknownVariable, "", "", "", 0, name)
}

// Get looks name up from the innermost level outward, returning the first
// match.
func (v *VariableManager) Get(name string) (units.EngineNumber, bool) {
	for level := LevelSubstance; level >= LevelGlobal; level-- {
		if val, exists := v.tables[level][name]; exists {
			return val, true
		}
	}
	return units.EngineNumber{}, false
}

// ResetFrom clears every table at level and below (deeper levels), matching
// spec.md §3: "entering a child scope yields a new scope and resets
// variable tables at and below its level."
func (v *VariableManager) ResetFrom(level ContextLevel) {
	for l := level; l <= LevelSubstance; l++ {
		v.tables[l] = make(map[string]units.EngineNumber)
	}
}
