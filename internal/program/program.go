// Package program models a loaded scenario: a default stanza, zero or more
// named policy stanzas, and a list of simulations that combine them over a
// year range and trial count (spec.md §6). Parsing the QubecTalk DSL text
// itself is out of scope; Loader is the seam a concrete parser or, as here,
// a JSON decoder fills.
package program

import "github.com/example/qubecsim/internal/engine"

// Operation is one step of a stanza: a closure over an engine call. The
// loader compiles each parsed instruction into one of these; the facade
// driver never deals in anything less structured than this.
type Operation func(*engine.Engine) error

// Stanza is an ordered sequence of operations. Applying it runs every
// operation in order against the engine's current scope, stopping at the
// first error (spec.md §7: a fault aborts the operation sequence).
type Stanza struct {
	Name       string
	Operations []Operation
}

// Apply runs every operation in the stanza against e.
func (s Stanza) Apply(e *engine.Engine) error {
	for _, op := range s.Operations {
		if err := op(e); err != nil {
			return err
		}
	}
	return nil
}

// Simulation names one scenario: the year range it runs, which named
// policies to layer over the default stanza each year, and how many
// independent trials to run (spec.md §6).
type Simulation struct {
	Name        string
	StartYear   int
	EndYear     int
	PolicyNames []string
	Trials      int
}

// Program is a fully loaded scenario: the default stanza, the named
// policy stanzas it may be combined with, and the simulations stanza
// listing what to actually run (spec.md §6).
type Program struct {
	Default     Stanza
	Policies    map[string]Stanza
	Simulations []Simulation
}

// Policy looks up a named policy stanza.
func (p Program) Policy(name string) (Stanza, bool) {
	s, ok := p.Policies[name]
	return s, ok
}

// Loader parses scenario input into a Program. The QubecTalk DSL text
// format is out of scope (spec.md Non-goals); JSONLoader is the one
// concrete implementation this module ships.
type Loader interface {
	Load(data []byte) (Program, error)
}
