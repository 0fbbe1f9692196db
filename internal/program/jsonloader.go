package program

import (
	"encoding/json"
	"fmt"

	"github.com/example/qubecsim/internal/engine"
	"github.com/example/qubecsim/internal/units"
	"github.com/shopspring/decimal"
)

// JSONLoader decodes a Program from JSON. It is the one concrete Loader
// this module ships; the QubecTalk DSL text grammar itself is out of
// scope (spec.md Non-goals), so a scenario author (or a future text
// parser) emits this JSON shape instead.
type JSONLoader struct{}

// Load implements Loader.
func (JSONLoader) Load(data []byte) (Program, error) {
	var doc programDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Program{}, fmt.Errorf("program: invalid JSON: %w", err)
	}

	def, err := compileStanza("default", doc.Default)
	if err != nil {
		return Program{}, err
	}

	policies := make(map[string]Stanza, len(doc.Policies))
	for name, sd := range doc.Policies {
		s, err := compileStanza(name, sd)
		if err != nil {
			return Program{}, err
		}
		policies[name] = s
	}

	sims := make([]Simulation, 0, len(doc.Simulations))
	for _, sd := range doc.Simulations {
		sims = append(sims, Simulation{
			Name:        sd.Name,
			StartYear:   sd.StartYear,
			EndYear:     sd.EndYear,
			PolicyNames: sd.Policies,
			Trials:      sd.Trials,
		})
	}

	return Program{Default: def, Policies: policies, Simulations: sims}, nil
}

// --- JSON document shape -----------------------------------------------

type programDoc struct {
	Default     stanzaDoc            `json:"default"`
	Policies    map[string]stanzaDoc `json:"policies"`
	Simulations []simulationDoc      `json:"simulations"`
}

type simulationDoc struct {
	Name      string   `json:"name"`
	StartYear int      `json:"startYear"`
	EndYear   int      `json:"endYear"`
	Policies  []string `json:"policies"`
	Trials    int      `json:"trials"`
}

type stanzaDoc struct {
	Applications []applicationDoc `json:"applications"`
}

type applicationDoc struct {
	Name       string         `json:"name"`
	Substances []substanceDoc `json:"substances"`
}

type substanceDoc struct {
	Name       string  `json:"name"`
	Operations []opDoc `json:"operations"`
}

// opDoc is a tagged union over every engine.Engine operation. Only the
// fields relevant to Type are populated by a given instruction.
type opDoc struct {
	Type string `json:"type"`

	// set / change / cap / floor / equals / initialCharge / enable
	Stream string     `json:"stream,omitempty"`
	Value  *numberDoc `json:"value,omitempty"`

	// cap / floor
	Displace string `json:"displace,omitempty"`

	// replace
	Destination string `json:"destination,omitempty"`

	// recharge
	PopulationPercent  string `json:"populationPercent,omitempty"`
	IntensityKgPerUnit string `json:"intensityKgPerUnit,omitempty"`

	// retire / recycle
	Percent         string `json:"percent,omitempty"`
	RecoveryPercent string `json:"recoveryPercent,omitempty"`
	YieldPercent    string `json:"yieldPercent,omitempty"`
	Stage           string `json:"stage,omitempty"`

	// defineVariable / setVariable
	Name string `json:"name,omitempty"`

	// year range, applies to every operation that takes a YearMatcher
	YearStart *int `json:"yearStart,omitempty"`
	YearEnd   *int `json:"yearEnd,omitempty"`
}

type numberDoc struct {
	Value string `json:"value"`
	Units string `json:"units"`
}

func (n numberDoc) toEngineNumber() (units.EngineNumber, error) {
	d, err := decimal.NewFromString(n.Value)
	if err != nil {
		return units.EngineNumber{}, fmt.Errorf("program: invalid number %q: %w", n.Value, err)
	}
	return units.New(d, n.Units), nil
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func (d opDoc) yearMatcher() engine.YearMatcher {
	return engine.NewYearMatcher(d.YearStart, d.YearEnd)
}

func displaceTarget(name string) *engine.DisplaceTarget {
	if name == "" {
		return nil
	}
	return &engine.DisplaceTarget{Name: name}
}

// compileStanza turns a parsed stanza document into a Stanza of
// Operations: entering each application and substance scope, followed by
// that substance's own operation sequence, mirroring how the spec's
// default/policy stanzas are structured (spec.md §6).
func compileStanza(name string, doc stanzaDoc) (Stanza, error) {
	stanzaName := name
	ops := []Operation{func(e *engine.Engine) error {
		e.EnterStanza(stanzaName)
		return nil
	}}
	for _, app := range doc.Applications {
		appName := app.Name
		ops = append(ops, func(e *engine.Engine) error {
			return e.EnterApplication(appName)
		})
		for _, sub := range app.Substances {
			subName := sub.Name
			ops = append(ops, func(e *engine.Engine) error {
				return e.EnterSubstance(subName)
			})
			for i, od := range sub.Operations {
				op, err := compileOperation(od)
				if err != nil {
					return Stanza{}, fmt.Errorf("program: stanza %q, application %q, substance %q, operation %d: %w",
						name, appName, subName, i, err)
				}
				ops = append(ops, op)
			}
		}
	}
	return Stanza{Name: name, Operations: ops}, nil
}

// compileOperation compiles a single instruction into an Operation
// closure over the matching engine.Engine method (spec.md §4.3).
func compileOperation(d opDoc) (Operation, error) {
	switch d.Type {
	case "set":
		value, err := d.Value.toEngineNumber()
		if err != nil {
			return nil, err
		}
		stream := engine.StreamName(d.Stream)
		ym := d.yearMatcher()
		return func(e *engine.Engine) error { return e.Set(stream, value, ym) }, nil

	case "change":
		delta, err := d.Value.toEngineNumber()
		if err != nil {
			return nil, err
		}
		stream := engine.StreamName(d.Stream)
		ym := d.yearMatcher()
		return func(e *engine.Engine) error { return e.Change(stream, delta, ym) }, nil

	case "cap":
		max, err := d.Value.toEngineNumber()
		if err != nil {
			return nil, err
		}
		stream := engine.StreamName(d.Stream)
		ym := d.yearMatcher()
		target := displaceTarget(d.Displace)
		return func(e *engine.Engine) error { return e.Cap(stream, max, ym, target) }, nil

	case "floor":
		min, err := d.Value.toEngineNumber()
		if err != nil {
			return nil, err
		}
		stream := engine.StreamName(d.Stream)
		ym := d.yearMatcher()
		target := displaceTarget(d.Displace)
		return func(e *engine.Engine) error { return e.Floor(stream, min, ym, target) }, nil

	case "replace":
		amount, err := d.Value.toEngineNumber()
		if err != nil {
			return nil, err
		}
		stream := engine.StreamName(d.Stream)
		dest := d.Destination
		ym := d.yearMatcher()
		return func(e *engine.Engine) error { return e.Replace(amount, stream, dest, ym) }, nil

	case "recharge":
		pop, err := parseDecimal(d.PopulationPercent)
		if err != nil {
			return nil, fmt.Errorf("invalid populationPercent: %w", err)
		}
		intensity, err := parseDecimal(d.IntensityKgPerUnit)
		if err != nil {
			return nil, fmt.Errorf("invalid intensityKgPerUnit: %w", err)
		}
		ym := d.yearMatcher()
		return func(e *engine.Engine) error { return e.Recharge(pop, intensity, ym) }, nil

	case "retire":
		percent, err := parseDecimal(d.Percent)
		if err != nil {
			return nil, fmt.Errorf("invalid percent: %w", err)
		}
		ym := d.yearMatcher()
		return func(e *engine.Engine) error { return e.Retire(percent, ym) }, nil

	case "recycle":
		recovery, err := parseDecimal(d.RecoveryPercent)
		if err != nil {
			return nil, fmt.Errorf("invalid recoveryPercent: %w", err)
		}
		yield, err := parseDecimal(d.YieldPercent)
		if err != nil {
			return nil, fmt.Errorf("invalid yieldPercent: %w", err)
		}
		ym := d.yearMatcher()
		target := displaceTarget(d.Displace)
		stage := d.Stage
		return func(e *engine.Engine) error { return e.Recycle(recovery, yield, ym, target, stage) }, nil

	case "equals":
		intensity, err := d.Value.toEngineNumber()
		if err != nil {
			return nil, err
		}
		ym := d.yearMatcher()
		return func(e *engine.Engine) error { return e.Equals(intensity, ym) }, nil

	case "initialCharge":
		value, err := d.Value.toEngineNumber()
		if err != nil {
			return nil, err
		}
		stream := engine.StreamName(d.Stream)
		ym := d.yearMatcher()
		return func(e *engine.Engine) error { return e.InitialCharge(value, stream, ym) }, nil

	case "enable":
		stream := engine.StreamName(d.Stream)
		ym := d.yearMatcher()
		return func(e *engine.Engine) error { return e.Enable(stream, ym) }, nil

	case "defineVariable":
		value, err := d.Value.toEngineNumber()
		if err != nil {
			return nil, err
		}
		name := d.Name
		return func(e *engine.Engine) error { return e.DefineVariable(name, value) }, nil

	case "setVariable":
		value, err := d.Value.toEngineNumber()
		if err != nil {
			return nil, err
		}
		name := d.Name
		return func(e *engine.Engine) error { return e.SetVariable(name, value) }, nil

	default:
		return nil, fmt.Errorf("unknown operation type %q", d.Type)
	}
}
