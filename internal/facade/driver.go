// Package facade drives a loaded program.Program across every simulation
// and trial it names, producing the EngineResult rows spec.md §6 defines
// as the tool's output. It generalizes the teacher's
// scenarios.Engine.RunSimulation year loop (linear interpolation over a
// single Emissions baseline) to the full stream/recalc engine driven by a
// default stanza plus named policy stanzas.
package facade

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/example/qubecsim/internal/engine"
	"github.com/example/qubecsim/internal/logging"
	"github.com/example/qubecsim/internal/program"
)

// ErrUnknownPolicy is returned when a simulation names a policy the
// program doesn't define.
var ErrUnknownPolicy = fmt.Errorf("facade: simulation references an undefined policy")

// FaultPolicy governs what a Driver does when applying a stanza or
// emitting a result returns an error mid-run (spec.md §7).
type FaultPolicy int

const (
	// AbandonTrial stops the current trial and moves on to the next one.
	// This is the default.
	AbandonTrial FaultPolicy = iota
	// AbandonScenario stops every remaining trial of the current
	// simulation and ends the run: Run returns the error together with the
	// rows collected so far, and later simulations are not run.
	AbandonScenario
)

// Config bundles the construction-time driver settings.
type Config struct {
	// CheckPositiveStreams and OptimizeRecalcs are forwarded to every
	// engine.Engine the driver constructs.
	CheckPositiveStreams bool
	OptimizeRecalcs      bool

	// FaultPolicy governs mid-run error handling.
	FaultPolicy FaultPolicy

	// AttributeTrade applies AttributeToExporterResult to every emitted
	// row before it's returned (spec.md §4.5 trade supplement).
	AttributeTrade bool

	Logger *slog.Logger
}

// Driver runs a program.Program to completion, collecting one
// engine.EngineResult row per (application, substance) at every year
// boundary of every trial of every simulation.
type Driver struct {
	cfg Config
}

// New returns a Driver. A nil Logger falls back to slog.Default().
func New(cfg Config) *Driver {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Driver{cfg: cfg}
}

// Run drives every simulation in p to completion and returns the
// concatenated result rows in simulation/trial/year order. Every log line
// produced during the run carries a runID, so concurrent invocations of
// Run (e.g. from separate goroutines, each with its own Driver) can be
// told apart in aggregated logs.
func (d *Driver) Run(ctx context.Context, p program.Program) ([]engine.EngineResult, error) {
	runID := uuid.New().String()
	ctx = logging.NewContext(ctx, d.cfg.Logger.With("runID", runID))
	logging.FromContext(ctx).Info("run started", "simulations", len(p.Simulations))

	var rows []engine.EngineResult
	for _, sim := range p.Simulations {
		simRows, err := d.runSimulation(ctx, p, sim)
		if err != nil {
			return rows, err
		}
		rows = append(rows, simRows...)
	}
	return rows, nil
}

func (d *Driver) runSimulation(ctx context.Context, p program.Program, sim program.Simulation) ([]engine.EngineResult, error) {
	ctx = logging.WithScenario(ctx, sim.Name)
	logger := logging.FromContext(ctx)

	var rows []engine.EngineResult
	for trial := 1; trial <= sim.Trials; trial++ {
		trialCtx := logging.WithTrial(ctx, trial)
		trialRows, err := d.runTrial(trialCtx, p, sim, trial)
		if err != nil {
			logger.Error("trial abandoned", "trial", trial, "error", err)
			if d.cfg.FaultPolicy == AbandonScenario {
				return rows, err
			}
			continue
		}
		rows = append(rows, trialRows...)
	}
	return rows, nil
}

func (d *Driver) runTrial(ctx context.Context, p program.Program, sim program.Simulation, trial int) ([]engine.EngineResult, error) {
	logger := logging.FromContext(ctx)
	eng := engine.New(engine.Config{
		StartYear:            sim.StartYear,
		EndYear:              sim.EndYear,
		CheckPositiveStreams: d.cfg.CheckPositiveStreams,
		OptimizeRecalcs:      d.cfg.OptimizeRecalcs,
		Logger:               logger,
	})

	policies := make([]program.Stanza, 0, len(sim.PolicyNames))
	for _, name := range sim.PolicyNames {
		policy, ok := p.Policy(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
		}
		policies = append(policies, policy)
	}

	var rows []engine.EngineResult
	for !eng.Done() {
		if err := p.Default.Apply(eng); err != nil {
			return rows, err
		}
		for _, policy := range policies {
			if err := policy.Apply(eng); err != nil {
				return rows, err
			}
		}

		for _, key := range eng.Keeper().Keys() {
			result, err := eng.EmitResult(key, sim.Name, trial)
			if err != nil {
				return rows, err
			}
			if d.cfg.AttributeTrade {
				result = engine.AttributeToExporterResult(result)
			}
			rows = append(rows, result)
		}

		if err := eng.IncrementYear(); err != nil {
			return rows, err
		}
	}
	return rows, nil
}
