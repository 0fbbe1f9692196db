// Command qubecsim is the refrigerant-regulation simulation driver
// (spec.md §6): validate parses and interprets a scenario program
// without running it, run executes one named simulation and prints its
// results as CSV, and version prints the build identification.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/example/qubecsim/internal/config"
	"github.com/example/qubecsim/internal/csvio"
	"github.com/example/qubecsim/internal/facade"
	"github.com/example/qubecsim/internal/logging"
	"github.com/example/qubecsim/internal/program"
	"github.com/example/qubecsim/internal/version"
)

func main() {
	logger := logging.NewFromEnv()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: qubecsim <validate|run|version> [args]")
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "validate":
		if err := runValidate(logger, os.Args[2:]); err != nil {
			logger.Error("validate failed", "error", err)
			os.Exit(1)
		}
	case "run":
		if err := runRun(logger, os.Args[2:]); err != nil {
			logger.Error("run failed", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Println(version.String())
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		os.Exit(1)
	}
}

// runtime bundles the shared setup every subcommand needs: loaded
// config and a loaded program.
type runtime struct {
	cfg config.Config
	prg program.Program
}

func buildRuntime(logger *slog.Logger, path string) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program %q: %w", path, err)
	}

	prg, err := (program.JSONLoader{}).Load(data)
	if err != nil {
		return nil, fmt.Errorf("parse program %q: %w", path, err)
	}

	return &runtime{cfg: cfg, prg: prg}, nil
}

// runValidate parses and interprets the program at path without running
// any simulation (spec.md §6 "validate <path>"): a successful parse is
// itself the interpretation step, since compileOperation already
// resolves every instruction against the engine's operation set.
func runValidate(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: qubecsim validate <path>")
	}

	if _, err := buildRuntime(logger, fs.Arg(0)); err != nil {
		return err
	}
	return nil
}

// runRun executes one named simulation from the program at path and
// writes its results as CSV to stdout (spec.md §6 "run <path> --scenario
// <name>").
func runRun(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	scenario := fs.String("scenario", "", "name of the simulation to run")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: qubecsim run <path> --scenario <name>")
	}
	if *scenario == "" {
		return fmt.Errorf("--scenario is required")
	}

	rt, err := buildRuntime(logger, fs.Arg(0))
	if err != nil {
		return err
	}

	selected, err := selectSimulation(rt.prg, *scenario)
	if err != nil {
		return err
	}
	rt.prg.Simulations = []program.Simulation{selected}

	driver := facade.New(facade.Config{
		CheckPositiveStreams: rt.cfg.Engine.CheckPositiveStreams,
		OptimizeRecalcs:      rt.cfg.Engine.OptimizeRecalcs,
		Logger:               logger,
	})

	rows, err := driver.Run(context.Background(), rt.prg)
	if err != nil {
		return fmt.Errorf("run simulation %q: %w", *scenario, err)
	}

	w := csvio.NewWriter(os.Stdout)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write CSV: %w", err)
	}
	return nil
}

func selectSimulation(p program.Program, name string) (program.Simulation, error) {
	for _, sim := range p.Simulations {
		if sim.Name == name {
			return sim, nil
		}
	}
	return program.Simulation{}, fmt.Errorf("no simulation named %q in program", name)
}
