// Command score runs a single scenario file through a dispatch engine and
// prints the result as JSON. Useful for scoring a candidate plan from the
// command line without standing up the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/levenlabs/go-lflag"

	"github.com/gridpilot/gridpilot/pkg/engine"
	"github.com/gridpilot/gridpilot/pkg/log"
	"github.com/gridpilot/gridpilot/pkg/profiles"
)

func main() {
	scenarioFile := lflag.String("scenario", "-", "Scenario JSON file, - for stdin")
	profilesFile := lflag.String("profiles-file", "", "Optional YAML preset file")
	profileName := lflag.String("profile", "", "Preset to use instead of the scenario's inline records")
	engineName := lflag.String("engine", "scalar", "Engine to score with (scalar or batch)")
	withTrace := lflag.Bool("trace", false, "Include the per-step SOC trace in the output")
	lflag.Configure()

	ctx := context.Background()

	var in io.Reader = os.Stdin
	if *scenarioFile != "-" {
		f, err := os.Open(*scenarioFile)
		if err != nil {
			log.Ctx(ctx).Error("failed to open scenario", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	var s engine.Scenario
	if err := json.NewDecoder(in).Decode(&s); err != nil {
		log.Ctx(ctx).Error("failed to decode scenario", "error", err)
		os.Exit(1)
	}
	if *withTrace {
		s.Options.IncludeTrace = true
	}

	if *profileName != "" {
		set, err := profiles.Load(*profilesFile)
		if err != nil {
			log.Ctx(ctx).Error("failed to load profiles", "error", err)
			os.Exit(1)
		}
		p, err := set.Get(*profileName)
		if err != nil {
			log.Ctx(ctx).Error("unknown profile", "error", err)
			os.Exit(1)
		}
		s.Battery = p.Battery
		s.Inverter = p.Inverter
		s.Diversion = p.Diversion
	}

	var eng engine.DispatchEngine
	switch *engineName {
	case "scalar":
		eng = engine.NewScalar()
	case "batch":
		eng = engine.NewBatch()
	default:
		log.Ctx(ctx).Error("unknown engine", "engine", *engineName)
		os.Exit(1)
	}

	res, err := eng.Simulate(ctx, s)
	if err != nil {
		log.Ctx(ctx).Error("simulation failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Ctx(ctx).Error("failed to encode result", "error", err)
		os.Exit(1)
	}
}
