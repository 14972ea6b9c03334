// Package engine implements battery dispatch simulation. Two engines share
// one interface: ScalarEngine walks a single scenario step by step with the
// full device model, and BatchEngine scores many candidate scenarios with a
// reduced model so an outer search can discard most of them cheaply. The
// Fidelity contract tells callers which features each engine honors.
package engine

import (
	"context"

	"github.com/gridpilot/gridpilot/pkg/types"
)

// DefaultStepMinutes is the step resolution used when Options leaves
// StepMinutes zero.
const DefaultStepMinutes = 5

// Fidelity describes which parts of the device model an engine honors.
// Callers ranking scenarios with a reduced engine must re-score the
// survivors with an authoritative one before acting on the numbers.
type Fidelity struct {
	Name          string `json:"name"`
	Hybrid        bool   `json:"hybrid"`
	CarCharging   bool   `json:"carCharging"`
	Diversion     bool   `json:"diversion"`
	Temperature   bool   `json:"temperature"`
	Authoritative bool   `json:"authoritative"`
}

// Options are the per-call tuning knobs shared by both engines.
type Options struct {
	// StepMinutes is the simulation resolution; zero means
	// DefaultStepMinutes. HorizonMinutes is the requested horizon and must
	// be a positive multiple of StepMinutes.
	StepMinutes    int `json:"stepMinutes"`
	HorizonMinutes int `json:"horizonMinutes"`

	// StartMinute is the forecast offset of the first step; it may be
	// negative when the scenario starts partway through a historical slot.
	StartMinute int `json:"startMinute"`

	InitialSOCKWh float64 `json:"initialSOCKWh"`

	// KeepTargetKWh/KeepWeight shape the keep-SOC penalty: while SOC sits
	// below the target, each step accrues
	// weight * (target - soc) * importRate * stepHours into the final cost.
	KeepTargetKWh float64 `json:"keepTargetKWh"`
	KeepWeight    float64 `json:"keepWeight"`

	// ChargePreemptsExport resolves steps covered by both a charge and an
	// export window in favor of charging. The zero value keeps export
	// precedence.
	ChargePreemptsExport bool `json:"chargePreemptsExport"`

	// IncludeTrace requests the per-step SOC trace on the result.
	IncludeTrace bool `json:"includeTrace"`
}

// Scenario is one candidate dispatch plan plus everything needed to score
// it. Scenarios are treated as immutable by the engines, so a single
// forecast and profile set may back many concurrent evaluations.
type Scenario struct {
	ChargeWindows []types.Window `json:"chargeWindows"`
	ExportWindows []types.Window `json:"exportWindows"`

	Forecast types.Forecast `json:"forecast"`

	Battery  types.BatteryProfile  `json:"battery"`
	Inverter types.InverterProfile `json:"inverter"`

	Cars      []types.CarCharging `json:"cars,omitempty"`
	Diversion types.DiversionLoad `json:"diversion,omitempty"`

	Options Options `json:"options"`
}

// DispatchEngine scores a scenario against a forecast.
type DispatchEngine interface {
	// Fidelity reports which model features this engine honors.
	Fidelity() Fidelity

	// Simulate scores one scenario. A forecast shorter than the requested
	// horizon yields a partial result over the covered steps, not an error.
	Simulate(ctx context.Context, s Scenario) (*types.ScenarioResult, error)
}

// grid describes the step grid a simulation runs on.
type grid struct {
	startMinute int
	stepMinutes int
	steps       int
}

func (g grid) minute(i int) int { return g.startMinute + i*g.stepMinutes }

func (g grid) stepHours() float64 { return float64(g.stepMinutes) / 60 }

// resolveGrid validates the options and truncates the horizon to the steps
// the load forecast actually covers.
func resolveGrid(opts Options, f types.Forecast) (grid, error) {
	g := grid{
		startMinute: opts.StartMinute,
		stepMinutes: opts.StepMinutes,
	}
	if g.stepMinutes == 0 {
		g.stepMinutes = DefaultStepMinutes
	}
	if g.stepMinutes < 0 {
		return grid{}, errInvalidStep
	}
	if opts.HorizonMinutes <= 0 || opts.HorizonMinutes%g.stepMinutes != 0 {
		return grid{}, errInvalidHorizon
	}
	requested := opts.HorizonMinutes / g.stepMinutes
	g.steps = f.Load.CoveredSteps(g.startMinute, g.stepMinutes, requested)
	return g, nil
}
