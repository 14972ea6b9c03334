package engine

import (
	"context"
	"log/slog"
	"math"

	"github.com/gridpilot/gridpilot/pkg/log"
	"github.com/gridpilot/gridpilot/pkg/types"
)

// MaskScenario is one candidate plan in a batch: per-step booleans marking
// forced-charge and forced-export steps. Steps past the end of a mask are
// treated as unmarked.
type MaskScenario struct {
	Charge []bool `json:"charge"`
	Export []bool `json:"export"`
}

// BatchRequest scores many candidate plans against one shared forecast and
// device profile.
type BatchRequest struct {
	Forecast  types.Forecast        `json:"forecast"`
	Battery   types.BatteryProfile  `json:"battery"`
	Inverter  types.InverterProfile `json:"inverter"`
	Scenarios []MaskScenario        `json:"scenarios"`
	Options   Options               `json:"options"`
}

// BatchEngine is the reduced pre-filter model. It runs every scenario with
// AC-coupled arithmetic, no car charging, no diversion, no temperature
// derating, charge windows targeting full SOC and export windows at the
// rated rate. Its rankings correlate with the authoritative engine but its
// numbers are not quotable: survivors must be re-scored with ScalarEngine.
type BatchEngine struct{}

// NewBatch returns the pre-filter engine.
func NewBatch() *BatchEngine {
	return &BatchEngine{}
}

// Fidelity implements DispatchEngine.
func (e *BatchEngine) Fidelity() Fidelity {
	return Fidelity{Name: "batch"}
}

// Simulate implements DispatchEngine by scoring the scenario as a
// single-row batch. Window limits, cars, diversion, temperature and the
// hybrid flag are ignored per the engine's fidelity.
func (e *BatchEngine) Simulate(ctx context.Context, s Scenario) (*types.ScenarioResult, error) {
	g, err := resolveGrid(s.Options, s.Forecast)
	if err != nil {
		return nil, err
	}
	req := BatchRequest{
		Forecast: s.Forecast,
		Battery:  s.Battery,
		Inverter: s.Inverter,
		Options:  s.Options,
		Scenarios: []MaskScenario{{
			Charge: WindowsToMask(s.ChargeWindows, g.startMinute, g.stepMinutes, g.steps),
			Export: WindowsToMask(s.ExportWindows, g.startMinute, g.stepMinutes, g.steps),
		}},
	}
	results, err := e.SimulateBatch(ctx, req)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// SimulateBatch walks all scenarios step-major: forecast values are
// materialized once into arrays and the SOC-indexed curve lookups run across
// the whole scenario set at each step.
func (e *BatchEngine) SimulateBatch(ctx context.Context, req BatchRequest) ([]*types.ScenarioResult, error) {
	g, err := resolveGrid(req.Options, req.Forecast)
	if err != nil {
		return nil, err
	}
	if g.steps*g.stepMinutes < req.Options.HorizonMinutes {
		log.Ctx(ctx).WarnContext(ctx, "forecast shorter than requested horizon, truncating",
			slog.Int("requestedMinutes", req.Options.HorizonMinutes),
			slog.Int("coveredSteps", g.steps))
	}

	b := newBatchState(ctx, g, req)
	for i := 0; i < g.steps; i++ {
		b.runStep(i)
	}

	results := make([]*types.ScenarioResult, len(b.rows))
	for r := range b.rows {
		results[r] = b.rows[r].result(g)
	}
	return results, nil
}

// batchRow is the running state of one scenario in a batch.
type batchRow struct {
	charge []bool
	export []bool

	soc          float64
	cost         float64
	keep         float64
	cycle        float64
	importBat    float64
	importHouse  float64
	exported     float64
	carbon       float64
	socMin       float64
	socMinMinute int

	trace []types.TraceStep
}

func masked(mask []bool, i int) bool {
	return i < len(mask) && mask[i]
}

func (r *batchRow) result(g grid) *types.ScenarioResult {
	return &types.ScenarioResult{
		FinalCost:        r.cost + r.keep,
		FinalSOCKWh:      r.soc,
		SOCMinKWh:        r.socMin,
		SOCMinMinute:     r.socMinMinute,
		ImportBatteryKWh: r.importBat,
		ImportHouseKWh:   r.importHouse,
		ExportKWh:        r.exported,
		BatteryCycleKWh:  r.cycle,
		KeepMetric:       r.keep,
		CarbonG:          r.carbon,
		Trace:            r.trace,
		StepMinutes:      g.stepMinutes,
		Steps:            g.steps,
	}
}

// batchState holds the shared forecast arrays, the per-step curve scratch
// buffers and the scenario rows.
type batchState struct {
	g    grid
	req  BatchRequest
	core stepCore

	lossMult float64
	acCapKW  float64
	expCapKW float64

	pv         []float64
	load       []float64
	importRate []float64
	exportRate []float64
	intensity  []float64

	rows []batchRow

	// step-major scratch: SOC percent per row and the curve rates at it
	socPct       []float64
	chargeKW     []float64
	dischargeKW  []float64
	chargeFixed  float64 // rated fallback when the charge curve is empty
	dischargeFix float64
	chargeEmpty  bool
	dischargeEmp bool
}

func newBatchState(ctx context.Context, g grid, req BatchRequest) *batchState {
	n := len(req.Scenarios)
	b := &batchState{
		g:   g,
		req: req,
		core: stepCore{
			etaC:    req.Battery.EffectiveChargeEfficiency(),
			etaD:    req.Battery.EffectiveDischargeEfficiency(),
			socMax:  req.Battery.SOCMaxKWh,
			reserve: req.Battery.ReserveKWh,
		},
		lossMult:     1 - req.Inverter.LossFraction,
		acCapKW:      math.Inf(1),
		expCapKW:     math.Inf(1),
		pv:           req.Forecast.PV.Slice(g.startMinute, g.stepMinutes, g.steps),
		load:         req.Forecast.Load.Slice(g.startMinute, g.stepMinutes, g.steps),
		importRate:   req.Forecast.ImportRate.Slice(g.startMinute, g.stepMinutes, g.steps),
		exportRate:   req.Forecast.ExportRate.Slice(g.startMinute, g.stepMinutes, g.steps),
		intensity:    req.Forecast.Carbon.Slice(g.startMinute, g.stepMinutes, g.steps),
		rows:         make([]batchRow, n),
		socPct:       make([]float64, n),
		chargeKW:     make([]float64, n),
		dischargeKW:  make([]float64, n),
		chargeEmpty:  req.Battery.ChargeCurve.Empty(),
		dischargeEmp: req.Battery.DischargeCurve.Empty(),
		chargeFixed:  req.Battery.RatedChargeKW,
		dischargeFix: req.Battery.RatedDischargeKW,
	}
	if b.lossMult <= 0 {
		b.lossMult = 1
	}
	if req.Inverter.ACLimitKW > 0 {
		b.acCapKW = req.Inverter.ACLimitKW
	}
	if req.Inverter.ExportLimitKW > 0 {
		b.expCapKW = req.Inverter.ExportLimitKW
	} else {
		b.expCapKW = b.acCapKW
	}
	if b.chargeEmpty {
		log.Ctx(ctx).WarnContext(ctx, "charge curve has no breakpoints, using rated rate",
			slog.Float64("ratedKW", b.chargeFixed))
	}
	if b.dischargeEmp {
		log.Ctx(ctx).WarnContext(ctx, "discharge curve has no breakpoints, using rated rate",
			slog.Float64("ratedKW", b.dischargeFix))
	}
	for r := range b.rows {
		row := &b.rows[r]
		row.charge = req.Scenarios[r].Charge
		row.export = req.Scenarios[r].Export
		row.soc = req.Options.InitialSOCKWh
		row.socMin = row.soc
		row.socMinMinute = g.startMinute
		if req.Options.IncludeTrace {
			row.trace = make([]types.TraceStep, 0, g.steps)
		}
	}
	return b
}

func (b *batchState) runStep(i int) {
	h := b.g.stepHours()
	m := b.g.minute(i)
	pvAC := b.pv[i] * b.lossMult * h
	load := b.load[i] * h

	// one curve pass over the whole scenario set
	for r := range b.rows {
		if b.core.socMax > 0 {
			b.socPct[r] = b.rows[r].soc / b.core.socMax * 100
		}
	}
	if b.chargeEmpty {
		for r := range b.chargeKW {
			b.chargeKW[r] = b.chargeFixed
		}
	} else {
		b.req.Battery.ChargeCurve.LookupInto(b.socPct, b.chargeKW)
	}
	if b.dischargeEmp {
		for r := range b.dischargeKW {
			b.dischargeKW[r] = b.dischargeFix
		}
	} else {
		b.req.Battery.DischargeCurve.LookupInto(b.socPct, b.dischargeKW)
	}

	derate := b.req.Battery.Derate()
	for r := range b.rows {
		row := &b.rows[r]

		mode := modeECO
		switch {
		case masked(row.charge, i) && masked(row.export, i):
			if b.req.Options.ChargePreemptsExport {
				mode = modeCharge
			} else {
				mode = modeExport
			}
		case masked(row.charge, i):
			mode = modeCharge
		case masked(row.export, i):
			mode = modeExport
		}

		cCap := min(b.chargeKW[r]*derate, b.acCapKW) * h
		dCap := min(b.dischargeKW[r]*derate, b.acCapKW) * h

		flows := b.core.step(mode, row.soc, pvAC, load, cCap, dCap, b.core.socMax)
		row.soc = b.core.apply(row.soc, flows)
		row.cycle += flows.C + flows.D

		var stepExport float64
		if mode != modeCharge || b.req.Inverter.ChargeWhileExporting {
			stepExport = min(flows.surplus, b.expCapKW*h)
		}
		stepImport := flows.importBat + flows.importHouse

		row.importBat += flows.importBat
		row.importHouse += flows.importHouse
		row.exported += stepExport
		row.cost += stepImport*b.importRate[i] - stepExport*b.exportRate[i]
		row.carbon += (stepImport - stepExport) * b.intensity[i]
		if target := b.req.Options.KeepTargetKWh; row.soc < target {
			row.keep += b.req.Options.KeepWeight * (target - row.soc) * b.importRate[i] * h
		}
		if row.soc < row.socMin {
			row.socMin = row.soc
			row.socMinMinute = m
		}
		if row.trace != nil {
			row.trace = append(row.trace, types.TraceStep{
				Minute:    m,
				SOCKWh:    row.soc,
				ImportKWh: stepImport,
				ExportKWh: stepExport,
			})
		}
	}
}
