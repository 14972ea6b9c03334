package engine

import (
	"context"
	"log/slog"
	"math"

	"github.com/gridpilot/gridpilot/pkg/curve"
	"github.com/gridpilot/gridpilot/pkg/log"
	"github.com/gridpilot/gridpilot/pkg/types"
)

// ScalarEngine is the authoritative per-step simulation. It honors the full
// device model: hybrid and AC-coupled topologies, SOC and temperature rate
// clamps, car charging commitments, diversion loads and carbon accounting.
type ScalarEngine struct{}

// NewScalar returns the authoritative engine.
func NewScalar() *ScalarEngine {
	return &ScalarEngine{}
}

// Fidelity implements DispatchEngine.
func (e *ScalarEngine) Fidelity() Fidelity {
	return Fidelity{
		Name:          "scalar",
		Hybrid:        true,
		CarCharging:   true,
		Diversion:     true,
		Temperature:   true,
		Authoritative: true,
	}
}

// Simulate implements DispatchEngine.
func (e *ScalarEngine) Simulate(ctx context.Context, s Scenario) (*types.ScenarioResult, error) {
	g, err := resolveGrid(s.Options, s.Forecast)
	if err != nil {
		return nil, err
	}
	if g.steps*g.stepMinutes < s.Options.HorizonMinutes {
		log.Ctx(ctx).WarnContext(ctx, "forecast shorter than requested horizon, truncating",
			slog.Int("requestedMinutes", s.Options.HorizonMinutes),
			slog.Int("coveredSteps", g.steps))
	}

	st := newSimState(g, s)
	for i := 0; i < g.steps; i++ {
		st.runStep(ctx, i)
	}
	return st.finish(), nil
}

// simState carries the walk of one scenario: the running SOC, the cost and
// energy accumulators, and the once-per-simulation fallback warnings.
type simState struct {
	g    grid
	s    Scenario
	core stepCore

	// lossMult is 1 - LossFraction, the inverter's DC-to-AC survival factor.
	lossMult float64
	// acCapKW/expCapKW are the AC and export ceilings in kW; unlimited is
	// +Inf so they drop out of min chains.
	acCapKW  float64
	expCapKW float64

	soc           float64
	cost          float64
	keep          float64
	cycle         float64
	importBat     float64
	importHouse   float64
	export        float64
	diverted      float64
	divertedToday float64
	carbon        float64

	socMin       float64
	socMinMinute int

	trace []types.TraceStep

	warnedChargeCurve    bool
	warnedDischargeCurve bool
}

func newSimState(g grid, s Scenario) *simState {
	st := &simState{
		g: g,
		s: s,
		core: stepCore{
			etaC:    s.Battery.EffectiveChargeEfficiency(),
			etaD:    s.Battery.EffectiveDischargeEfficiency(),
			socMax:  s.Battery.SOCMaxKWh,
			reserve: s.Battery.ReserveKWh,
		},
		lossMult:      1 - s.Inverter.LossFraction,
		acCapKW:       math.Inf(1),
		expCapKW:      math.Inf(1),
		soc:           s.Options.InitialSOCKWh,
		divertedToday: s.Diversion.EnergyTodayKWh,
		socMinMinute:  g.startMinute,
	}
	if st.lossMult <= 0 {
		st.lossMult = 1
	}
	if s.Inverter.ACLimitKW > 0 {
		st.acCapKW = s.Inverter.ACLimitKW
	}
	if s.Inverter.ExportLimitKW > 0 {
		st.expCapKW = s.Inverter.ExportLimitKW
	} else {
		st.expCapKW = st.acCapKW
	}
	st.s.ChargeWindows = types.NormalizeWindows(s.ChargeWindows)
	st.s.ExportWindows = types.NormalizeWindows(s.ExportWindows)
	st.socMin = st.soc
	if s.Options.IncludeTrace {
		st.trace = make([]types.TraceStep, 0, g.steps)
	}
	return st
}

func (st *simState) socPct() float64 {
	if st.core.socMax <= 0 {
		return 0
	}
	return st.soc / st.core.socMax * 100
}

// tempMult returns the temperature derating multiplier for a step. An empty
// temperature forecast or an empty derating curve disables it.
func (st *simState) tempMult(c curve.Curve, m int) float64 {
	if c.Empty() || len(st.s.Forecast.Temperature) == 0 {
		return 1
	}
	return c.Lookup(st.s.Forecast.Temperature.At(m))
}

// chargeCapKWh returns the charge-flow cap for the step in kWh: the SOC
// curve (or the rated rate when the curve has no breakpoints), the global
// derate factor, temperature derating and the AC ceiling.
func (st *simState) chargeCapKWh(ctx context.Context, m int) float64 {
	kw := st.s.Battery.RatedChargeKW
	if st.s.Battery.ChargeCurve.Empty() {
		if !st.warnedChargeCurve {
			log.Ctx(ctx).WarnContext(ctx, "charge curve has no breakpoints, using rated rate",
				slog.Float64("ratedKW", kw))
			st.warnedChargeCurve = true
		}
	} else {
		kw = st.s.Battery.ChargeCurve.Lookup(st.socPct())
	}
	kw *= st.s.Battery.Derate()
	kw *= st.tempMult(st.s.Battery.ChargeTempCurve, m)
	return min(kw, st.acCapKW) * st.g.stepHours()
}

// dischargeCapKWh is the delivered-discharge cap for the step in kWh.
func (st *simState) dischargeCapKWh(ctx context.Context, m int) float64 {
	kw := st.s.Battery.RatedDischargeKW
	if st.s.Battery.DischargeCurve.Empty() {
		if !st.warnedDischargeCurve {
			log.Ctx(ctx).WarnContext(ctx, "discharge curve has no breakpoints, using rated rate",
				slog.Float64("ratedKW", kw))
			st.warnedDischargeCurve = true
		}
	} else {
		kw = st.s.Battery.DischargeCurve.Lookup(st.socPct())
	}
	kw *= st.s.Battery.Derate()
	kw *= st.tempMult(st.s.Battery.DischargeTempCurve, m)
	return min(kw, st.acCapKW) * st.g.stepHours()
}

// mode resolves the dispatch mode for the step's start minute. Charge yields
// to export unless the options flip the precedence.
func (st *simState) mode(m int) (stepMode, types.Window) {
	cw, inCharge := types.FindWindow(st.s.ChargeWindows, m)
	ew, inExport := types.FindWindow(st.s.ExportWindows, m)
	switch {
	case inCharge && inExport:
		if st.s.Options.ChargePreemptsExport {
			return modeCharge, cw
		}
		return modeExport, ew
	case inCharge:
		return modeCharge, cw
	case inExport:
		return modeExport, ew
	default:
		return modeECO, types.Window{}
	}
}

func (st *simState) runStep(ctx context.Context, i int) {
	m := st.g.minute(i)
	h := st.g.stepHours()
	f := st.s.Forecast

	pv := f.PV.At(m) * h
	load := f.Load.At(m) * h
	importRate := f.ImportRate.At(m)
	exportRate := f.ExportRate.At(m)

	// car commitments: battery-served energy joins the house load before
	// dispatch, grid-only energy bypasses the battery entirely
	var gridCar float64
	for _, car := range st.s.Cars {
		e := car.EnergyForStep(m, st.g.stepMinutes)
		if car.FromBattery {
			load += e
		} else {
			gridCar += e
		}
	}

	mode, w := st.mode(m)
	cCap := st.chargeCapKWh(ctx, m)
	dCap := st.dischargeCapKWh(ctx, m)

	chargeTarget := st.core.socMax
	if mode == modeCharge && w.Limit > 0 {
		chargeTarget = min(w.Limit, st.core.socMax)
	}
	if mode == modeExport && w.Limit > 0 {
		dCap = min(dCap, w.Limit*h)
	}

	var flows stepFlows
	if st.s.Battery.Hybrid {
		flows = st.hybridStep(mode, pv, load, cCap, dCap, chargeTarget)
	} else {
		flows = st.core.step(mode, st.soc, pv*st.lossMult, load, cCap, dCap, chargeTarget)
	}
	st.soc = st.core.apply(st.soc, flows)
	st.cycle += flows.C + flows.D

	surplus := flows.surplus
	solarDiv, gridDiv := st.runDiversion(&surplus, importRate, exportRate, h)

	var stepExport float64
	if mode != modeCharge || st.s.Inverter.ChargeWhileExporting {
		stepExport = min(surplus, st.expCapKW*h)
	}

	stepHouse := flows.importHouse + gridCar + gridDiv
	stepImport := flows.importBat + stepHouse

	st.importBat += flows.importBat
	st.importHouse += stepHouse
	st.export += stepExport

	st.cost += stepImport*importRate - stepExport*exportRate
	st.carbon += (stepImport - stepExport) * f.Carbon.At(m)
	if target := st.s.Options.KeepTargetKWh; st.soc < target {
		st.keep += st.s.Options.KeepWeight * (target - st.soc) * importRate * h
	}

	if st.soc < st.socMin {
		st.socMin = st.soc
		st.socMinMinute = m
	}
	if st.trace != nil {
		st.trace = append(st.trace, types.TraceStep{
			Minute:         m,
			SOCKWh:         st.soc,
			ImportKWh:      stepImport,
			ExportKWh:      stepExport,
			DiversionSolar: solarDiv > 0,
			DiversionGrid:  gridDiv > 0,
		})
	}
}

// runDiversion applies the diversion load to one step. Solar diversion eats
// into the surplus that would otherwise export; smart-import diversion
// returns extra grid energy for the house attribution. Only one of the two
// runs per step.
func (st *simState) runDiversion(surplus *float64, importRate, exportRate, h float64) (solar, fromGrid float64) {
	d := st.s.Diversion
	if !d.Enabled {
		return 0, 0
	}
	capLeft := d.MaxEnergyTodayKWh - st.divertedToday
	if capLeft <= 0 {
		return 0, 0
	}
	if d.SuppressExportRate > 0 && exportRate > d.SuppressExportRate {
		return 0, 0
	}

	if *surplus/h >= d.SolarThresholdKW && *surplus > 0 {
		kw := min(d.MaxPowerKW, *surplus/h, capLeft/h)
		if kw >= d.MinPowerKW {
			solar = kw * h
			*surplus -= solar
			st.divertedToday += solar
			st.diverted += solar
			return solar, 0
		}
	}

	if d.SmartImport && importRate <= d.MaxImportRate {
		kw := min(d.MaxPowerKW, capLeft/h)
		if kw >= d.MinPowerKW {
			fromGrid = kw * h
			st.divertedToday += fromGrid
			st.diverted += fromGrid
		}
	}
	return solar, fromGrid
}

// hybridStep is the DC-coupled variant of the step arithmetic. PV is DC
// behind the inverter: PV-to-battery charging skips the AC stage entirely,
// while PV serving the house or exporting and battery discharge all pass
// through it, pay the conversion loss and share the AC ceiling.
func (st *simState) hybridStep(mode stepMode, pvDC, load, cCap, dCap, chargeTarget float64) stepFlows {
	var f stepFlows
	acCap := st.acCapKW * st.g.stepHours()

	// PV serves the house first, through the inverter.
	pvForLoadDC := min(pvDC, load/st.lossMult)
	pvToLoad := pvForLoadDC * st.lossMult
	surplusDC := pvDC - pvForLoadDC
	deficit := load - pvToLoad
	acHeadroom := max(0, acCap-pvToLoad)

	switch mode {
	case modeCharge:
		need := max(0, (chargeTarget-st.soc)/st.core.etaC)
		f.C = min(cCap, need, (st.core.socMax-st.soc)/st.core.etaC)
		if f.C < 0 {
			f.C = 0
		}
		pvFlow := min(f.C, surplusDC)
		f.importBat = (f.C - pvFlow) / st.core.etaC
		f.importHouse = deficit
		f.surplus = min((surplusDC-pvFlow)*st.lossMult, acHeadroom)

	case modeExport:
		f.D = min(dCap, (st.soc-st.core.reserve)*st.core.etaD, acHeadroom/st.lossMult)
		if f.D < 0 {
			f.D = 0
		}
		delivered := f.D * st.lossMult
		batToLoad := min(delivered, deficit)
		f.importHouse = deficit - batToLoad
		acHeadroom -= delivered
		f.surplus = (delivered - batToLoad) + min(surplusDC*st.lossMult, max(0, acHeadroom))

	default: // modeECO
		if deficit > 0 {
			f.D = min(deficit/st.lossMult, dCap, (st.soc-st.core.reserve)*st.core.etaD, acHeadroom/st.lossMult)
			if f.D < 0 {
				f.D = 0
			}
			f.importHouse = deficit - f.D*st.lossMult
		} else {
			f.C = min(surplusDC, cCap, (st.core.socMax-st.soc)/st.core.etaC)
			if f.C < 0 {
				f.C = 0
			}
			f.surplus = min((surplusDC-f.C)*st.lossMult, acHeadroom)
		}
	}
	return f
}

func (st *simState) finish() *types.ScenarioResult {
	return &types.ScenarioResult{
		FinalCost:        st.cost + st.keep,
		FinalSOCKWh:      st.soc,
		SOCMinKWh:        st.socMin,
		SOCMinMinute:     st.socMinMinute,
		ImportBatteryKWh: st.importBat,
		ImportHouseKWh:   st.importHouse,
		ExportKWh:        st.export,
		BatteryCycleKWh:  st.cycle,
		KeepMetric:       st.keep,
		DiversionKWh:     st.diverted,
		CarbonG:          st.carbon,
		Trace:            st.trace,
		StepMinutes:      st.g.stepMinutes,
		Steps:            st.g.steps,
	}
}
