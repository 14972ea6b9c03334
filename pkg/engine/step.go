package engine

// stepMode is the dispatch mode in effect for one step.
type stepMode int

const (
	modeECO stepMode = iota
	modeCharge
	modeExport
)

// stepCore holds the battery constants for the AC-coupled per-step
// arithmetic. Both engines run the same core: the batch engine uses it
// directly and the scalar engine layers car, diversion and temperature
// effects on top, so a scenario with none of those features scores
// identically on both.
type stepCore struct {
	etaC    float64
	etaD    float64
	socMax  float64
	reserve float64
}

// stepFlows is the outcome of one step before export clamping. All fields
// are kWh. C is battery-nominal charge flow (soc moves by C*etaC, grid draw
// is C/etaC); D is delivered discharge (soc moves by D/etaD). surplus is the
// AC energy left over for diversion, export or curtailment.
type stepFlows struct {
	C           float64
	D           float64
	importBat   float64
	importHouse float64
	surplus     float64
}

// step runs the AC-coupled dispatch arithmetic for one step. pvAC and load
// are the step energies in kWh with the inverter loss already applied to
// pvAC; cCap and dCap are the rate caps in kWh (curve, derating and AC
// ceiling already folded in). chargeTarget is the SOC target in kWh for
// modeCharge.
func (sc stepCore) step(mode stepMode, soc, pvAC, load, cCap, dCap, chargeTarget float64) stepFlows {
	var f stepFlows
	switch mode {
	case modeCharge:
		need := (chargeTarget - soc) / sc.etaC
		if need < 0 {
			need = 0
		}
		f.C = min(cCap, need, (sc.socMax-soc)/sc.etaC)
		if f.C < 0 {
			f.C = 0
		}
		pvToLoad := min(pvAC, load)
		surplusPV := pvAC - pvToLoad
		pvFlow := min(f.C, surplusPV)
		f.importBat = (f.C - pvFlow) / sc.etaC
		f.importHouse = load - pvToLoad
		f.surplus = surplusPV - pvFlow

	case modeExport:
		f.D = min(dCap, (soc-sc.reserve)*sc.etaD)
		if f.D < 0 {
			f.D = 0
		}
		pvToLoad := min(pvAC, load)
		deficit := load - pvToLoad
		batToLoad := min(f.D, deficit)
		f.importHouse = deficit - batToLoad
		f.surplus = (pvAC - pvToLoad) + (f.D - batToLoad)

	default: // modeECO
		net := load - pvAC
		if net > 0 {
			f.D = min(net, dCap, (soc-sc.reserve)*sc.etaD)
			if f.D < 0 {
				f.D = 0
			}
			f.importHouse = net - f.D
		} else {
			surplus := -net
			f.C = min(surplus, cCap, (sc.socMax-soc)/sc.etaC)
			if f.C < 0 {
				f.C = 0
			}
			f.surplus = surplus - f.C
		}
	}
	return f
}

// apply moves the SOC by the step's flows and returns the new value, clamped
// to [reserve, socMax] against float drift.
func (sc stepCore) apply(soc float64, f stepFlows) float64 {
	soc += f.C*sc.etaC - f.D/sc.etaD
	if soc > sc.socMax {
		soc = sc.socMax
	}
	if soc < sc.reserve {
		soc = sc.reserve
	}
	return soc
}
