package types

import "github.com/gridpilot/gridpilot/pkg/curve"

// BatteryProfile describes the battery for one simulation call. Profiles are
// immutable parameter records: the engines never write to them, so one
// profile may serve any number of concurrent scenario evaluations.
type BatteryProfile struct {
	// SOCMaxKWh is the usable capacity; ReserveKWh is the floor the engines
	// never discharge below.
	SOCMaxKWh  float64 `json:"socMaxKWh" yaml:"socMaxKWh"`
	ReserveKWh float64 `json:"reserveKWh" yaml:"reserveKWh"`

	// ChargeEfficiency and DischargeEfficiency are applied asymmetrically:
	// soc += flow*chargeEff on the way in, soc -= delivered/dischargeEff on
	// the way out.
	ChargeEfficiency    float64 `json:"chargeEfficiency" yaml:"chargeEfficiency"`
	DischargeEfficiency float64 `json:"dischargeEfficiency" yaml:"dischargeEfficiency"`

	// RatedChargeKW/RatedDischargeKW are the nameplate rates, used directly
	// when the corresponding curve has no breakpoints.
	RatedChargeKW    float64 `json:"ratedChargeKW" yaml:"ratedChargeKW"`
	RatedDischargeKW float64 `json:"ratedDischargeKW" yaml:"ratedDischargeKW"`

	// ChargeCurve/DischargeCurve map SOC as a percentage of SOCMaxKWh to the
	// permitted power in kW. Monotonic in SOC by convention; lookups clamp to
	// the nearest breakpoint outside the table.
	ChargeCurve    curve.Curve `json:"chargeCurve,omitempty" yaml:"chargeCurve,omitempty"`
	DischargeCurve curve.Curve `json:"dischargeCurve,omitempty" yaml:"dischargeCurve,omitempty"`

	// DerateFactor globally scales the curve output; zero means 1.0.
	DerateFactor float64 `json:"derateFactor,omitempty" yaml:"derateFactor,omitempty"`

	// ChargeTempCurve/DischargeTempCurve map °C to a multiplier on the
	// permitted rate. Empty curves disable derating.
	ChargeTempCurve    curve.Curve `json:"chargeTempCurve,omitempty" yaml:"chargeTempCurve,omitempty"`
	DischargeTempCurve curve.Curve `json:"dischargeTempCurve,omitempty" yaml:"dischargeTempCurve,omitempty"`

	// Hybrid selects the inverter topology: true means PV is DC-coupled
	// behind the same inverter as the battery, so AC losses apply only to the
	// grid-facing portion of the power path.
	Hybrid bool `json:"hybrid" yaml:"hybrid"`
}

// EffectiveChargeEfficiency returns the charge efficiency with a sane 1.0
// fallback for zero-valued profiles.
func (b BatteryProfile) EffectiveChargeEfficiency() float64 {
	if b.ChargeEfficiency <= 0 {
		return 1
	}
	return b.ChargeEfficiency
}

// EffectiveDischargeEfficiency returns the discharge efficiency with a 1.0
// fallback.
func (b BatteryProfile) EffectiveDischargeEfficiency() float64 {
	if b.DischargeEfficiency <= 0 {
		return 1
	}
	return b.DischargeEfficiency
}

// Derate returns the global derating factor with a 1.0 fallback.
func (b BatteryProfile) Derate() float64 {
	if b.DerateFactor <= 0 {
		return 1
	}
	return b.DerateFactor
}

// InverterProfile describes the AC side of the system.
type InverterProfile struct {
	// ACLimitKW caps battery AC throughput (shared with PV on hybrid
	// topologies). Zero means unlimited.
	ACLimitKW float64 `json:"acLimitKW" yaml:"acLimitKW"`

	// ExportLimitKW caps the grid-export leg separately. Zero means
	// "same as ACLimitKW".
	ExportLimitKW float64 `json:"exportLimitKW" yaml:"exportLimitKW"`

	// LossFraction is the AC conversion loss (0..1). It always applies to
	// PV output; on hybrid topologies it also applies to the battery's
	// grid-facing transfers.
	LossFraction float64 `json:"lossFraction" yaml:"lossFraction"`

	// ChargeWhileExporting reports whether the topology permits PV surplus to
	// export while the battery is force-charging. When false the surplus is
	// curtailed instead.
	ChargeWhileExporting bool `json:"chargeWhileExporting" yaml:"chargeWhileExporting"`
}

// CarSlot is one charging commitment: EnergyKWh delivered uniformly over
// [StartMinute, EndMinute).
type CarSlot struct {
	StartMinute int     `json:"startMinute" yaml:"startMinute"`
	EndMinute   int     `json:"endMinute" yaml:"endMinute"`
	EnergyKWh   float64 `json:"energyKWh" yaml:"energyKWh"`
}

// CarCharging is the ordered commitment list for one vehicle. When
// FromBattery is false the energy is drawn straight from the grid balance
// before battery dispatch and never competes with the battery.
type CarCharging struct {
	Slots       []CarSlot `json:"slots" yaml:"slots"`
	FromBattery bool      `json:"fromBattery" yaml:"fromBattery"`
}

// EnergyForStep returns the vehicle energy committed inside
// [minute, minute+stepMinutes), spreading each slot's energy uniformly over
// its duration.
func (c CarCharging) EnergyForStep(minute, stepMinutes int) float64 {
	stepEnd := minute + stepMinutes
	var kwh float64
	for _, s := range c.Slots {
		if s.EndMinute <= s.StartMinute || s.EnergyKWh <= 0 {
			continue
		}
		lo := max(minute, s.StartMinute)
		hi := min(stepEnd, s.EndMinute)
		if hi <= lo {
			continue
		}
		kwh += s.EnergyKWh * float64(hi-lo) / float64(s.EndMinute-s.StartMinute)
	}
	return kwh
}

// DiversionLoad configures the resistive-heater ("iBoost") diversion.
// RunningSolar/RunningImport on the trace are outputs of the simulation, not
// part of this input record.
type DiversionLoad struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// SolarThresholdKW is the PV surplus (after battery charging) required
	// before any energy is diverted.
	SolarThresholdKW float64 `json:"solarThresholdKW" yaml:"solarThresholdKW"`

	// MinPowerKW is the heater's minimum stable power; a would-be diversion
	// below it is skipped. MaxPowerKW caps the diverted power.
	MinPowerKW float64 `json:"minPowerKW" yaml:"minPowerKW"`
	MaxPowerKW float64 `json:"maxPowerKW" yaml:"maxPowerKW"`

	// MaxEnergyTodayKWh is the daily cap; EnergyTodayKWh is the accumulator
	// carried in from earlier in the day.
	MaxEnergyTodayKWh float64 `json:"maxEnergyTodayKWh" yaml:"maxEnergyTodayKWh"`
	EnergyTodayKWh    float64 `json:"energyTodayKWh" yaml:"energyTodayKWh"`

	// SmartImport enables diversion from cheap grid import: steps whose
	// import rate is at or below MaxImportRate run the heater at MaxPowerKW
	// from the grid.
	SmartImport   bool    `json:"smartImport" yaml:"smartImport"`
	MaxImportRate float64 `json:"maxImportRate" yaml:"maxImportRate"`

	// SuppressExportRate suppresses all diversion on steps whose export rate
	// exceeds it (exporting pays better than heating). Zero disables the
	// check.
	SuppressExportRate float64 `json:"suppressExportRate" yaml:"suppressExportRate"`
}
