package types

// TraceStep is one step of the SOC trace. The outer optimizer's tweak passes
// read the trace to locate the binding minimum-SOC minute; the diversion
// flags are the iBoost running-mode outputs for the step.
type TraceStep struct {
	Minute         int     `json:"minute"`
	SOCKWh         float64 `json:"socKWh"`
	ImportKWh      float64 `json:"importKWh"`
	ExportKWh      float64 `json:"exportKWh"`
	DiversionSolar bool    `json:"diversionSolar,omitempty"`
	DiversionGrid  bool    `json:"diversionGrid,omitempty"`
}

// ScenarioResult is the scored outcome of one scenario. It is immutable once
// produced and owned exclusively by the caller that requested the scenario.
type ScenarioResult struct {
	// FinalCost is the scalar metric the outer search minimizes: grid cost
	// minus export revenue plus the keep-SOC term, in the rate currency.
	FinalCost float64 `json:"finalCost"`

	FinalSOCKWh  float64 `json:"finalSOCKWh"`
	SOCMinKWh    float64 `json:"socMinKWh"`
	SOCMinMinute int     `json:"socMinMinute"`

	// Import is split by attribution: energy drawn to charge the battery vs
	// energy drawn for the house (load, grid-only car charging, smart-import
	// diversion).
	ImportBatteryKWh float64 `json:"importBatteryKWh"`
	ImportHouseKWh   float64 `json:"importHouseKWh"`
	ExportKWh        float64 `json:"exportKWh"`

	// BatteryCycleKWh accumulates the absolute value of all charge and
	// discharge flow, independent of net conservation; it is the wear proxy.
	BatteryCycleKWh float64 `json:"batteryCycleKWh"`

	// KeepMetric is the accrued keep-SOC penalty already included in
	// FinalCost, reported separately for diagnostics.
	KeepMetric float64 `json:"keepMetric"`

	DiversionKWh float64 `json:"diversionKWh"`
	CarbonG      float64 `json:"carbonG"`

	// Trace has one entry per simulated step. The batch engine omits it
	// unless traces were requested.
	Trace []TraceStep `json:"trace,omitempty"`

	// StepMinutes and Steps record the grid the result was computed on;
	// Steps may be smaller than requested when the forecast ran short.
	StepMinutes int `json:"stepMinutes"`
	Steps       int `json:"steps"`
}

// ImportKWh returns total grid import across both attributions.
func (r *ScenarioResult) ImportKWh() float64 {
	return r.ImportBatteryKWh + r.ImportHouseKWh
}
