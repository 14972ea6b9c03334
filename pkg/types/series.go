package types

// TimeSeries maps an absolute minute offset to a value (kW, currency/kWh or
// gCO2/kWh). Offsets may be negative for slots before the forecast origin.
// The upstream rate pipeline delivers these dense over the simulation
// horizon; gaps are a contract violation and are read as zero rather than
// detected here.
type TimeSeries map[int]float64

// At returns the value at the given minute offset.
func (ts TimeSeries) At(minute int) float64 {
	return ts[minute]
}

// Slice materializes the series onto a step grid starting at startMinute,
// one value per step. The batch engine consumes forecasts in this form.
func (ts TimeSeries) Slice(startMinute, stepMinutes, steps int) []float64 {
	out := make([]float64, steps)
	for i := 0; i < steps; i++ {
		out[i] = ts[startMinute+i*stepMinutes]
	}
	return out
}

// CoveredSteps returns how many leading steps of the grid have a value
// present. The scalar engine truncates a too-short horizon to this count and
// returns a partial result instead of failing.
func (ts TimeSeries) CoveredSteps(startMinute, stepMinutes, steps int) int {
	for i := 0; i < steps; i++ {
		if _, ok := ts[startMinute+i*stepMinutes]; !ok {
			return i
		}
	}
	return steps
}

// Forecast bundles the dense input series for one simulation call. All series
// share the same minute-offset coordinate system; minute 0 is "now".
// Temperature is optional: an empty series disables temperature derating.
type Forecast struct {
	PV          TimeSeries `json:"pv"`
	Load        TimeSeries `json:"load"`
	ImportRate  TimeSeries `json:"importRate"`
	ExportRate  TimeSeries `json:"exportRate"`
	Carbon      TimeSeries `json:"carbon"`
	Temperature TimeSeries `json:"temperature,omitempty"`
}
