package types

import "sort"

// Window is a half-open interval [StartMinute, EndMinute) during which
// charging or exporting is forced. Limit is a SOC target in kWh for charge
// windows and a discharge rate target in kW for export windows; zero means
// "use the profile maximum".
type Window struct {
	StartMinute int     `json:"startMinute"`
	EndMinute   int     `json:"endMinute"`
	Limit       float64 `json:"limit"`
}

// Contains reports whether the minute falls inside the window.
func (w Window) Contains(minute int) bool {
	return minute >= w.StartMinute && minute < w.EndMinute
}

// Duration returns the window length in minutes.
func (w Window) Duration() int {
	return w.EndMinute - w.StartMinute
}

// NormalizeWindows drops zero- and negative-length windows and orders the
// rest by start minute. Overlap within one kind is an upstream contract
// violation and is not detected here.
func NormalizeWindows(ws []Window) []Window {
	out := make([]Window, 0, len(ws))
	for _, w := range ws {
		if w.Duration() <= 0 {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartMinute < out[j].StartMinute })
	return out
}

// FindWindow returns the window containing the minute, if any. Windows must
// already be normalized.
func FindWindow(ws []Window, minute int) (Window, bool) {
	for _, w := range ws {
		if minute < w.StartMinute {
			break
		}
		if w.Contains(minute) {
			return w, true
		}
	}
	return Window{}, false
}
