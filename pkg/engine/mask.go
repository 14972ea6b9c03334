package engine

import "github.com/gridpilot/gridpilot/pkg/types"

// WindowsToMask projects a window list onto a step grid: element i is true
// when the step starting at startMinute+i*stepMinutes falls inside a window.
// Windows are half-open, so a step starting exactly at a window's end minute
// is outside it.
func WindowsToMask(ws []types.Window, startMinute, stepMinutes, steps int) []bool {
	ws = types.NormalizeWindows(ws)
	mask := make([]bool, steps)
	for i := range mask {
		_, mask[i] = types.FindWindow(ws, startMinute+i*stepMinutes)
	}
	return mask
}
