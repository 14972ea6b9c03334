package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeSeries(t *testing.T) {
	ts := TimeSeries{-5: 1.0, 0: 2.0, 5: 3.0, 10: 4.0}

	t.Run("At", func(t *testing.T) {
		assert.InDelta(t, 1.0, ts.At(-5), 1e-9)
		assert.InDelta(t, 3.0, ts.At(5), 1e-9)
		assert.Zero(t, ts.At(3), "gaps read as zero, never detected here")
	})

	t.Run("Slice", func(t *testing.T) {
		assert.Equal(t, []float64{2, 3, 4}, ts.Slice(0, 5, 3))
	})

	t.Run("CoveredSteps Truncates At First Gap", func(t *testing.T) {
		assert.Equal(t, 3, ts.CoveredSteps(0, 5, 5))
		assert.Equal(t, 2, ts.CoveredSteps(0, 5, 2))
		assert.Equal(t, 0, ts.CoveredSteps(100, 5, 2))
	})
}

func TestNormalizeWindows(t *testing.T) {
	ws := NormalizeWindows([]Window{
		{StartMinute: 120, EndMinute: 180, Limit: 5},
		{StartMinute: 60, EndMinute: 60}, // zero-length, dropped
		{StartMinute: 90, EndMinute: 30}, // negative-length, dropped
		{StartMinute: 0, EndMinute: 30, Limit: 10},
	})
	assert.Len(t, ws, 2)
	assert.Equal(t, 0, ws[0].StartMinute)
	assert.Equal(t, 120, ws[1].StartMinute)
}

func TestFindWindow(t *testing.T) {
	ws := NormalizeWindows([]Window{
		{StartMinute: 0, EndMinute: 30},
		{StartMinute: 60, EndMinute: 90, Limit: 2},
	})

	w, ok := FindWindow(ws, 0)
	assert.True(t, ok)
	assert.Equal(t, 30, w.EndMinute)

	// half-open: end minute is outside
	_, ok = FindWindow(ws, 30)
	assert.False(t, ok)

	w, ok = FindWindow(ws, 89)
	assert.True(t, ok)
	assert.InDelta(t, 2.0, w.Limit, 1e-9)

	_, ok = FindWindow(ws, 100)
	assert.False(t, ok)
}

func TestCarEnergyForStep(t *testing.T) {
	car := CarCharging{Slots: []CarSlot{
		{StartMinute: 0, EndMinute: 60, EnergyKWh: 6.0},
	}}

	t.Run("Uniform Spread", func(t *testing.T) {
		assert.InDelta(t, 0.5, car.EnergyForStep(0, 5), 1e-9)
		assert.InDelta(t, 0.5, car.EnergyForStep(55, 5), 1e-9)
	})

	t.Run("Partial Overlap", func(t *testing.T) {
		// step 55..65 overlaps the slot for 5 minutes
		assert.InDelta(t, 0.5, car.EnergyForStep(55, 10), 1e-9)
		assert.Zero(t, car.EnergyForStep(60, 5))
	})

	t.Run("Degenerate Slots Ignored", func(t *testing.T) {
		bad := CarCharging{Slots: []CarSlot{
			{StartMinute: 10, EndMinute: 10, EnergyKWh: 3},
			{StartMinute: 0, EndMinute: 30, EnergyKWh: -1},
		}}
		assert.Zero(t, bad.EnergyForStep(0, 30))
	})
}

func TestProfileFallbacks(t *testing.T) {
	var b BatteryProfile
	assert.InDelta(t, 1.0, b.EffectiveChargeEfficiency(), 1e-9)
	assert.InDelta(t, 1.0, b.EffectiveDischargeEfficiency(), 1e-9)
	assert.InDelta(t, 1.0, b.Derate(), 1e-9)

	b.ChargeEfficiency = 0.9
	b.DerateFactor = 0.8
	assert.InDelta(t, 0.9, b.EffectiveChargeEfficiency(), 1e-9)
	assert.InDelta(t, 0.8, b.Derate(), 1e-9)
}
