package profiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
presets:
  hybrid-9kwh:
    battery:
      socMaxKWh: 9.5
      reserveKWh: 0.4
      chargeEfficiency: 0.92
      dischargeEfficiency: 0.92
      ratedChargeKW: 3.6
      ratedDischargeKW: 3.6
      chargeCurve:
        0: 3.6
        90: 3.6
        100: 1.2
      chargeTempCurve:
        - {x: -10, y: 0.3}
        - {x: 5, y: 1}
      hybrid: true
    inverter:
      acLimitKW: 3.6
      exportLimitKW: 3.6
      lossFraction: 0.04
    diversion:
      enabled: true
      solarThresholdKW: 0.5
      minPowerKW: 0.8
      maxPowerKW: 3
      maxEnergyTodayKWh: 6
  ac-5kwh:
    battery:
      socMaxKWh: 5.2
      ratedChargeKW: 2.6
      ratedDischargeKW: 2.6
    inverter:
      acLimitKW: 2.6
`

func TestParse(t *testing.T) {
	set, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"ac-5kwh", "hybrid-9kwh"}, set.Names())

	p, err := set.Get("hybrid-9kwh")
	require.NoError(t, err)
	assert.True(t, p.Battery.Hybrid)
	assert.InDelta(t, 9.5, p.Battery.SOCMaxKWh, 1e-9)
	assert.InDelta(t, 0.92, p.Battery.ChargeEfficiency, 1e-9)
	assert.True(t, p.Diversion.Enabled)
	assert.InDelta(t, 0.04, p.Inverter.LossFraction, 1e-9)

	// curves parse from both the mapping and the sequence form
	assert.InDelta(t, 3.6, p.Battery.ChargeCurve.Lookup(50), 1e-9)
	assert.InDelta(t, 1.2, p.Battery.ChargeCurve.Lookup(100), 1e-9)
	assert.InDelta(t, 0.3, p.Battery.ChargeTempCurve.Lookup(-20), 1e-9)
}

func TestGetUnknownPreset(t *testing.T) {
	set, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	_, err = set.Get("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestParseRejectsEmpty(t *testing.T) {
	_, err := Parse([]byte("presets: {}"))
	assert.Error(t, err)

	_, err = Parse([]byte("presets: [not, a, map]"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	set, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, set.All(), 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
