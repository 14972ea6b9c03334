// Package profiles loads named battery/inverter/diversion presets from a
// YAML file. The engines take fully materialized profile records; this is
// the caller-side loading that fills them in.
package profiles

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/gridpilot/gridpilot/pkg/types"
)

// Preset bundles the device records for one named system.
type Preset struct {
	Battery   types.BatteryProfile  `yaml:"battery" json:"battery"`
	Inverter  types.InverterProfile `yaml:"inverter" json:"inverter"`
	Diversion types.DiversionLoad   `yaml:"diversion" json:"diversion"`
}

// Set is a loaded preset collection.
type Set struct {
	presets map[string]Preset
}

type fileFormat struct {
	Presets map[string]Preset `yaml:"presets"`
}

// Load reads and parses a preset file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a preset collection from YAML.
func Parse(data []byte) (*Set, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Presets) == 0 {
		return nil, fmt.Errorf("no presets defined")
	}
	return &Set{presets: f.Presets}, nil
}

// Get returns the named preset.
func (s *Set) Get(name string) (Preset, error) {
	p, ok := s.presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown profile preset %q", name)
	}
	return p, nil
}

// Names returns the preset names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.presets))
	for name := range s.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the presets keyed by name. The map is shared; callers must not
// modify it.
func (s *Set) All() map[string]Preset {
	return s.presets
}
