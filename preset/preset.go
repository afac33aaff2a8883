// Package preset loads named adjustment presets from YAML files and
// applies them to parameter sets.
package preset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gophoto/darkroom"
)

// HSLRows carries the per-band adjustment rows of a preset. Each array is
// in contract band order: red, orange, yellow, green, aqua, blue, purple,
// magenta.
type HSLRows struct {
	Hue [darkroom.NumBands]float32 `yaml:"hue,omitempty"`
	Sat [darkroom.NumBands]float32 `yaml:"sat,omitempty"`
	Lum [darkroom.NumBands]float32 `yaml:"lum,omitempty"`
}

// Preset is one named adjustment recipe: a slider map plus optional HSL
// rows. Slider keys are the names accepted by AdjustmentParams.Set.
type Preset struct {
	Name    string             `yaml:"name"`
	Sliders map[string]float32 `yaml:"sliders,omitempty"`
	HSL     *HSLRows           `yaml:"hsl,omitempty"`
}

// Validate checks the preset against the parameter contract.
func (p *Preset) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("preset: missing name")
	}
	var scratch darkroom.AdjustmentParams
	for name := range p.Sliders {
		if err := scratch.Set(name, 0); err != nil {
			return fmt.Errorf("preset %q: %w", p.Name, err)
		}
	}
	return nil
}

// Apply writes the preset's values into dst. Sliders not named by the
// preset keep their current values.
func (p *Preset) Apply(dst *darkroom.AdjustmentParams) error {
	for name, value := range p.Sliders {
		if err := dst.Set(name, value); err != nil {
			return fmt.Errorf("preset %q: %w", p.Name, err)
		}
	}
	if p.HSL != nil {
		dst.HSL[darkroom.HSLHue] = p.HSL.Hue
		dst.HSL[darkroom.HSLSat] = p.HSL.Sat
		dst.HSL[darkroom.HSLLum] = p.HSL.Lum
	}
	return nil
}

// Params returns a fresh parameter set with the preset applied.
func (p *Preset) Params() (*darkroom.AdjustmentParams, error) {
	params := &darkroom.AdjustmentParams{}
	if err := p.Apply(params); err != nil {
		return nil, err
	}
	return params, nil
}

// Load reads and validates one preset file.
func Load(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("preset: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates preset YAML.
func Parse(data []byte) (*Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("preset: parse: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Save writes the preset to a YAML file.
func (p *Preset) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("preset: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadDir loads every .yaml/.yml preset in a directory, sorted by name.
// A file that fails to parse is skipped with a warning rather than
// failing the whole directory.
func LoadDir(dir string) ([]*Preset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("preset: %w", err)
	}
	var presets []*Preset
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		p, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			darkroom.Logger().Warn("skipping preset", "file", e.Name(), "err", err)
			continue
		}
		presets = append(presets, p)
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })
	return presets, nil
}
