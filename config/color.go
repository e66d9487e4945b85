package config

import (
	"fmt"
	"image"

	"gopkg.in/yaml.v3"

	"github.com/soocke/coop-overlay-go/assets"
)

// HSVRange is an inclusive box in 8-bit OpenCV HSV space.
type HSVRange struct {
	HMin int `json:"h_min" yaml:"h_min" mapstructure:"h_min"`
	HMax int `json:"h_max" yaml:"h_max" mapstructure:"h_max"`
	SMin int `json:"s_min" yaml:"s_min" mapstructure:"s_min"`
	SMax int `json:"s_max" yaml:"s_max" mapstructure:"s_max"`
	VMin int `json:"v_min" yaml:"v_min" mapstructure:"v_min"`
	VMax int `json:"v_max" yaml:"v_max" mapstructure:"v_max"`
}

// Contains reports whether the HSV triple lies inside the range.
func (r HSVRange) Contains(h, s, v uint8) bool {
	return int(h) >= r.HMin && int(h) <= r.HMax &&
		int(s) >= r.SMin && int(s) <= r.SMax &&
		int(v) >= r.VMin && int(v) <= r.VMax
}

func (r HSVRange) valid() bool {
	return r.HMin >= 0 && r.HMax <= 179 && r.HMin <= r.HMax &&
		r.SMin >= 0 && r.SMax <= 255 && r.SMin <= r.SMax &&
		r.VMin >= 0 && r.VMax <= 255 && r.VMin <= r.VMax
}

// ColorProfile is a named color. A pixel belongs to the profile when any of
// its ranges contains it, which allows hues that wrap around 0.
type ColorProfile struct {
	Name   string     `json:"name" yaml:"name" mapstructure:"name"`
	Ranges []HSVRange `json:"ranges" yaml:"ranges" mapstructure:"ranges"`
}

// Contains reports whether any range of the profile contains the HSV triple.
func (p ColorProfile) Contains(h, s, v uint8) bool {
	for _, r := range p.Ranges {
		if r.Contains(h, s, v) {
			return true
		}
	}
	return false
}

func (p ColorProfile) validate() error {
	if p.Name == "" {
		return fmt.Errorf("config: color profile without name")
	}
	if len(p.Ranges) == 0 {
		return fmt.Errorf("config: color profile %q has no ranges", p.Name)
	}
	for i, r := range p.Ranges {
		if !r.valid() {
			return fmt.Errorf("config: color profile %q range %d out of bounds: %+v", p.Name, i, r)
		}
	}
	return nil
}

// Rect is an ROI in baseline-resolution pixels, max-exclusive.
type Rect struct {
	X0 int `json:"x0" yaml:"x0" mapstructure:"x0"`
	Y0 int `json:"y0" yaml:"y0" mapstructure:"y0"`
	X1 int `json:"x1" yaml:"x1" mapstructure:"x1"`
	Y1 int `json:"y1" yaml:"y1" mapstructure:"y1"`
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.X1 <= r.X0 || r.Y1 <= r.Y0 }

// Shift returns the rectangle moved down by dy baseline pixels.
func (r Rect) Shift(dy int) Rect {
	return Rect{X0: r.X0, Y0: r.Y0 + dy, X1: r.X1, Y1: r.Y1 + dy}
}

// Scale maps the baseline rectangle onto a frame using independent x/y ratios.
func (r Rect) Scale(sx, sy float64) image.Rectangle {
	return image.Rect(
		int(float64(r.X0)*sx+0.5),
		int(float64(r.Y0)*sy+0.5),
		int(float64(r.X1)*sx+0.5),
		int(float64(r.Y1)*sy+0.5),
	)
}

// Palette groups every color the recognizers mask against.
type Palette struct {
	Factions []ColorProfile `yaml:"factions"`
	Time     ColorProfile   `yaml:"time"`
	Pause    ColorProfile   `yaml:"pause"`
}

// DefaultPalette decodes the embedded palette.
func DefaultPalette() (Palette, error) {
	var p Palette
	if err := yaml.Unmarshal(assets.ProfilesYAML, &p); err != nil {
		return Palette{}, fmt.Errorf("config: decode embedded palette: %w", err)
	}
	return p, nil
}
