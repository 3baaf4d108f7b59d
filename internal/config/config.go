// Package config loads the map definition: camera, basemap style, sources
// and the overlay layer stack.
package config

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/district-map/internal/registry"
	"github.com/joeblew999/district-map/internal/rtl"
	"github.com/joeblew999/district-map/internal/style"
)

// ParsimapStreets is the themed basemap the district map was designed on.
const ParsimapStreets = "https://api.parsimap.ir/styles/parsimap-streets-v11"

// Map is the map definition.
type Map struct {
	// Center is [lng, lat].
	Center    [2]float64    `yaml:"center"`
	Zoom      float64       `yaml:"zoom"`
	Style     Style         `yaml:"style"`
	RTLPlugin string        `yaml:"rtl_plugin"`
	Sources   []string      `yaml:"sources"`
	Layers    []LayerConfig `yaml:"layers"`
}

// Style references the basemap. An empty URL selects a blank basemap.
type Style struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
}

// LayerConfig is one overlay layer. Only the paint fields that belong to
// Type may be set.
type LayerConfig struct {
	ID      string   `yaml:"id"`
	Type    string   `yaml:"type"`
	Source  string   `yaml:"source"`
	Color   string   `yaml:"color"`
	Opacity *float64 `yaml:"opacity,omitempty"`
	Width   *float64 `yaml:"width,omitempty"`
	Radius  *float64 `yaml:"radius,omitempty"`
}

// Default returns the Tehran district 6 map.
func Default() Map {
	return Map{
		Center:    [2]float64{51.402, 35.725},
		Zoom:      13,
		RTLPlugin: rtl.DefaultPluginURL,
		Sources: []string{
			registry.DistrictArea,
			registry.DistrictStreets,
			registry.DistrictRestaurants,
		},
		Layers: FromPlan(style.DistrictPlan()),
	}
}

// Load reads a YAML map definition. Fields missing from the file keep
// their defaults. An empty path returns the defaults.
func Load(path string) (Map, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Map{}, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Map{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Map{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the definition is complete and consistent.
func (m Map) Validate() error {
	lng, lat := m.Center[0], m.Center[1]
	if lng < -180 || lng > 180 || lat < -90 || lat > 90 {
		return fmt.Errorf("center %v out of range", m.Center)
	}
	if m.Zoom < 0 || m.Zoom > 24 {
		return fmt.Errorf("zoom %v out of range", m.Zoom)
	}

	reg, err := m.Registry()
	if err != nil {
		return err
	}
	plan, err := m.Plan()
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(plan))
	for _, l := range plan {
		if seen[l.ID] {
			return fmt.Errorf("duplicate layer id %q", l.ID)
		}
		seen[l.ID] = true
		if !reg.Has(l.Source) {
			return fmt.Errorf("layer %q references unknown source %q", l.ID, l.Source)
		}
	}
	return nil
}

// CenterPoint returns the center as an orb point.
func (m Map) CenterPoint() orb.Point {
	return orb.Point{m.Center[0], m.Center[1]}
}

// Registry builds the source registry.
func (m Map) Registry() (*registry.Registry, error) {
	return registry.New(m.Sources...)
}

// Plan builds the layer stack in file order.
func (m Map) Plan() ([]style.Layer, error) {
	plan := make([]style.Layer, 0, len(m.Layers))
	for _, lc := range m.Layers {
		l, err := lc.Layer()
		if err != nil {
			return nil, err
		}
		plan = append(plan, l)
	}
	return plan, nil
}

// Layer converts the config into a typed layer.
func (lc LayerConfig) Layer() (style.Layer, error) {
	if lc.ID == "" {
		return style.Layer{}, fmt.Errorf("layer id is required")
	}
	if lc.Source == "" {
		return style.Layer{}, fmt.Errorf("layer %q: source is required", lc.ID)
	}
	if lc.Color == "" {
		return style.Layer{}, fmt.Errorf("layer %q: color is required", lc.ID)
	}

	l := style.Layer{ID: lc.ID, Source: lc.Source}
	switch style.LayerType(lc.Type) {
	case style.TypeFill:
		if lc.Width != nil || lc.Radius != nil {
			return style.Layer{}, fmt.Errorf("layer %q: fill takes color and opacity only", lc.ID)
		}
		l.Paint = style.FillPaint{Color: lc.Color, Opacity: or(lc.Opacity, 1)}
	case style.TypeLine:
		if lc.Opacity != nil || lc.Radius != nil {
			return style.Layer{}, fmt.Errorf("layer %q: line takes color and width only", lc.ID)
		}
		l.Paint = style.LinePaint{Color: lc.Color, Width: or(lc.Width, 1)}
	case style.TypeCircle:
		if lc.Width != nil {
			return style.Layer{}, fmt.Errorf("layer %q: circle takes color, opacity and radius only", lc.ID)
		}
		l.Paint = style.CirclePaint{Color: lc.Color, Opacity: or(lc.Opacity, 1), Radius: or(lc.Radius, 5)}
	default:
		return style.Layer{}, fmt.Errorf("layer %q: unknown type %q", lc.ID, lc.Type)
	}
	return l, nil
}

// FromPlan converts typed layers back to their config form.
func FromPlan(plan []style.Layer) []LayerConfig {
	out := make([]LayerConfig, 0, len(plan))
	for _, l := range plan {
		lc := LayerConfig{ID: l.ID, Type: string(l.Type()), Source: l.Source}
		switch p := l.Paint.(type) {
		case style.FillPaint:
			lc.Color, lc.Opacity = p.Color, ptr(p.Opacity)
		case style.LinePaint:
			lc.Color, lc.Width = p.Color, ptr(p.Width)
		case style.CirclePaint:
			lc.Color, lc.Opacity, lc.Radius = p.Color, ptr(p.Opacity), ptr(p.Radius)
		}
		out = append(out, lc)
	}
	return out
}

func or(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func ptr(v float64) *float64 { return &v }
