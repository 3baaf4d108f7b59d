// Package style defines map layers and their paint properties.
//
// Paint is a tagged variant: each geometry type has its own paint record,
// and a layer's type is derived from its paint, so a fill layer can never
// carry line or circle properties.
package style

import (
	"encoding/json"
	"fmt"

	"github.com/joeblew999/district-map/internal/registry"
)

// LayerType is the engine geometry rendering type.
type LayerType string

const (
	TypeFill   LayerType = "fill"
	TypeLine   LayerType = "line"
	TypeCircle LayerType = "circle"
)

// Paint is implemented by FillPaint, LinePaint and CirclePaint.
type Paint interface {
	Type() LayerType
	// Properties returns the GL style paint object.
	Properties() map[string]any
	sealed()
}

// FillPaint paints polygon interiors.
type FillPaint struct {
	Color   string
	Opacity float64
}

func (FillPaint) Type() LayerType { return TypeFill }
func (FillPaint) sealed()         {}

func (p FillPaint) Properties() map[string]any {
	return map[string]any{
		"fill-color":   p.Color,
		"fill-opacity": p.Opacity,
	}
}

// LinePaint strokes lines and polygon outlines.
type LinePaint struct {
	Color string
	Width float64
}

func (LinePaint) Type() LayerType { return TypeLine }
func (LinePaint) sealed()         {}

func (p LinePaint) Properties() map[string]any {
	return map[string]any{
		"line-color": p.Color,
		"line-width": p.Width,
	}
}

// CirclePaint draws point markers.
type CirclePaint struct {
	Color   string
	Opacity float64
	Radius  float64
}

func (CirclePaint) Type() LayerType { return TypeCircle }
func (CirclePaint) sealed()         {}

func (p CirclePaint) Properties() map[string]any {
	return map[string]any{
		"circle-color":   p.Color,
		"circle-opacity": p.Opacity,
		"circle-radius":  p.Radius,
	}
}

// Layer is a visual rendering rule bound to exactly one source.
type Layer struct {
	ID     string
	Source string
	Paint  Paint
}

// Type returns the geometry type implied by the paint variant.
func (l Layer) Type() LayerType {
	if l.Paint == nil {
		return ""
	}
	return l.Paint.Type()
}

// Validate checks that the layer is complete.
func (l Layer) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("layer id is required")
	}
	if l.Source == "" {
		return fmt.Errorf("layer %q: source is required", l.ID)
	}
	if l.Paint == nil {
		return fmt.Errorf("layer %q: paint is required", l.ID)
	}
	return nil
}

type layerJSON struct {
	ID     string         `json:"id"`
	Type   LayerType      `json:"type"`
	Source string         `json:"source"`
	Paint  map[string]any `json:"paint"`
}

// MarshalJSON renders the layer as a GL style layer object.
func (l Layer) MarshalJSON() ([]byte, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(layerJSON{
		ID:     l.ID,
		Type:   l.Type(),
		Source: l.Source,
		Paint:  l.Paint.Properties(),
	})
}

// DistrictPlan returns the district overlay layers in stacking order:
// area fill, area outline, streets, restaurants. Later layers paint on top.
func DistrictPlan() []Layer {
	return []Layer{
		{
			ID:     "area",
			Source: registry.DistrictArea,
			Paint:  FillPaint{Color: "#014a4f", Opacity: 0.25},
		},
		{
			ID:     "area-outline",
			Source: registry.DistrictArea,
			Paint:  LinePaint{Color: "#003134", Width: 2},
		},
		{
			ID:     "street",
			Source: registry.DistrictStreets,
			Paint:  LinePaint{Color: "#3e570a", Width: 4},
		},
		{
			ID:     "restaurant",
			Source: registry.DistrictRestaurants,
			Paint:  CirclePaint{Color: "#ff1515", Opacity: 0.5, Radius: 10},
		},
	}
}

// IDs returns layer ids in order.
func IDs(layers []Layer) []string {
	ids := make([]string, len(layers))
	for i, l := range layers {
		ids[i] = l.ID
	}
	return ids
}
