// Package service contains the map business logic behind the HTTP API.
package service

// LayerInfo describes one overlay layer as served by the API.
// Huma reads the tags for OpenAPI docs and validation.
type LayerInfo struct {
	ID     string         `json:"id" doc:"Unique layer identifier" example:"area"`
	Type   string         `json:"type" enum:"fill,line,circle" doc:"Geometry rendering type" example:"fill"`
	Source string         `json:"source" doc:"Source the layer binds to" example:"region6_area"`
	Order  int            `json:"order" doc:"Stacking position, 0 is the bottom" example:"0"`
	Paint  map[string]any `json:"paint" doc:"GL style paint properties"`
}

// SourceInfo describes one registered feature source.
type SourceInfo struct {
	ID       string `json:"id" doc:"Logical source identifier" example:"region6_area"`
	Location string `json:"location" doc:"Retrieval location" example:"data/region6_area.json"`
	Live     bool   `json:"live" doc:"Whether the source is registered on the live map"`
	Size     string `json:"size,omitempty" doc:"Size of the local feature document" example:"1.2 KB"`
}

// Camera holds the initial view.
type Camera struct {
	Center [2]float64 `json:"center" doc:"Initial center as [lng, lat]" example:"[51.402,35.725]"`
	Zoom   float64    `json:"zoom" doc:"Initial zoom level" example:"13"`
}

// MapState is a snapshot of the mounted map.
type MapState struct {
	Mounted   bool     `json:"mounted" doc:"Whether a map instance is mounted"`
	Instance  string   `json:"instance,omitempty" doc:"Map instance id"`
	Container string   `json:"container,omitempty" doc:"Container element id" example:"map"`
	State     string   `json:"state" enum:"unmounted,constructed,awaiting_style,composing,composed,failed,abandoned" doc:"Composition state"`
	Error     string   `json:"error,omitempty" doc:"Why composition failed, if it did"`
	Sources   []string `json:"sources" doc:"Live sources in registration order"`
	Layers    []string `json:"layers" doc:"Live layers in stacking order, bottom first"`
	Camera    Camera   `json:"camera" doc:"Initial camera"`
}
