// Package engine is the rendering engine contract consumed by the composer,
// plus a headless engine that builds a GL style document.
//
// The contract is small: construction returns a live handle at once, the
// "style.load" event fires asynchronously once the basemap style is ready,
// and only then may sources and layers be added. A layer may only reference
// a source that has already been added.
package engine

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/district-map/internal/style"
)

// EventType names an engine event.
type EventType string

const (
	// EventStyleReady fires once the basemap style is loaded and the
	// instance accepts sources and layers.
	EventStyleReady EventType = "style.load"
	// EventStyleError fires once if the basemap style fails to load. The
	// instance never becomes ready after it.
	EventStyleError EventType = "style.error"
	// EventClick fires for every pointer click and carries its coordinate.
	EventClick EventType = "click"
)

// Event is delivered to listeners.
type Event struct {
	Type   EventType
	LngLat orb.Point // set for EventClick: [lng, lat]
	Err    error     // set for EventStyleError
}

// Listener handles engine events.
type Listener func(Event)

// Subscription identifies a registered listener for Off.
type Subscription struct {
	Type EventType
	id   uint64
}

var (
	ErrStyleNotLoaded = errors.New("style is not done loading")
	ErrSourceExists   = errors.New("source already exists")
	ErrSourceNotFound = errors.New("source not found")
	ErrLayerExists    = errors.New("layer already exists")
	ErrRemoved        = errors.New("map instance removed")
)

// Map is the live rendering engine handle.
type Map interface {
	ID() string
	// Loaded reports whether the style is ready for sources and layers.
	Loaded() bool
	// StyleErr returns the basemap load failure, if loading failed.
	StyleErr() error
	AddSource(id string, fc *geojson.FeatureCollection) error
	HasSource(id string) bool
	AddLayer(layer style.Layer) error
	On(t EventType, fn Listener) Subscription
	Off(sub Subscription)
	Alive() bool
	Remove()
}

var _ Map = (*Instance)(nil)
