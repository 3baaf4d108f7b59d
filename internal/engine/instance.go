package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/district-map/internal/logging"
	"github.com/joeblew999/district-map/internal/style"
)

// Options are the instance construction parameters.
type Options struct {
	Container string    // id of the element the map renders into
	Center    orb.Point // [lng, lat]
	Zoom      float64
	Loader    StyleLoader // defaults to StaticStyle
	Logger    *slog.Logger
}

type listener struct {
	sub Subscription
	fn  Listener
}

type source struct {
	id   string
	data *geojson.FeatureCollection
}

// Instance is a headless engine that accumulates a GL style document.
// It is safe for concurrent use. Listeners run outside the instance lock.
type Instance struct {
	id     string
	opts   Options
	logger *slog.Logger
	cancel context.CancelFunc

	mu        sync.Mutex
	base      BaseStyle
	loaded    bool
	loadErr   error
	removed   bool
	sources   []source
	layers    []style.Layer
	listeners []listener
	nextID    uint64
}

// New constructs an instance. It returns immediately; the basemap style
// loads in the background and EventStyleReady fires once it is ready.
func New(ctx context.Context, opts Options) *Instance {
	if opts.Loader == nil {
		opts.Loader = StaticStyle()
	}
	id := uuid.NewString()
	logger := logging.Default(opts.Logger).With("component", "engine", "instance", id)

	loadCtx, cancel := context.WithCancel(ctx)
	i := &Instance{
		id:     id,
		opts:   opts,
		logger: logger,
		cancel: cancel,
	}
	go i.load(loadCtx)
	return i
}

func (i *Instance) load(ctx context.Context) {
	base, err := i.opts.Loader.Load(ctx)

	i.mu.Lock()
	if i.removed {
		i.mu.Unlock()
		return
	}
	if err != nil {
		i.loadErr = err
		i.mu.Unlock()
		i.logger.Error("basemap style failed to load", "error", err)
		i.Emit(Event{Type: EventStyleError, Err: err})
		return
	}
	if base == nil {
		base = BaseStyle{"version": 8}
	}
	i.base = base
	i.loaded = true
	i.mu.Unlock()

	i.logger.Debug("style loaded")
	i.Emit(Event{Type: EventStyleReady})
}

// ID returns the instance id.
func (i *Instance) ID() string { return i.id }

// Options returns the construction parameters.
func (i *Instance) Options() Options { return i.opts }

// Loaded reports whether the basemap style is ready.
func (i *Instance) Loaded() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.loaded
}

// StyleErr returns the basemap load error, if any.
func (i *Instance) StyleErr() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.loadErr
}

// AddSource registers a GeoJSON source.
func (i *Instance) AddSource(id string, fc *geojson.FeatureCollection) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.mutable(); err != nil {
		return err
	}
	if i.hasSource(id) {
		return fmt.Errorf("%w: %q", ErrSourceExists, id)
	}
	i.sources = append(i.sources, source{id: id, data: fc})
	return nil
}

// HasSource reports whether a source with id has been added.
func (i *Instance) HasSource(id string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.hasSource(id)
}

func (i *Instance) hasSource(id string) bool {
	for _, s := range i.sources {
		if s.id == id {
			return true
		}
	}
	if srcs, ok := i.base["sources"].(map[string]any); ok {
		if _, ok := srcs[id]; ok {
			return true
		}
	}
	return false
}

// AddLayer appends a layer on top of all existing layers.
func (i *Instance) AddLayer(layer style.Layer) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.mutable(); err != nil {
		return err
	}
	if err := layer.Validate(); err != nil {
		return err
	}
	for _, l := range i.layers {
		if l.ID == layer.ID {
			return fmt.Errorf("%w: %q", ErrLayerExists, layer.ID)
		}
	}
	if !i.hasSource(layer.Source) {
		return fmt.Errorf("layer %q: %w: %q", layer.ID, ErrSourceNotFound, layer.Source)
	}
	i.layers = append(i.layers, layer)
	return nil
}

func (i *Instance) mutable() error {
	if i.removed {
		return ErrRemoved
	}
	if !i.loaded {
		return ErrStyleNotLoaded
	}
	return nil
}

// Sources returns added source ids in insertion order.
func (i *Instance) Sources() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	ids := make([]string, len(i.sources))
	for n, s := range i.sources {
		ids[n] = s.id
	}
	return ids
}

// Layers returns added layer ids in stacking order, bottom first.
func (i *Instance) Layers() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return style.IDs(i.layers)
}

// On registers fn for events of type t.
func (i *Instance) On(t EventType, fn Listener) Subscription {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.nextID++
	sub := Subscription{Type: t, id: i.nextID}
	i.listeners = append(i.listeners, listener{sub: sub, fn: fn})
	return sub
}

// Off removes a listener. Unknown subscriptions are ignored.
func (i *Instance) Off(sub Subscription) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for n, l := range i.listeners {
		if l.sub == sub {
			i.listeners = append(i.listeners[:n], i.listeners[n+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of listeners registered for t.
func (i *Instance) ListenerCount(t EventType) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	n := 0
	for _, l := range i.listeners {
		if l.sub.Type == t {
			n++
		}
	}
	return n
}

// Emit delivers ev to the listeners registered for its type.
// Events on a removed instance are dropped.
func (i *Instance) Emit(ev Event) {
	i.mu.Lock()
	if i.removed {
		i.mu.Unlock()
		return
	}
	var fns []Listener
	for _, l := range i.listeners {
		if l.sub.Type == ev.Type {
			fns = append(fns, l.fn)
		}
	}
	i.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Alive reports whether the instance has not been removed.
func (i *Instance) Alive() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return !i.removed
}

// Remove destroys the instance, dropping all listeners.
func (i *Instance) Remove() {
	i.mu.Lock()
	if i.removed {
		i.mu.Unlock()
		return
	}
	i.removed = true
	i.listeners = nil
	i.mu.Unlock()

	i.cancel()
	i.logger.Debug("instance removed")
}

// Style renders the composed GL style: basemap sources and layers first,
// then added sources and layers in insertion order.
func (i *Instance) Style() ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.removed {
		return nil, ErrRemoved
	}
	if !i.loaded {
		return nil, ErrStyleNotLoaded
	}

	doc := make(map[string]any, len(i.base)+4)
	for k, v := range i.base {
		doc[k] = v
	}

	sources := map[string]any{}
	if base, ok := i.base["sources"].(map[string]any); ok {
		for k, v := range base {
			sources[k] = v
		}
	}
	for _, s := range i.sources {
		sources[s.id] = map[string]any{"type": "geojson", "data": s.data}
	}
	doc["sources"] = sources

	var layers []any
	if base, ok := i.base["layers"].([]any); ok {
		layers = append(layers, base...)
	}
	for _, l := range i.layers {
		layers = append(layers, l)
	}
	if layers == nil {
		layers = []any{}
	}
	doc["layers"] = layers

	doc["center"] = []float64{i.opts.Center.Lon(), i.opts.Center.Lat()}
	doc["zoom"] = i.opts.Zoom

	return json.Marshal(doc)
}
