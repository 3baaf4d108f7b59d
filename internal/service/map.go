package service

import (
	"context"
	"log/slog"

	"github.com/paulmach/orb"

	"github.com/joeblew999/district-map/internal/compose"
	"github.com/joeblew999/district-map/internal/engine"
	"github.com/joeblew999/district-map/internal/interaction"
	"github.com/joeblew999/district-map/internal/logging"
	"github.com/joeblew999/district-map/internal/viewport"
)

// MapService exposes the single mounted map to the API.
type MapService struct {
	viewport *viewport.Bootstrap
	clicks   *interaction.Recorder
	files    *SourceService
	bus      *EventBus
	logger   *slog.Logger
}

// NewMapService wires a viewport whose lifecycle events and clicks are
// published on bus.
func NewMapService(cfg viewport.Config, bus *EventBus, logger *slog.Logger) *MapService {
	s := &MapService{
		clicks: interaction.NewRecorder(100),
		bus:    bus,
		logger: logging.Default(logger).With("component", "map-service"),
	}
	cfg.Logger = logger
	cfg.OnTransition = s.onTransition
	cfg.OnClick = s.onClick
	s.viewport = viewport.New(cfg)
	return s
}

func (s *MapService) onTransition(instance string, state compose.State, err error) {
	ev := Event{Kind: KindState, Instance: instance, State: state.String()}
	if err != nil {
		ev.Error = err.Error()
	}
	s.bus.Publish(ev)
}

func (s *MapService) onClick(c interaction.Click) {
	s.clicks.Record(c)
	p := c.LngLat
	s.bus.Publish(Event{Kind: KindClick, Instance: c.Instance, LngLat: &p})
}

// Mount mounts the map into the container with the given element id.
func (s *MapService) Mount(ctx context.Context, containerID string) error {
	var c *viewport.Container
	if containerID != "" {
		c = &viewport.Container{ID: containerID}
	}
	_, err := s.viewport.Mount(ctx, c)
	return err
}

// Unmount tears the map down.
func (s *MapService) Unmount() {
	s.viewport.Unmount()
}

// Wait blocks until composition of the current mount finishes.
func (s *MapService) Wait(ctx context.Context) error {
	return s.viewport.Wait(ctx)
}

// Style returns the composed GL style document.
func (s *MapService) Style() ([]byte, error) {
	inst := s.viewport.Instance()
	if inst == nil {
		return nil, viewport.ErrNotMounted
	}
	return inst.Style()
}

// Click forwards a pointer click at [lng, lat] to the live instance.
func (s *MapService) Click(lng, lat float64) error {
	inst := s.viewport.Instance()
	if inst == nil {
		return viewport.ErrNotMounted
	}
	inst.Emit(engine.Event{Type: engine.EventClick, LngLat: orb.Point{lng, lat}})
	return nil
}

// Clicks returns the recently recorded clicks.
func (s *MapService) Clicks() []interaction.Click {
	return s.clicks.Clicks()
}

// State returns a snapshot of the mounted map.
func (s *MapService) State() MapState {
	p := s.viewport.Params()
	st := s.viewport.Status()
	out := MapState{
		Mounted:   st.Mounted,
		Instance:  st.Instance,
		Container: st.Container,
		State:     "unmounted",
		Sources:   st.Sources,
		Layers:    st.Layers,
		Camera:    Camera{Center: [2]float64{p.Center.Lon(), p.Center.Lat()}, Zoom: p.Zoom},
	}
	if st.Mounted {
		out.State = st.State.String()
	}
	if st.Err != nil {
		out.Error = st.Err.Error()
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	if out.Layers == nil {
		out.Layers = []string{}
	}
	return out
}

// Sources lists the registry entries and whether each is live.
func (s *MapService) Sources() []SourceInfo {
	inst := s.viewport.Instance()
	entries := s.viewport.Registry().Entries()
	out := make([]SourceInfo, len(entries))
	for i, e := range entries {
		out[i] = SourceInfo{
			ID:       e.ID,
			Location: e.Location,
			Live:     inst != nil && inst.HasSource(e.ID),
		}
		if s.files != nil {
			if f, ok := s.files.Stat(e.ID); ok {
				out[i].Size = f.Size
			}
		}
	}
	return out
}

// Layers lists the planned overlay layers in stacking order.
func (s *MapService) Layers() []LayerInfo {
	plan := s.viewport.Plan()
	out := make([]LayerInfo, len(plan))
	for i, l := range plan {
		out[i] = LayerInfo{
			ID:     l.ID,
			Type:   string(l.Type()),
			Source: l.Source,
			Order:  i,
			Paint:  l.Paint.Properties(),
		}
	}
	return out
}

// SetSourceService enables local file details in Sources.
func (s *MapService) SetSourceService(files *SourceService) {
	s.files = files
}

// Bus returns the event bus.
func (s *MapService) Bus() *EventBus { return s.bus }
