// Package interaction records pointer clicks on a live map instance.
package interaction

import (
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/district-map/internal/engine"
	"github.com/joeblew999/district-map/internal/logging"
)

// Click is one recorded pointer click.
type Click struct {
	Instance string    `json:"instance" doc:"Map instance id"`
	LngLat   orb.Point `json:"lngLat" doc:"Clicked coordinate as [lng, lat]"`
	At       time.Time `json:"at" doc:"Time the click was recorded"`
}

// Hook is a click listener attached to one instance.
type Hook struct {
	m      engine.Map
	sub    engine.Subscription
	logger *slog.Logger
	once   sync.Once
}

// Attach subscribes a click listener on m. onClick may be nil.
// The returned hook must be detached from the same instance.
func Attach(m engine.Map, logger *slog.Logger, onClick func(Click)) *Hook {
	h := &Hook{
		m:      m,
		logger: logging.Default(logger).With("component", "interaction", "instance", m.ID()),
	}
	h.sub = m.On(engine.EventClick, func(ev engine.Event) {
		c := Click{Instance: m.ID(), LngLat: ev.LngLat, At: time.Now()}
		h.logger.Debug("click", "lng", c.LngLat.Lon(), "lat", c.LngLat.Lat())
		if onClick != nil {
			onClick(c)
		}
	})
	return h
}

// Detach removes the listener. Safe to call more than once.
func (h *Hook) Detach() {
	h.once.Do(func() {
		h.m.Off(h.sub)
	})
}

// With attaches a hook for the duration of fn and detaches it on every exit path.
func With(m engine.Map, logger *slog.Logger, onClick func(Click), fn func() error) error {
	h := Attach(m, logger, onClick)
	defer h.Detach()
	return fn()
}

// Recorder keeps the most recent clicks.
type Recorder struct {
	mu     sync.Mutex
	max    int
	clicks []Click
}

// NewRecorder returns a recorder holding at most max clicks.
func NewRecorder(max int) *Recorder {
	if max <= 0 {
		max = 100
	}
	return &Recorder{max: max}
}

// Record appends c, dropping the oldest click when full.
func (r *Recorder) Record(c Click) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clicks = append(r.clicks, c)
	if len(r.clicks) > r.max {
		r.clicks = r.clicks[len(r.clicks)-r.max:]
	}
}

// Clicks returns a copy of the recorded clicks, oldest first.
func (r *Recorder) Clicks() []Click {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Click, len(r.clicks))
	copy(out, r.clicks)
	return out
}
