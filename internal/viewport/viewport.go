// Package viewport owns the single live map instance and its mount lifecycle.
//
// Mount starts the feature fetch immediately, constructs the instance in
// parallel, attaches the click hook and hands both to a composer running
// in the background. Unmount tears all of it down again.
package viewport

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/district-map/internal/compose"
	"github.com/joeblew999/district-map/internal/engine"
	"github.com/joeblew999/district-map/internal/fetch"
	"github.com/joeblew999/district-map/internal/interaction"
	"github.com/joeblew999/district-map/internal/logging"
	"github.com/joeblew999/district-map/internal/registry"
	"github.com/joeblew999/district-map/internal/style"
)

// ErrNotMounted is returned by operations that need a live instance.
var ErrNotMounted = errors.New("map is not mounted")

// Container references the element the map renders into.
type Container struct {
	ID string
}

// Params are the instance construction parameters.
type Params struct {
	Center    orb.Point // [lng, lat]
	Zoom      float64
	StyleURL  string
	AccessKey string
}

// Config wires the bootstrap to its collaborators.
type Config struct {
	Params   Params
	Registry *registry.Registry
	Fetcher  fetch.Fetcher
	Plan     []style.Layer
	// Loader overrides the basemap loader derived from Params.
	Loader       engine.StyleLoader
	Timeout      time.Duration
	Logger       *slog.Logger
	OnTransition func(instance string, state compose.State, err error)
	OnClick      func(interaction.Click)
}

type mount struct {
	container Container
	instance  *engine.Instance
	composer  *compose.Composer
	hook      *interaction.Hook
	cancel    context.CancelFunc
	done      chan struct{}
	runErr    error
}

// Bootstrap owns at most one mounted instance at a time.
type Bootstrap struct {
	cfg    Config
	logger *slog.Logger

	mu    sync.Mutex
	mount *mount
}

// New creates a bootstrap. Nothing is constructed until Mount.
func New(cfg Config) *Bootstrap {
	return &Bootstrap{
		cfg:    cfg,
		logger: logging.Default(cfg.Logger).With("component", "viewport"),
	}
}

func (b *Bootstrap) loader() engine.StyleLoader {
	if b.cfg.Loader != nil {
		return b.cfg.Loader
	}
	if b.cfg.Params.StyleURL != "" {
		return engine.HTTPStyle{URL: b.cfg.Params.StyleURL, Key: b.cfg.Params.AccessKey}
	}
	return engine.StaticStyle()
}

// Mount constructs the instance into c. A nil container aborts silently and
// returns a nil instance; the caller may retry on the next mount attempt.
// Mounting again before Unmount returns the existing instance.
func (b *Bootstrap) Mount(ctx context.Context, c *Container) (*engine.Instance, error) {
	if c == nil || c.ID == "" {
		b.logger.Debug("container not available, mount deferred")
		return nil, nil
	}
	if b.cfg.Registry == nil || b.cfg.Fetcher == nil {
		return nil, errors.New("viewport: registry and fetcher are required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mount != nil {
		return b.mount.instance, nil
	}

	runCtx, cancel := context.WithCancel(ctx)

	// Fetching starts before construction and runs alongside style loading.
	fetched := fetch.Start(runCtx, b.cfg.Registry, b.cfg.Fetcher)

	inst := engine.New(runCtx, engine.Options{
		Container: c.ID,
		Center:    b.cfg.Params.Center,
		Zoom:      b.cfg.Params.Zoom,
		Loader:    b.loader(),
		Logger:    b.cfg.Logger,
	})

	m := &mount{
		container: *c,
		instance:  inst,
		hook:      interaction.Attach(inst, b.cfg.Logger, b.cfg.OnClick),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	opts := []compose.Option{
		compose.WithLogger(b.cfg.Logger),
		compose.WithTimeout(b.cfg.Timeout),
	}
	if b.cfg.OnTransition != nil {
		id := inst.ID()
		opts = append(opts, compose.WithTransitions(func(s compose.State, err error) {
			b.cfg.OnTransition(id, s, err)
		}))
	}
	m.composer = compose.New(inst, b.cfg.Plan, opts...)

	go func() {
		defer close(m.done)
		m.runErr = m.composer.Run(runCtx, fetched)
	}()

	b.mount = m
	b.logger.Info("map mounted",
		"instance", inst.ID(),
		"container", c.ID,
		"center", []float64{b.cfg.Params.Center.Lon(), b.cfg.Params.Center.Lat()},
		"zoom", b.cfg.Params.Zoom,
	)
	return inst, nil
}

// Unmount detaches the click hook, stops composition and removes the
// instance. It blocks until the composer has returned.
func (b *Bootstrap) Unmount() {
	b.mu.Lock()
	m := b.mount
	b.mount = nil
	b.mu.Unlock()
	if m == nil {
		return
	}

	m.hook.Detach()
	m.cancel()
	m.instance.Remove()
	<-m.done
	b.logger.Info("map unmounted", "instance", m.instance.ID())
}

// Instance returns the mounted instance, or nil.
func (b *Bootstrap) Instance() *engine.Instance {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mount == nil {
		return nil
	}
	return b.mount.instance
}

// Wait blocks until the current mount's composition finishes and returns
// its error.
func (b *Bootstrap) Wait(ctx context.Context) error {
	b.mu.Lock()
	m := b.mount
	b.mu.Unlock()
	if m == nil {
		return ErrNotMounted
	}
	select {
	case <-m.done:
		return m.runErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status is a snapshot of the mount.
type Status struct {
	Mounted   bool
	Instance  string
	Container string
	State     compose.State
	Err       error
	Sources   []string
	Layers    []string
}

// Status returns a snapshot of the current mount.
func (b *Bootstrap) Status() Status {
	b.mu.Lock()
	m := b.mount
	b.mu.Unlock()
	if m == nil {
		return Status{}
	}
	return Status{
		Mounted:   true,
		Instance:  m.instance.ID(),
		Container: m.container.ID,
		State:     m.composer.State(),
		Err:       m.composer.Err(),
		Sources:   m.instance.Sources(),
		Layers:    m.instance.Layers(),
	}
}

// Registry returns the configured source registry.
func (b *Bootstrap) Registry() *registry.Registry { return b.cfg.Registry }

// Plan returns the configured layer plan.
func (b *Bootstrap) Plan() []style.Layer { return b.cfg.Plan }

// Params returns the construction parameters.
func (b *Bootstrap) Params() Params { return b.cfg.Params }
