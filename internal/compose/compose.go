// Package compose registers fetched feature collections as engine sources
// and stacks the overlay layers on top of them.
//
// Composition is gated on two independent events: the fetch aggregate
// settling and the engine's style-ready notification. Run joins them
// explicitly and composes exactly once per instance.
package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joeblew999/district-map/internal/engine"
	"github.com/joeblew999/district-map/internal/fetch"
	"github.com/joeblew999/district-map/internal/logging"
	"github.com/joeblew999/district-map/internal/style"
)

var (
	// ErrSourceNotRegistered means a layer references a source that was
	// never added. It is a broken ordering contract, never a no-op.
	ErrSourceNotRegistered = errors.New("layer source not registered")
	ErrInstanceGone        = errors.New("map instance no longer alive")
	ErrStyleFailed         = errors.New("basemap style failed to load")
	ErrTimeout             = errors.New("timed out waiting for fetch and style")
	errFetchDropped        = errors.New("fetch ended without a result")
)

// TransitionFunc observes state transitions. err is set for Failed.
type TransitionFunc func(state State, err error)

// Option configures a Composer.
type Option func(*Composer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) { c.logger = logger }
}

// WithTimeout bounds how long Run waits for fetch and style. Zero waits forever.
func WithTimeout(d time.Duration) Option {
	return func(c *Composer) { c.timeout = d }
}

// WithTransitions registers a transition observer.
func WithTransitions(fn TransitionFunc) Option {
	return func(c *Composer) { c.onTransition = fn }
}

// Composer is the sole mutator of an instance's overlay sources and layers.
type Composer struct {
	m            engine.Map
	plan         []style.Layer
	logger       *slog.Logger
	timeout      time.Duration
	onTransition TransitionFunc

	mu      sync.Mutex
	state   State
	err     error
	latched bool
	done    chan struct{}
}

// New creates a composer for m that will add plan's layers in order.
func New(m engine.Map, plan []style.Layer, opts ...Option) *Composer {
	c := &Composer{
		m:     m,
		plan:  plan,
		state: Constructed,
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.Default(c.logger).With("component", "composer", "instance", m.ID())
	return c
}

// State returns the current state.
func (c *Composer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that moved the composer to Failed or Abandoned.
func (c *Composer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed once the composer reaches a terminal state.
func (c *Composer) Done() <-chan struct{} {
	return c.done
}

func (c *Composer) transition(s State, err error) {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.err = err
	if s.Terminal() {
		close(c.done)
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("composition state changed", "state", s, "error", err)
	} else {
		c.logger.Info("composition state changed", "state", s)
	}
	if c.onTransition != nil {
		c.onTransition(s, err)
	}
}

// Run waits until both the fetch outcome and the style-ready event have
// arrived, then composes. A failed fetch or a failed basemap style is
// returned and nothing is added.
// If ctx ends or the instance is removed first, results are discarded.
func (c *Composer) Run(ctx context.Context, fetched <-chan fetch.Outcome) error {
	ready := make(chan struct{})
	var once sync.Once
	signal := func() { once.Do(func() { close(ready) }) }

	styleErr := make(chan error, 1)
	var failOnce sync.Once
	fail := func(err error) { failOnce.Do(func() { styleErr <- err }) }

	sub := c.m.On(engine.EventStyleReady, func(engine.Event) { signal() })
	defer c.m.Off(sub)
	errSub := c.m.On(engine.EventStyleError, func(ev engine.Event) { fail(ev.Err) })
	defer c.m.Off(errSub)
	// The style may have settled before the listeners were attached.
	if c.m.Loaded() {
		signal()
	}
	if err := c.m.StyleErr(); err != nil {
		fail(err)
	}
	c.transition(AwaitingStyle, nil)

	waitCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var (
		results   []fetch.Result
		haveFetch bool
		styled    = ready
	)
	for !haveFetch || styled != nil {
		select {
		case out, ok := <-fetched:
			fetched = nil
			if !ok {
				out.Err = errFetchDropped
			}
			if out.Err != nil {
				if ctx.Err() != nil {
					return c.abandon(ctx.Err())
				}
				c.transition(Failed, out.Err)
				return out.Err
			}
			results = out.Results
			haveFetch = true
		case <-styled:
			styled = nil
		case err := <-styleErr:
			if ctx.Err() != nil {
				return c.abandon(ctx.Err())
			}
			if err == nil {
				err = ErrStyleFailed
			} else {
				err = fmt.Errorf("%w: %w", ErrStyleFailed, err)
			}
			c.transition(Failed, err)
			return err
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return c.abandon(ctx.Err())
			}
			err := fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
			c.transition(Failed, err)
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return c.abandon(err)
	}
	if !c.m.Alive() {
		return c.abandon(ErrInstanceGone)
	}
	return c.Compose(results)
}

func (c *Composer) abandon(err error) error {
	c.transition(Abandoned, err)
	return err
}

// Compose adds every result as a source and then every planned layer.
// It runs at most once; later calls return nil without touching the
// instance.
func (c *Composer) Compose(results []fetch.Result) error {
	c.mu.Lock()
	if c.latched {
		c.mu.Unlock()
		c.logger.Debug("composition already ran, ignoring repeat")
		return nil
	}
	c.latched = true
	c.mu.Unlock()

	c.transition(Composing, nil)
	if err := c.apply(results); err != nil {
		c.transition(Failed, err)
		return err
	}
	c.transition(Composed, nil)
	return nil
}

func (c *Composer) apply(results []fetch.Result) error {
	for _, r := range results {
		if err := c.m.AddSource(r.ID, r.Collection); err != nil {
			return fmt.Errorf("adding source %q: %w", r.ID, err)
		}
	}
	for _, l := range c.plan {
		if !c.m.HasSource(l.Source) {
			return fmt.Errorf("layer %q: %w: %q", l.ID, ErrSourceNotRegistered, l.Source)
		}
		if err := c.m.AddLayer(l); err != nil {
			return fmt.Errorf("adding layer %q: %w", l.ID, err)
		}
	}
	c.logger.Info("overlay composed", "sources", len(results), "layers", len(c.plan))
	return nil
}
