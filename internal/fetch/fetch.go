// Package fetch retrieves every registered feature document concurrently.
//
// All retrievals start at once and the aggregate completes only when every
// one has settled. A single failure fails the whole aggregate; there is no
// retry and no partial result.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"

	"github.com/joeblew999/district-map/internal/registry"
)

// ErrMalformed is returned when a document does not parse as a feature collection.
var ErrMalformed = errors.New("malformed feature collection")

// Fetcher retrieves the raw document at a registry location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// Result pairs a source id with its parsed document.
type Result struct {
	ID         string
	Collection *geojson.FeatureCollection
}

// Error reports which source failed the aggregate.
type Error struct {
	ID       string
	Location string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetching source %q from %s: %v", e.ID, e.Location, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// All fetches and parses every registry entry concurrently.
// Results are returned in registry order, one per entry.
func All(ctx context.Context, reg *registry.Registry, f Fetcher) ([]Result, error) {
	entries := reg.Entries()
	results := make([]Result, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	for n, src := range entries {
		g.Go(func() error {
			res, err := one(gctx, f, src)
			if err != nil {
				return &Error{ID: src.ID, Location: src.Location, Err: err}
			}
			results[n] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func one(ctx context.Context, f Fetcher, src registry.Source) (Result, error) {
	data, err := f.Fetch(ctx, src.Location)
	if err != nil {
		return Result{}, err
	}
	fc, err := Parse(data)
	if err != nil {
		return Result{}, err
	}
	return Result{ID: src.ID, Collection: fc}, nil
}

// Parse decodes data as a GeoJSON feature collection.
func Parse(data []byte) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: type %q", ErrMalformed, fc.Type)
	}
	return fc, nil
}

// Outcome is the settled value of a background fetch.
type Outcome struct {
	Results []Result
	Err     error
}

// Start runs All in the background. Exactly one Outcome is delivered on the
// returned channel, which is buffered so the sender never blocks.
func Start(ctx context.Context, reg *registry.Registry, f Fetcher) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		results, err := All(ctx, reg, f)
		ch <- Outcome{Results: results, Err: err}
	}()
	return ch
}
