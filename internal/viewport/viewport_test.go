package viewport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/district-map/internal/compose"
	"github.com/joeblew999/district-map/internal/engine"
	"github.com/joeblew999/district-map/internal/fetch"
	"github.com/joeblew999/district-map/internal/interaction"
	"github.com/joeblew999/district-map/internal/registry"
	"github.com/joeblew999/district-map/internal/style"
)

const empty = `{"type":"FeatureCollection","features":[]}`

func districtFS() fstest.MapFS {
	fsys := fstest.MapFS{}
	for _, id := range registry.District().Keys() {
		fsys[registry.Location(id)] = &fstest.MapFile{Data: []byte(empty)}
	}
	return fsys
}

func districtConfig(f fetch.Fetcher) Config {
	return Config{
		Params:   Params{Center: orb.Point{51.402, 35.725}, Zoom: 13},
		Registry: registry.District(),
		Fetcher:  f,
		Plan:     style.DistrictPlan(),
		Timeout:  5 * time.Second,
	}
}

// blockingFetcher holds every fetch until release is closed.
type blockingFetcher struct {
	release chan struct{}
	inner   fetch.Fetcher
}

func (f blockingFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	<-f.release
	return f.inner.Fetch(context.Background(), location)
}

func TestMountComposesDistrict(t *testing.T) {
	var mu sync.Mutex
	var states []compose.State
	cfg := districtConfig(fetch.FSFetcher{FS: districtFS()})
	cfg.OnTransition = func(_ string, s compose.State, _ error) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	}
	b := New(cfg)
	defer b.Unmount()

	inst, err := b.Mount(context.Background(), &Container{ID: "map"})
	require.NoError(t, err)
	require.NotNil(t, inst)

	require.NoError(t, b.Wait(context.Background()))

	assert.Equal(t, registry.District().Keys(), inst.Sources())
	assert.Equal(t, []string{"area", "area-outline", "street", "restaurant"}, inst.Layers())

	st := b.Status()
	assert.True(t, st.Mounted)
	assert.Equal(t, "map", st.Container)
	assert.Equal(t, compose.Composed, st.State)
	assert.NoError(t, st.Err)
	assert.Len(t, st.Sources, 3)
	assert.Len(t, st.Layers, 4)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, compose.Composed, states[len(states)-1])
}

func TestMountWithoutContainer(t *testing.T) {
	b := New(districtConfig(fetch.FSFetcher{FS: districtFS()}))

	inst, err := b.Mount(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, inst)

	inst, err = b.Mount(context.Background(), &Container{})
	assert.NoError(t, err)
	assert.Nil(t, inst)

	assert.Nil(t, b.Instance())
	assert.ErrorIs(t, b.Wait(context.Background()), ErrNotMounted)
	assert.False(t, b.Status().Mounted)
}

func TestMountRequiresCollaborators(t *testing.T) {
	b := New(Config{})
	_, err := b.Mount(context.Background(), &Container{ID: "map"})
	assert.Error(t, err)
}

func TestMountTwiceReturnsSameInstance(t *testing.T) {
	b := New(districtConfig(fetch.FSFetcher{FS: districtFS()}))
	defer b.Unmount()

	first, err := b.Mount(context.Background(), &Container{ID: "map"})
	require.NoError(t, err)
	second, err := b.Mount(context.Background(), &Container{ID: "map"})
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestMountFetchFailureSurfaces(t *testing.T) {
	fsys := districtFS()
	delete(fsys, registry.Location(registry.DistrictRestaurants))
	b := New(districtConfig(fetch.FSFetcher{FS: fsys}))
	defer b.Unmount()

	inst, err := b.Mount(context.Background(), &Container{ID: "map"})
	require.NoError(t, err)

	err = b.Wait(context.Background())
	require.Error(t, err)

	var ferr *fetch.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, registry.DistrictRestaurants, ferr.ID)

	assert.Empty(t, inst.Sources())
	assert.Empty(t, inst.Layers())
	assert.Equal(t, compose.Failed, b.Status().State)
	assert.True(t, inst.Alive())
}

func TestMountStyleFailureSurfaces(t *testing.T) {
	unauthorized := errors.New("401 unauthorized")
	cfg := districtConfig(fetch.FSFetcher{FS: districtFS()})
	cfg.Timeout = 0
	cfg.Loader = engine.StyleLoaderFunc(func(context.Context) (engine.BaseStyle, error) {
		return nil, unauthorized
	})
	b := New(cfg)
	defer b.Unmount()

	inst, err := b.Mount(context.Background(), &Container{ID: "map"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = b.Wait(ctx)
	require.ErrorIs(t, err, compose.ErrStyleFailed)
	assert.ErrorIs(t, err, unauthorized)

	st := b.Status()
	assert.Equal(t, compose.Failed, st.State)
	require.Error(t, st.Err)
	assert.Contains(t, st.Err.Error(), "401 unauthorized")
	assert.Empty(t, inst.Sources())
	assert.Empty(t, inst.Layers())
}

func TestUnmountBeforeFetchSettles(t *testing.T) {
	f := blockingFetcher{release: make(chan struct{}), inner: fetch.FSFetcher{FS: districtFS()}}
	var clicks []interaction.Click
	cfg := districtConfig(f)
	cfg.OnClick = func(c interaction.Click) { clicks = append(clicks, c) }
	b := New(cfg)

	inst, err := b.Mount(context.Background(), &Container{ID: "map"})
	require.NoError(t, err)
	assert.Equal(t, 1, inst.ListenerCount(engine.EventClick))

	unmounted := make(chan struct{})
	go func() {
		b.Unmount()
		close(unmounted)
	}()

	// Unmount waits on the composer, which returns once its context ends.
	select {
	case <-unmounted:
	case <-time.After(2 * time.Second):
		t.Fatal("Unmount blocked")
	}
	close(f.release)

	assert.False(t, inst.Alive())
	assert.Equal(t, 0, inst.ListenerCount(engine.EventClick))
	assert.Nil(t, b.Instance())

	inst.Emit(engine.Event{Type: engine.EventClick, LngLat: orb.Point{1, 2}})
	assert.Empty(t, clicks)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, inst.Sources())
	assert.Empty(t, inst.Layers())
}

func TestRemountAfterUnmount(t *testing.T) {
	b := New(districtConfig(fetch.FSFetcher{FS: districtFS()}))

	first, err := b.Mount(context.Background(), &Container{ID: "map"})
	require.NoError(t, err)
	require.NoError(t, b.Wait(context.Background()))
	b.Unmount()

	second, err := b.Mount(context.Background(), &Container{ID: "map"})
	require.NoError(t, err)
	defer b.Unmount()
	require.NoError(t, b.Wait(context.Background()))

	assert.NotEqual(t, first.ID(), second.ID())
	assert.Len(t, second.Layers(), 4)
}

func TestClickReachesCallback(t *testing.T) {
	got := make(chan interaction.Click, 1)
	cfg := districtConfig(fetch.FSFetcher{FS: districtFS()})
	cfg.OnClick = func(c interaction.Click) { got <- c }
	b := New(cfg)
	defer b.Unmount()

	inst, err := b.Mount(context.Background(), &Container{ID: "map"})
	require.NoError(t, err)

	inst.Emit(engine.Event{Type: engine.EventClick, LngLat: orb.Point{51.402, 35.725}})
	select {
	case c := <-got:
		assert.Equal(t, orb.Point{51.402, 35.725}, c.LngLat)
	case <-time.After(time.Second):
		t.Fatal("click not delivered")
	}
}
