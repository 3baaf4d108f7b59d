package interaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/district-map/internal/engine"
)

func newInstance(t *testing.T) *engine.Instance {
	t.Helper()
	inst := engine.New(context.Background(), engine.Options{})
	t.Cleanup(inst.Remove)
	return inst
}

func click(inst *engine.Instance, lng, lat float64) {
	inst.Emit(engine.Event{Type: engine.EventClick, LngLat: orb.Point{lng, lat}})
}

func TestAttachRecordsExactCoordinate(t *testing.T) {
	inst := newInstance(t)
	rec := NewRecorder(10)

	h := Attach(inst, nil, rec.Record)
	defer h.Detach()

	click(inst, 51.402, 35.725)

	clicks := rec.Clicks()
	require.Len(t, clicks, 1)
	assert.Equal(t, orb.Point{51.402, 35.725}, clicks[0].LngLat)
	assert.Equal(t, inst.ID(), clicks[0].Instance)
	assert.WithinDuration(t, time.Now(), clicks[0].At, time.Second)
}

func TestDetachStopsRecording(t *testing.T) {
	inst := newInstance(t)
	rec := NewRecorder(10)

	h := Attach(inst, nil, rec.Record)
	assert.Equal(t, 1, inst.ListenerCount(engine.EventClick))

	h.Detach()
	h.Detach()
	assert.Equal(t, 0, inst.ListenerCount(engine.EventClick))

	click(inst, 1, 2)
	assert.Empty(t, rec.Clicks())
}

func TestAttachNilCallback(t *testing.T) {
	inst := newInstance(t)
	h := Attach(inst, nil, nil)
	defer h.Detach()

	assert.NotPanics(t, func() { click(inst, 1, 2) })
}

func TestWithDetachesOnEveryExit(t *testing.T) {
	inst := newInstance(t)
	rec := NewRecorder(10)

	err := With(inst, nil, rec.Record, func() error {
		click(inst, 51.402, 35.725)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, inst.ListenerCount(engine.EventClick))

	boom := errors.New("boom")
	err = With(inst, nil, rec.Record, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, inst.ListenerCount(engine.EventClick))

	assert.Panics(t, func() {
		With(inst, nil, rec.Record, func() error { panic("boom") })
	})
	assert.Equal(t, 0, inst.ListenerCount(engine.EventClick))

	click(inst, 0, 0)
	assert.Len(t, rec.Clicks(), 1)
}

func TestRecorderKeepsMostRecent(t *testing.T) {
	rec := NewRecorder(2)
	for i := 0; i < 3; i++ {
		rec.Record(Click{LngLat: orb.Point{float64(i), 0}})
	}

	clicks := rec.Clicks()
	require.Len(t, clicks, 2)
	assert.Equal(t, 1.0, clicks[0].LngLat.Lon())
	assert.Equal(t, 2.0, clicks[1].LngLat.Lon())

	assert.Equal(t, 100, NewRecorder(0).max)
}
