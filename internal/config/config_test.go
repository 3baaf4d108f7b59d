package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/district-map/internal/registry"
	"github.com/joeblew999/district-map/internal/rtl"
	"github.com/joeblew999/district-map/internal/style"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	m := Default()
	require.NoError(t, m.Validate())

	assert.Equal(t, orb.Point{51.402, 35.725}, m.CenterPoint())
	assert.Equal(t, 13.0, m.Zoom)
	assert.Empty(t, m.Style.URL)
	assert.Equal(t, rtl.DefaultPluginURL, m.RTLPlugin)

	reg, err := m.Registry()
	require.NoError(t, err)
	assert.Equal(t, registry.District().Keys(), reg.Keys())

	plan, err := m.Plan()
	require.NoError(t, err)
	assert.Equal(t, style.DistrictPlan(), plan)
}

func TestLoadEmptyPath(t *testing.T) {
	m, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), m)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
zoom: 14
style:
  url: `+ParsimapStreets+`
  key: secret
`)

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 14.0, m.Zoom)
	assert.Equal(t, ParsimapStreets, m.Style.URL)
	assert.Equal(t, "secret", m.Style.Key)
	// Untouched fields keep their defaults.
	assert.Equal(t, [2]float64{51.402, 35.725}, m.Center)
	assert.Len(t, m.Layers, 4)
}

func TestLoadCustomLayers(t *testing.T) {
	path := writeConfig(t, `
sources: [parks, paths]
layers:
  - id: parks
    type: fill
    source: parks
    color: "#0a0"
  - id: paths
    type: line
    source: paths
    color: "#444"
    width: 3
  - id: benches
    type: circle
    source: parks
    color: "#f00"
    radius: 4
`)

	m, err := Load(path)
	require.NoError(t, err)

	plan, err := m.Plan()
	require.NoError(t, err)
	require.Len(t, plan, 3)
	assert.Equal(t, style.FillPaint{Color: "#0a0", Opacity: 1}, plan[0].Paint)
	assert.Equal(t, style.LinePaint{Color: "#444", Width: 3}, plan[1].Paint)
	assert.Equal(t, style.CirclePaint{Color: "#f00", Opacity: 1, Radius: 4}, plan[2].Paint)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "fill with width",
			body:    "sources: [a]\nlayers:\n  - {id: a, type: fill, source: a, color: '#000', width: 2}\n",
			wantErr: "fill takes",
		},
		{
			name:    "line with radius",
			body:    "sources: [a]\nlayers:\n  - {id: a, type: line, source: a, color: '#000', radius: 2}\n",
			wantErr: "line takes",
		},
		{
			name:    "circle with width",
			body:    "sources: [a]\nlayers:\n  - {id: a, type: circle, source: a, color: '#000', width: 2}\n",
			wantErr: "circle takes",
		},
		{
			name:    "unknown type",
			body:    "sources: [a]\nlayers:\n  - {id: a, type: heatmap, source: a, color: '#000'}\n",
			wantErr: "unknown type",
		},
		{
			name:    "unknown source",
			body:    "sources: [a]\nlayers:\n  - {id: a, type: fill, source: b, color: '#000'}\n",
			wantErr: "unknown source",
		},
		{
			name:    "duplicate layer",
			body:    "sources: [a]\nlayers:\n  - {id: a, type: fill, source: a, color: '#000'}\n  - {id: a, type: fill, source: a, color: '#111'}\n",
			wantErr: "duplicate layer",
		},
		{
			name:    "duplicate source",
			body:    "sources: [a, a]\nlayers: []\n",
			wantErr: "duplicate source",
		},
		{
			name:    "missing color",
			body:    "sources: [a]\nlayers:\n  - {id: a, type: fill, source: a}\n",
			wantErr: "color is required",
		},
		{
			name:    "center out of range",
			body:    "center: [200, 0]\n",
			wantErr: "center",
		},
		{
			name:    "zoom out of range",
			body:    "zoom: 30\n",
			wantErr: "zoom",
		},
		{
			name:    "not yaml",
			body:    "zoom: [\n",
			wantErr: "parsing config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFromPlanRoundTrip(t *testing.T) {
	plan := style.DistrictPlan()
	for i, lc := range FromPlan(plan) {
		l, err := lc.Layer()
		require.NoError(t, err)
		assert.Equal(t, plan[i], l)
	}
}
