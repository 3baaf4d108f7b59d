package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/district-map/internal/compose"
	"github.com/joeblew999/district-map/internal/config"
)

func TestLoadMapFlagsOverrideConfig(t *testing.T) {
	opts := &Options{
		Config:    filepath.Join("..", "..", "configs", "district.yaml"),
		AccessKey: "secret",
	}

	m, err := loadMap(opts)
	require.NoError(t, err)
	assert.Equal(t, config.ParsimapStreets, m.Style.URL)
	assert.Equal(t, "secret", m.Style.Key)
	assert.Len(t, m.Layers, 4)

	opts.StyleURL = "https://example.com/style.json"
	m, err = loadMap(opts)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/style.json", m.Style.URL)
}

func TestNewLogger(t *testing.T) {
	ctx := context.Background()
	assert.True(t, newLogger("debug").Enabled(ctx, slog.LevelDebug))
	assert.False(t, newLogger("warn").Enabled(ctx, slog.LevelInfo))
	assert.True(t, newLogger("bogus").Enabled(ctx, slog.LevelInfo))
}

func TestComposeSampleData(t *testing.T) {
	opts := &Options{Host: "localhost", Port: 8086, PublicDir: filepath.Join("..", "..", "public")}
	m, err := loadMap(opts)
	require.NoError(t, err)

	srv, err := newServer(opts, m, nil)
	require.NoError(t, err)
	defer srv.Close()

	require.NoError(t, srv.Mount(context.Background()))
	require.NoError(t, srv.Map().Wait(context.Background()))

	st := srv.Map().State()
	assert.Equal(t, "composed", st.State)
	assert.Len(t, st.Layers, 4)
}

func sampleOptions() *Options {
	return &Options{Host: "localhost", Port: 8086, PublicDir: filepath.Join("..", "..", "public")}
}

func TestRunComposeWritesStyle(t *testing.T) {
	out := filepath.Join(t.TempDir(), "style.json")
	var stdout bytes.Buffer

	require.NoError(t, runCompose(context.Background(), sampleOptions(), out, &stdout))
	assert.Contains(t, stdout.String(), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc struct {
		Layers []map[string]any `json:"layers"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc.Layers, 4)
}

func TestRunComposeStdout(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, runCompose(context.Background(), sampleOptions(), "", &stdout))
	assert.Contains(t, stdout.String(), `"region6_restaurant_points"`)
}

func TestRunComposeRejectedStyle(t *testing.T) {
	style := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer style.Close()

	opts := sampleOptions()
	opts.StyleURL = style.URL + "/styles/parsimap-streets-v11"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := runCompose(ctx, opts, "", &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, compose.ErrStyleFailed)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
}

func TestMountAndServeFetchesFromItself(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	opts := sampleOptions()
	opts.FetchBaseURL = "http://" + ln.Addr().String()
	m, err := loadMap(opts)
	require.NoError(t, err)
	srv, err := newServer(opts, m, nil)
	require.NoError(t, err)
	defer srv.Close()

	hs := &http.Server{Handler: srv}
	served := make(chan error, 1)
	go func() { served <- mountAndServe(context.Background(), hs, ln, srv) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.Eventually(t, func() bool { return srv.Map().State().Mounted }, time.Second, time.Millisecond)
	require.NoError(t, srv.Map().Wait(ctx))
	assert.Equal(t, "composed", srv.Map().State().State)

	require.NoError(t, hs.Shutdown(ctx))
	assert.True(t, errors.Is(<-served, http.ErrServerClosed))
}
