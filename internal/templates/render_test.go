package templates

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewer(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	html, err := r.Render("viewer.html", ViewerData{
		ContainerID: "map",
		Center:      [2]float64{51.402, 35.725},
		Zoom:        13,
		StyleURL:    "/api/v1/map/style",
		ClicksURL:   "/api/v1/map/clicks",
		EventsURL:   "/api/v1/map/events",
		RTLPlugin:   "https://example.com/rtl.js",
	})
	require.NoError(t, err)
	html = strings.ReplaceAll(html, `\/`, "/")

	assert.Contains(t, html, `id="map"`)
	assert.Contains(t, html, "[51.402,35.725]")
	assert.Contains(t, html, "setRTLTextPlugin")
	assert.Contains(t, html, "/api/v1/map/clicks")
	assert.Contains(t, html, "https://example.com/rtl.js")
}

func TestViewerWithoutRTLPlugin(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	html, err := r.Render("viewer.html", ViewerData{ContainerID: "map"})
	require.NoError(t, err)
	assert.NotContains(t, html, "setRTLTextPlugin")
}

func TestNewFS(t *testing.T) {
	fsys := fstest.MapFS{
		"pages/hello.html": {Data: []byte(`{{define "hello.html"}}<script>var x = {{json .}};</script>{{end}}`)},
	}
	r, err := NewFS(fsys, "pages/*.html")
	require.NoError(t, err)

	html, err := r.Render("hello.html", map[string]int{"n": 1})
	require.NoError(t, err)
	assert.Contains(t, html, `{"n":1}`)

	_, err = r.Render("missing.html", nil)
	assert.Error(t, err)
}
