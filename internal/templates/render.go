// Package templates renders the HTML pages served to the browser.
package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io/fs"
	"sync"
)

//go:embed web/*.html
var embedded embed.FS

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// json renders a value as a JS literal for inline scripts
	"json": func(v any) (template.JS, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return template.JS(b), nil
	},
}

// Renderer manages HTML page templates.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

// New parses the embedded page templates.
func New() (*Renderer, error) {
	return NewFS(embedded, "web/*.html")
}

// NewFS parses templates matching pattern from fsys.
func NewFS(fsys fs.FS, pattern string) (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(fsys, pattern)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(buf, name, data)
}

// ViewerData is the data for the viewer page.
type ViewerData struct {
	ContainerID string
	Center      [2]float64
	Zoom        float64
	StyleURL    string // composed style endpoint
	ClicksURL   string
	EventsURL   string
	RTLPlugin   string
}
