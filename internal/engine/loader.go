package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// BaseStyle is a decoded GL style document.
type BaseStyle map[string]any

// StyleLoader loads the basemap style for a new instance.
type StyleLoader interface {
	Load(ctx context.Context) (BaseStyle, error)
}

// StyleLoaderFunc adapts a function to StyleLoader.
type StyleLoaderFunc func(ctx context.Context) (BaseStyle, error)

func (f StyleLoaderFunc) Load(ctx context.Context) (BaseStyle, error) { return f(ctx) }

// StaticStyle returns a loader for an empty version 8 style.
// Used when no basemap style URL is configured.
func StaticStyle() StyleLoader {
	return StyleLoaderFunc(func(ctx context.Context) (BaseStyle, error) {
		return BaseStyle{
			"version": 8,
			"name":    "blank",
			"sources": map[string]any{},
			"layers":  []any{},
		}, nil
	})
}

// HTTPStyle loads a themed basemap style over HTTP.
type HTTPStyle struct {
	Client *http.Client
	URL    string
	// Key is the access credential, sent as the "key" query parameter.
	Key string
}

// Load fetches and decodes the style document.
func (s HTTPStyle) Load(ctx context.Context) (BaseStyle, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing style url: %w", err)
	}
	if s.Key != "" {
		q := u.Query()
		q.Set("key", s.Key)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("loading style: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("loading style: status %d", resp.StatusCode)
	}

	var doc BaseStyle
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding style: %w", err)
	}
	return doc, nil
}
