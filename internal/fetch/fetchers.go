package fetch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
)

// StatusError is returned for a non-success HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// HTTPFetcher resolves locations against BaseURL and retrieves them over HTTP.
type HTTPFetcher struct {
	Client  *http.Client
	BaseURL string
}

// Fetch retrieves location. Any non-2xx status is an error.
func (f HTTPFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	target, err := resolve(f.BaseURL, location)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

func resolve(base, location string) (string, error) {
	ref, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid location %q: %w", location, err)
	}
	if base == "" {
		return ref.String(), nil
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	return b.ResolveReference(ref).String(), nil
}

// FSFetcher reads locations from a file system. Locations are slash
// separated paths relative to the root of FS.
type FSFetcher struct {
	FS fs.FS
}

// Fetch reads location from the file system.
func (f FSFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fs.ReadFile(f.FS, strings.TrimPrefix(location, "/"))
}
