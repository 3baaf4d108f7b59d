// Package rtl holds the process-wide right-to-left text shaping plugin
// registration. The plugin script itself is loaded by the viewer; the
// process only records where it lives and acknowledges the load.
package rtl

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
)

// DefaultPluginURL is the mapbox-gl-rtl-text script served by the Parsimap CDN.
const DefaultPluginURL = "https://cdn.parsimap.ir/third-party/mapbox-gl-js/plugins/mapbox-gl-rtl-text/v0.2.3/mapbox-gl-rtl-text.js"

// Status of the plugin registration.
type Status string

const (
	Unavailable Status = "unavailable"
	Loading     Status = "loading"
	Loaded      Status = "loaded"
)

var ErrAlreadyRegistered = errors.New("rtl text plugin already registered")

var (
	mu        sync.Mutex
	pluginURL string
	status    = Unavailable
)

// Register records the plugin location once per process. onLoad, if set,
// is called exactly once from a separate goroutine when registration
// completes.
func Register(rawURL string, onLoad func(error)) error {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid rtl plugin url %q", rawURL)
	}

	mu.Lock()
	if status != Unavailable {
		mu.Unlock()
		return ErrAlreadyRegistered
	}
	pluginURL = u.String()
	status = Loading
	mu.Unlock()

	go func() {
		mu.Lock()
		status = Loaded
		mu.Unlock()
		if onLoad != nil {
			onLoad(nil)
		}
	}()
	return nil
}

// URL returns the registered plugin URL, or "" if none.
func URL() string {
	mu.Lock()
	defer mu.Unlock()
	return pluginURL
}

// CurrentStatus returns the registration status.
func CurrentStatus() Status {
	mu.Lock()
	defer mu.Unlock()
	return status
}
