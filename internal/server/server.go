package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/district-map/internal/api"
	"github.com/joeblew999/district-map/internal/api/viewer"
	"github.com/joeblew999/district-map/internal/config"
	"github.com/joeblew999/district-map/internal/fetch"
	"github.com/joeblew999/district-map/internal/logging"
	"github.com/joeblew999/district-map/internal/rtl"
	"github.com/joeblew999/district-map/internal/service"
	"github.com/joeblew999/district-map/internal/templates"
	"github.com/joeblew999/district-map/internal/viewport"
)

// ContainerID is the element id the viewer page renders the map into.
const ContainerID = "map"

// Config holds the server configuration.
type Config struct {
	Host      string
	Port      string
	PublicDir string // holds data/<id>.json
	// FetchBaseURL, if set, fetches feature documents over HTTP from this
	// base instead of reading PublicDir.
	FetchBaseURL   string
	ComposeTimeout time.Duration
	Map            config.Map
	Logger         *slog.Logger
}

// Server is the district map HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	services *api.Services
	renderer *templates.Renderer
	logger   *slog.Logger
}

// New creates a new server. The map is not mounted until Mount.
func New(cfg Config) (*Server, error) {
	logger := logging.Default(cfg.Logger)
	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("district-map API", "1.0.0")
	humaConfig.Info.Description = "Composes district overlay sources and layers onto a live map and serves the resulting style."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	reg, err := cfg.Map.Registry()
	if err != nil {
		return nil, err
	}
	plan, err := cfg.Map.Plan()
	if err != nil {
		return nil, err
	}

	var fetcher fetch.Fetcher = fetch.FSFetcher{FS: os.DirFS(cfg.PublicDir)}
	if cfg.FetchBaseURL != "" {
		fetcher = fetch.HTTPFetcher{
			Client:  &http.Client{Timeout: 30 * time.Second},
			BaseURL: cfg.FetchBaseURL,
		}
	}

	mapService := service.NewMapService(viewport.Config{
		Params: viewport.Params{
			Center:    cfg.Map.CenterPoint(),
			Zoom:      cfg.Map.Zoom,
			StyleURL:  cfg.Map.Style.URL,
			AccessKey: cfg.Map.Style.Key,
		},
		Registry: reg,
		Fetcher:  fetcher,
		Plan:     plan,
		Timeout:  cfg.ComposeTimeout,
	}, service.NewEventBus(), logger)

	if cfg.FetchBaseURL == "" {
		mapService.SetSourceService(service.NewSourceService(cfg.PublicDir))
	}

	renderer, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		services: &api.Services{Map: mapService},
		renderer: renderer,
		logger:   logger.With("component", "server"),
	}

	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Map returns the map service.
func (s *Server) Map() *service.MapService {
	return s.services.Map
}

// Mount mounts the map into the viewer container and starts composition.
func (s *Server) Mount(ctx context.Context) error {
	return s.services.Map.Mount(ctx, ContainerID)
}

// Close unmounts the map.
func (s *Server) Close() error {
	s.services.Map.Unmount()
	return nil
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	api.NewInfoHandler(s.config.PublicDir, s.config.Map.Style.URL).RegisterRoutes(s.humaAPI)

	// Viewer SSE routes using Huma + Datastar SDK
	viewer.NewEventHandler(s.services.Map).RegisterRoutes(s.humaAPI)

	// Feature documents, also reachable by the HTTP fetcher
	dataDir := filepath.Join(s.config.PublicDir, "data")
	s.mux.Handle("/data/", http.StripPrefix("/data/", s.handleData(dataDir)))

	// Page routes
	s.mux.HandleFunc("/viewer", s.handleViewer)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "district-map",
		"status":  "running",
	})
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	html, err := s.renderer.Render("viewer.html", templates.ViewerData{
		ContainerID: ContainerID,
		Center:      s.config.Map.Center,
		Zoom:        s.config.Map.Zoom,
		StyleURL:    "/api/v1/map/style",
		ClicksURL:   "/api/v1/map/clicks",
		EventsURL:   "/api/v1/map/events",
		RTLPlugin:   rtl.URL(),
	})
	if err != nil {
		s.logger.Error("rendering viewer", "error", err)
		http.Error(w, "Failed to render viewer", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

func (s *Server) handleData(dataDir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/geo+json")
		http.FileServer(http.Dir(dataDir)).ServeHTTP(w, r)
	})
}
