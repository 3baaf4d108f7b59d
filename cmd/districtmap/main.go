package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/district-map/internal/config"
	"github.com/joeblew999/district-map/internal/rtl"
	"github.com/joeblew999/district-map/internal/server"
)

// Options defines all CLI flags and env vars for the district map server.
// Flags: --host, --port, --public-dir, --config, --style-url, --access-key,
// --fetch-base-url, --compose-timeout, --log-level
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_PUBLIC_DIR, ...
type Options struct {
	Host           string `doc:"Host to bind to" default:"0.0.0.0"`
	Port           int    `doc:"Port to listen on" short:"p" default:"8086"`
	PublicDir      string `doc:"Directory holding data/<id>.json feature documents" default:"public"`
	Config         string `doc:"Path to a YAML map definition (defaults built in)" short:"c"`
	StyleURL       string `doc:"Basemap style URL, overrides the map definition"`
	AccessKey      string `doc:"Basemap access key, overrides the map definition"`
	FetchBaseURL   string `doc:"Fetch feature documents over HTTP from this base URL instead of the public dir"`
	ComposeTimeout int    `doc:"Seconds to wait for features and style before failing, 0 waits forever" default:"0"`
	LogLevel       string `doc:"Log level: debug, info, warn, error" default:"info"`
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func loadMap(opts *Options) (config.Map, error) {
	m, err := config.Load(opts.Config)
	if err != nil {
		return config.Map{}, err
	}
	if opts.StyleURL != "" {
		m.Style.URL = opts.StyleURL
	}
	if opts.AccessKey != "" {
		m.Style.Key = opts.AccessKey
	}
	return m, nil
}

func newServer(opts *Options, m config.Map, logger *slog.Logger) (*server.Server, error) {
	return server.New(server.Config{
		Host:           opts.Host,
		Port:           fmt.Sprintf("%d", opts.Port),
		PublicDir:      opts.PublicDir,
		FetchBaseURL:   opts.FetchBaseURL,
		ComposeTimeout: time.Duration(opts.ComposeTimeout) * time.Second,
		Map:            m,
		Logger:         logger,
	})
}

// mountAndServe mounts the map and serves on ln. The listener is bound
// before mounting, so fetches against this server's /data/ route queue on
// it instead of being refused.
func mountAndServe(ctx context.Context, hs *http.Server, ln net.Listener, srv *server.Server) error {
	if err := srv.Mount(ctx); err != nil {
		ln.Close()
		return fmt.Errorf("mounting map: %w", err)
	}
	return hs.Serve(ln)
}

// runCompose mounts the map headlessly, waits for composition and writes
// the style to out, or to stdout when out is empty. The server is closed
// before it returns.
func runCompose(ctx context.Context, opts *Options, out string, stdout io.Writer) error {
	m, err := loadMap(opts)
	if err != nil {
		return fmt.Errorf("loading map definition: %w", err)
	}
	srv, err := newServer(opts, m, newLogger(opts.LogLevel))
	if err != nil {
		return fmt.Errorf("configuring server: %w", err)
	}
	defer srv.Close()

	if err := srv.Mount(ctx); err != nil {
		return fmt.Errorf("mounting map: %w", err)
	}
	if err := srv.Map().Wait(ctx); err != nil {
		return fmt.Errorf("composition failed: %w", err)
	}
	doc, err := srv.Map().Style()
	if err != nil {
		return fmt.Errorf("rendering style: %w", err)
	}

	if out == "" {
		_, err = fmt.Fprintln(stdout, string(doc))
		return err
	}
	if err := os.WriteFile(out, doc, 0644); err != nil {
		return fmt.Errorf("writing style: %w", err)
	}
	fmt.Fprintf(stdout, "Style written to %s\n", out)
	return nil
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		logger := newLogger(opts.LogLevel)
		var httpServer *http.Server
		var srv *server.Server

		hooks.OnStart(func() {
			m, err := loadMap(opts)
			if err != nil {
				fatal("Error loading map definition", err)
			}
			srv, err = newServer(opts, m, logger)
			if err != nil {
				fatal("Error configuring server", err)
			}

			if m.RTLPlugin != "" {
				if err := rtl.Register(m.RTLPlugin, func(err error) {
					if err != nil {
						logger.Warn("rtl text plugin failed", "error", err)
						return
					}
					logger.Debug("rtl text plugin loaded", "url", m.RTLPlugin)
				}); err != nil {
					logger.Warn("rtl text plugin not registered", "error", err)
				}
			}

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				fatal("Error binding listener", err)
			}

			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("district-map server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.PublicDir)
			fmt.Println()
			fmt.Printf("  Viewer:  %s/viewer\n", baseURL)
			fmt.Printf("  State:   %s/api/v1/map/state\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			httpServer = &http.Server{Handler: srv}
			if err := mountAndServe(context.Background(), httpServer, ln, srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fatal("Server error", err)
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if httpServer != nil {
				httpServer.Shutdown(ctx)
			}
			if srv != nil {
				srv.Close()
			}
		})
	})

	cli.Root().Use = "districtmap"
	cli.Root().Short = "Interactive district map with layered GeoJSON overlays"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			m, err := loadMap(opts)
			if err != nil {
				fatal("Error loading map definition", err)
			}
			srv, err := newServer(opts, m, nil)
			if err != nil {
				fatal("Error configuring server", err)
			}
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fatal("Error marshaling spec", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// compose subcommand: run the pipeline headlessly and print the style
	composeCmd := &cobra.Command{
		Use:   "compose",
		Short: "Fetch all sources, compose the overlay and print the resulting style JSON",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			out, _ := cmd.Flags().GetString("out")
			if err := runCompose(ctx, opts, out, os.Stdout); err != nil {
				fatal("Compose failed", err)
			}
		}),
	}
	composeCmd.Flags().StringP("out", "o", "", "Write the style to this file instead of stdout")
	cli.Root().AddCommand(composeCmd)

	cli.Run()
}
