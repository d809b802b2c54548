package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/dkozyrev/veloview/cmd"
	"github.com/dkozyrev/veloview/internal/backend"
	"github.com/dkozyrev/veloview/internal/config"
	"github.com/dkozyrev/veloview/internal/console"
	"github.com/dkozyrev/veloview/internal/draw"
	"github.com/dkozyrev/veloview/internal/events"
	"github.com/dkozyrev/veloview/internal/geom"
	"github.com/dkozyrev/veloview/internal/logging"
	"github.com/dkozyrev/veloview/internal/metrics"
	"github.com/dkozyrev/veloview/internal/overlay"
	"github.com/dkozyrev/veloview/internal/player"
	"github.com/dkozyrev/veloview/internal/roi"
	"github.com/dkozyrev/veloview/internal/session"
	"github.com/spf13/cobra"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Console API listen address" short:"p" default:":8070" toml:"server.port" env:"SERVER_PORT"`

	// Backend settings
	BackendURL string `help:"Counting backend base URL" default:"http://127.0.0.1:8000" toml:"backend.url" env:"BACKEND_URL"`

	// Readiness settings
	MinSegments      int `help:"Playlist segments required before playback" default:"2" toml:"readiness.min_segments" env:"READINESS_MIN_SEGMENTS"`
	PollIntervalMs   int `help:"Playlist poll interval in milliseconds" default:"500" toml:"readiness.poll_interval_ms" env:"READINESS_POLL_INTERVAL_MS"`
	StartTimeoutSec  int `help:"Start readiness budget in seconds" default:"20" toml:"readiness.start_timeout_s" env:"READINESS_START_TIMEOUT_S"`
	ReloadTimeoutSec int `help:"Reload readiness budget in seconds" default:"25" toml:"readiness.reload_timeout_s" env:"READINESS_RELOAD_TIMEOUT_S"`

	// Status settings
	StatusIntervalSec int `help:"Backend status poll cadence in seconds" default:"1" toml:"status.poll_interval_s" env:"STATUS_POLL_INTERVAL_S"`

	// Display settings
	DisplayWidth  int     `help:"Overlay surface width in display pixels" default:"1280" toml:"display.width" env:"DISPLAY_WIDTH"`
	DisplayHeight int     `help:"Overlay surface height in display pixels" default:"720" toml:"display.height" env:"DISPLAY_HEIGHT"`
	DisplayDPR    float64 `help:"Device pixel ratio of the overlay surface" default:"1" toml:"display.dpr" env:"DISPLAY_DPR"`

	// Observability settings
	MetricsEnabled bool `help:"Serve Prometheus metrics at /metrics" default:"true" toml:"obs.prometheus_enabled" env:"OBS_PROMETHEUS_ENABLED"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingJournal bool   `help:"Also log to the systemd journal" default:"false" toml:"logging.journal" env:"LOGGING_JOURNAL"`
	LoggingSession string `help:"Session controller logging level" default:"info" toml:"logging.session" env:"LOGGING_SESSION"`
	LoggingBackend string `help:"Backend client logging level" default:"info" toml:"logging.backend" env:"LOGGING_BACKEND"`
	LoggingPlayer  string `help:"Playback engine logging level" default:"info" toml:"logging.player" env:"LOGGING_PLAYER"`
	LoggingOverlay string `help:"Overlay renderer logging level" default:"info" toml:"logging.overlay" env:"LOGGING_OVERLAY"`
	LoggingConsole string `help:"Console API logging level" default:"info" toml:"logging.console" env:"LOGGING_CONSOLE"`
	LoggingHTTP    string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
}

func readinessConfig(opts *Options) session.Config {
	return session.Config{
		MinSegments:   opts.MinSegments,
		PollInterval:  time.Duration(opts.PollIntervalMs) * time.Millisecond,
		StartTimeout:  time.Duration(opts.StartTimeoutSec) * time.Second,
		ReloadTimeout: time.Duration(opts.ReloadTimeoutSec) * time.Second,
	}
}

func main() {
	var rootCmd *cobra.Command

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, rootCmd); loadErr != nil {
			logging.GetLogger("main").Warn("failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:   opts.LoggingLevel,
			Format:  opts.LoggingFormat,
			Journal: opts.LoggingJournal,
			Modules: map[string]string{
				"session": opts.LoggingSession,
				"backend": opts.LoggingBackend,
				"player":  opts.LoggingPlayer,
				"overlay": opts.LoggingOverlay,
				"console": opts.LoggingConsole,
				"http":    opts.LoggingHTTP,
			},
		})
		logger := logging.GetLogger("main")

		bus := events.New()
		client := backend.NewClient(opts.BackendURL)

		var m *metrics.Metrics
		if opts.MetricsEnabled {
			m = metrics.New()
			client.OnRequest(func(endpoint, result string) {
				m.BackendRequests.WithLabelValues(endpoint, result).Inc()
			})
		}

		// Engine priority: native first, library follower second. The
		// headless console registers no native media types, so selection
		// falls through to the follower.
		engines := []player.Engine{
			player.NewNative(nil, nil),
			player.NewHLS(client.FetchPlaylist),
		}

		controller := session.NewController(&session.ControllerOptions{
			Backend: client,
			Engines: engines,
			Bus:     bus,
			Metrics: m,
			Config:  readinessConfig(opts),
		})

		display := geom.Size{W: float64(opts.DisplayWidth), H: float64(opts.DisplayHeight)}

		renderer := overlay.NewRenderer(&overlay.RendererOptions{
			Canvas:  draw.NewImageCanvas(),
			Metrics: m,
		})
		renderer.Resize(display, opts.DisplayDPR)

		editor := roi.NewEditor(&roi.EditorOptions{
			Canvas: draw.NewImageCanvas(),
			Bus:    bus,
		})
		editor.Resize(display, opts.DisplayDPR)

		serverOpts := &console.Options{
			Controller: controller,
			Renderer:   renderer,
			Editor:     editor,
			Bus:        bus,
		}
		if m != nil {
			serverOpts.PrometheusHandler = m.Handler()
		}
		server := console.NewServer(serverOpts)

		watchCtx, cancelWatch := context.WithCancel(context.Background())

		// Live tuning: readiness knobs and log levels pick up TOML edits
		// without a restart.
		watcher := config.NewWatcher(opts.Config, func(path string) (*Options, error) {
			fresh := *opts
			fresh.Config = path
			if err := config.LoadConfig(&fresh, rootCmd); err != nil {
				return nil, err
			}
			return &fresh, nil
		}, logger)
		watcher.OnReload(func(fresh *Options) {
			controller.SetTuning(readinessConfig(fresh))
			logging.SetModuleLevel("session", fresh.LoggingSession)
			logging.SetModuleLevel("backend", fresh.LoggingBackend)
			logging.SetModuleLevel("player", fresh.LoggingPlayer)
			logging.SetModuleLevel("overlay", fresh.LoggingOverlay)
			logging.SetModuleLevel("console", fresh.LoggingConsole)
			logging.SetModuleLevel("http", fresh.LoggingHTTP)
		})

		hooks.OnStart(func() {
			if err := watcher.Start(); err != nil {
				logger.Warn("config watcher not started", "error", err)
			}

			go controller.WatchStatus(watchCtx, time.Duration(opts.StatusIntervalSec)*time.Second)

			if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
				logger.Debug("sd_notify unavailable", "error", err)
			}

			logger.Info("starting console", "port", opts.Port, "backend", opts.BackendURL)
			if err := server.Start(opts.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("failed to start console API", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("shutting down")
			cancelWatch()
			if err := watcher.Stop(); err != nil {
				logger.Warn("config watcher stop", "error", err)
			}
			if err := controller.Stop(context.Background()); err != nil {
				logger.Warn("session stop", "error", err)
			}
			if err := server.Stop(); err != nil {
				logger.Error("error stopping console API", "error", err)
			}
		})
	})

	rootCmd = cli.Root()
	rootCmd.Use = "veloview"
	rootCmd.AddCommand(cmd.CreatePhotoCmd())
	rootCmd.AddCommand(cmd.CreateVideoCmd())
	rootCmd.AddCommand(cmd.CreateReportCmd())

	cli.Run()
}
