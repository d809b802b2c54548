// Package console serves the local control API: stream session operations,
// ROI editing, overlay visibility, logs and Prometheus metrics. It is the
// machine-facing surface a UI or curl session drives the client through.
package console

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/dkozyrev/veloview/internal/console/models"
	"github.com/dkozyrev/veloview/internal/events"
	"github.com/dkozyrev/veloview/internal/logging"
	"github.com/dkozyrev/veloview/internal/overlay"
	"github.com/dkozyrev/veloview/internal/roi"
	"github.com/dkozyrev/veloview/internal/session"
	"github.com/dkozyrev/veloview/internal/version"
)

// Options configure the console server.
type Options struct {
	Controller *session.Controller
	Renderer   *overlay.Renderer
	Editor     *roi.Editor
	Bus        *events.Bus
	// PrometheusHandler, when set, is mounted at GET /metrics.
	PrometheusHandler http.Handler
}

// Server is the Huma v2 console API server on Go 1.22+ native routing.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	controller *session.Controller
	renderer   *overlay.Renderer
	editor     *roi.Editor
	bus        *events.Bus
	logger     *slog.Logger
}

func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("VeloView Console", version.Version)
	config.Info.Description = "Local control API for the bicycle counter client"
	// Relative paths in the OpenAPI document, so any bind address works.
	config.Servers = []*huma.Server{}

	api := humago.New(mux, config)

	server := &Server{
		api:        api,
		mux:        mux,
		controller: opts.Controller,
		renderer:   opts.Renderer,
		editor:     opts.Editor,
		bus:        opts.Bus,
		logger:     logging.GetLogger("console"),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()
	return server
}

// GetAPI returns the Huma API instance for tests.
func (s *Server) GetAPI() huma.API {
	return s.api
}

// GetMux returns the underlying ServeMux for additional setup.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// Start serves the console API on addr, blocking until the server closes.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting console API", "addr", addr)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down immediately.
func (s *Server) Stop() error {
	s.logger.Info("stopping console API")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check console health status",
		Tags:        []string{"health"},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Version: version.Version,
			},
		}, nil
	})

	s.registerSessionRoutes()
	s.registerOverlayRoutes()
	s.registerROIRoutes()
	s.registerEventRoutes()
	s.registerLogRoutes()
}
