package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/danilgotvyansky/cpanel-exporter/internal/collectors"
	"github.com/danilgotvyansky/cpanel-exporter/internal/config"
	"github.com/danilgotvyansky/cpanel-exporter/internal/exposition"
	"github.com/danilgotvyansky/cpanel-exporter/internal/uapi"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const internalErrorBody = "Internal server error"

// Server is the main server struct
type Server struct {
	config     *config.Config
	logger     *zap.Logger
	httpServer *http.Server
	registry   *prometheus.Registry
	scraper    *collectors.Scraper
	uapiPath   string
}

// ServerParams is the parameters for the server
type ServerParams struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Scraper *collectors.Scraper
	Metrics *collectors.ExporterCollector
	Client  *uapi.Client
}

// New creates a new server
// Args:
// - params: ServerParams
// Returns:
// - *Server: new Server instance
func New(params ServerParams) *Server {
	registry := prometheus.NewRegistry()

	// Register the exporter's own metrics, appended after the cPanel lines
	registry.MustRegister(params.Metrics)

	s := &Server{
		config:   params.Config,
		logger:   params.Logger,
		registry: registry,
		scraper:  params.Scraper,
		uapiPath: params.Client.Path(),
	}

	s.httpServer = &http.Server{
		Addr:         params.Config.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  params.Config.Server.ReadTimeout.Duration,
		WriteTimeout: params.Config.Server.WriteTimeout.Duration,
	}

	return s
}

// Handler returns the HTTP routes of the exporter
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// cPanel metrics endpoint, one full scrape per request
	mux.HandleFunc("/metrics", s.handleMetrics)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().UTC().Format(time.RFC3339) + `"}`))
	})

	// Info endpoint
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"service":         "cpanel_exporter",
			"uapi_path":       s.uapiPath,
			"command_timeout": s.config.UAPI.CommandTimeout.String(),
			"categories":      s.scraper.Categories(),
		})
	})

	return mux
}

// handleMetrics runs a scrape and writes the cPanel lines followed by the
// exporter's own metrics. Any failure of the general stats turns into a 500.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	lines, err := s.scraper.Scrape(r.Context())
	if err != nil {
		s.logger.Error("Failed to generate metrics", zap.Error(err))
		s.writeInternalError(w)
		return
	}

	var body bytes.Buffer
	if err := exposition.Encode(&body, lines); err != nil {
		s.logger.Error("Failed to encode metrics", zap.Error(err))
		s.writeInternalError(w)
		return
	}
	if err := s.encodeExporterMetrics(&body); err != nil {
		// The cPanel lines are complete; serve them without the exporter metrics
		s.logger.Warn("Failed to encode exporter metrics", zap.Error(err))
	}

	w.Header().Set("Content-Type", string(expfmt.FmtText))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		s.logger.Debug("Failed to write metrics response", zap.Error(err))
	}
}

func (s *Server) encodeExporterMetrics(body *bytes.Buffer) error {
	families, err := s.registry.Gather()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			return err
		}
	}
	body.Write(buf.Bytes())
	return nil
}

func (s *Server) writeInternalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(internalErrorBody))
}

// Start binds the listening socket and serves in the background
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.logger.Error("Failed to bind HTTP listener", zap.String("addr", s.httpServer.Addr), zap.Error(err))
		return err
	}

	s.logger.Info("Starting HTTP server",
		zap.String("addr", listener.Addr().String()),
		zap.String("uapi_path", s.uapiPath),
		zap.Duration("command_timeout", s.config.UAPI.CommandTimeout.Duration),
		zap.Duration("read_timeout", s.config.Server.ReadTimeout.Duration),
		zap.Duration("write_timeout", s.config.Server.WriteTimeout.Duration),
	)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout.Duration)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}

// ServerLifecycle manages the server lifecycle with fx
type ServerLifecycle struct {
	server *Server
	logger *zap.Logger
}

func NewServerLifecycle(server *Server, logger *zap.Logger) *ServerLifecycle {
	return &ServerLifecycle{
		server: server,
		logger: logger,
	}
}

func (sl *ServerLifecycle) Start(ctx context.Context) error {
	if err := sl.server.Start(ctx); err != nil {
		sl.logger.Error("Server startup failed", zap.Error(err))
		return err
	}
	return nil
}

func (sl *ServerLifecycle) Stop(ctx context.Context) error {
	return sl.server.Stop(ctx)
}
