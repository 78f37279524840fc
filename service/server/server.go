package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/coinguard/service/dataset"
	"github.com/brojonat/coinguard/service/metrics"
	"github.com/brojonat/coinguard/service/validator"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the guard over HTTP.
type Server struct {
	addr        string
	validator   *validator.Validator
	source      dataset.Source
	allowReload bool
	metrics     *metrics.Metrics
	logger      *slog.Logger
	server      *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The source is only read by the reload endpoint, which is mounted when
// allowReload is set and source is non-nil.
// The metrics is optional - if nil, the metrics endpoint won't be available.
func New(addr string, v *validator.Validator, source dataset.Source, allowReload bool, m *metrics.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		addr:        addr,
		validator:   v,
		source:      source,
		allowReload: allowReload,
		metrics:     m,
		logger:      logger,
	}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler, including CORS and metrics middleware.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "GET /api/v1/coins/{txid}", "coin_validity", handleCoinValidity(s.validator, s.logger))
	s.route(mux, "GET /api/v1/infractions/{txid}", "get_infractions", handleGetInfractions(s.validator, s.logger))
	s.route(mux, "GET /api/v1/infractions", "list_infractions_by_address", handleListInfractionsByAddress(s.validator, s.logger))
	s.route(mux, "POST /api/v1/redemptions/verify", "verify_redemption", handleVerifyRedemption(s.validator, s.logger))
	s.route(mux, "GET /api/v1/registry", "registry_status", handleRegistryStatus(s.validator))

	if s.allowReload && s.source != nil {
		s.route(mux, "POST /api/v1/registry/reload", "reload_registry", handleReloadRegistry(s.validator, s.source, s.metrics, s.logger))
		s.logger.Info("registry reload endpoint enabled", "source", s.source.Name())
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	return corsMiddleware(mux)
}

func (s *Server) route(mux *http.ServeMux, pattern, name string, h http.Handler) {
	if s.metrics != nil {
		h = metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
	}
	mux.Handle(pattern, h)
}

// Start starts the HTTP server and blocks until it stops. Shutdown may be
// called before Start, in which case Start returns immediately.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
