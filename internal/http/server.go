// Package http serves the ledger as a small JSON API with CSV and PDF
// downloads.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budget/internal/export"
	"budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/services"
)

// requestTimeout bounds every handler's work on the ledger.
const requestTimeout = 15 * time.Second

type Server struct {
	http.Server
	svc      *services.LedgerService
	exporter *export.Exporter
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	ready    func(context.Context) error

	shutdownOnce sync.Once
}

type Option func(*Server)

// WithReadiness sets the check behind /readyz.
func WithReadiness(check func(context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

// WithRateLimit overrides the per-client limit applied to POST /records.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) {
		s.limiter.Stop()
		s.limiter = ratelimit.NewLimiter(cfg)
	}
}

// NewServer configures routes, returning a ready-to-run server.
func NewServer(addr string, svc *services.LedgerService, exporter *export.Exporter, logger *log.Logger, opts ...Option) *Server {
	logger = logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		svc:      svc,
		exporter: exporter,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		tracer:   trace.NewMiddleware(logger, security.ClientIP),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	createLimited := s.limiter.Middleware(security.ClientIP, s.handleRateLimited)
	mux.HandleFunc("GET /records", s.handleListRecords)
	mux.Handle("POST /records", createLimited(http.HandlerFunc(s.handleCreateRecord)))
	mux.HandleFunc("GET /days", s.handleDay)
	mux.HandleFunc("GET /months", s.handleMonth)
	mux.HandleFunc("GET /categories", s.handleCategories)
	mux.HandleFunc("GET /exports/month.csv", s.handleExportMonth)
	mux.HandleFunc("GET /reports/day.pdf", s.handleDayReport)

	var handler http.Handler = mux
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = s.tracer.Handler(handler)
	s.Handler = handler

	return s
}

// Metrics exposes request counters.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.Metrics()
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
