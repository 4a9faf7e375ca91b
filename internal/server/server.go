// Package server exposes the correlation engine over HTTP.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/KaramelBytes/corrloom-cli/internal/analysis"
)

// DefaultMaxBodyBytes caps request bodies when Options.MaxBodyBytes is 0.
const DefaultMaxBodyBytes = 32 << 20

// DefaultMaxCells bounds the nonlinear work (columns²·rows²) of one request
// when Base.Limits.MaxCells is 0. A negative value disables the bound.
const DefaultMaxCells int64 = 1e10

// Options configures a Server.
type Options struct {
	// Base is applied to every request; the threshold query parameter
	// overrides Base.Threshold.
	Base         analysis.Config
	MaxBodyBytes int64
	Logger       *zap.Logger
	// Timeout bounds a single request; 0 means 60s.
	Timeout time.Duration
}

// Server is the HTTP surface of corrloom.
type Server struct {
	opt     Options
	log     *zap.Logger
	router  *chi.Mux
	mu      sync.Mutex
	server  *http.Server
	metrics *metrics
	reg     *prometheus.Registry
}

// New creates a Server with its own metrics registry.
func New(opt Options) *Server {
	if opt.MaxBodyBytes <= 0 {
		opt.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 60 * time.Second
	}
	if opt.Base.Limits.MaxCells == 0 {
		opt.Base.Limits.MaxCells = DefaultMaxCells
	}
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	opt.Base.Logger = log
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s := &Server{
		opt:     opt,
		log:     log,
		router:  chi.NewRouter(),
		metrics: newMetrics(reg),
		reg:     reg,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.opt.Timeout))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
	})
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()
	s.log.Info("starting server", zap.String("addr", addr))
	return srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// requestLogger logs one line per request at info level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
