package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seantiz/surveyd/internal/engine"
	"github.com/seantiz/surveyd/internal/model"
)

const (
	shutdownTimeout     = 10 * time.Second
	readHeaderTimeout   = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
)

// Option configures a Server.
type Option func(*Server)

// WithSubmitLimit rate limits job submissions to rps requests per second with
// the given burst. A non-positive rps disables limiting.
func WithSubmitLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.submitLimit = newSubmitLimiter(rps, burst)
	}
}

// WithWriteTimeout overrides the per-response write deadline. Streaming and
// draining endpoints clear it for their own responses.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// Server wraps the chi router and application dependencies.
type Server struct {
	router       *chi.Mux
	dispatcher   *engine.Dispatcher
	logger       *slog.Logger
	addr         string
	writeTimeout time.Duration
	submitLimit  *submitLimiter
}

// NewServer creates and configures a new HTTP server.
func NewServer(addr string, d *engine.Dispatcher, logger *slog.Logger, opts ...Option) *Server {
	srv := &Server{
		router:       chi.NewRouter(),
		dispatcher:   d,
		logger:       logger,
		addr:         addr,
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(srv.loggingMiddleware)
	srv.router.Use(metricsMiddleware)
	srv.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	srv.routes()

	return srv
}

// routes registers all HTTP routes on the router.
func (s *Server) routes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/index", s.handleIndex)
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metricsHandler())

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.submitLimit.middleware(s))
			for _, qt := range model.QueryTypes {
				r.Post("/"+qt, s.handleSubmit(qt))
			}
		})

		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{job_id}/watch", s.handleWatchJob)
		r.Get("/num_jobs", s.handleNumJobs)
		r.Get("/get_results/{job_id}", s.handleGetResults)
		r.Get("/stats", s.handleGetStats)
		r.Get("/graceful_shutdown", s.handleGracefulShutdown)
	})
}

// Router returns the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run starts the HTTP server and blocks until a shutdown signal is received
// or ctx is cancelled. On the way out the HTTP server stops accepting
// requests and the dispatcher drains its queue.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      s.writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		s.logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("shutting down", "reason", ctx.Err())
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("shutdown: %w", err)
	}
	s.dispatcher.Shutdown()

	s.logger.Info("server stopped")
	return runErr
}

// loggingMiddleware logs each request using the structured logger.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
