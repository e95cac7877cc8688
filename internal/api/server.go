// Package api exposes a small read-only ops HTTP surface: liveness, catalog
// statistics and scheduler state.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskbot/shadbot/internal/database"
)

const shutdownTimeout = 10 * time.Second

// JobLister reports the next run time of each scheduled job.
type JobLister interface {
	Jobs() map[string]time.Time
}

// Server is the ops HTTP server.
type Server struct {
	handler *Handler
	engine  *gin.Engine
	srv     *http.Server
	logger  *slog.Logger
}

// NewServer builds the gin engine and routes. jobs may be nil.
func NewServer(addr string, store database.Store, jobs JobLister, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "http_api")

	h := &Handler{store: store, jobs: jobs, logger: log, started: time.Now()}

	r := gin.New()
	r.Use(requestLogger(log))
	r.Use(gin.Recovery())
	setupRoutes(r, h)

	return &Server{
		handler: h,
		engine:  r,
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: log,
	}
}

func setupRoutes(r *gin.Engine, h *Handler) {
	r.GET("/health", h.HealthCheck)
	r.GET("/stats", h.GetStats)
	r.GET("/", h.Index)
}

// requestLogger logs each request through slog instead of gin's writer.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.DebugContext(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"client_ip", c.ClientIP(),
			"duration", time.Since(start))
	}
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown failed", "error", err)
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
