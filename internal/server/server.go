// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/clausescan/internal/logging"
	"github.com/ppiankov/clausescan/internal/metrics"
	"github.com/ppiankov/clausescan/internal/model"
)

// Server is the upload and preview HTTP server
type Server struct {
	srv    *http.Server
	router *gin.Engine
	logger logging.Logger
}

// NewServer builds the router and the underlying http.Server
func NewServer(cfg model.ServerConfig, h *Handler, collector *metrics.Collector, logger logging.Logger) *Server {
	router := NewRouter(h, collector, logger)

	return &Server{
		router: router,
		logger: logger,
		srv: &http.Server{
			Addr:         cfg.Addr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// NewRouter wires middleware and routes. collector may be nil.
func NewRouter(h *Handler, collector *metrics.Collector, logger logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))
	if collector != nil {
		r.Use(observeRequests(collector))
		r.GET("/metrics", gin.WrapH(collector.Handler()))
	}

	r.GET("/healthz", h.Health)

	api := r.Group("/api/v1")
	api.GET("/clauses", h.Clauses)
	api.POST("/analyze", h.Analyze)
	api.GET("/analyses/:id", h.GetAnalysis)
	api.GET("/analyses/:id/preview", h.Preview)
	api.GET("/analyses/:id/download", h.Download)

	return r
}

// Start listens until Stop is called
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", logging.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}
