// Package api exposes the question pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"docqa/internal/index"
	"docqa/internal/query"
)

// Asker answers one question.
type Asker interface {
	Ask(ctx context.Context, question string) (query.Answer, error)
}

// StatsSource reports what is indexed.
type StatsSource interface {
	Stats() index.Stats
}

// Server is the HTTP server for the question API.
type Server struct {
	asker  Asker
	stats  StatsSource
	addr   string
	logger *zap.Logger
	server *http.Server
}

func NewServer(asker Asker, stats StatsSource, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{asker: asker, stats: stats, addr: addr, logger: logger}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Post("/api/ask", s.handleAsk)
	r.Get("/api/stats", s.handleStats)
	r.Get("/health", s.handleHealth)
	return r
}

// Start serves until Stop is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("addr", s.addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server. A Start that runs after Stop
// returns http.ErrServerClosed immediately.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("took", time.Since(start)))
	})
}
