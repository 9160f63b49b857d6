// Package web serves the admin JSON API over plain net/http: health checks,
// collector statistics, chat listings, message history, the dashboard, and
// on-demand digest generation.
package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/edgard/groupscope/internal/config"
	"github.com/edgard/groupscope/internal/database"
	"github.com/edgard/groupscope/internal/digest"
)

const shutdownTimeout = 10 * time.Second

// DigestGenerator is the digest-pipeline surface the API exposes.
type DigestGenerator interface {
	Generate(ctx context.Context, chatID int64) (*digest.Result, error)
	WeeklyActivity(ctx context.Context, chatID int64) (*digest.Activity, error)
}

// Server is the admin API HTTP server.
type Server struct {
	logger  *slog.Logger
	cfg     config.ServerConfig
	store   database.Store
	digests DigestGenerator
	httpSrv *http.Server
}

// NewServer creates the admin API server with all routes registered.
func NewServer(logger *slog.Logger, cfg config.ServerConfig, store database.Store, digests DigestGenerator) *Server {
	s := &Server{
		logger:  logger.With("component", "web"),
		cfg:     cfg,
		store:   store,
		digests: digests,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /api/stats", s.requireAuth(http.HandlerFunc(s.handleStats)))
	mux.Handle("GET /api/chats", s.requireAuth(http.HandlerFunc(s.handleChats)))
	mux.Handle("GET /api/chats/{chat_id}/messages", s.requireAuth(http.HandlerFunc(s.handleChatMessages)))
	mux.Handle("GET /api/chats/{chat_id}/activity", s.requireAuth(http.HandlerFunc(s.handleChatActivity)))
	mux.Handle("GET /api/dashboard", s.requireAuth(http.HandlerFunc(s.handleDashboard)))
	mux.Handle("POST /api/chats/{chat_id}/digest", s.requireAuth(http.HandlerFunc(s.handleChatDigest)))

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler exposes the server's HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("Admin API listening", "addr", s.cfg.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Error shutting down admin API server", "error", err)
		return err
	}

	s.logger.Info("Admin API server stopped.")
	return <-errCh
}

// requireAuth enforces basic auth when credentials are configured. Without
// configured credentials every request passes, matching a deployment behind
// a trusted proxy.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.HasAuth() {
			next.ServeHTTP(w, r)
			return
		}

		username, password, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.AdminUsername)) != 1 ||
			subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.AdminPassword)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="Admin Panel"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
