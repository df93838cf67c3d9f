// Package server exposes the screening service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/abhisek/sldscreen/internal/assessment"
	"github.com/abhisek/sldscreen/internal/identity"
	"github.com/abhisek/sldscreen/internal/profiles"
)

// Config configures the HTTP listener.
type Config struct {
	Addr        string   `toml:"addr"`
	CORSOrigins []string `toml:"cors_origins"`

	ReadHeaderTimeout time.Duration `toml:"read_header_timeout"`
	ReadTimeout       time.Duration `toml:"read_timeout"`
	WriteTimeout      time.Duration `toml:"write_timeout"`
	IdleTimeout       time.Duration `toml:"idle_timeout"`
	ShutdownTimeout   time.Duration `toml:"shutdown_timeout"`
}

// DefaultConfig listens on :5000 and allows any origin. WriteTimeout leaves
// room for a recommendation call during analysis.
func DefaultConfig() Config {
	return Config{
		Addr:              ":5000",
		CORSOrigins:       []string{"*"},
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ShutdownTimeout:   15 * time.Second,
	}
}

// Deps groups the services behind the routes.
type Deps struct {
	Identity    identity.Service
	Profiles    *profiles.Service
	Assessments *assessment.Service
	Logger      *zap.Logger
}

// Server routes API requests to the profile and assessment services.
type Server struct {
	cfg         Config
	ids         identity.Service
	profiles    *profiles.Service
	assessments *assessment.Service
	logger      *zap.Logger
	now         func() time.Time

	mux     *http.ServeMux
	handler http.Handler
}

// New builds a Server and its middleware chain.
func New(cfg Config, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	s := &Server{
		cfg:         cfg,
		ids:         d.Identity,
		profiles:    d.Profiles,
		assessments: d.Assessments,
		logger:      d.Logger.Named("http"),
		now:         time.Now,
		mux:         http.NewServeMux(),
	}
	s.routes()

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	s.handler = s.logRequests(s.recoverPanics(c.Handler(s.mux)))
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)

	s.mux.HandleFunc("POST /api/children", s.authenticated(s.handleAddChild))
	s.mux.HandleFunc("GET /api/children", s.authenticated(s.handleListChildren))

	s.mux.HandleFunc("POST /api/assessment/create", s.authenticated(s.handleCreateAssessment))
	s.mux.HandleFunc("POST /api/assessment/{id}/submit", s.authenticated(s.handleSubmit))
	s.mux.HandleFunc("POST /api/assessment/{id}/analyze", s.authenticated(s.handleAnalyze))
	s.mux.HandleFunc("GET /api/assessment/{id}", s.authenticated(s.handleGetAssessment))
	s.mux.HandleFunc("GET /api/assessments/child/{childId}", s.authenticated(s.handleChildAssessments))
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully within cfg.ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// ListenAndServe listens on cfg.Addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}
