// Package api provides the HTTP surface for cpxbuddy.
//
// Endpoints:
//
//	POST /api/chat                →  one dialogue turn
//	GET  /health                  →  liveness probe
//	GET  /ready                   →  readiness probe
//	GET  /api/sessions            →  list session summaries
//	DELETE /api/sessions/{email}  →  drop one session
//	POST /webhooks/pusher/deposit →  deposit webhook (Pusher-signed)
//	POST /api/notifications/auth  →  private channel authorization
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - health.go: health check endpoints
//   - chat.go: dialogue endpoint
//   - sessions.go: session management endpoints
//   - webhook.go: deposit notification endpoints
//   - response.go: JSON response helpers
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cpxbuddy/cpxbuddy/internal/log"
	"github.com/cpxbuddy/cpxbuddy/internal/notify"
	"github.com/cpxbuddy/cpxbuddy/internal/session"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:3000"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is generous because a turn may run two model passes.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the keep-alive limit between requests.
	IdleTimeout = 120 * time.Second
)

// Config holds server dependencies. Notifier may be nil; the webhook
// endpoints then answer 503.
type Config struct {
	Agent    Responder
	Sessions *session.Store
	Notifier *notify.Notifier
	Logger   log.Logger
}

func (c *Config) validate() error {
	if c.Agent == nil {
		return errors.New("api: agent is required")
	}
	if c.Sessions == nil {
		return errors.New("api: session store is required")
	}
	if c.Logger == nil {
		return errors.New("api: logger is required")
	}
	return nil
}

// Server is the HTTP server for the cpxbuddy API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health   *HealthHandler
	chat     *ChatHandler
	sessions *SessionHandler
	webhook  *WebhookHandler
}

// NewServer creates the server with all routes registered.
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	s := &Server{
		mux:      mux,
		logger:   cfg.Logger.With("component", "api"),
		health:   NewHealthHandler(cfg.Sessions, cfg.Logger),
		chat:     NewChatHandler(cfg.Agent, cfg.Logger),
		sessions: NewSessionHandler(cfg.Sessions, cfg.Logger),
		webhook:  NewWebhookHandler(cfg.Notifier, cfg.Sessions, cfg.Logger),
	}

	s.health.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)
	s.sessions.RegisterRoutes(mux)
	s.webhook.RegisterRoutes(mux)

	return s, nil
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware(s.logger), loggingMiddleware(s.logger))
}

// Run starts the server and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
