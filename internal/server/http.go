// Package server assembles the HTTP handler tree and owns the listener
// lifecycle.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"hattbooks/backend/internal/auth"
	authhandler "hattbooks/backend/internal/auth/handler"
	healthhandler "hattbooks/backend/internal/health/handler"
	"hattbooks/backend/internal/server/middleware"
	"hattbooks/backend/internal/telemetry"
)

// Deps holds the wired services the HTTP routes need.
type Deps struct {
	// Auth is the auth service behind /api/auth. Required.
	Auth *auth.Service
	// Authenticator guards the protected routes. Required.
	Authenticator *middleware.Authenticator
	// HealthPinger is used by /health for readiness (e.g. *sql.DB). If nil, the DB check is skipped.
	HealthPinger healthhandler.Pinger
	// Telemetry emits per-request events (Kafka producer or OTel log adapter).
	// If nil, request telemetry is disabled.
	Telemetry telemetry.EventEmitter
}

// NewHandler builds the full handler: routes wrapped in recover, logging,
// telemetry, and OTel instrumentation (outermost first: otelhttp, recover,
// logging, telemetry).
func NewHandler(deps Deps) http.Handler {
	mux := http.NewServeMux()
	authhandler.NewHTTP(deps.Auth, deps.Authenticator).Register(mux)
	healthhandler.NewServer(deps.HealthPinger).Register(mux)

	var h http.Handler = mux
	h = middleware.Telemetry(deps.Telemetry, map[string]bool{"/health": true})(h)
	h = middleware.Logging(h)
	h = middleware.Recover(h)
	return otelhttp.NewHandler(h, "hattbooks.http")
}

// Server wraps http.Server with sane timeouts and a graceful shutdown.
type Server struct {
	srv *http.Server
}

// New returns a Server listening on addr with the given handler.
func New(addr string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}}
}

// Start blocks serving requests until Shutdown is called or the listener
// fails. A clean shutdown returns nil.
func (s *Server) Start() error {
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
