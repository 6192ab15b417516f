// Package handler serves readiness/liveness for Kubernetes, load balancers, and CI.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger reports backing-store reachability (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server answers GET /health. A nil pinger skips the database check.
type Server struct {
	pinger Pinger
}

// NewServer returns a health handler checking the given pinger.
func NewServer(pinger Pinger) *Server {
	return &Server{pinger: pinger}
}

// Register mounts the health route on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.Handle("GET /health", http.HandlerFunc(s.healthCheck))
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	database := "skipped"
	code := http.StatusOK

	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.PingContext(ctx); err != nil {
			status = "degraded"
			database = "down"
			code = http.StatusServiceUnavailable
		} else {
			database = "up"
		}
	}

	// Plain payload, not the API envelope: probes read status and code only,
	// and a degraded check must not report success.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":   status,
		"database": database,
	})
}
