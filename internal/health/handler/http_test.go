package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

func doHealth(t *testing.T, srv *Server) (int, map[string]string) {
	t.Helper()
	mux := http.NewServeMux()
	srv.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return rec.Code, body
}

func TestHealthCheckNilPinger(t *testing.T) {
	code, body := doHealth(t, NewServer(nil))
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body["status"] != "ok" || body["database"] != "skipped" {
		t.Fatalf("body = %v", body)
	}
}

func TestHealthCheckPingerSuccess(t *testing.T) {
	code, body := doHealth(t, NewServer(&mockPinger{}))
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body["status"] != "ok" || body["database"] != "up" {
		t.Fatalf("body = %v", body)
	}
}

func TestHealthCheckPingerFailure(t *testing.T) {
	code, body := doHealth(t, NewServer(&mockPinger{pingErr: errors.New("connection refused")}))
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
	if body["status"] != "degraded" || body["database"] != "down" {
		t.Fatalf("body = %v", body)
	}
	// The degraded response must not carry the success envelope.
	if _, ok := body["success"]; ok {
		t.Fatal("health payload must not use the API envelope")
	}
}
