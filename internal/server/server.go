// Package server exposes the capture pipeline over HTTP: the track, identify,
// and config-probe endpoints the tracking SDK talks to.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/steveyackey/posthog/internal/ingest"
)

// CaptureServer holds the handlers for the capture HTTP surface.
type CaptureServer struct {
	ingest *ingest.Service
}

// NewCaptureServer returns a CaptureServer backed by the given ingest service.
func NewCaptureServer(svc *ingest.Service) *CaptureServer {
	return &CaptureServer{ingest: svc}
}

// NewHTTPHandler returns an http.Handler with all routes registered. The
// capture routes accept any method: SDK beacons arrive as GET, POST, and
// OPTIONS and all of them must be answered.
func (s *CaptureServer) NewHTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/e", s.handleCapture)
	mux.HandleFunc("/e/{$}", s.handleCapture)
	mux.HandleFunc("/engage", s.handleEngage)
	mux.HandleFunc("/engage/{$}", s.handleEngage)
	mux.HandleFunc("/decide", s.handleDecide)
	mux.HandleFunc("/decide/{$}", s.handleDecide)
	mux.HandleFunc("GET /health", s.handleHealth)
	return RecoveryMiddleware(LoggingMiddleware(mux))
}

// handleHealth handles GET /health.
func (s *CaptureServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
