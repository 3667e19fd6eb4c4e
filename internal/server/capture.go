package server

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/steveyackey/posthog/internal/ingest"
	"github.com/steveyackey/posthog/internal/model"
	"github.com/steveyackey/posthog/internal/payload"
)

// handleCapture handles the track path: decode, resolve the team, record the
// event with its element chain, and register the distinct ID.
func (s *CaptureServer) handleCapture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	env, err := payload.FromRequest(r)
	if err != nil {
		s.invalidRequest(w, r, err)
		return
	}
	if env == nil {
		// Empty beacon; acknowledge and move on.
		s.ack(w, r)
		return
	}

	properties := env.Properties("properties")
	if properties == nil {
		s.invalidRequest(w, r, errors.New("payload missing properties"))
		return
	}

	team, err := s.ingest.ResolveTeam(ctx, payload.Stringify(properties["token"]))
	if err != nil {
		s.resolveFailed(w, r, err)
		return
	}

	name := env.String("event")
	if name == "" {
		s.invalidRequest(w, r, errors.New("payload missing event name"))
		return
	}

	// Canonicalize the distinct ID and stash it back so the persisted
	// property bag always carries the string form.
	distinctID := payload.Stringify(properties["distinct_id"])
	if distinctID == "" {
		s.invalidRequest(w, r, errors.New("payload missing distinct_id"))
		return
	}
	properties["distinct_id"] = distinctID

	var elements []*model.Element
	if raw, ok := properties["$elements"].([]any); ok {
		delete(properties, "$elements")
		elements, err = payload.Elements(raw)
		if err != nil {
			s.invalidRequest(w, r, err)
			return
		}
	}

	if _, err := s.ingest.RecordEvent(ctx, team, name, properties, clientIP(r), elements); err != nil {
		s.internalError(w, r, err)
		return
	}

	if _, err := s.ingest.FindOrCreatePerson(ctx, team, distinctID, ""); err != nil {
		s.internalError(w, r, err)
		return
	}

	s.ack(w, r)
}

// handleEngage handles the identify path. A person lookup miss is tolerated:
// the beacon still gets its acknowledgment and the miss is only logged,
// because identify assumes a prior track call that may not have landed yet.
func (s *CaptureServer) handleEngage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	env, err := payload.FromRequest(r)
	if err != nil {
		s.invalidRequest(w, r, err)
		return
	}
	if env == nil {
		s.ack(w, r)
		return
	}

	team, err := s.ingest.ResolveTeam(ctx, env.String("$token"))
	if err != nil {
		s.resolveFailed(w, r, err)
		return
	}

	distinctID := env.String("$distinct_id")
	patch := env.Properties("$set")

	if _, err := s.ingest.MergeProperties(ctx, team, distinctID, patch); err != nil {
		if errors.Is(err, ingest.ErrPersonNotFound) {
			slog.Warn("identify for unknown person", "team_id", team.ID)
		} else {
			s.internalError(w, r, err)
			return
		}
	}

	s.ack(w, r)
}

// handleDecide handles the feature-configuration probe. The document is
// static; no input is inspected.
func (s *CaptureServer) handleDecide(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w, r)
	writeJSON(w, http.StatusOK, map[string]any{
		"config": map[string]any{"enable_collect_everything": true},
	})
}

// ack sends the success acknowledgment every benign beacon receives.
func (s *CaptureServer) ack(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w, r)
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("1"))
}

// invalidRequest answers a malformed payload with a generic 400. The real
// cause is logged, never echoed to the client.
func (s *CaptureServer) invalidRequest(w http.ResponseWriter, r *http.Request, err error) {
	slog.Warn("rejected capture request", "path", r.URL.Path, "error", err)
	corsHeaders(w, r)
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
}

// resolveFailed answers a team-resolution failure. An unknown token gets the
// same generic 400 as a malformed payload so callers cannot probe which
// tokens exist; store errors surface as 500.
func (s *CaptureServer) resolveFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ingest.ErrUnknownTeam) {
		s.invalidRequest(w, r, err)
		return
	}
	s.internalError(w, r, err)
}

func (s *CaptureServer) internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("capture request failed", "path", r.URL.Path, "error", err)
	corsHeaders(w, r)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

// clientIP returns the originating client address: the first hop of
// X-Forwarded-For when present, otherwise the connection's remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
