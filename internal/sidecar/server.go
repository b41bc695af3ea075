package sidecar

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Server serves the cached parameter view over HTTP. It is meant to listen
// on loopback next to the application; responses carry plaintext values, so
// exposing it beyond the host boundary is the deployment's responsibility.
type Server struct {
	cache     *Cache
	refresher *Refresher
	logger    *slog.Logger

	router *chi.Mux
}

// NewServer wires the HTTP surface. The caller mounts routes afterwards via
// MountRoutes; this separation lets tests customize registration.
func NewServer(cache *Cache, refresher *Refresher, logger *slog.Logger) (*Server, error) {
	if cache == nil {
		return nil, fmt.Errorf("cache must not be nil")
	}
	if refresher == nil {
		return nil, fmt.Errorf("refresher must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		cache:     cache,
		refresher: refresher,
		logger:    logger,
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// MountRoutes registers the middleware chain and all routes.
func (s *Server) MountRoutes() {
	// Order matters: the recoverer is outermost so panics in the logger or
	// handlers are still caught.
	s.router.Use(s.recoverer)
	s.router.Use(requestIDMiddleware)
	s.router.Use(s.requestLogger)

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/params", s.handleListParams)
		r.Get("/params/*", s.handleGetParam)
		r.Post("/refresh", s.handleRefresh)
	})

	s.router.Get("/health", s.handleHealth)
}

type healthResponse struct {
	Status      string    `json:"status"`
	Parameters  int       `json:"parameters"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// handleHealth reports readiness. Before the first successful refresh the
// sidecar has nothing to serve and reports 503 so orchestrators hold
// traffic.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	refreshedAt := s.cache.RefreshedAt()
	if refreshedAt.IsZero() {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status: "starting",
		})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Parameters:  s.cache.Len(),
		RefreshedAt: refreshedAt,
	})
}

type listResponse struct {
	Parameters []string `json:"parameters"`
}

// handleListParams returns the cached parameter names. Values are not
// included; they are served one at a time.
func (s *Server) handleListParams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listResponse{
		Parameters: s.cache.Names(),
	})
}

// handleGetParam serves one parameter value as plaintext. Parameter names
// contain slashes, so the route uses a catch-all; "/v1/params/app/db/url"
// resolves the name "/app/db/url" (with a fallback to the bare wildcard for
// stores that allow names without a leading slash).
func (s *Server) handleGetParam(w http.ResponseWriter, r *http.Request) {
	wildcard := chi.URLParam(r, "*")
	if wildcard == "" {
		writeError(w, r, http.StatusNotFound, "not_found", "no parameter name given")
		return
	}

	value, ok := s.cache.Value("/" + wildcard)
	if !ok {
		value, ok = s.cache.Value(wildcard)
	}
	if !ok {
		writeError(w, r, http.StatusNotFound, "not_found", fmt.Sprintf("parameter %q is not in the manifest cache", "/"+wildcard))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(value))
}

type refreshResponse struct {
	Status     string `json:"status"`
	Parameters int    `json:"parameters"`
}

// handleRefresh triggers an immediate refresh cycle, for deploy hooks that
// rotated a parameter and do not want to wait out the interval.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.refresher.Refresh(r.Context()); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "refresh_failed", "refresh failed; previous values remain served")
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{
		Status:     "refreshed",
		Parameters: s.cache.Len(),
	})
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Best-effort write; if encoding fails there is nothing more to do.
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error: errorDetail{
			Code:      code,
			Message:   message,
			RequestID: requestID(r.Context()),
		},
	})
}
