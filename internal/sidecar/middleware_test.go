package sidecar

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func newMiddlewareServer(t *testing.T) *Server {
	t.Helper()

	// Use a discard handler so middleware logging does not pollute test output.
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	return &Server{
		logger: logger,
	}
}

// --- Recoverer Tests ---

func TestRecoverer_NoPanic(t *testing.T) {
	srv := newMiddlewareServer(t)

	handler := srv.recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != `{"ok":true}` {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestRecoverer_Panic_ReturnsJSON500(t *testing.T) {
	srv := newMiddlewareServer(t)

	handler := srv.recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("something went wrong")
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if resp.Error.Code != "internal" {
		t.Errorf("expected error code %q, got %q", "internal", resp.Error.Code)
	}
	if resp.Error.Message != "an unexpected error occurred" {
		t.Errorf("unexpected error message: %q", resp.Error.Message)
	}
}

func TestRecoverer_Panic_PreservesRequestID(t *testing.T) {
	srv := newMiddlewareServer(t)

	handler := srv.recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("crash!")
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), requestIDKey, "req_abc123")
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if resp.Error.RequestID != "req_abc123" {
		t.Errorf("expected request_id %q, got %q", "req_abc123", resp.Error.RequestID)
	}
}

func TestRecoverer_LogsStackTrace(t *testing.T) {
	buf := &strings.Builder{}
	srv := &Server{
		logger: slog.New(slog.NewJSONHandler(buf, nil)),
	}

	handler := srv.recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/params", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	logOutput := buf.String()
	if !strings.Contains(logOutput, "panic recovered") {
		t.Errorf("log should contain 'panic recovered', got: %s", logOutput)
	}
	if !strings.Contains(logOutput, "boom") {
		t.Errorf("log should contain the panic value, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, "stack") {
		t.Errorf("log should contain a stack trace, got: %s", logOutput)
	}
}

// --- Request ID Tests ---

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestID(r.Context()) == "" {
			t.Error("request ID should be set in the handler context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	id := rec.Header().Get("X-Request-Id")
	if id == "" {
		t.Fatal("expected X-Request-Id response header")
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("generated request ID %q is not a UUID: %v", id, err)
	}
}

func TestRequestIDMiddleware_PropagatesClientID(t *testing.T) {
	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-Id", "client-supplied-id")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if seen != "client-supplied-id" {
		t.Errorf("handler saw request ID %q, want %q", seen, "client-supplied-id")
	}
	if got := rec.Header().Get("X-Request-Id"); got != "client-supplied-id" {
		t.Errorf("response header = %q, want %q", got, "client-supplied-id")
	}
}

// --- Request Logger Tests ---

func TestRequestLogger_LogsRequestMetadata(t *testing.T) {
	buf := &strings.Builder{}
	srv := &Server{
		logger: slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo})),
	}

	handler := srv.requestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/params", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	logOutput := buf.String()
	if logOutput == "" {
		t.Fatal("expected log output, got empty string")
	}
	if !strings.Contains(logOutput, "request handled") {
		t.Errorf("log should contain 'request handled', got: %s", logOutput)
	}
	if !strings.Contains(logOutput, "GET") {
		t.Errorf("log should contain method GET, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, "/v1/params") {
		t.Errorf("log should contain path, got: %s", logOutput)
	}
}

func TestRequestLogger_CapturesHandlerStatus(t *testing.T) {
	buf := &strings.Builder{}
	srv := &Server{
		logger: slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo})),
	}

	handler := srv.requestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/params/unknown", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if !strings.Contains(buf.String(), "404") {
		t.Errorf("log should contain status 404, got: %s", buf.String())
	}
}

func TestRequestLogger_NeverLogsResponseBody(t *testing.T) {
	buf := &strings.Builder{}
	srv := &Server{
		logger: slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo})),
	}

	handler := srv.requestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Simulates serving a parameter value.
		_, _ = w.Write([]byte("super-secret-parameter-value"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/params/app/secret", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if strings.Contains(buf.String(), "super-secret-parameter-value") {
		t.Error("parameter value leaked into the request log")
	}
	// Implicit Write without WriteHeader still logs as 200.
	if !strings.Contains(buf.String(), "200") {
		t.Errorf("log should contain status 200, got: %s", buf.String())
	}
}
