package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/focusnest/auth-service/internal/apperror"
	"github.com/focusnest/auth-service/internal/dto"
)

func newTestRouter(development bool) *chi.Mux {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	responder := apperror.NewResponder(logger, development)
	return NewRouter(Options{Service: "auth-service", Environment: "test", Respond: responder.Respond}, func(r chi.Router) {
		r.Get("/boom", func(http.ResponseWriter, *http.Request) {
			panic("kaboom")
		})
	})
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v\nbody=%q", err, rr.Body.String())
	}
	return body
}

func TestHealthz(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(false).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var health dto.HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" || health.Service != "auth-service" || health.Version != "v0.0.1" || health.Environment != "test" {
		t.Fatalf("unexpected health payload %+v", health)
	}
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(false).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["success"] != false || body["message"] != "Route /nope not found" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestMethodNotAllowedUsesErrorEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(false).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/healthz", nil))

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rr.Code)
	}
	if body := decodeBody(t, rr); body["message"] != "Method POST not allowed" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestPanicIsRenderedAsInternalError(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(false).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["message"] != "Internal Server Error" {
		t.Fatalf("unexpected message %v", body["message"])
	}
	if stack, ok := body["stack"].(map[string]any); !ok || len(stack) != 0 {
		t.Fatalf("expected empty stack object outside development, got %v", body["stack"])
	}
}

func TestPanicStackExposedInDevelopment(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(true).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

	body := decodeBody(t, rr)
	stack, ok := body["stack"].(string)
	if !ok {
		t.Fatalf("expected string stack in development, got %T", body["stack"])
	}
	if !strings.Contains(stack, "panic: kaboom") || !strings.Contains(stack, "goroutine") {
		t.Fatalf("stack missing panic details: %q", stack)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv, logger) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestTimeoutUsesErrorEnvelope(t *testing.T) {
	responder := apperror.NewResponder(slog.New(slog.NewJSONHandler(io.Discard, nil)), false)
	router := NewRouter(Options{Respond: responder.Respond, Timeout: 20 * time.Millisecond}, func(r chi.Router) {
		r.Get("/slow", func(_ http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		})
		r.Get("/answered", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
			<-r.Context().Done()
		})
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/slow", nil))
	if rr.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", rr.Code)
	}
	if body := decodeBody(t, rr); body["success"] != false || body["message"] != "Request timed out" {
		t.Fatalf("unexpected body %v", body)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/answered", nil))
	if rr.Code != http.StatusAccepted || rr.Body.Len() != 0 {
		t.Fatalf("a written response must not be replaced, got %d %q", rr.Code, rr.Body.String())
	}
}
