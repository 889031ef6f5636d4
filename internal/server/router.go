package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/focusnest/auth-service/internal/apperror"
	"github.com/focusnest/auth-service/internal/dto"
)

// Options configures NewRouter.
type Options struct {
	Service     string
	Version     string
	Environment string
	// Respond renders every error raised in the pipeline, including unknown routes and panics.
	Respond apperror.RespondFunc
	// Timeout defaults to 60s. Requests still unanswered at the deadline get a 504.
	Timeout time.Duration
}

// NewRouter returns a chi router pre-configured with default middleware and a health endpoint.
func NewRouter(opts Options, register func(r chi.Router)) *chi.Mux {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Version == "" {
		opts.Version = "v0.0.1"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(Recoverer(opts.Respond))
	r.Use(Timeout(opts.Timeout, opts.Respond))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		opts.Respond(w, req, apperror.New(http.StatusNotFound, "Route "+req.URL.Path+" not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		opts.Respond(w, req, apperror.New(http.StatusMethodNotAllowed, "Method "+req.Method+" not allowed"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, dto.HealthResponse{
			Status:      "ok",
			Service:     opts.Service,
			Version:     opts.Version,
			Environment: opts.Environment,
		})
	})

	if register != nil {
		register(r)
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
