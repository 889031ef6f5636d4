package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/focusnest/auth-service/internal/apperror"
)

// Timeout cancels the request context after timeout. When the deadline passes before the
// handler wrote a response, a 504 is rendered by respond.
func Timeout(timeout time.Duration, respond apperror.RespondFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				cancel()
				if errors.Is(ctx.Err(), context.DeadlineExceeded) && ww.Status() == 0 {
					respond(ww, r, apperror.Wrap(http.StatusGatewayTimeout, "Request timed out", ctx.Err()))
				}
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}
