package server

import (
	"net/http"
	"runtime/debug"

	"github.com/focusnest/auth-service/internal/apperror"
)

// Recoverer turns handler panics into 500 responses rendered by respond. The panic
// stack becomes the error's stack trace. http.ErrAbortHandler is re-raised.
func Recoverer(respond apperror.RespondFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				respond(w, r, apperror.Recovered(rec, debug.Stack()))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
