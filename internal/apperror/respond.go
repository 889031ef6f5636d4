package apperror

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/focusnest/auth-service/internal/logging"
)

const (
	defaultMessage      = "Internal Server Error"
	tokenExpiredMessage = "Token expired, please login again"
)

// RespondFunc writes err as the response to r. Middleware and handlers that cannot
// complete a request hand their error to a RespondFunc.
type RespondFunc func(w http.ResponseWriter, r *http.Request, err error)

// Body is the error envelope returned by FocusNest APIs.
type Body struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	// Stack is the trace string in development and an empty object otherwise.
	Stack any `json:"stack"`
}

// Resolve maps a classified error to the HTTP status and the client-facing message.
func Resolve(d Descriptor) (int, string) {
	switch v := d.Variant.(type) {
	case *Expired:
		return http.StatusUnauthorized, tokenExpiredMessage
	case *Validation:
		message := v.Message
		if len(v.Details) > 0 {
			messages := make([]string, len(v.Details))
			for i, detail := range v.Details {
				messages[i] = detail.Message
			}
			message = strings.Join(messages, ",")
		}
		if message == "" {
			message = defaultMessage
		}
		return http.StatusBadRequest, message
	case *Duplicate:
		if v.Field == "" {
			return http.StatusBadRequest, "Duplicate value entered, please choose another value"
		}
		return http.StatusBadRequest, fmt.Sprintf("Duplicate value entered for %s field, please choose another value", v.Field)
	case *CastMismatch:
		return http.StatusNotFound, fmt.Sprintf("No item found with id: %s", v.Value)
	case *Generic:
		message := v.Message
		if message == "" {
			message = defaultMessage
		}
		return v.statusOrDefault(), message
	default:
		return http.StatusInternalServerError, defaultMessage
	}
}

// Responder renders errors as JSON responses. It is safe for concurrent use.
type Responder struct {
	logger      *slog.Logger
	development bool
}

// NewResponder returns a Responder. Stack traces are only exposed to clients when
// development is true.
func NewResponder(logger *slog.Logger, development bool) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{logger: logger, development: development}
}

// Body builds the envelope for err without writing it.
func (rs *Responder) Body(err error) Body {
	body, _ := rs.build(err)
	return body
}

func (rs *Responder) build(err error) (Body, Descriptor) {
	d := Describe(err)
	status, message := Resolve(d)

	var stack any = struct{}{}
	if rs.development {
		stack = d.Stack
	}

	return Body{Success: false, Status: status, Message: message, Stack: stack}, d
}

// Respond writes err to w and logs it. It satisfies RespondFunc.
func (rs *Responder) Respond(w http.ResponseWriter, r *http.Request, err error) {
	body, d := rs.build(err)

	logger := rs.logger
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		logger = logging.WithRequestID(r.Context(), logger, reqID)
	}
	attrs := []any{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", body.Status),
		slog.String("kind", d.Variant.Kind().String()),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	if body.Status >= http.StatusInternalServerError {
		logger.Error("request failed", append(attrs, slog.String("stack", d.Stack))...)
	} else {
		logger.Info("request rejected", attrs...)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.Status)
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		logger.Warn("write error response", slog.String("error", encErr.Error()))
	}
}
