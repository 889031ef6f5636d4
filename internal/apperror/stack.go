package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

const maxStackDepth = 32

// stacked attaches a formatted call stack to an error without changing its message.
type stacked struct {
	err   error
	trace string
}

func (s *stacked) Error() string { return s.err.Error() }
func (s *stacked) Unwrap() error { return s.err }

// WithStack records the caller's stack on err. Errors that already carry a stack are
// returned unchanged.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	var s *stacked
	if errors.As(err, &s) {
		return err
	}
	return withCallers(err, 3)
}

// Recovered converts a recovered panic value into a 500 error carrying the panic stack.
func Recovered(v any, stack []byte) error {
	var cause error
	if err, ok := v.(error); ok {
		cause = fmt.Errorf("panic: %w", err)
	} else {
		cause = fmt.Errorf("panic: %v", v)
	}
	return &stacked{
		err:   &Generic{StatusCode: http.StatusInternalServerError, Err: cause},
		trace: string(stack),
	}
}

// StackTrace returns the stack recorded on err, or "" if none was recorded.
func StackTrace(err error) string {
	var s *stacked
	if errors.As(err, &s) {
		return s.trace
	}
	return ""
}

func withCallers(err error, skip int) error {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip, pcs)
	return &stacked{err: err, trace: formatFrames(pcs[:n])}
}

func formatFrames(pcs []uintptr) string {
	if len(pcs) == 0 {
		return ""
	}
	var b strings.Builder
	frames := runtime.CallersFrames(pcs)
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return b.String()
}
