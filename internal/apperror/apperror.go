// Package apperror translates errors returned by request handlers into the JSON error
// envelope returned by FocusNest APIs.
//
// Handlers return one of the variants below (or any error that Describe knows how to
// classify) and the Responder renders it.
package apperror

import (
	"fmt"
	"net/http"
)

// Kind enumerates the error shapes the responder knows how to render.
type Kind int

const (
	KindGeneric Kind = iota
	KindExpired
	KindValidation
	KindDuplicate
	KindCastMismatch
)

func (k Kind) String() string {
	switch k {
	case KindExpired:
		return "expired"
	case KindValidation:
		return "validation"
	case KindDuplicate:
		return "duplicate"
	case KindCastMismatch:
		return "cast_mismatch"
	default:
		return "generic"
	}
}

// Variant is implemented only by the error types declared in this package.
type Variant interface {
	error
	Kind() Kind
	variant()
}

// Generic carries an explicit status and a client-safe message. Zero values fall back
// to 500 and "Internal Server Error", as do statuses outside 100-999.
type Generic struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *Generic) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.statusOrDefault())
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Generic) Unwrap() error { return e.Err }
func (*Generic) Kind() Kind      { return KindGeneric }
func (*Generic) variant()        {}

// statusOrDefault never returns a code that http.ResponseWriter.WriteHeader rejects.
func (e *Generic) statusOrDefault() int {
	if e.StatusCode < 100 || e.StatusCode > 999 {
		return http.StatusInternalServerError
	}
	return e.StatusCode
}

// Expired reports an authentication token past its expiry.
type Expired struct {
	Err error
}

func (e *Expired) Error() string {
	if e.Err != nil {
		return "token expired: " + e.Err.Error()
	}
	return "token expired"
}

func (e *Expired) Unwrap() error { return e.Err }
func (*Expired) Kind() Kind      { return KindExpired }
func (*Expired) variant()        {}

// Detail is a single validation problem.
type Detail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Validation reports rejected input. Details keep the order in which problems were found.
type Validation struct {
	Message string
	Details []Detail
	Err     error
}

func (e *Validation) Error() string {
	msg := "validation failed"
	if len(e.Details) > 0 {
		msg = fmt.Sprintf("validation failed: %d problem(s)", len(e.Details))
	} else if e.Message != "" {
		msg = "validation failed: " + e.Message
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Validation) Unwrap() error { return e.Err }
func (*Validation) Kind() Kind      { return KindValidation }
func (*Validation) variant()        {}

// Duplicate reports a unique constraint collision on Field. Field may be empty when the
// store does not say which field collided.
type Duplicate struct {
	Field string
	Value any
	Err   error
}

func (e *Duplicate) Error() string {
	msg := "duplicate value"
	if e.Field != "" {
		msg = fmt.Sprintf("duplicate value for %s", e.Field)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Duplicate) Unwrap() error { return e.Err }
func (*Duplicate) Kind() Kind      { return KindDuplicate }
func (*Duplicate) variant()        {}

// CastMismatch reports an identifier that could not be interpreted, such as a path
// parameter that is not a UUID.
type CastMismatch struct {
	Value string
	Err   error
}

func (e *CastMismatch) Error() string {
	msg := fmt.Sprintf("malformed id %q", e.Value)
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *CastMismatch) Unwrap() error { return e.Err }
func (*CastMismatch) Kind() Kind      { return KindCastMismatch }
func (*CastMismatch) variant()        {}

// New returns a Generic error with the given status and message and records the caller's stack.
func New(status int, message string) error {
	return withCallers(&Generic{StatusCode: status, Message: message}, 3)
}

// Wrap is New with an underlying cause.
func Wrap(status int, message string, cause error) error {
	return withCallers(&Generic{StatusCode: status, Message: message, Err: cause}, 3)
}

// TokenExpired wraps cause as an Expired error.
func TokenExpired(cause error) error {
	return withCallers(&Expired{Err: cause}, 3)
}

// Invalid returns a Validation error for the given problems.
func Invalid(details ...Detail) error {
	return withCallers(&Validation{Details: details}, 3)
}

// DuplicateField returns a Duplicate error for field.
func DuplicateField(field string, value any, cause error) error {
	return withCallers(&Duplicate{Field: field, Value: value, Err: cause}, 3)
}

// Cast returns a CastMismatch error for value.
func Cast(value string, cause error) error {
	return withCallers(&CastMismatch{Value: value, Err: cause}, 3)
}
