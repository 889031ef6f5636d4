package apperror

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Descriptor is the classified form of an error: exactly one variant plus the stack
// trace recorded when the error was created.
type Descriptor struct {
	Variant Variant
	Stack   string
}

// StatusCoder is implemented by errors that carry their own HTTP status. Their Error
// text is treated as client-safe.
type StatusCoder interface {
	StatusCode() int
}

var (
	pgDuplicateKey = regexp.MustCompile(`Key \((.+?)\)=\((.*)\) already exists`)
	pgQuotedValue  = regexp.MustCompile(`"(.*)"\s*$`)
)

// Describe classifies err. When a chain matches several variants the most specific
// one wins: CastMismatch, then Duplicate, Validation, Expired and finally Generic.
func Describe(err error) Descriptor {
	d := Descriptor{Variant: classify(err)}
	if err == nil {
		return d
	}
	d.Stack = err.Error()
	if trace := StackTrace(err); trace != "" {
		d.Stack += "\n" + trace
	}
	return d
}

func classify(err error) Variant {
	if err == nil {
		return &Generic{}
	}

	var pgErr *pgconn.PgError
	isPg := errors.As(err, &pgErr)

	var cast *CastMismatch
	if errors.As(err, &cast) {
		return cast
	}
	if isPg && pgErr.Code == pgerrcode.InvalidTextRepresentation {
		return &CastMismatch{Value: quotedValue(pgErr.Message), Err: err}
	}

	var dup *Duplicate
	if errors.As(err, &dup) {
		return dup
	}
	if isPg && pgErr.Code == pgerrcode.UniqueViolation {
		field, value := duplicateKey(pgErr)
		return &Duplicate{Field: field, Value: value, Err: err}
	}
	if status.Code(err) == codes.AlreadyExists {
		return &Duplicate{Err: err}
	}

	var invalid *Validation
	if errors.As(err, &invalid) {
		return invalid
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return fromFieldErrors(fieldErrs)
	}

	var expired *Expired
	if errors.As(err, &expired) {
		return expired
	}
	if errors.Is(err, jwt.ErrTokenExpired) {
		return &Expired{Err: err}
	}

	var generic *Generic
	if errors.As(err, &generic) {
		return generic
	}
	var coder StatusCoder
	if errors.As(err, &coder) {
		return &Generic{StatusCode: coder.StatusCode(), Message: err.Error(), Err: err}
	}

	return &Generic{Err: err}
}

func fromFieldErrors(fieldErrs validator.ValidationErrors) *Validation {
	details := make([]Detail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, Detail{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return &Validation{Details: details, Err: fieldErrs}
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "uuid", "uuid4", "uuid7":
		return field + " must be a valid UUID"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed the %q rule", field, fe.Tag())
	}
}

// duplicateKey extracts the colliding column and value from a unique_violation.
// Postgres reports them in the detail as `Key (email)=(a@b.c) already exists.`.
func duplicateKey(pgErr *pgconn.PgError) (string, any) {
	if m := pgDuplicateKey.FindStringSubmatch(pgErr.Detail); m != nil {
		return m[1], m[2]
	}
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName, nil
	}
	// Default constraint names look like <table>_<column>_key.
	constraint := pgErr.ConstraintName
	if pgErr.TableName != "" && strings.HasPrefix(constraint, pgErr.TableName+"_") && strings.HasSuffix(constraint, "_key") {
		return strings.TrimSuffix(strings.TrimPrefix(constraint, pgErr.TableName+"_"), "_key"), nil
	}
	return "", nil
}

func quotedValue(message string) string {
	if m := pgQuotedValue.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	return ""
}
