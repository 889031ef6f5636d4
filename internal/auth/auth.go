package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/focusnest/auth-service/internal/apperror"
)

// Mode represents the authentication strategy to apply for incoming requests.
type Mode string

const (
	// ModeLocal verifies HS256 tokens minted by this service at login.
	ModeLocal Mode = "local"
	// ModeClerk enables Clerk JWT verification using a JWKS endpoint.
	ModeClerk Mode = "clerk"
	// ModeNoop disables signature verification and treats the bearer token as the user ID (useful for local development and tests).
	ModeNoop Mode = "noop"
)

// Config captures the inputs required to initialize an authenticator.
type Config struct {
	Mode     Mode
	Secret   string
	Issuer   string
	TokenTTL time.Duration
	JWKSURL  string
	Audience string
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// AuthenticatedUser represents the currently authenticated subject extracted from the bearer token.
type AuthenticatedUser struct {
	UserID    string
	SessionID string
	ExpiresAt int64
	Token     string
}

// Token is a signed bearer token.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Verifier verifies a bearer token and returns the associated user context.
type Verifier interface {
	Verify(ctx context.Context, token string) (AuthenticatedUser, error)
}

// TokenIssuer mints bearer tokens for a user.
type TokenIssuer interface {
	Issue(userID string) (Token, error)
}

var (
	errMissingAuthHeader = errors.New("authorization header missing")
	errInvalidAuthHeader = errors.New("authorization header is malformed")
	errMissingSubject    = errors.New("token missing subject claim")
)

type ctxKey string

const userCtxKey ctxKey = "focusnest:user"

// Middleware enforces authentication for the wrapped handler using the provided verifier.
// Failures are handed to respond; an expired token surfaces as an Expired error.
func Middleware(verifier Verifier, respond apperror.RespondFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				next.ServeHTTP(w, r)
				return
			}

			token, err := tokenFromRequest(r)
			if err != nil {
				respond(w, r, apperror.Wrap(http.StatusUnauthorized, "Not authorized, no token provided", err))
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				respond(w, r, apperror.Wrap(http.StatusUnauthorized, "Not authorized, token failed", err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims)))
		})
	}
}

func tokenFromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingAuthHeader
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errInvalidAuthHeader
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errInvalidAuthHeader
	}

	return token, nil
}

// WithUser stores user on ctx.
func WithUser(ctx context.Context, user AuthenticatedUser) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// UserFromContext extracts the authenticated user from the request context.
func UserFromContext(ctx context.Context) (AuthenticatedUser, bool) {
	value, ok := ctx.Value(userCtxKey).(AuthenticatedUser)
	return value, ok
}

// New constructs the Verifier matching cfg.Mode. The TokenIssuer is nil when tokens
// are minted by an external identity provider.
func New(cfg Config) (Verifier, TokenIssuer, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	switch cfg.Mode {
	case ModeLocal:
		issuer, err := NewIssuer(cfg.Secret, cfg.Issuer, cfg.TokenTTL, cfg.Now)
		if err != nil {
			return nil, nil, err
		}
		return issuer, issuer, nil
	case ModeClerk:
		verifier, err := newClerkVerifier(cfg)
		if err != nil {
			return nil, nil, err
		}
		return verifier, nil, nil
	case ModeNoop:
		v := newNoopVerifier(cfg)
		return v, v, nil
	default:
		return nil, nil, fmt.Errorf("unsupported auth mode: %s", cfg.Mode)
	}
}
