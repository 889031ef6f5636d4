package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/focusnest/auth-service/internal/apperror"
)

const invalidCredentialsMessage = "Invalid email or password"

// Service orchestrates the domain operations for accounts.
type Service struct {
	repo   Repository
	clock  Clock
	ids    IDGenerator
	hasher PasswordHasher
}

// NewService constructs a Service instance with the provided collaborators.
func NewService(repo Repository, clock Clock, ids IDGenerator, hasher PasswordHasher) (*Service, error) {
	if repo == nil {
		return nil, errors.New("repo is required")
	}
	if clock == nil {
		return nil, errors.New("clock is required")
	}
	if ids == nil {
		return nil, errors.New("id generator is required")
	}
	if hasher == nil {
		return nil, errors.New("password hasher is required")
	}
	return &Service{repo: repo, clock: clock, ids: ids, hasher: hasher}, nil
}

// Register creates an account. A taken email address yields a Duplicate error on "email".
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	if err := input.Validate(); err != nil {
		return User{}, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return User{}, apperror.WithStack(fmt.Errorf("hash password: %w", err))
	}

	now := s.clock.Now().UTC()
	user := User{
		ID:           s.ids.NewID(),
		Name:         strings.TrimSpace(input.Name),
		Email:        normalizeEmail(input.Email),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return User{}, apperror.DuplicateField("email", user.Email, err)
		}
		return User{}, apperror.WithStack(fmt.Errorf("create user: %w", err))
	}

	return user, nil
}

// Authenticate checks the credentials and returns the matching account.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return User{}, apperror.Wrap(http.StatusUnauthorized, invalidCredentialsMessage, err)
	}
	if err != nil {
		return User{}, apperror.WithStack(fmt.Errorf("lookup user by email: %w", err))
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return User{}, apperror.Wrap(http.StatusUnauthorized, invalidCredentialsMessage, err)
	}
	return user, nil
}

// Get retrieves an account by ID. IDs that are not UUIDs yield a CastMismatch error.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, apperror.Cast(id, err)
	}

	user, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return User{}, apperror.Wrap(http.StatusNotFound, "User not found", err)
	}
	if err != nil {
		return User{}, apperror.WithStack(fmt.Errorf("get user %s: %w", id, err))
	}
	return user, nil
}

// Update changes the profile fields of an account.
func (s *Service) Update(ctx context.Context, input UpdateInput) (User, error) {
	if err := input.Validate(); err != nil {
		return User{}, err
	}

	user, err := s.Get(ctx, input.UserID)
	if err != nil {
		return User{}, err
	}

	user.Name = strings.TrimSpace(input.Name)
	user.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, apperror.Wrap(http.StatusNotFound, "User not found", err)
		}
		return User{}, apperror.WithStack(fmt.Errorf("update user %s: %w", user.ID, err))
	}
	return user, nil
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.Cast(id, err)
	}

	err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return apperror.Wrap(http.StatusNotFound, "User not found", err)
	}
	if err != nil {
		return apperror.WithStack(fmt.Errorf("delete user %s: %w", id, err))
	}
	return nil
}

// List returns a page of accounts ordered by creation time.
func (s *Service) List(ctx context.Context, page Pagination) ([]User, PageInfo, error) {
	users, info, err := s.repo.List(ctx, page.normalized())
	if err != nil {
		return nil, PageInfo{}, apperror.WithStack(fmt.Errorf("list users: %w", err))
	}
	return users, info, nil
}
