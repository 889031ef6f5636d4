package user

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/focusnest/auth-service/internal/apperror"
)

const (
	maxNameLength = 80
	// MaxPageSize caps the page size of listings.
	MaxPageSize = 100
	// MaxPage keeps page offsets within the int32 range accepted by Firestore.
	MaxPage = math.MaxInt32 / MaxPageSize
)

// User is an account that can sign in to FocusNest.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterInput captures the data required to create an account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Validate ensures the input fields meet the domain constraints.
func (i RegisterInput) Validate() error {
	var problems []apperror.Detail

	problems = append(problems, nameProblems(i.Name)...)
	if _, err := mail.ParseAddress(strings.TrimSpace(i.Email)); err != nil {
		problems = append(problems, apperror.Detail{Field: "email", Message: "email must be a valid email address"})
	}
	if utf8.RuneCountInString(i.Password) < 8 {
		problems = append(problems, apperror.Detail{Field: "password", Message: "password must be at least 8 characters long"})
	}
	// bcrypt ignores everything past 72 bytes.
	if len(i.Password) > 72 {
		problems = append(problems, apperror.Detail{Field: "password", Message: "password must be at most 72 bytes long"})
	}

	if len(problems) > 0 {
		return apperror.Invalid(problems...)
	}
	return nil
}

// UpdateInput captures the mutable profile fields of an account.
type UpdateInput struct {
	UserID string
	Name   string
}

// Validate ensures the input fields meet the domain constraints.
func (i UpdateInput) Validate() error {
	if problems := nameProblems(i.Name); len(problems) > 0 {
		return apperror.Invalid(problems...)
	}
	return nil
}

// nameProblems counts characters, not bytes, to agree with the request validator.
func nameProblems(raw string) []apperror.Detail {
	name := strings.TrimSpace(raw)
	if name == "" {
		return []apperror.Detail{{Field: "name", Message: "name is required"}}
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return []apperror.Detail{{Field: "name", Message: fmt.Sprintf("name must be at most %d characters long", maxNameLength)}}
	}
	return nil
}

// Pagination selects a page of a listing. Pages are 1-based.
type Pagination struct {
	Page     int
	PageSize int
}

func (p Pagination) normalized() Pagination {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	return p
}

func (p Pagination) offset() int {
	return (p.Page - 1) * p.PageSize
}

// PageInfo describes the page returned by a listing.
type PageInfo struct {
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
	HasNext    bool
}

func newPageInfo(p Pagination, total int) PageInfo {
	pages := total / p.PageSize
	if total%p.PageSize != 0 {
		pages++
	}
	if pages == 0 {
		pages = 1
	}
	return PageInfo{
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalItems: total,
		TotalPages: pages,
		HasNext:    p.offset()+p.PageSize < total,
	}
}

// Repository encapsulates persistence for accounts.
type Repository interface {
	Create(ctx context.Context, user User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Update(ctx context.Context, user User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, page Pagination) ([]User, PageInfo, error)
}

// ErrNotFound indicates the requested account does not exist.
var ErrNotFound = errors.New("user not found")

// ErrEmailTaken indicates another account already uses the email address.
var ErrEmailTaken = errors.New("email already registered")

// Clock delivers the current time; extracted for deterministic testing.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces unique identifiers for new accounts.
type IDGenerator interface {
	NewID() string
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
