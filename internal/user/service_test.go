package user

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/focusnest/auth-service/internal/apperror"
)

type fakeRepo struct {
	createFn     func(context.Context, User) error
	getByIDFn    func(context.Context, string) (User, error)
	getByEmailFn func(context.Context, string) (User, error)
	updateFn     func(context.Context, User) error
	deleteFn     func(context.Context, string) error
	listFn       func(context.Context, Pagination) ([]User, PageInfo, error)
}

func (f *fakeRepo) Create(ctx context.Context, user User) error {
	if f.createFn != nil {
		return f.createFn(ctx, user)
	}
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return User{}, ErrNotFound
}

func (f *fakeRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return User{}, ErrNotFound
}

func (f *fakeRepo) Update(ctx context.Context, user User) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, user)
	}
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeRepo) List(ctx context.Context, page Pagination) ([]User, PageInfo, error) {
	if f.listFn != nil {
		return f.listFn(ctx, page)
	}
	return nil, PageInfo{}, errors.New("listFn not provided")
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type sequentialIDs struct{ ids []string }

func (s *sequentialIDs) NewID() string {
	id := s.ids[0]
	s.ids = s.ids[1:]
	return id
}

// plainHasher keeps tests fast; bcrypt is covered separately.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

const (
	userID    = "0190f5a4-8f6e-7c3a-9b1d-2f4e6a8c0b12"
	otherID   = "0190f5a4-8f6e-7c3a-9b1d-2f4e6a8c0b13"
	validPass = "correct-horse"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo Repository, ids ...string) *Service {
	t.Helper()
	if len(ids) == 0 {
		ids = []string{userID}
	}
	svc, err := NewService(repo, fixedClock{now: testNow}, &sequentialIDs{ids: ids}, plainHasher{})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func resolve(err error) (int, string, apperror.Kind) {
	d := apperror.Describe(err)
	status, message := apperror.Resolve(d)
	return status, message, d.Variant.Kind()
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	if _, err := NewService(nil, fixedClock{}, &sequentialIDs{}, plainHasher{}); err == nil {
		t.Fatalf("expected error for nil repo")
	}
	if _, err := NewService(&fakeRepo{}, nil, &sequentialIDs{}, plainHasher{}); err == nil {
		t.Fatalf("expected error for nil clock")
	}
	if _, err := NewService(&fakeRepo{}, fixedClock{}, nil, plainHasher{}); err == nil {
		t.Fatalf("expected error for nil id generator")
	}
	if _, err := NewService(&fakeRepo{}, fixedClock{}, &sequentialIDs{}, nil); err == nil {
		t.Fatalf("expected error for nil hasher")
	}
}

func TestServiceRegister_NormalizesAndHashes(t *testing.T) {
	var stored User
	repo := &fakeRepo{createFn: func(_ context.Context, u User) error {
		stored = u
		return nil
	}}

	svc := newTestService(t, repo)
	user, err := svc.Register(context.Background(), RegisterInput{Name: "  Ada  ", Email: " Ada@Example.COM ", Password: validPass})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if user.ID != userID || user.Name != "Ada" || user.Email != "ada@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}
	if stored.PasswordHash != "hashed:"+validPass {
		t.Fatalf("password not hashed before storing: %q", stored.PasswordHash)
	}
	if !user.CreatedAt.Equal(testNow) || !user.UpdatedAt.Equal(testNow) {
		t.Fatalf("timestamps not taken from clock: %+v", user)
	}
}

func TestServiceRegister_DuplicateEmail(t *testing.T) {
	repo := &fakeRepo{createFn: func(context.Context, User) error { return ErrEmailTaken }}

	svc := newTestService(t, repo)
	_, err := svc.Register(context.Background(), RegisterInput{Name: "Ada", Email: "ada@example.com", Password: validPass})

	status, message, kind := resolve(err)
	if kind != apperror.KindDuplicate || status != http.StatusBadRequest {
		t.Fatalf("expected duplicate 400, got %v %d", kind, status)
	}
	if message != "Duplicate value entered for email field, please choose another value" {
		t.Fatalf("unexpected message %q", message)
	}
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected cause to be preserved")
	}
}

func TestServiceRegister_ValidationDetails(t *testing.T) {
	svc := newTestService(t, &fakeRepo{})
	_, err := svc.Register(context.Background(), RegisterInput{Email: "not-an-email", Password: "short"})

	status, message, kind := resolve(err)
	if kind != apperror.KindValidation || status != http.StatusBadRequest {
		t.Fatalf("expected validation 400, got %v %d", kind, status)
	}
	want := "name is required,email must be a valid email address,password must be at least 8 characters long"
	if message != want {
		t.Fatalf("message = %q, want %q", message, want)
	}
}

func TestServiceRegister_StoreFailureIsInternal(t *testing.T) {
	boom := errors.New("connection reset")
	repo := &fakeRepo{createFn: func(context.Context, User) error { return boom }}

	svc := newTestService(t, repo)
	_, err := svc.Register(context.Background(), RegisterInput{Name: "Ada", Email: "ada@example.com", Password: validPass})

	if !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	status, message, _ := resolve(err)
	if status != http.StatusInternalServerError || message != "Internal Server Error" {
		t.Fatalf("unexpected %d %q", status, message)
	}
	if apperror.StackTrace(err) == "" {
		t.Fatalf("expected a stack trace to be recorded")
	}
}

func TestServiceAuthenticate(t *testing.T) {
	stored := User{ID: userID, Email: "ada@example.com", PasswordHash: "hashed:" + validPass}
	repo := &fakeRepo{getByEmailFn: func(_ context.Context, email string) (User, error) {
		if email == stored.Email {
			return stored, nil
		}
		return User{}, ErrNotFound
	}}
	svc := newTestService(t, repo)

	user, err := svc.Authenticate(context.Background(), "ADA@example.com", validPass)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if user.ID != userID {
		t.Fatalf("unexpected user %+v", user)
	}

	for _, tc := range []struct{ email, password string }{
		{"ada@example.com", "wrong-password"},
		{"bob@example.com", validPass},
	} {
		_, err := svc.Authenticate(context.Background(), tc.email, tc.password)
		status, message, _ := resolve(err)
		if status != http.StatusUnauthorized || message != invalidCredentialsMessage {
			t.Fatalf("%s: expected 401 %q, got %d %q", tc.email, invalidCredentialsMessage, status, message)
		}
	}
}

func TestServiceGet(t *testing.T) {
	repo := &fakeRepo{getByIDFn: func(_ context.Context, id string) (User, error) {
		if id == userID {
			return User{ID: userID}, nil
		}
		return User{}, ErrNotFound
	}}
	svc := newTestService(t, repo)

	if _, err := svc.Get(context.Background(), userID); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	_, err := svc.Get(context.Background(), "abc123")
	status, message, kind := resolve(err)
	if kind != apperror.KindCastMismatch || status != http.StatusNotFound || message != "No item found with id: abc123" {
		t.Fatalf("unexpected malformed id result: %v %d %q", kind, status, message)
	}

	_, err = svc.Get(context.Background(), otherID)
	status, message, kind = resolve(err)
	if kind != apperror.KindGeneric || status != http.StatusNotFound || message != "User not found" {
		t.Fatalf("unexpected missing user result: %v %d %q", kind, status, message)
	}
}

func TestServiceUpdate(t *testing.T) {
	var saved User
	repo := &fakeRepo{
		getByIDFn: func(context.Context, string) (User, error) {
			return User{ID: userID, Name: "Ada", Email: "ada@example.com", CreatedAt: testNow.Add(-time.Hour)}, nil
		},
		updateFn: func(_ context.Context, u User) error {
			saved = u
			return nil
		},
	}
	svc := newTestService(t, repo)

	user, err := svc.Update(context.Background(), UpdateInput{UserID: userID, Name: " Ada Lovelace "})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if user.Name != "Ada Lovelace" || saved.Name != "Ada Lovelace" {
		t.Fatalf("name not updated: %+v", user)
	}
	if !saved.UpdatedAt.Equal(testNow) {
		t.Fatalf("updatedAt not refreshed: %v", saved.UpdatedAt)
	}

	_, err = svc.Update(context.Background(), UpdateInput{UserID: userID, Name: "   "})
	if _, message, kind := resolve(err); kind != apperror.KindValidation || message != "name is required" {
		t.Fatalf("expected validation error, got %v %q", kind, message)
	}

	accented := strings.Repeat("é", 41)
	user, err = svc.Update(context.Background(), UpdateInput{UserID: userID, Name: accented})
	if err != nil {
		t.Fatalf("41 two-byte characters should fit the 80 character limit: %v", err)
	}
	if user.Name != accented {
		t.Fatalf("unexpected name %q", user.Name)
	}

	_, err = svc.Update(context.Background(), UpdateInput{UserID: userID, Name: strings.Repeat("é", 81)})
	if _, message, kind := resolve(err); kind != apperror.KindValidation || message != "name must be at most 80 characters long" {
		t.Fatalf("expected length validation error, got %v %q", kind, message)
	}
}

func TestServiceDelete(t *testing.T) {
	repo := &fakeRepo{deleteFn: func(_ context.Context, id string) error {
		if id == userID {
			return nil
		}
		return ErrNotFound
	}}
	svc := newTestService(t, repo)

	if err := svc.Delete(context.Background(), userID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if status, _, _ := resolve(svc.Delete(context.Background(), otherID)); status != http.StatusNotFound {
		t.Fatalf("expected 404 for missing user, got %d", status)
	}
	if _, _, kind := resolve(svc.Delete(context.Background(), "nope")); kind != apperror.KindCastMismatch {
		t.Fatalf("expected cast mismatch, got %v", kind)
	}
}

func TestServiceList_NormalizesPagination(t *testing.T) {
	var got Pagination
	repo := &fakeRepo{listFn: func(_ context.Context, p Pagination) ([]User, PageInfo, error) {
		got = p
		return nil, PageInfo{}, nil
	}}
	svc := newTestService(t, repo)

	if _, _, err := svc.List(context.Background(), Pagination{Page: -1, PageSize: 500}); err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if got.Page != 1 || got.PageSize != 100 {
		t.Fatalf("pagination not normalized: %+v", got)
	}

	if _, _, err := svc.List(context.Background(), Pagination{Page: math.MaxInt, PageSize: 100}); err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if got.Page != MaxPage || got.offset() < 0 {
		t.Fatalf("page not clamped: %+v offset=%d", got, got.offset())
	}
}

func TestBcryptHasher(t *testing.T) {
	hasher := NewBcryptHasher(4)
	hash, err := hasher.Hash(validPass)
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if err := hasher.Compare(hash, validPass); err != nil {
		t.Fatalf("Compare rejected the right password: %v", err)
	}
	if err := hasher.Compare(hash, "nope"); err == nil {
		t.Fatalf("Compare accepted the wrong password")
	}
}
