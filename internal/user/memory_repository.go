package user

import (
	"context"
	"sort"
	"sync"
)

// memoryRepository implements Repository using in-memory storage
type memoryRepository struct {
	mu      sync.RWMutex
	users   map[string]User
	byEmail map[string]string
}

// NewMemoryRepository creates a new in-memory repository
func NewMemoryRepository() Repository {
	return &memoryRepository{
		users:   make(map[string]User),
		byEmail: make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return ErrEmailTaken
	}
	if _, exists := r.users[user.ID]; exists {
		return ErrEmailTaken
	}

	r.users[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *memoryRepository) GetByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byEmail[email]
	if !exists {
		return User{}, ErrNotFound
	}
	return r.users[id], nil
}

func (r *memoryRepository) Update(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.users[user.ID]
	if !exists {
		return ErrNotFound
	}

	// Email is the uniqueness key and is not editable.
	user.Email = existing.Email
	r.users[user.ID] = user
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[id]
	if !exists {
		return ErrNotFound
	}

	delete(r.users, id)
	delete(r.byEmail, user.Email)
	return nil
}

func (r *memoryRepository) List(_ context.Context, page Pagination) ([]User, PageInfo, error) {
	page = page.normalized()

	r.mu.RLock()
	all := make([]User, 0, len(r.users))
	for _, user := range r.users {
		all = append(all, user)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	start := page.offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + page.PageSize
	if end > len(all) {
		end = len(all)
	}

	return all[start:end], newPageInfo(page, len(all)), nil
}
