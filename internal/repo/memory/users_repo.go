package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spendtrack/spendtrack/internal/domain/user"
)

// UsersRepo mirrors the postgres repo over a map, including the email
// uniqueness guarantee. Handler and router tests run against it.
type UsersRepo struct {
	mu      sync.RWMutex
	items   map[string]user.User // keyed by id
	byEmail map[string]string    // email -> id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items:   make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[email]; ok {
		return user.User{}, user.ErrEmailTaken
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.items[u.ID] = u
	r.byEmail[u.Email] = u.ID

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return r.items[id], nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}
