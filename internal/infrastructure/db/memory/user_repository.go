// Package memory is a process-local user store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/acquisitions/acquisitions-api/internal/core/domain"
)

// UserRepository keeps users in a map guarded by a RWMutex. Emails are
// unique. Returned users are copies.
type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*domain.User
	now    func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID: make(map[int64]*domain.User),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u := r.emailOwner(email); u != nil {
		return clone(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

func (r *UserRepository) List(_ context.Context) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailOwner(user.Email) != nil {
		return nil, domain.ErrUserExists
	}
	r.nextID++
	u := clone(user)
	u.ID = r.nextID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now()
		u.UpdatedAt = u.CreatedAt
	}
	r.byID[u.ID] = u
	return clone(u), nil
}

func (r *UserRepository) Update(_ context.Context, id int64, patch domain.UserPatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if patch.Email != nil {
		if owner := r.emailOwner(*patch.Email); owner != nil && owner.ID != id {
			return nil, domain.ErrUserExists
		}
		u.Email = *patch.Email
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	u.UpdatedAt = r.now()
	return clone(u), nil
}

func (r *UserRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byID, id)
	return nil
}

// emailOwner must be called with mu held.
func (r *UserRepository) emailOwner(email string) *domain.User {
	for _, u := range r.byID {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func clone(u *domain.User) *domain.User {
	c := *u
	return &c
}
