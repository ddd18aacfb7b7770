package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acquisitions/acquisitions-api/internal/core/domain"
)

func TestUserRepository_CRUD(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	a, err := repo.Create(ctx, &domain.User{Name: "A", Email: "a@example.com", Role: domain.RoleUser})
	require.NoError(t, err)
	b, err := repo.Create(ctx, &domain.User{Name: "B", Email: "b@example.com", Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.False(t, a.CreatedAt.IsZero())

	_, err = repo.Create(ctx, &domain.User{Email: "a@example.com"})
	assert.ErrorIs(t, err, domain.ErrUserExists)

	got, err := repo.FindByEmail(ctx, "b@example.com")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	name := "Renamed"
	updated, err := repo.Update(ctx, a.ID, domain.UserPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	taken := "b@example.com"
	_, err = repo.Update(ctx, a.ID, domain.UserPatch{Email: &taken})
	assert.ErrorIs(t, err, domain.ErrUserExists)

	require.NoError(t, repo.Delete(ctx, a.ID))
	_, err = repo.FindByID(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, a.ID), domain.ErrUserNotFound)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, b.ID, users[0].ID)
}

func TestUserRepository_ReturnsCopies(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	created, err := repo.Create(ctx, &domain.User{Name: "A", Email: "a@example.com", Role: domain.RoleUser})
	require.NoError(t, err)

	created.Role = domain.RoleAdmin
	stored, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, stored.Role)
}

func TestUserRepository_ConcurrentCreateUniqueEmail(t *testing.T) {
	repo := NewUserRepository()
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Create(context.Background(), &domain.User{Email: "race@example.com"}); err == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, won)
}
