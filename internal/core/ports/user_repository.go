package ports

import (
	"context"

	"github.com/acquisitions/acquisitions-api/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts.
// Lookups of a missing user return domain.ErrUserNotFound.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	// Create assigns the user's ID. A taken email returns domain.ErrUserExists.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Update(ctx context.Context, id int64, patch domain.UserPatch) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
}

// PasswordHasher is the one-way credential verifier.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) (bool, error)
}
