package ports

import (
	"context"

	"github.com/acquisitions/acquisitions-api/internal/core/domain"
)

// UserService exposes account reads and owner-or-admin guarded mutations.
type UserService interface {
	List(ctx context.Context) ([]*domain.User, error)
	Get(ctx context.Context, id int64) (*domain.User, error)
	Update(ctx context.Context, actor domain.Actor, id int64, patch domain.UserPatch) (*domain.User, error)
	Delete(ctx context.Context, actor domain.Actor, id int64) error
}
