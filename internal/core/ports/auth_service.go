package ports

import (
	"context"
	"time"

	"github.com/acquisitions/acquisitions-api/internal/core/domain"
)

// SignUpInput carries a validated registration request.
type SignUpInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// AuthService handles account registration and sign-in. Both return the
// credential to hand to the session carrier.
type AuthService interface {
	SignUp(ctx context.Context, in SignUpInput) (string, *domain.User, error)
	SignIn(ctx context.Context, email, password string) (string, *domain.User, error)
}

// CredentialCodec issues and verifies signed, expiring credentials.
type CredentialCodec interface {
	Issue(actor domain.Actor) (string, error)
	Verify(token string) (domain.Actor, error)
	TTL() time.Duration
}
