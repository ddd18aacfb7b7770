package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/acquisitions/acquisitions-api/internal/core/domain"
	"github.com/acquisitions/acquisitions-api/internal/core/ports"
)

// AuthService implements registration and sign-in.
type AuthService struct {
	repo   ports.UserRepository
	hasher ports.PasswordHasher
	codec  ports.CredentialCodec
	log    zerolog.Logger
	now    func() time.Time

	allowAdminSignUp bool
}

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithAdminSignUp lets public registration create admin accounts.
func WithAdminSignUp(allow bool) AuthOption {
	return func(s *AuthService) { s.allowAdminSignUp = allow }
}

func NewAuthService(repo ports.UserRepository, hasher ports.PasswordHasher, codec ports.CredentialCodec, log zerolog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		repo:   repo,
		hasher: hasher,
		codec:  codec,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignUp creates an account and issues its first credential. The caller is
// expected to have validated and normalised the input.
func (s *AuthService) SignUp(ctx context.Context, in ports.SignUpInput) (string, *domain.User, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return "", nil, domain.Validation(domain.FieldError{Field: "role", Message: "must be one of user admin"})
	}
	if role == domain.RoleAdmin && !s.allowAdminSignUp {
		return "", nil, domain.ErrAdminSignUpForbidden
	}

	if _, err := s.repo.FindByEmail(ctx, in.Email); err == nil {
		return "", nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	created, err := s.repo.Create(ctx, &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return "", nil, err
	}

	token, err := s.codec.Issue(created.Actor())
	if err != nil {
		return "", nil, fmt.Errorf("issue credential: %w", err)
	}

	s.log.Info().Int64("user_id", created.ID).Str("role", string(created.Role)).Msg("user registered")
	return token, created, nil
}

// SignIn verifies an email and password pair. An unknown email and a wrong
// password are indistinguishable to the caller.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.log.Warn().Msg("sign-in with unknown email")
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Compare(user.PasswordHash, password)
	if err != nil {
		return "", nil, fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		s.log.Warn().Int64("user_id", user.ID).Msg("sign-in with wrong password")
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.codec.Issue(user.Actor())
	if err != nil {
		return "", nil, fmt.Errorf("issue credential: %w", err)
	}

	s.log.Info().Int64("user_id", user.ID).Msg("user signed in")
	return token, user, nil
}
