package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/acquisitions/acquisitions-api/internal/core/domain"
	"github.com/acquisitions/acquisitions-api/internal/core/ports"
)

// UserService serves account reads and owner-or-admin mutations.
type UserService struct {
	repo ports.UserRepository
	log  zerolog.Logger
}

func NewUserService(repo ports.UserRepository, log zerolog.Logger) *UserService {
	return &UserService{repo: repo, log: log}
}

func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

// Update applies patch to user id. Authorization is decided before the
// target is looked up, so a forbidden caller cannot probe which ids exist.
func (s *UserService) Update(ctx context.Context, actor domain.Actor, id int64, patch domain.UserPatch) (*domain.User, error) {
	if err := domain.AuthorizeMutation(actor, id, patch.ChangesRole()); err != nil {
		s.log.Warn().Int64("actor_id", actor.ID).Int64("target_id", id).Err(err).Msg("update rejected")
		return nil, err
	}
	if !patch.HasChanges() {
		return nil, domain.ErrNoUpdateFields
	}
	if patch.Role != nil && !patch.Role.Valid() {
		return nil, domain.Validation(domain.FieldError{Field: "role", Message: "must be one of user admin"})
	}

	if patch.Email != nil {
		existing, err := s.repo.FindByEmail(ctx, *patch.Email)
		switch {
		case err == nil && existing.ID != id:
			return nil, domain.ErrUserExists
		case err != nil && domain.KindOf(err) != domain.KindNotFound:
			return nil, err
		}
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("actor_id", actor.ID).Int64("user_id", id).Msg("user updated")
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	if err := domain.AuthorizeMutation(actor, id, false); err != nil {
		s.log.Warn().Int64("actor_id", actor.ID).Int64("target_id", id).Err(err).Msg("delete rejected")
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("actor_id", actor.ID).Int64("user_id", id).Msg("user deleted")
	return nil
}
