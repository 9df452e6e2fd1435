package services

import (
	"context"

	"github.com/samber/oops"

	"titanhub/internal/apperror"
	"titanhub/internal/models"
)

// UpdateProfile applies a partial update to the actor's own profile.
func (s *AuthService) UpdateProfile(ctx context.Context, actor *models.User, in ProfileInput) (*models.User, error) {
	if actor == nil {
		return nil, apperror.Unauthenticated()
	}
	upd := in.update()
	if err := checkInput(&in); err != nil {
		return nil, err
	}
	if len(upd.Columns()) == 0 {
		return s.GetProfile(ctx, actor, actor.ID)
	}
	u, err := s.users.UpdateUser(ctx, actor.ID, upd)
	if err != nil {
		return nil, notFound(err, "User", actor.ID)
	}
	return u.Sanitized(), nil
}

// GetProfile returns one user's profile. The email address is only shown to
// the user themself.
func (s *AuthService) GetProfile(ctx context.Context, viewer *models.User, id uint) (*models.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "User", id)
	}
	return publicProfile(viewer, u.Sanitized()), nil
}

func (s *AuthService) ListUsers(ctx context.Context, viewer *models.User) ([]models.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, oops.With("operation", "list users").Wrap(err)
	}
	for i := range users {
		users[i].Password = ""
		publicProfile(viewer, &users[i])
	}
	return users, nil
}

func publicProfile(viewer, u *models.User) *models.User {
	if viewer == nil || viewer.ID != u.ID {
		u.Email = ""
	}
	return u
}
