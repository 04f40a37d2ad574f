package repository

import (
	"context"
	"errors"

	"github.com/iliyamo/dogrun-backend/internal/auth"
	"github.com/iliyamo/dogrun-backend/internal/model"
)

// PrincipalStore adapts the user and admin repos to auth.PrincipalStore.
type PrincipalStore struct {
	Users  *UserRepo
	Admins *AdminRepo
}

func (p PrincipalStore) UserByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := p.Users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return u, auth.ErrPrincipalNotFound
	}
	return u, err
}

func (p PrincipalStore) ActiveAdminByEmail(ctx context.Context, email string) (model.AdminUser, error) {
	a, err := p.Admins.ActiveByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return a, auth.ErrPrincipalNotFound
	}
	return a, err
}
