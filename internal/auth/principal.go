package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/dogrun-backend/internal/model"
)

// ErrPrincipalNotFound is returned by a PrincipalStore when no record
// matches. Store implementations map their own not-found errors to it.
var ErrPrincipalNotFound = errors.New("principal not found")

// PrincipalStore is the read side the resolver needs. ActiveAdminByEmail
// must only return admins with is_active = true.
type PrincipalStore interface {
	UserByEmail(ctx context.Context, email string) (model.User, error)
	ActiveAdminByEmail(ctx context.Context, email string) (model.AdminUser, error)
}

// Resolver turns bearer tokens into principals. Every call hits the store;
// nothing is cached.
type Resolver struct {
	Tokens *TokenService
	Store  PrincipalStore
}

// NewResolver wires a Resolver.
func NewResolver(tokens *TokenService, store PrincipalStore) *Resolver {
	return &Resolver{Tokens: tokens, Store: store}
}

// ResolveUserPrincipal verifies raw and loads the member it names.
func (r *Resolver) ResolveUserPrincipal(ctx context.Context, raw string) (model.User, error) {
	claims, err := r.Tokens.VerifyToken(raw)
	if err != nil {
		return model.User{}, ErrUnauthenticated
	}
	u, err := r.Store.UserByEmail(ctx, NormalizeEmail(claims.Subject))
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return model.User{}, ErrUnauthenticated
		}
		return model.User{}, err
	}
	return u, nil
}

// ResolveAdminPrincipal verifies raw, requires the admin marker and loads
// the active admin it names. A member token, an unknown email and a
// deactivated admin all yield ErrUnauthenticated.
func (r *Resolver) ResolveAdminPrincipal(ctx context.Context, raw string) (model.AdminUser, error) {
	claims, err := r.Tokens.VerifyToken(raw)
	if err != nil || !claims.Admin {
		return model.AdminUser{}, ErrUnauthenticated
	}
	a, err := r.Store.ActiveAdminByEmail(ctx, NormalizeEmail(claims.Subject))
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return model.AdminUser{}, ErrUnauthenticated
		}
		return model.AdminUser{}, err
	}
	return a, nil
}

// RequireRole fails with ErrForbidden unless admin's role is at least min.
func RequireRole(admin model.AdminUser, min model.AdminRole) error {
	if !admin.Role.AtLeast(min) {
		return ErrForbidden
	}
	return nil
}

// NormalizeEmail lower-cases and trims an email before it is stored or
// compared.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
