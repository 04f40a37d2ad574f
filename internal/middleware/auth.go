package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dogrun-backend/internal/auth"
	"github.com/iliyamo/dogrun-backend/internal/model"
)

// Context keys under which the resolved principals are stored.
const (
	userKey  = "principal_user"
	adminKey = "principal_admin"
)

// PrincipalResolver is implemented by *auth.Resolver.
type PrincipalResolver interface {
	ResolveUserPrincipal(ctx context.Context, raw string) (model.User, error)
	ResolveAdminPrincipal(ctx context.Context, raw string) (model.AdminUser, error)
}

// UserAuth requires a valid member bearer token and stores the member in
// the context. Failures surface as auth.ErrUnauthenticated.
func UserAuth(r PrincipalResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return auth.ErrUnauthenticated
			}
			u, err := r.ResolveUserPrincipal(c.Request().Context(), raw)
			if err != nil {
				return err
			}
			SetCurrentUser(c, u)
			return next(c)
		}
	}
}

// AdminAuth requires a valid admin bearer token (type=admin) naming an
// active admin and stores the admin in the context.
func AdminAuth(r PrincipalResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return auth.ErrUnauthenticated
			}
			a, err := r.ResolveAdminPrincipal(c.Request().Context(), raw)
			if err != nil {
				return err
			}
			SetCurrentAdmin(c, a)
			return next(c)
		}
	}
}

// RequireAdminRole enforces the role ordering on top of AdminAuth. It
// must be registered after AdminAuth.
func RequireAdminRole(min model.AdminRole) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, ok := CurrentAdmin(c)
			if !ok {
				return auth.ErrUnauthenticated
			}
			if err := auth.RequireRole(a, min); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// SetCurrentUser attaches u as the request's member.
func SetCurrentUser(c echo.Context, u model.User) { c.Set(userKey, u) }

// SetCurrentAdmin attaches a as the request's admin.
func SetCurrentAdmin(c echo.Context, a model.AdminUser) { c.Set(adminKey, a) }

// CurrentUser returns the member attached by UserAuth.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userKey).(model.User)
	return u, ok
}

// CurrentAdmin returns the admin attached by AdminAuth.
func CurrentAdmin(c echo.Context) (model.AdminUser, bool) {
	a, ok := c.Get(adminKey).(model.AdminUser)
	return a, ok
}

func bearerToken(c echo.Context) (string, bool) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(h[len(prefix):])
	return raw, raw != ""
}
