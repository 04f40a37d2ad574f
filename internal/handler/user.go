package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dogrun-backend/internal/auth"
	"github.com/iliyamo/dogrun-backend/internal/middleware"
	"github.com/iliyamo/dogrun-backend/internal/model"
)

// ProfileStore is implemented by *repository.UserRepo.
type ProfileStore interface {
	UpdateProfile(ctx context.Context, u model.User) error
}

// UserHandler serves the signed-in member's own profile.
type UserHandler struct {
	Users ProfileStore
	now   func() time.Time
}

func NewUserHandler(users ProfileStore) *UserHandler {
	return &UserHandler{Users: users, now: func() time.Time { return time.Now().UTC() }}
}

type userResp struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	LastName    string    `json:"last_name"`
	FirstName   string    `json:"first_name"`
	PhoneNumber string    `json:"phone_number"`
	ZipCode     string    `json:"zip_code"`
	Prefecture  string    `json:"prefecture"`
	City        string    `json:"city"`
	Address     string    `json:"address"`
	CreatedAt   time.Time `json:"created_at"`
}

func toUserResp(u model.User) userResp {
	return userResp{
		ID:          u.ID,
		Email:       u.Email,
		LastName:    u.LastName,
		FirstName:   u.FirstName,
		PhoneNumber: u.PhoneNumber,
		ZipCode:     u.ZipCode,
		Prefecture:  u.Prefecture,
		City:        u.City,
		Address:     u.Address,
		CreatedAt:   u.CreatedAt,
	}
}

// updateProfileReq carries a partial update; nil fields are left alone.
type updateProfileReq struct {
	LastName    *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	FirstName   *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=20"`
	ZipCode     *string `json:"zip_code" validate:"omitempty,max=10"`
	Prefecture  *string `json:"prefecture" validate:"omitempty,max=20"`
	City        *string `json:"city" validate:"omitempty,max=100"`
	Address     *string `json:"address" validate:"omitempty,max=255"`
}

func currentUser(c echo.Context) (model.User, error) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return model.User{}, auth.ErrUnauthenticated
	}
	return u, nil
}

// Me returns the signed-in member.
func (h *UserHandler) Me(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// UpdateProfile applies a partial profile update. Email and password are
// not editable here.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	var req updateProfileReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	apply(&u.LastName, req.LastName)
	apply(&u.FirstName, req.FirstName)
	apply(&u.PhoneNumber, req.PhoneNumber)
	apply(&u.ZipCode, req.ZipCode)
	apply(&u.Prefecture, req.Prefecture)
	apply(&u.City, req.City)
	apply(&u.Address, req.Address)
	u.UpdatedAt = h.now()

	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Users.UpdateProfile(ctx, u); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}
