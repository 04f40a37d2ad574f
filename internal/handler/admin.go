package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dogrun-backend/internal/auth"
	"github.com/iliyamo/dogrun-backend/internal/middleware"
	"github.com/iliyamo/dogrun-backend/internal/model"
	"github.com/iliyamo/dogrun-backend/internal/service"
)

// Counter is implemented by the user, dog and post repositories.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// UserRemover is implemented by *repository.UserDeleter.
type UserRemover interface {
	DeleteUser(ctx context.Context, id string) error
}

// AdminHandler bundles the admin console endpoints.
type AdminHandler struct {
	Accounts Accounts
	Apps     Applications
	Users    Counter
	Dogs     Counter
	Posts    Counter
	Remover  UserRemover
	Audit    service.AuditSink
}

// ----- DTOs -----

type adminUserResp struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	LastName  string          `json:"last_name"`
	FirstName string          `json:"first_name"`
	Role      model.AdminRole `json:"role"`
	IsActive  bool            `json:"is_active"`
	LastLogin *time.Time      `json:"last_login,omitempty"`
}

type adminLoginResp struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresAt   time.Time     `json:"expires_at"`
	AdminUser   adminUserResp `json:"admin_user"`
}

type approveReq struct {
	AdminNotes string `json:"admin_notes" validate:"max=2000"`
}

type rejectReq struct {
	AdminNotes      string `json:"admin_notes" validate:"max=2000"`
	RejectionReason string `json:"rejection_reason" validate:"max=2000"`
}

type applicationResp struct {
	ID              string                  `json:"id"`
	UserID          *string                 `json:"user_id,omitempty"`
	Email           string                  `json:"email"`
	LastName        string                  `json:"last_name"`
	FirstName       string                  `json:"first_name"`
	PhoneNumber     string                  `json:"phone_number"`
	ZipCode         string                  `json:"zip_code"`
	Prefecture      string                  `json:"prefecture"`
	City            string                  `json:"city"`
	Address         string                  `json:"address"`
	DogName         string                  `json:"dog_name,omitempty"`
	DogBreed        string                  `json:"dog_breed,omitempty"`
	DogWeight       string                  `json:"dog_weight,omitempty"`
	DogAge          *int                    `json:"dog_age,omitempty"`
	DogGender       string                  `json:"dog_gender,omitempty"`
	DogBirthday     string                  `json:"dog_birthday,omitempty"`
	Certificate     string                  `json:"vaccine_certificate,omitempty"`
	Status          model.ApplicationStatus `json:"status"`
	StatusLabel     string                  `json:"status_label"`
	AdminNotes      *string                 `json:"admin_notes,omitempty"`
	RejectionReason *string                 `json:"rejection_reason,omitempty"`
	ApprovedBy      *string                 `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time              `json:"approved_at,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

func toAdminUserResp(a model.AdminUser) adminUserResp {
	return adminUserResp{
		ID:        a.ID,
		Email:     a.Email,
		LastName:  a.LastName,
		FirstName: a.FirstName,
		Role:      a.Role,
		IsActive:  a.IsActive,
		LastLogin: a.LastLogin,
	}
}

// toApplicationResp never exposes the snapshot password hash.
func toApplicationResp(a model.Application) applicationResp {
	r := applicationResp{
		ID:              a.ID,
		UserID:          a.UserID,
		Email:           a.Applicant.Email,
		LastName:        a.Applicant.LastName,
		FirstName:       a.Applicant.FirstName,
		PhoneNumber:     a.Applicant.PhoneNumber,
		ZipCode:         a.Applicant.ZipCode,
		Prefecture:      a.Applicant.Prefecture,
		City:            a.Applicant.City,
		Address:         a.Applicant.Address,
		DogName:         a.Dog.Name,
		DogBreed:        a.Dog.Breed,
		DogWeight:       a.Dog.Weight,
		DogAge:          a.Dog.Age,
		DogGender:       a.Dog.Gender,
		Certificate:     a.Dog.VaccineCertificate,
		Status:          a.Status,
		StatusLabel:     a.Status.Label(),
		AdminNotes:      a.AdminNotes,
		RejectionReason: a.RejectionReason,
		ApprovedBy:      a.ApprovedBy,
		ApprovedAt:      a.ApprovedAt,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if a.Dog.Birthday != nil {
		r.DogBirthday = formatDate(*a.Dog.Birthday)
	}
	return r
}

func currentAdmin(c echo.Context) (model.AdminUser, error) {
	a, ok := middleware.CurrentAdmin(c)
	if !ok {
		return model.AdminUser{}, auth.ErrUnauthenticated
	}
	return a, nil
}

// Login exchanges admin credentials for an admin token. Inactive admins
// are refused like a wrong password.
func (h *AdminHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	tok, admin, err := h.Accounts.AdminLogin(ctx, req.Email, req.Password, auditContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, adminLoginResp{
		AccessToken: tok.Raw,
		TokenType:   "bearer",
		ExpiresAt:   tok.Exp,
		AdminUser:   toAdminUserResp(admin),
	})
}

// Me returns the signed-in admin.
func (h *AdminHandler) Me(c echo.Context) error {
	a, err := currentAdmin(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAdminUserResp(a))
}

// ListApplications returns applications, filtered by ?status= when given.
func (h *AdminHandler) ListApplications(c echo.Context) error {
	status := model.ApplicationStatus(c.QueryParam("status"))
	if status != "" && !status.IsValid() {
		return badRequest("status must be one of pending, approved, rejected")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	apps, err := h.Apps.List(ctx, status)
	if err != nil {
		return err
	}
	out := make([]applicationResp, 0, len(apps))
	for _, a := range apps {
		out = append(out, toApplicationResp(a))
	}
	return c.JSON(http.StatusOK, out)
}

// GetApplication returns one application in full.
func (h *AdminHandler) GetApplication(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	app, err := h.Apps.Status(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toApplicationResp(app))
}

func (h *AdminHandler) ApplicationStats(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	stats, err := h.Apps.Stats(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Approve turns a pending application into a member account.
func (h *AdminHandler) Approve(c echo.Context) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req approveReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := h.Apps.Approve(ctx, c.Param("id"), admin, req.AdminNotes, auditContext(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: "application approved"})
}

// Reject closes a pending application without creating an account.
func (h *AdminHandler) Reject(c echo.Context) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req rejectReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := h.Apps.Reject(ctx, c.Param("id"), admin, req.AdminNotes, req.RejectionReason, auditContext(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: "application rejected"})
}

// DashboardStats aggregates facility counts.
func (h *AdminHandler) DashboardStats(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	var (
		out model.DashboardStats
		err error
	)
	if out.TotalUsers, err = h.Users.Count(ctx); err != nil {
		return err
	}
	if out.TotalDogs, err = h.Dogs.Count(ctx); err != nil {
		return err
	}
	if out.TotalPosts, err = h.Posts.Count(ctx); err != nil {
		return err
	}
	stats, err := h.Apps.Stats(ctx)
	if err != nil {
		return err
	}
	out.PendingApplications = stats.Pending
	return c.JSON(http.StatusOK, out)
}

// DeleteUser removes a member that owns no dogs, posts, comments, likes
// or entry records. Blocked deletes answer 409.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	id := c.Param("id")
	if err := h.Remover.DeleteUser(ctx, id); err != nil {
		return err
	}
	h.Audit.Record(ctx, service.NewAdminLog(admin.ID, model.ActionDeleteUser,
		model.TargetUser, id, "", auditContext(c)))
	return c.NoContent(http.StatusNoContent)
}
