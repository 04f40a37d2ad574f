package handler

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dogrun-backend/internal/auth"
	"github.com/iliyamo/dogrun-backend/internal/model"
	"github.com/iliyamo/dogrun-backend/internal/service"
	"github.com/iliyamo/dogrun-backend/internal/storage"
)

// Accounts is implemented by *service.AccountService.
type Accounts interface {
	Login(ctx context.Context, email, password string) (auth.Token, model.User, error)
	AdminLogin(ctx context.Context, email, password string, actx service.AuditContext) (auth.Token, model.AdminUser, error)
	Register(ctx context.Context, profile model.User, password string) (model.User, error)
}

// Applications is implemented by *service.ApplicationService.
type Applications interface {
	Submit(ctx context.Context, in service.ApplicationInput) (model.Application, error)
	Status(ctx context.Context, id string) (model.Application, error)
	List(ctx context.Context, status model.ApplicationStatus) ([]model.Application, error)
	Stats(ctx context.Context) (model.ApplicationStats, error)
	Approve(ctx context.Context, id string, admin model.AdminUser, notes string, actx service.AuditContext) (model.Application, error)
	Reject(ctx context.Context, id string, admin model.AdminUser, notes, reason string, actx service.AuditContext) (model.Application, error)
}

// AuthHandler serves the unauthenticated member endpoints: registration,
// login and the membership application.
type AuthHandler struct {
	Accounts Accounts
	Apps     Applications
	Files    storage.Store
	// MaxUpload caps the size of an application request body.
	MaxUpload int64
}

func NewAuthHandler(accounts Accounts, apps Applications, files storage.Store, maxUpload int64) *AuthHandler {
	return &AuthHandler{Accounts: accounts, Apps: apps, Files: files, MaxUpload: maxUpload}
}

// ----- DTOs -----

type registerReq struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	FirstName   string `json:"first_name" validate:"required,max=100"`
	PhoneNumber string `json:"phone_number" validate:"max=20"`
	ZipCode     string `json:"zip_code" validate:"max=10"`
	Prefecture  string `json:"prefecture" validate:"max=20"`
	City        string `json:"city" validate:"max=100"`
	Address     string `json:"address" validate:"max=255"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResp struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// applyReq is the multipart form of POST /auth/apply. dog_age and
// dog_birthday are strings so that empty form values stay "absent".
type applyReq struct {
	Email       string `form:"email" validate:"required,email"`
	Password    string `form:"password" validate:"required,min=8,max=72"`
	LastName    string `form:"last_name" validate:"required,max=100"`
	FirstName   string `form:"first_name" validate:"required,max=100"`
	PhoneNumber string `form:"phone_number" validate:"required,max=20"`
	ZipCode     string `form:"zip_code" validate:"max=10"`
	Prefecture  string `form:"prefecture" validate:"max=20"`
	City        string `form:"city" validate:"max=100"`
	Address     string `form:"address" validate:"max=255"`

	DogName     string `form:"dog_name" validate:"max=100"`
	DogBreed    string `form:"dog_breed" validate:"max=100"`
	DogWeight   string `form:"dog_weight" validate:"max=20"`
	DogAge      string `form:"dog_age" validate:"omitempty,number"`
	DogGender   string `form:"dog_gender" validate:"omitempty,max=10"`
	DogBirthday string `form:"dog_birthday"`
}

type applyResp struct {
	ApplicationID string                  `json:"application_id"`
	Status        model.ApplicationStatus `json:"status"`
	CreatedAt     time.Time               `json:"created_at"`
}

type applicationStatusResp struct {
	ApplicationID   string                  `json:"application_id"`
	Status          model.ApplicationStatus `json:"status"`
	StatusLabel     string                  `json:"status_label"`
	RejectionReason *string                 `json:"rejection_reason,omitempty"`
	ApprovedAt      *time.Time              `json:"approved_at,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
}

// Register creates a member directly. A duplicate email answers 400.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Accounts.Register(ctx, model.User{
		Email:       req.Email,
		LastName:    strings.TrimSpace(req.LastName),
		FirstName:   strings.TrimSpace(req.FirstName),
		PhoneNumber: req.PhoneNumber,
		ZipCode:     req.ZipCode,
		Prefecture:  req.Prefecture,
		City:        req.City,
		Address:     req.Address,
	}, req.Password)
	if err != nil {
		return conflictAsBadRequest(err)
	}
	return c.JSON(http.StatusCreated, toUserResp(u))
}

// Login exchanges member credentials for a bearer token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	tok, _, err := h.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenResp{AccessToken: tok.Raw, TokenType: "bearer", ExpiresAt: tok.Exp})
}

// Apply accepts a membership application with an optional vaccine
// certificate upload. Duplicate emails answer 400.
func (h *AuthHandler) Apply(c echo.Context) error {
	if h.MaxUpload > 0 {
		c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, h.MaxUpload)
	}
	var req applyReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	dog := model.DogSnapshot{
		Name:   strings.TrimSpace(req.DogName),
		Breed:  req.DogBreed,
		Weight: req.DogWeight,
		Gender: req.DogGender,
	}
	if req.DogAge != "" {
		age, err := strconv.Atoi(req.DogAge)
		if err != nil || age < 0 || age > model.MaxDogAge {
			return badRequest(fmt.Sprintf("dog_age must be a number between 0 and %d", model.MaxDogAge))
		}
		dog.Age = &age
	}
	birthday, err := parseDate("dog_birthday", req.DogBirthday)
	if err != nil {
		return err
	}
	dog.Birthday = birthday

	ctx, cancel := requestContext(c)
	defer cancel()

	file, err := c.FormFile("vaccine_certificate")
	switch {
	case err == nil:
		key, err := h.saveCertificate(ctx, file)
		if err != nil {
			return err
		}
		dog.VaccineCertificate = key
	case !errors.Is(err, http.ErrMissingFile):
		return badRequest("invalid vaccine_certificate upload")
	}

	app, err := h.Apps.Submit(ctx, service.ApplicationInput{
		Applicant: model.ApplicantSnapshot{
			Email:       req.Email,
			LastName:    strings.TrimSpace(req.LastName),
			FirstName:   strings.TrimSpace(req.FirstName),
			PhoneNumber: req.PhoneNumber,
			ZipCode:     req.ZipCode,
			Prefecture:  req.Prefecture,
			City:        req.City,
			Address:     req.Address,
		},
		Password: req.Password,
		Dog:      dog,
	})
	if err != nil {
		return conflictAsBadRequest(err)
	}
	return c.JSON(http.StatusCreated, applyResp{
		ApplicationID: app.ID,
		Status:        app.Status,
		CreatedAt:     app.CreatedAt,
	})
}

func (h *AuthHandler) saveCertificate(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if h.Files == nil {
		return "", badRequest("certificate uploads are disabled")
	}
	f, err := fh.Open()
	if err != nil {
		return "", badRequest("invalid vaccine_certificate upload")
	}
	defer f.Close()
	return h.Files.Save(ctx, fh.Filename, f)
}

// ApplicationStatus is the public status view of an application.
func (h *AuthHandler) ApplicationStatus(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	app, err := h.Apps.Status(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, applicationStatusResp{
		ApplicationID:   app.ID,
		Status:          app.Status,
		StatusLabel:     app.Status.Label(),
		RejectionReason: app.RejectionReason,
		ApprovedAt:      app.ApprovedAt,
		CreatedAt:       app.CreatedAt,
	})
}
