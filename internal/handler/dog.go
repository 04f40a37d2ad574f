package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dogrun-backend/internal/model"
)

// DogStore is implemented by *repository.DogRepo.
type DogStore interface {
	Create(ctx context.Context, d *model.Dog) error
	ListByOwner(ctx context.Context, ownerID string) ([]model.Dog, error)
	GetForOwner(ctx context.Context, id, ownerID string) (model.Dog, error)
	Update(ctx context.Context, d model.Dog) error
	Delete(ctx context.Context, id, ownerID string) error
}

// DogHandler manages the signed-in member's dogs. Every lookup is scoped
// to the owner, so another member's dog is reported as not found.
type DogHandler struct {
	Dogs DogStore
	now  func() time.Time
}

func NewDogHandler(dogs DogStore) *DogHandler {
	return &DogHandler{Dogs: dogs, now: func() time.Time { return time.Now().UTC() }}
}

type dogReq struct {
	Name        string `json:"name" validate:"required,max=100"`
	Breed       string `json:"breed" validate:"max=100"`
	Weight      string `json:"weight" validate:"max=20"`
	Gender      string `json:"gender" validate:"max=10"`
	BirthdayAt  string `json:"birthday_at"`
	Personality string `json:"personality" validate:"max=2000"`
}

type dogUpdateReq struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Breed       *string `json:"breed" validate:"omitempty,max=100"`
	Weight      *string `json:"weight" validate:"omitempty,max=20"`
	Gender      *string `json:"gender" validate:"omitempty,max=10"`
	BirthdayAt  *string `json:"birthday_at"`
	Personality *string `json:"personality" validate:"omitempty,max=2000"`
}

type dogResp struct {
	ID                 string    `json:"id"`
	OwnerID            string    `json:"owner_id"`
	Name               string    `json:"name"`
	Breed              string    `json:"breed"`
	Weight             string    `json:"weight"`
	Gender             string    `json:"gender"`
	BirthdayAt         string    `json:"birthday_at"`
	Personality        string    `json:"personality"`
	VaccineCertificate string    `json:"vaccine_certificate,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toDogResp(d model.Dog) dogResp {
	return dogResp{
		ID:                 d.ID,
		OwnerID:            d.OwnerID,
		Name:               d.Name,
		Breed:              d.Breed,
		Weight:             d.Weight,
		Gender:             d.Gender,
		BirthdayAt:         formatDate(d.BirthdayAt),
		Personality:        d.Personality,
		VaccineCertificate: d.VaccineCertificate,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

// List returns the member's dogs.
func (h *DogHandler) List(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	dogs, err := h.Dogs.ListByOwner(ctx, u.ID)
	if err != nil {
		return err
	}
	out := make([]dogResp, 0, len(dogs))
	for _, d := range dogs {
		out = append(out, toDogResp(d))
	}
	return c.JSON(http.StatusOK, out)
}

// Create registers a dog for the member. Without birthday_at the dog gets
// the placeholder birthday.
func (h *DogHandler) Create(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dogReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	birthday, err := parseDate("birthday_at", req.BirthdayAt)
	if err != nil {
		return err
	}

	now := h.now()
	d := model.Dog{
		ID:          uuid.NewString(),
		OwnerID:     u.ID,
		Name:        strings.TrimSpace(req.Name),
		Breed:       req.Breed,
		Weight:      req.Weight,
		Gender:      req.Gender,
		BirthdayAt:  model.PlaceholderBirthday(now, nil),
		Personality: req.Personality,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if birthday != nil {
		d.BirthdayAt = *birthday
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Dogs.Create(ctx, &d); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toDogResp(d))
}

// Update applies a partial update to one of the member's dogs.
func (h *DogHandler) Update(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dogUpdateReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	d, err := h.Dogs.GetForOwner(ctx, c.Param("id"), u.ID)
	if err != nil {
		return err
	}
	if req.Name != nil {
		d.Name = strings.TrimSpace(*req.Name)
	}
	if req.Breed != nil {
		d.Breed = *req.Breed
	}
	if req.Weight != nil {
		d.Weight = *req.Weight
	}
	if req.Gender != nil {
		d.Gender = *req.Gender
	}
	if req.Personality != nil {
		d.Personality = *req.Personality
	}
	if req.BirthdayAt != nil {
		b, err := parseDate("birthday_at", *req.BirthdayAt)
		if err != nil {
			return err
		}
		if b != nil {
			d.BirthdayAt = *b
		}
	}
	d.UpdatedAt = h.now()

	if err := h.Dogs.Update(ctx, d); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDogResp(d))
}

// Delete removes one of the member's dogs.
func (h *DogHandler) Delete(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Dogs.Delete(ctx, c.Param("id"), u.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: "dog deleted"})
}
