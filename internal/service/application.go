package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iliyamo/dogrun-backend/internal/auth"
	"github.com/iliyamo/dogrun-backend/internal/model"
	"github.com/iliyamo/dogrun-backend/internal/repository"
)

var applicationDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dogrun_application_decisions_total",
		Help: "Application transitions out of pending, by decision.",
	},
	[]string{"decision"},
)

// ApplicationStore is the persistence the state machine needs. Decide must
// run fn inside one transaction with the application row locked.
type ApplicationStore interface {
	Create(ctx context.Context, a *model.Application) error
	GetByID(ctx context.Context, id string) (model.Application, error)
	PendingExists(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, status model.ApplicationStatus) ([]model.Application, error)
	Stats(ctx context.Context, since time.Time) (model.ApplicationStats, error)
	Decide(ctx context.Context, id string,
		fn func(ctx context.Context, tx repository.DecisionTx, app model.Application) error) error
}

// EmailChecker reports whether a user already owns an email.
type EmailChecker interface {
	EmailRegistered(ctx context.Context, email string) (bool, error)
}

// PasswordHasher hashes plaintext passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// ApplicationInput is what an applicant submits. Password is plaintext
// and hashed exactly once, at submission.
type ApplicationInput struct {
	Applicant model.ApplicantSnapshot
	Password  string
	Dog       model.DogSnapshot
}

// ApplicationService drives the membership application workflow:
// pending → approved | rejected.
type ApplicationService struct {
	store  ApplicationStore
	users  EmailChecker
	hasher PasswordHasher
	audit  AuditSink
	now    func() time.Time
}

func NewApplicationService(store ApplicationStore, users EmailChecker, hasher PasswordHasher, audit AuditSink) *ApplicationService {
	return &ApplicationService{
		store:  store,
		users:  users,
		hasher: hasher,
		audit:  audit,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Submit creates a pending application. It fails with ErrConflict when a
// user already owns the email or a pending application exists for it.
func (s *ApplicationService) Submit(ctx context.Context, in ApplicationInput) (model.Application, error) {
	email := auth.NormalizeEmail(in.Applicant.Email)

	registered, err := s.users.EmailRegistered(ctx, email)
	if err != nil {
		return model.Application{}, err
	}
	if registered {
		return model.Application{}, fmt.Errorf("%w: email is already registered", repository.ErrConflict)
	}
	pending, err := s.store.PendingExists(ctx, email)
	if err != nil {
		return model.Application{}, err
	}
	if pending {
		return model.Application{}, fmt.Errorf("%w: an application for this email is already pending", repository.ErrConflict)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return model.Application{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	app := model.Application{
		ID:        uuid.NewString(),
		Applicant: in.Applicant,
		Dog:       in.Dog,
		Status:    model.ApplicationPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	app.Applicant.Email = email
	app.Applicant.PasswordHash = hash

	// the unique pending_email index catches submissions racing past the check above
	if err := s.store.Create(ctx, &app); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.Application{}, fmt.Errorf("%w: an application for this email is already pending", repository.ErrConflict)
		}
		return model.Application{}, err
	}
	return app, nil
}

// Status returns the application for the public status view.
func (s *ApplicationService) Status(ctx context.Context, id string) (model.Application, error) {
	return s.store.GetByID(ctx, id)
}

// List returns applications, optionally filtered by status.
func (s *ApplicationService) List(ctx context.Context, status model.ApplicationStatus) ([]model.Application, error) {
	return s.store.List(ctx, status)
}

// Stats counts applications by status and those submitted today (UTC).
func (s *ApplicationService) Stats(ctx context.Context) (model.ApplicationStats, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.store.Stats(ctx, midnight)
}

// Approve provisions the applicant as a user (and their dog, when the
// application carries one) and marks the application approved. All writes
// share one transaction. The audit record is sent after commit.
func (s *ApplicationService) Approve(ctx context.Context, id string, admin model.AdminUser, notes string, actx AuditContext) (model.Application, error) {
	var decided model.Application
	err := s.store.Decide(ctx, id, func(ctx context.Context, tx repository.DecisionTx, app model.Application) error {
		if err := requirePending(app); err != nil {
			return err
		}

		registered, err := tx.EmailRegistered(ctx, app.Applicant.Email)
		if err != nil {
			return err
		}
		if registered {
			return fmt.Errorf("%w: email %s is already registered", repository.ErrConflict, app.Applicant.Email)
		}

		now := s.now()
		user := userFromSnapshot(app.Applicant, now)
		if err := tx.CreateUser(ctx, &user); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%w: email %s is already registered", repository.ErrConflict, app.Applicant.Email)
			}
			return fmt.Errorf("create user: %w", err)
		}

		if app.Dog.HasDog() {
			dog := dogFromSnapshot(app.Dog, user.ID, now)
			if err := tx.CreateDog(ctx, &dog); err != nil {
				return fmt.Errorf("create dog: %w", err)
			}
		}

		app.UserID = &user.ID
		app.Status = model.ApplicationApproved
		app.AdminNotes = optional(notes)
		app.ApprovedBy = &admin.ID
		app.ApprovedAt = &now
		app.UpdatedAt = now
		if err := saveDecision(ctx, tx, app); err != nil {
			return err
		}
		decided = app
		return nil
	})
	if err != nil {
		return model.Application{}, err
	}

	applicationDecisionsTotal.WithLabelValues("approved").Inc()
	s.audit.Record(ctx, NewAdminLog(admin.ID, model.ActionApproveApplication,
		model.TargetApplication, decided.ID, "approved application for "+decided.Applicant.Email, actx))
	return decided, nil
}

// Reject marks a pending application rejected with reason. No user is
// created.
func (s *ApplicationService) Reject(ctx context.Context, id string, admin model.AdminUser, notes, reason string, actx AuditContext) (model.Application, error) {
	var decided model.Application
	err := s.store.Decide(ctx, id, func(ctx context.Context, tx repository.DecisionTx, app model.Application) error {
		if err := requirePending(app); err != nil {
			return err
		}
		now := s.now()
		app.Status = model.ApplicationRejected
		app.AdminNotes = optional(notes)
		app.RejectionReason = optional(reason)
		app.ApprovedBy = &admin.ID
		app.ApprovedAt = &now
		app.UpdatedAt = now
		if err := saveDecision(ctx, tx, app); err != nil {
			return err
		}
		decided = app
		return nil
	})
	if err != nil {
		return model.Application{}, err
	}

	applicationDecisionsTotal.WithLabelValues("rejected").Inc()
	details := "rejected application for " + decided.Applicant.Email
	if reason != "" {
		details += ": " + reason
	}
	s.audit.Record(ctx, NewAdminLog(admin.ID, model.ActionRejectApplication,
		model.TargetApplication, decided.ID, details, actx))
	return decided, nil
}

func requirePending(app model.Application) error {
	if app.Status != model.ApplicationPending {
		return fmt.Errorf("%w: application already %s", ErrInvalidState, app.Status)
	}
	return nil
}

// saveDecision maps a lost compare-and-set to ErrInvalidState.
func saveDecision(ctx context.Context, tx repository.DecisionTx, app model.Application) error {
	err := tx.SaveDecision(ctx, app)
	if errors.Is(err, repository.ErrStale) {
		return fmt.Errorf("%w: application was decided concurrently", ErrInvalidState)
	}
	return err
}

func userFromSnapshot(s model.ApplicantSnapshot, now time.Time) model.User {
	return model.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(s.Email),
		PasswordHash: s.PasswordHash, // already hashed at submission
		LastName:     s.LastName,
		FirstName:    s.FirstName,
		PhoneNumber:  s.PhoneNumber,
		ZipCode:      s.ZipCode,
		Prefecture:   s.Prefecture,
		City:         s.City,
		Address:      s.Address,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func dogFromSnapshot(d model.DogSnapshot, ownerID string, now time.Time) model.Dog {
	birthday := model.PlaceholderBirthday(now, d.Age)
	if d.Birthday != nil {
		birthday = d.Birthday.UTC()
	}
	return model.Dog{
		ID:                 uuid.NewString(),
		OwnerID:            ownerID,
		Name:               d.Name,
		Breed:              d.Breed,
		Weight:             d.Weight,
		Gender:             d.Gender,
		BirthdayAt:         birthday,
		VaccineCertificate: d.VaccineCertificate,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
