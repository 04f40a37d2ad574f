package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/dogrun-backend/internal/model"
	"github.com/iliyamo/dogrun-backend/internal/repository"
	"github.com/iliyamo/dogrun-backend/internal/service/servicetest"
)

type appFixture struct {
	store  *servicetest.Store
	sink   *servicetest.Sink
	hasher *servicetest.Hasher
	svc    *ApplicationService
	admin  model.AdminUser
}

func newAppFixture() *appFixture {
	store := servicetest.NewStore()
	sink := &servicetest.Sink{}
	hasher := &servicetest.Hasher{}
	return &appFixture{
		store:  store,
		sink:   sink,
		hasher: hasher,
		svc:    NewApplicationService(store, store, hasher, sink),
		admin:  model.AdminUser{ID: "admin-1", Role: model.RoleAdmin, IsActive: true},
	}
}

var errBoom = errors.New("boom")

func janeInput() ApplicationInput {
	return ApplicationInput{
		Applicant: model.ApplicantSnapshot{Email: "Jane@X.com", LastName: "Doe", FirstName: "Jane", City: "Sapporo"},
		Password:  "pw",
		Dog:       model.DogSnapshot{Name: "Mochi", Breed: "Shiba"},
	}
}

func TestSubmitCreatesPendingApplication(t *testing.T) {
	f := newAppFixture()

	app, err := f.svc.Submit(context.Background(), janeInput())
	require.NoError(t, err)

	assert.Equal(t, model.ApplicationPending, app.Status)
	assert.Nil(t, app.UserID)
	assert.Nil(t, app.ApprovedAt)
	assert.Equal(t, "jane@x.com", app.Applicant.Email)
	assert.Equal(t, "hashed:pw", app.Applicant.PasswordHash)
	assert.Empty(t, f.sink.Actions(), "submission is not an admin action")
}

func TestSubmitRejectsDuplicatePending(t *testing.T) {
	f := newAppFixture()
	_, err := f.svc.Submit(context.Background(), janeInput())
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), janeInput())
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestSubmitRejectsRegisteredEmail(t *testing.T) {
	f := newAppFixture()
	f.store.Users["jane@x.com"] = model.User{ID: "u1", Email: "jane@x.com"}

	_, err := f.svc.Submit(context.Background(), janeInput())
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.Zero(t, f.hasher.Calls)
}

func TestSubmitAllowedAgainAfterRejection(t *testing.T) {
	f := newAppFixture()
	ctx := context.Background()
	app, err := f.svc.Submit(ctx, janeInput())
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, app.ID, f.admin, "", "blurry photo", AuditContext{})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, janeInput())
	assert.NoError(t, err)
}

func TestApproveProvisionsUserAndDog(t *testing.T) {
	f := newAppFixture()
	ctx := context.Background()
	app, err := f.svc.Submit(ctx, janeInput())
	require.NoError(t, err)

	got, err := f.svc.Approve(ctx, app.ID, f.admin, "ok", AuditContext{IPAddress: "127.0.0.1", UserAgent: "test"})
	require.NoError(t, err)

	assert.Equal(t, model.ApplicationApproved, got.Status)
	require.NotNil(t, got.UserID)
	require.NotNil(t, got.ApprovedAt)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, "admin-1", *got.ApprovedBy)
	require.NotNil(t, got.AdminNotes)
	assert.Equal(t, "ok", *got.AdminNotes)

	user, ok := f.store.Users["jane@x.com"]
	require.True(t, ok)
	assert.Equal(t, *got.UserID, user.ID)
	assert.Equal(t, "hashed:pw", user.PasswordHash, "hash is copied, never re-hashed")
	assert.Equal(t, 1, f.hasher.Calls)
	assert.Equal(t, "Sapporo", user.City)

	require.Len(t, f.store.Dogs, 1)
	assert.Equal(t, "Mochi", f.store.Dogs[0].Name)
	assert.Equal(t, user.ID, f.store.Dogs[0].OwnerID)

	stored, err := f.svc.Status(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationApproved, stored.Status)

	assert.Equal(t, []string{model.ActionApproveApplication}, f.sink.Actions())
	entry := f.sink.Entries[0]
	assert.Equal(t, "admin-1", entry.AdminUserID)
	require.NotNil(t, entry.TargetID)
	assert.Equal(t, app.ID, *entry.TargetID)
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "127.0.0.1", *entry.IPAddress)
}

func TestApproveTwiceFailsWithoutNewRecords(t *testing.T) {
	f := newAppFixture()
	ctx := context.Background()
	app, err := f.svc.Submit(ctx, janeInput())
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, app.ID, f.admin, "ok", AuditContext{})
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, app.ID, f.admin, "again", AuditContext{})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Contains(t, err.Error(), "already approved")

	assert.Equal(t, 1, f.store.UserCount())
	assert.Equal(t, 1, f.store.DogCount())
	assert.Len(t, f.sink.Actions(), 1)
}

func TestApproveWithoutDog(t *testing.T) {
	f := newAppFixture()
	ctx := context.Background()
	in := janeInput()
	in.Dog = model.DogSnapshot{}
	app, err := f.svc.Submit(ctx, in)
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, app.ID, f.admin, "", AuditContext{})
	require.NoError(t, err)

	assert.Equal(t, 1, f.store.UserCount())
	assert.Zero(t, f.store.DogCount())
}

func TestApproveUsesPlaceholderBirthday(t *testing.T) {
	f := newAppFixture()
	fixed := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	age := 3
	in := janeInput()
	in.Dog.Age = &age
	app, err := f.svc.Submit(ctx, in)
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, app.ID, f.admin, "", AuditContext{})
	require.NoError(t, err)

	require.Len(t, f.store.Dogs, 1)
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), f.store.Dogs[0].BirthdayAt)
}

func TestApproveClampsImplausibleAge(t *testing.T) {
	f := newAppFixture()
	fixed := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	age := 99999
	in := janeInput()
	in.Dog.Age = &age
	app, err := f.svc.Submit(ctx, in)
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, app.ID, f.admin, "", AuditContext{})
	require.NoError(t, err)

	require.Len(t, f.store.Dogs, 1)
	assert.Equal(t, time.Date(1995, 1, 1, 0, 0, 0, 0, time.UTC), f.store.Dogs[0].BirthdayAt)
}

func TestApproveKeepsSnapshotBirthday(t *testing.T) {
	f := newAppFixture()
	ctx := context.Background()
	bday := time.Date(2020, 4, 2, 0, 0, 0, 0, time.UTC)
	in := janeInput()
	in.Dog.Birthday = &bday
	app, err := f.svc.Submit(ctx, in)
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, app.ID, f.admin, "", AuditContext{})
	require.NoError(t, err)
	assert.Equal(t, bday, f.store.Dogs[0].BirthdayAt)
}

func TestApproveConflictWhenEmailTakenMeanwhile(t *testing.T) {
	f := newAppFixture()
	ctx := context.Background()
	app, err := f.svc.Submit(ctx, janeInput())
	require.NoError(t, err)

	// direct registration raced the approval
	f.store.Users["jane@x.com"] = model.User{ID: "u-other", Email: "jane@x.com"}

	_, err = f.svc.Approve(ctx, app.ID, f.admin, "", AuditContext{})
	assert.ErrorIs(t, err, repository.ErrConflict)

	stored, err := f.svc.Status(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationPending, stored.Status)
	assert.Empty(t, f.sink.Actions())
}

func TestApproveRollsBackWhenDogFails(t *testing.T) {
	f := newAppFixture()
	ctx := context.Background()
	app, err := f.svc.Submit(ctx, janeInput())
	require.NoError(t, err)
	f.store.FailDog = errBoom

	_, err = f.svc.Approve(ctx, app.ID, f.admin, "", AuditContext{})
	assert.ErrorIs(t, err, errBoom)

	assert.Zero(t, f.store.UserCount())
	stored, err := f.svc.Status(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationPending, stored.Status)
	assert.Nil(t, stored.UserID)
}

func TestApproveMissingApplication(t *testing.T) {
	f := newAppFixture()
	_, err := f.svc.Approve(context.Background(), "nope", f.admin, "", AuditContext{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConcurrentApproveOnlyOneWins(t *testing.T) {
	f := newAppFixture()
	ctx := context.Background()
	app, err := f.svc.Submit(ctx, janeInput())
	require.NoError(t, err)

	const n = 8
	var (
		wg   sync.WaitGroup
		errs = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Approve(ctx, app.ID, f.admin, "", AuditContext{})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidState)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, f.store.UserCount())
}

func TestRejectRecordsReason(t *testing.T) {
	f := newAppFixture()
	ctx := context.Background()
	app, err := f.svc.Submit(ctx, janeInput())
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, app.ID, f.admin, "checked", "expired certificate", AuditContext{})
	require.NoError(t, err)

	stored, err := f.svc.Status(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationRejected, stored.Status)
	require.NotNil(t, stored.RejectionReason)
	assert.Equal(t, "expired certificate", *stored.RejectionReason)
	assert.NotNil(t, stored.ApprovedAt, "decision time is recorded for rejections too")
	assert.Nil(t, stored.UserID)
	assert.Zero(t, f.store.UserCount())
	assert.Equal(t, []string{model.ActionRejectApplication}, f.sink.Actions())
}

func TestRejectNonPendingFails(t *testing.T) {
	tests := []struct {
		name   string
		decide func(f *appFixture, id string) error
		msg    string
	}{
		{
			name: "already rejected",
			decide: func(f *appFixture, id string) error {
				_, err := f.svc.Reject(context.Background(), id, f.admin, "", "first", AuditContext{})
				return err
			},
			msg: "already rejected",
		},
		{
			name: "already approved",
			decide: func(f *appFixture, id string) error {
				_, err := f.svc.Approve(context.Background(), id, f.admin, "", AuditContext{})
				return err
			},
			msg: "already approved",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAppFixture()
			app, err := f.svc.Submit(context.Background(), janeInput())
			require.NoError(t, err)
			require.NoError(t, tt.decide(f, app.ID))

			_, err = f.svc.Reject(context.Background(), app.ID, f.admin, "", "second", AuditContext{})
			assert.ErrorIs(t, err, ErrInvalidState)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestStatsCountsToday(t *testing.T) {
	f := newAppFixture()
	ctx := context.Background()
	fixed := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	f.svc.now = func() time.Time { return fixed.AddDate(0, 0, -1) }
	old, err := f.svc.Submit(ctx, janeInput())
	require.NoError(t, err)

	f.svc.now = func() time.Time { return fixed }
	in := janeInput()
	in.Applicant.Email = "ken@x.com"
	_, err = f.svc.Submit(ctx, in)
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, old.ID, f.admin, "", "", AuditContext{})
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStats{Total: 2, Pending: 1, Rejected: 1, Today: 1}, stats)

	pending, err := f.svc.List(ctx, model.ApplicationPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ken@x.com", pending[0].Applicant.Email)
}
