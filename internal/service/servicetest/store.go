// Package servicetest provides in-memory implementations of the service
// layer's storage interfaces for tests.
package servicetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/dogrun-backend/internal/auth"
	"github.com/iliyamo/dogrun-backend/internal/model"
	"github.com/iliyamo/dogrun-backend/internal/repository"
)

// Store is an in-memory application, user and admin store. Decide
// serializes on a mutex and stages writes until fn succeeds.
type Store struct {
	mu     sync.Mutex
	Apps   map[string]model.Application
	Users  map[string]model.User // by email
	Dogs   []model.Dog
	Admins map[string]model.AdminUser // by email

	// FailDog makes CreateDog fail inside Decide.
	FailDog error
}

func NewStore() *Store {
	return &Store{
		Apps:   map[string]model.Application{},
		Users:  map[string]model.User{},
		Admins: map[string]model.AdminUser{},
	}
}

func (m *Store) Create(_ context.Context, a *model.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cur := range m.Apps {
		if cur.Status == model.ApplicationPending && cur.Applicant.Email == a.Applicant.Email {
			return repository.ErrConflict
		}
	}
	m.Apps[a.ID] = *a
	return nil
}

func (m *Store) GetByID(_ context.Context, id string) (model.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Apps[id]
	if !ok {
		return model.Application{}, repository.ErrNotFound
	}
	return a, nil
}

func (m *Store) PendingExists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.Apps {
		if a.Status == model.ApplicationPending && a.Applicant.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *Store) List(_ context.Context, status model.ApplicationStatus) ([]model.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Application
	for _, a := range m.Apps {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Store) Stats(_ context.Context, since time.Time) (model.ApplicationStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s model.ApplicationStats
	for _, a := range m.Apps {
		s.Total++
		switch a.Status {
		case model.ApplicationPending:
			s.Pending++
		case model.ApplicationApproved:
			s.Approved++
		case model.ApplicationRejected:
			s.Rejected++
		}
		if !a.CreatedAt.Before(since) {
			s.Today++
		}
	}
	return s, nil
}

func (m *Store) Decide(ctx context.Context, id string,
	fn func(ctx context.Context, tx repository.DecisionTx, app model.Application) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.Apps[id]
	if !ok {
		return repository.ErrNotFound
	}
	tx := &memTx{m: m}
	if err := fn(ctx, tx, app); err != nil {
		return err // staged writes are discarded
	}
	for _, u := range tx.users {
		m.Users[u.Email] = u
	}
	m.Dogs = append(m.Dogs, tx.dogs...)
	if tx.decision != nil {
		m.Apps[id] = *tx.decision
	}
	return nil
}

func (m *Store) EmailRegistered(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Users[email]
	return ok, nil
}

// UserCount returns the number of users.
func (m *Store) UserCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Users)
}

// DogCount returns the number of dogs.
func (m *Store) DogCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Dogs)
}

// memTx runs with Store.mu already held.
type memTx struct {
	m        *Store
	users    []model.User
	dogs     []model.Dog
	decision *model.Application
}

func (t *memTx) EmailRegistered(_ context.Context, email string) (bool, error) {
	_, ok := t.m.Users[email]
	return ok, nil
}

func (t *memTx) CreateUser(_ context.Context, u *model.User) error {
	if _, ok := t.m.Users[u.Email]; ok {
		return repository.ErrEmailExists
	}
	t.users = append(t.users, *u)
	return nil
}

func (t *memTx) CreateDog(_ context.Context, d *model.Dog) error {
	if t.m.FailDog != nil {
		return t.m.FailDog
	}
	t.dogs = append(t.dogs, *d)
	return nil
}

func (t *memTx) SaveDecision(_ context.Context, a model.Application) error {
	if t.m.Apps[a.ID].Status != model.ApplicationPending {
		return repository.ErrStale
	}
	t.decision = &a
	return nil
}

// UserAccounts exposes the store's users by email.
type UserAccounts struct{ M *Store }

func (u UserAccounts) GetByEmail(_ context.Context, email string) (model.User, error) {
	u.M.mu.Lock()
	defer u.M.mu.Unlock()
	usr, ok := u.M.Users[email]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return usr, nil
}

func (u UserAccounts) Create(_ context.Context, usr *model.User) error {
	u.M.mu.Lock()
	defer u.M.mu.Unlock()
	if _, ok := u.M.Users[usr.Email]; ok {
		return repository.ErrEmailExists
	}
	u.M.Users[usr.Email] = *usr
	return nil
}

// AdminAccounts exposes the store's admins by email and records
// last-login updates.
type AdminAccounts struct {
	M         *Store
	Touched   map[string]time.Time
	TouchFail error
}

func (a *AdminAccounts) GetByEmail(_ context.Context, email string) (model.AdminUser, error) {
	a.M.mu.Lock()
	defer a.M.mu.Unlock()
	adm, ok := a.M.Admins[email]
	if !ok {
		return model.AdminUser{}, repository.ErrNotFound
	}
	return adm, nil
}

func (a *AdminAccounts) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	if a.TouchFail != nil {
		return a.TouchFail
	}
	if a.Touched == nil {
		a.Touched = map[string]time.Time{}
	}
	a.Touched[id] = at
	return nil
}

// Sink collects audit records synchronously.
type Sink struct {
	mu      sync.Mutex
	Entries []model.AdminLog
}

func (r *Sink) Record(_ context.Context, e model.AdminLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, e)
}

// Actions lists the recorded actions in order.
func (r *Sink) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		out = append(out, e.Action)
	}
	return out
}

// Hasher prefixes "hashed:" instead of hashing, so assertions can see
// what was hashed and how often.
type Hasher struct{ Calls int }

func (h *Hasher) Hash(plain string) (string, error) {
	h.Calls++
	return "hashed:" + plain, nil
}

func (h *Hasher) Verify(plain, hash string) bool { return hash == "hashed:"+plain }

// UserByEmail implements auth.PrincipalStore.
func (m *Store) UserByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[email]
	if !ok {
		return model.User{}, auth.ErrPrincipalNotFound
	}
	return u, nil
}

// ActiveAdminByEmail implements auth.PrincipalStore.
func (m *Store) ActiveAdminByEmail(_ context.Context, email string) (model.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Admins[email]
	if !ok || !a.IsActive {
		return model.AdminUser{}, auth.ErrPrincipalNotFound
	}
	return a, nil
}
