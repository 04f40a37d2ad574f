package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/dogrun-backend/internal/middleware"
	"github.com/iliyamo/dogrun-backend/internal/model"
	"github.com/iliyamo/dogrun-backend/internal/repository"
	"github.com/iliyamo/dogrun-backend/internal/service/servicetest"
)

var member = model.User{ID: "user-1", Email: "jane@x.com", LastName: "Doe", FirstName: "Jane"}

// asMember stands in for middleware.UserAuth.
func asMember(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		middleware.SetCurrentUser(c, member)
		return next(c)
	}
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type memEntries struct {
	mu   sync.Mutex
	logs []model.EntryLog
}

func (m *memEntries) Record(_ context.Context, e *model.EntryLog, allow func(model.EntryAction) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last model.EntryAction
	for i := len(m.logs) - 1; i >= 0; i-- {
		if m.logs[i].UserID == e.UserID {
			last = m.logs[i].Action
			break
		}
	}
	if err := allow(last); err != nil {
		return err
	}
	m.logs = append(m.logs, *e)
	return nil
}

func (m *memEntries) ListByUser(_ context.Context, userID string, _ int) ([]model.EntryLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.EntryLog
	for i := len(m.logs) - 1; i >= 0; i-- {
		if m.logs[i].UserID == userID {
			out = append(out, m.logs[i])
		}
	}
	return out, nil
}

func TestEntryAlternatesBetweenEnterAndExit(t *testing.T) {
	h := NewEntryHandler(&memEntries{})
	e := newEcho()
	e.POST("/entry/enter", h.Enter, asMember)
	e.POST("/entry/exit", h.Exit, asMember)
	e.GET("/entry/logs", h.Logs, asMember)

	assert.Equal(t, http.StatusConflict, do(e, http.MethodPost, "/entry/exit", "").Code, "exit before entering")
	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/entry/enter", "").Code)
	rec := do(e, http.MethodPost, "/entry/enter", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already inside the dog run", decodeError(t, rec).Message)
	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/entry/exit", "").Code)

	rec = do(e, http.MethodGet, "/entry/logs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []entryResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	require.Len(t, logs, 2)
	assert.Equal(t, model.EntryActionExit, logs[0].Action)
	assert.Equal(t, model.EntryActionEntry, logs[1].Action)
}

func TestEntryConcurrentEntersAdmitOne(t *testing.T) {
	store := &memEntries{}
	h := NewEntryHandler(store)
	e := newEcho()
	e.POST("/entry/enter", h.Enter, asMember)

	const callers = 16
	codes := make(chan int, callers)
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- do(e, http.MethodPost, "/entry/enter", "").Code
		}()
	}
	wg.Wait()
	close(codes)

	created := 0
	for code := range codes {
		if code == http.StatusCreated {
			created++
			continue
		}
		assert.Equal(t, http.StatusConflict, code)
	}
	assert.Equal(t, 1, created)
	assert.Len(t, store.logs, 1)
}

func TestMemberRoutesNeedPrincipal(t *testing.T) {
	h := NewEntryHandler(&memEntries{})
	e := newEcho()
	e.POST("/entry/enter", h.Enter)

	rec := do(e, http.MethodPost, "/entry/enter", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type memDogs struct{ dogs map[string]model.Dog }

func (m *memDogs) Create(_ context.Context, d *model.Dog) error {
	m.dogs[d.ID] = *d
	return nil
}

func (m *memDogs) ListByOwner(_ context.Context, ownerID string) ([]model.Dog, error) {
	var out []model.Dog
	for _, d := range m.dogs {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memDogs) GetForOwner(_ context.Context, id, ownerID string) (model.Dog, error) {
	d, ok := m.dogs[id]
	if !ok || d.OwnerID != ownerID {
		return model.Dog{}, repository.ErrNotFound
	}
	return d, nil
}

func (m *memDogs) Update(_ context.Context, d model.Dog) error {
	m.dogs[d.ID] = d
	return nil
}

func (m *memDogs) Delete(_ context.Context, id, ownerID string) error {
	d, ok := m.dogs[id]
	if !ok || d.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	delete(m.dogs, id)
	return nil
}

func TestDogLifecycle(t *testing.T) {
	store := &memDogs{dogs: map[string]model.Dog{
		"other": {ID: "other", OwnerID: "user-2", Name: "Kuro"},
	}}
	h := NewDogHandler(store)
	h.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	e := newEcho()
	e.GET("/dogs", h.List, asMember)
	e.POST("/dogs", h.Create, asMember)
	e.PUT("/dogs/:id", h.Update, asMember)
	e.DELETE("/dogs/:id", h.Delete, asMember)

	rec := do(e, http.MethodPost, "/dogs", `{"name":"Mochi","breed":"Shiba"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created dogResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "user-1", created.OwnerID)
	assert.Equal(t, "2026-01-01", created.BirthdayAt, "placeholder birthday")

	rec = do(e, http.MethodPut, "/dogs/"+created.ID, `{"birthday_at":"2021-03-04","personality":"calm"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated dogResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "2021-03-04", updated.BirthdayAt)
	assert.Equal(t, "Mochi", updated.Name)
	assert.Equal(t, "calm", updated.Personality)

	rec = do(e, http.MethodGet, "/dogs", "")
	var list []dogResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1, "other members' dogs are hidden")

	assert.Equal(t, http.StatusNotFound, do(e, http.MethodPut, "/dogs/other", `{"name":"Mine"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodDelete, "/dogs/other", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/dogs", `{"breed":"Shiba"}`).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodDelete, "/dogs/"+created.ID, "").Code)
	assert.Equal(t, "Kuro", store.dogs["other"].Name)
}

type hourStore struct {
	hours map[int]model.BusinessHour
}

func (s *hourStore) List(context.Context) ([]model.BusinessHour, error) {
	out := make([]model.BusinessHour, 0, len(s.hours))
	for d := 0; d < 7; d++ {
		if h, ok := s.hours[d]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *hourStore) Upsert(_ context.Context, h model.BusinessHour) error {
	s.hours[h.DayOfWeek] = h
	return nil
}

func TestUpdateBusinessHours(t *testing.T) {
	store := &hourStore{hours: map[int]model.BusinessHour{}}
	sink := &servicetest.Sink{}
	invalidated := 0
	h := NewBusinessHourHandler(store, sink, func(context.Context) error {
		invalidated++
		return nil
	}, discardLogger())

	e := newEcho()
	asAdmin := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			middleware.SetCurrentAdmin(c, model.AdminUser{ID: "admin-1", Role: model.RoleAdmin, IsActive: true})
			return next(c)
		}
	}
	e.GET("/business-hours", h.List)
	e.PUT("/admin/business-hours/:day", h.Update, asAdmin)

	cases := []struct {
		name   string
		day    string
		body   string
		status int
	}{
		{"open day", "1", `{"is_open":true,"open_time":"09:00","close_time":"17:30"}`, http.StatusOK},
		{"closed day", "2", `{"is_open":false,"special_note":"maintenance"}`, http.StatusOK},
		{"day out of range", "7", `{"is_open":false}`, http.StatusBadRequest},
		{"bad time", "1", `{"is_open":true,"open_time":"9am","close_time":"17:00"}`, http.StatusBadRequest},
		{"missing times", "1", `{"is_open":true}`, http.StatusBadRequest},
		{"close before open", "1", `{"is_open":true,"open_time":"18:00","close_time":"08:00"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, http.MethodPut, "/admin/business-hours/"+tc.day, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}

	assert.Equal(t, 2, invalidated)
	assert.Equal(t, []string{model.ActionUpdateBusinessHours, model.ActionUpdateBusinessHours}, sink.Actions())
	require.NotNil(t, sink.Entries[0].TargetID)
	assert.Equal(t, "1", *sink.Entries[0].TargetID)

	rec := do(e, http.MethodGet, "/business-hours", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hours []model.BusinessHour
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hours))
	require.Len(t, hours, 2)
	assert.Equal(t, "09:00", hours[0].OpenTime)
	assert.False(t, hours[1].IsOpen)
	assert.Empty(t, hours[1].OpenTime)
}
