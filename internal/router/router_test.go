package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/dogrun-backend/internal/auth"
	"github.com/iliyamo/dogrun-backend/internal/handler"
	"github.com/iliyamo/dogrun-backend/internal/model"
	"github.com/iliyamo/dogrun-backend/internal/service"
	"github.com/iliyamo/dogrun-backend/internal/service/servicetest"
	"github.com/iliyamo/dogrun-backend/internal/validator"
)

type fixedCount int

func (n fixedCount) Count(context.Context) (int, error) { return int(n), nil }

type removed struct{ ids []string }

func (r *removed) DeleteUser(_ context.Context, id string) error {
	r.ids = append(r.ids, id)
	return nil
}

type api struct {
	e       *echo.Echo
	store   *servicetest.Store
	sink    *servicetest.Sink
	tokens  *auth.TokenService
	removed *removed
}

func newAPI(t *testing.T) *api {
	t.Helper()
	store := servicetest.NewStore()
	sink := &servicetest.Sink{}
	hasher := &servicetest.Hasher{}
	tokens := auth.NewTokenService("router-test-secret", 0, 0)
	accounts := service.NewAccountService(servicetest.UserAccounts{M: store}, &servicetest.AdminAccounts{M: store}, hasher, tokens, sink)
	apps := service.NewApplicationService(store, store, hasher, sink)
	rm := &removed{}

	for _, a := range []model.AdminUser{
		{ID: "admin-super", Email: "boss@dogrun.jp", Role: model.RoleSuperAdmin, IsActive: true},
		{ID: "admin-staff", Email: "staff@dogrun.jp", Role: model.RoleAdmin, IsActive: true},
		{ID: "admin-mod", Email: "mod@dogrun.jp", Role: model.RoleModerator, IsActive: true},
		{ID: "admin-gone", Email: "gone@dogrun.jp", Role: model.RoleSuperAdmin, IsActive: false},
	} {
		a.PasswordHash = "hashed:admin-pass"
		store.Admins[a.Email] = a
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := echo.New()
	e.Validator = validator.New()
	e.HTTPErrorHandler = handler.ErrorHandler(logger)

	RegisterRoutes(e, Handlers{
		Auth: handler.NewAuthHandler(accounts, apps, nil, 0),
		Admin: &handler.AdminHandler{
			Accounts: accounts,
			Apps:     apps,
			Users:    fixedCount(4),
			Dogs:     fixedCount(6),
			Posts:    fixedCount(9),
			Remover:  rm,
			Audit:    sink,
		},
		Users:         handler.NewUserHandler(nil),
		Dogs:          handler.NewDogHandler(nil),
		Posts:         handler.NewPostHandler(nil),
		Entries:       handler.NewEntryHandler(nil),
		BusinessHours: handler.NewBusinessHourHandler(nil, sink, nil, logger),
	}, Guards{Resolver: auth.NewResolver(tokens, store)})

	return &api{e: e, store: store, sink: sink, tokens: tokens, removed: rm}
}

func (a *api) call(method, path, token string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *api) apply(t *testing.T, fields map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/auth/apply", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ApplicationID string `json:"application_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ApplicationID
}

func (a *api) adminLogin(t *testing.T, email string) string {
	t.Helper()
	rec := a.call(http.MethodPost, "/admin/auth/login", "", map[string]string{"email": email, "password": "admin-pass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		AccessToken string `json:"access_token"`
		AdminUser   struct {
			Email string `json:"email"`
		} `json:"admin_user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, email, resp.AdminUser.Email)
	return resp.AccessToken
}

func janeFields() map[string]string {
	return map[string]string{
		"email":        "jane@x.com",
		"password":     "jane-password",
		"last_name":    "Doe",
		"first_name":   "Jane",
		"phone_number": "090-1111-2222",
		"dog_name":     "Mochi",
		"dog_breed":    "Shiba",
	}
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	if m, ok := body["message"].(string); ok {
		return m
	}
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return errObj["message"].(string)
}

func TestApproveScenario(t *testing.T) {
	a := newAPI(t)
	id := a.apply(t, janeFields())
	token := a.adminLogin(t, "staff@dogrun.jp")

	rec := a.call(http.MethodPut, "/admin/applications/"+id+"/approve", token, map[string]string{"admin_notes": "ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application approved", decodeMessage(t, rec))

	jane, ok := a.store.Users["jane@x.com"]
	require.True(t, ok)
	assert.Equal(t, "hashed:jane-password", jane.PasswordHash, "hash copied from the snapshot")
	require.Len(t, a.store.Dogs, 1)
	assert.Equal(t, "Mochi", a.store.Dogs[0].Name)
	assert.Equal(t, jane.ID, a.store.Dogs[0].OwnerID)

	app := a.store.Apps[id]
	assert.Equal(t, model.ApplicationApproved, app.Status)
	require.NotNil(t, app.UserID)
	assert.Equal(t, jane.ID, *app.UserID)

	rec = a.call(http.MethodPut, "/admin/applications/"+id+"/approve", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application already approved", decodeMessage(t, rec))
	assert.Len(t, a.store.Users, 1)

	rec = a.call(http.MethodPost, "/auth/login", "", map[string]string{"email": "jane@x.com", "password": "jane-password"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	rec = a.call(http.MethodGet, "/users/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"jane@x.com"`)

	assert.Equal(t, []string{model.ActionAdminLogin, model.ActionApproveApplication}, a.sink.Actions())
}

func TestRejectScenario(t *testing.T) {
	a := newAPI(t)
	id := a.apply(t, janeFields())
	token := a.adminLogin(t, "boss@dogrun.jp")

	rec := a.call(http.MethodPut, "/admin/applications/"+id+"/reject", token,
		map[string]string{"rejection_reason": "expired certificate"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.call(http.MethodGet, "/auth/application-status/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "rejected", view["status"])
	assert.Equal(t, "expired certificate", view["rejection_reason"])
	assert.NotEmpty(t, view["approved_at"])
	assert.Empty(t, a.store.Users, "rejection creates no user")

	rec = a.call(http.MethodPut, "/admin/applications/"+id+"/approve", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application already rejected", decodeMessage(t, rec))

	// a rejected email may apply again
	a.apply(t, janeFields())
}

func TestAdminGuards(t *testing.T) {
	a := newAPI(t)
	id := a.apply(t, janeFields())
	mod := a.adminLogin(t, "mod@dogrun.jp")
	staff := a.adminLogin(t, "staff@dogrun.jp")
	boss := a.adminLogin(t, "boss@dogrun.jp")

	userTok, err := a.tokens.IssueUserToken("staff@dogrun.jp", 0)
	require.NoError(t, err)
	goneTok, err := a.tokens.IssueAdminToken("gone@dogrun.jp", 0)
	require.NoError(t, err)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"no token", http.MethodGet, "/admin/applications", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/admin/applications", "not-a-jwt", http.StatusUnauthorized},
		{"member token", http.MethodGet, "/admin/applications", userTok.Raw, http.StatusUnauthorized},
		{"inactive admin", http.MethodGet, "/admin/applications", goneTok.Raw, http.StatusUnauthorized},
		{"moderator lists", http.MethodGet, "/admin/applications?status=pending", mod, http.StatusOK},
		{"bad status filter", http.MethodGet, "/admin/applications?status=unknown", mod, http.StatusBadRequest},
		{"moderator stats", http.MethodGet, "/admin/applications/stats", mod, http.StatusOK},
		{"moderator approves", http.MethodPut, "/admin/applications/" + id + "/approve", mod, http.StatusForbidden},
		{"admin deletes user", http.MethodDelete, "/admin/users/u-1", staff, http.StatusForbidden},
		{"super admin deletes user", http.MethodDelete, "/admin/users/u-1", boss, http.StatusNoContent},
		{"unknown application", http.MethodPut, "/admin/applications/missing/reject", staff, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body any
			if tc.method == http.MethodPut {
				body = map[string]string{}
			}
			rec := a.call(tc.method, tc.path, tc.token, body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			if tc.status == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
			}
		})
	}

	assert.Equal(t, []string{"u-1"}, a.removed.ids)
	assert.Equal(t, model.ApplicationPending, a.store.Apps[id].Status)
}

func TestAdminLoginRefusesInactiveAndWrongPassword(t *testing.T) {
	a := newAPI(t)

	rec := a.call(http.MethodPost, "/admin/auth/login", "", map[string]string{"email": "gone@dogrun.jp", "password": "admin-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.call(http.MethodPost, "/admin/auth/login", "", map[string]string{"email": "boss@dogrun.jp", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, a.sink.Actions())
}

func TestDashboardAndMe(t *testing.T) {
	a := newAPI(t)
	a.apply(t, janeFields())
	token := a.adminLogin(t, "mod@dogrun.jp")

	rec := a.call(http.MethodGet, "/admin/dashboard/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats model.DashboardStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, model.DashboardStats{TotalUsers: 4, TotalDogs: 6, PendingApplications: 1, TotalPosts: 9}, stats)

	rec = a.call(http.MethodGet, "/admin/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"moderator"`)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	a := newAPI(t)
	mod := a.adminLogin(t, "mod@dogrun.jp")

	for _, tc := range []struct{ path, token string }{
		{"/nope", ""},
		{"/admin/nope", ""},
		{"/admin/nope", mod},
	} {
		rec := a.call(http.MethodGet, tc.path, tc.token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, tc.path)
	}
}
