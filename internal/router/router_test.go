package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onesoftuk/bugflow/internal/blob"
	"github.com/onesoftuk/bugflow/internal/config"
	"github.com/onesoftuk/bugflow/internal/handlers"
	"github.com/onesoftuk/bugflow/internal/models"
	"github.com/onesoftuk/bugflow/internal/notify"
	"github.com/onesoftuk/bugflow/internal/repository/memory"
	"github.com/onesoftuk/bugflow/internal/router"
	"github.com/onesoftuk/bugflow/internal/service"
	"github.com/onesoftuk/bugflow/internal/utils"
	"github.com/onesoftuk/bugflow/internal/workflow"
)

type nopSender struct{}

func (nopSender) Send(*models.AppSettings, []string, string, string, string) error { return nil }

type apiFixture struct {
	handler http.Handler
	secret  string
	users   *memory.UserStore

	user  models.User
	dev   models.User
	admin models.User
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()

	cfg := config.Config{
		Origin:        "http://localhost:3000",
		SessionSecret: "test-secret",
		MaxFileSize:   10 << 20,
		MaxPerTicket:  10,
	}

	tickets := memory.NewTicketStore()
	users := memory.NewUserStore()
	settings := memory.NewSettingsStore(models.AppSettings{})
	emailLogs := memory.NewEmailLogStore()
	blobs, err := blob.NewDir(t.TempDir())
	require.NoError(t, err)

	log := zerolog.Nop()
	dispatcher := notify.NewDispatcher(settings, emailLogs, nopSender{}, log)
	engine := workflow.NewEngine(tickets, users, blobs, dispatcher, workflow.Limits{}, log)
	authSvc := service.NewAuthService(users, cfg.SessionSecret)

	h := router.Build(log, cfg,
		handlers.NewAuthHTTP(authSvc, users),
		handlers.NewTicketHTTP(engine, users),
		handlers.NewAttachmentHTTP(engine, users, 64<<20),
		handlers.NewAdminHTTP(tickets, users, settings, emailLogs, dispatcher),
	)

	return &apiFixture{
		handler: h,
		secret:  cfg.SessionSecret,
		users:   users,
		user:    users.Seed(models.User{Name: "Sam Submitter", Email: "sam@example.com", Role: models.RoleUser, Active: true}),
		dev:     users.Seed(models.User{Name: "Dana Dev", Email: "dana@example.com", Role: models.RoleDev, Active: true}),
		admin:   users.Seed(models.User{Name: "Ada Admin", Email: "ada@example.com", Role: models.RoleAdmin, Active: true}),
	}
}

func (f *apiFixture) token(t *testing.T, u models.User) string {
	t.Helper()
	tok, err := utils.SignJWT(f.secret, u.ID, string(u.Role), time.Hour)
	require.NoError(t, err)
	return tok
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func (f *apiFixture) createTicket(t *testing.T, token string) models.Ticket {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/tickets", token, map[string]string{
		"title":       "Crash when saving a draft",
		"description": "Saving a draft with an empty subject line crashes the composer window.",
		"type":        "bug",
		"app":         "webmail",
		"priority":    "high",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Ticket](t, rec)
}

func TestRegisterLoginMe(t *testing.T) {
	t.Parallel()
	f := newAPI(t)

	rec := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "newbie@example.com", "name": "New User", "password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.User](t, rec)
	assert.Equal(t, models.RoleUser, created.Role, "self-registration never grants elevated roles")

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "newbie@example.com", "password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" {
			session = c
		}
	}
	require.NotNil(t, session, "login must set the session cookie")
	assert.True(t, session.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(session)
	me := httptest.NewRecorder()
	f.handler.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, created.ID, decode[models.User](t, me).ID)

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "newbie@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticationRequired(t *testing.T) {
	t.Parallel()
	f := newAPI(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/tickets", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/admin/users", "", nil).Code)

	// A valid token for a deactivated account is rejected too.
	tok := f.token(t, f.user)
	_, err := f.users.SetActive(context.Background(), f.user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/tickets", tok, nil).Code)
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	t.Parallel()
	f := newAPI(t)

	userTok := f.token(t, f.user)
	adminTok := f.token(t, f.admin)

	tk := f.createTicket(t, userTok)
	assert.Equal(t, models.StatusOpen, tk.Status)

	// Submitters cannot triage.
	rec := f.do(t, http.MethodPatch, "/api/tickets/"+tk.ID+"/status", userTok, map[string]string{"status": "resolved"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/tickets/"+tk.ID+"/status", adminTok, map[string]string{
		"status": "in_progress", "comment": "Taking a look",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.StatusInProgress, decode[models.Ticket](t, rec).Status)

	rec = f.do(t, http.MethodPatch, "/api/tickets/"+tk.ID+"/assign", adminTok, map[string]any{
		"assignedToUserId": f.dev.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.Ticket](t, rec)
	require.NotNil(t, got.AssignedToName)
	assert.Equal(t, "Dana Dev", *got.AssignedToName)

	rec = f.do(t, http.MethodGet, "/api/tickets/missing", adminTok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/tickets", userTok, map[string]string{
		"title": "tiny", "description": "short", "type": "bug", "app": "webmail", "priority": "low",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInternalCommentsHiddenOverHTTP(t *testing.T) {
	t.Parallel()
	f := newAPI(t)

	userTok := f.token(t, f.user)
	adminTok := f.token(t, f.admin)
	tk := f.createTicket(t, userTok)

	rec := f.do(t, http.MethodPost, "/api/tickets/"+tk.ID+"/comments", adminTok, map[string]any{
		"content": "We can reproduce this.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/tickets/"+tk.ID+"/comments", adminTok, map[string]any{
		"content": "root cause is the cache", "isInternal": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// The submitter may not post internal notes.
	rec = f.do(t, http.MethodPost, "/api/tickets/"+tk.ID+"/comments", userTok, map[string]any{
		"content": "sneaky", "isInternal": true,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	type page struct {
		Items []models.Comment `json:"items"`
	}
	rec = f.do(t, http.MethodGet, "/api/tickets/"+tk.ID+"/comments", userTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[page](t, rec)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "We can reproduce this.", mine.Items[0].Content)

	rec = f.do(t, http.MethodGet, "/api/tickets/"+tk.ID+"/comments", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[page](t, rec).Items, 2)
}

func TestAdminSurfaceIsRoleGated(t *testing.T) {
	t.Parallel()
	f := newAPI(t)

	userTok := f.token(t, f.user)
	devTok := f.token(t, f.dev)
	adminTok := f.token(t, f.admin)

	for _, tok := range []string{userTok, devTok} {
		assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/api/admin/users", tok, nil).Code)
	}

	rec := f.do(t, http.MethodGet, "/api/admin/users", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Promote the plain user to dev.
	rec = f.do(t, http.MethodPatch, "/api/admin/users/"+f.user.ID+"/role", adminTok, map[string]string{"role": "dev"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoleDev, decode[models.User](t, rec).Role)

	rec = f.do(t, http.MethodPatch, "/api/admin/users/"+f.user.ID+"/role", adminTok, map[string]string{"role": "superuser"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/admin/summary", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[map[string]int](t, rec)
	assert.Contains(t, summary, "open")
	assert.Contains(t, summary, "resolved7d")
	assert.Contains(t, summary, "highCriticalOpen")
}

func TestAttachmentUploadAndDownload(t *testing.T) {
	t.Parallel()
	f := newAPI(t)

	userTok := f.token(t, f.user)
	tk := f.createTicket(t, userTok)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="files"; filename="crash.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/tickets/"+tk.ID+"/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+userTok)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	type page struct {
		Items []models.Attachment `json:"items"`
	}
	uploaded := decode[page](t, rec)
	require.Len(t, uploaded.Items, 1)
	att := uploaded.Items[0]
	assert.Equal(t, "crash.png", att.OriginalName)
	assert.Equal(t, int64(len("png-bytes")), att.Size)

	dl := f.do(t, http.MethodGet, "/api/attachments/"+att.ID+"/download", userTok, nil)
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "image/png", dl.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", dl.Body.String())

	// Another user cannot reach the payload.
	stranger := f.users.Seed(models.User{Name: "Olga Other", Email: "olga@example.com", Role: models.RoleUser, Active: true})
	dl = f.do(t, http.MethodGet, "/api/attachments/"+att.ID+"/download", f.token(t, stranger), nil)
	assert.Equal(t, http.StatusForbidden, dl.Code)
}
