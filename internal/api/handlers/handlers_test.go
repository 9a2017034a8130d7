package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bible-game/common/internal/api/interfaces"
	"github.com/bible-game/common/internal/api/models"
	"github.com/bible-game/common/internal/database"
	"github.com/bible-game/common/internal/database/repositories"
	"github.com/bible-game/common/internal/security"
	"github.com/bible-game/common/internal/storage"
	"github.com/bible-game/common/pkg/config"
	"github.com/bible-game/common/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAudio struct {
	objects map[string][]byte
	err     error
}

func (f *fakeAudio) UploadAudio(_ context.Context, key string, content []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.objects[key] = content
	return storage.AudioKey(key), nil
}

func (f *fakeAudio) GetAudio(_ context.Context, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	content, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return content, nil
}

type fakeUsers struct {
	users   map[int64]*database.User
	err     error
	touched []int64
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*database.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Update(_ context.Context, u *database.User) error {
	if _, ok := f.users[u.ID]; !ok {
		return repositories.ErrNotFound
	}
	for id, other := range f.users {
		if id != u.ID && other.Email == u.Email {
			return repositories.ErrConflict
		}
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeUsers) Touch(_ context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return repositories.ErrNotFound
	}
	f.touched = append(f.touched, id)
	return nil
}

type fakeIssuer struct{}

func (fakeIssuer) GenerateFor(userID int64) (string, error) {
	if userID == 13 {
		return "", errors.New("signer unavailable")
	}
	return "token-for-user", nil
}

type fakeServices struct {
	cfg    *config.Config
	audio  *fakeAudio
	users  *fakeUsers
	pingFn func() error
}

func newFakeServices() *fakeServices {
	return &fakeServices{
		cfg: &config.Config{Security: config.SecurityConfig{JWT: config.JWTConfig{
			CookieName:         "token",
			CookieDomain:       "bible.game",
			SessionTimeoutMins: 30,
		}}},
		audio: &fakeAudio{objects: map[string][]byte{}},
		users: &fakeUsers{users: map[int64]*database.User{
			42: {BaseEntity: database.BaseEntity{ID: 42, CreatedDate: time.Unix(1700000000, 0)}, Username: "ruth", Email: "ruth@bible.game", Active: true},
			43: {BaseEntity: database.BaseEntity{ID: 43, CreatedDate: time.Unix(1700000000, 0)}, Username: "naomi", Email: "naomi@bible.game", Active: true},
			44: {BaseEntity: database.BaseEntity{ID: 44, CreatedDate: time.Unix(1700000000, 0)}, Username: "orpah", Email: "orpah@bible.game"},
		}},
		pingFn: func() error { return nil },
	}
}

func (f *fakeServices) GetLogger() *logger.Logger { return logger.NewDiscardLogger() }
func (f *fakeServices) GetConfig() *config.Config { return f.cfg }
func (f *fakeServices) TokenIssuer() interfaces.TokenIssuer { return fakeIssuer{} }
func (f *fakeServices) AudioStore() interfaces.AudioStore { return f.audio }
func (f *fakeServices) UserStore() interfaces.UserStore { return f.users }
func (f *fakeServices) PingDatabase(ctx context.Context) error { return f.pingFn() }

// withIdentity stands in for the token filter
func withIdentity(subject string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := security.NewIdentity(security.Claims{"sub": subject})
		c.Request = c.Request.WithContext(security.ContextWithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func newRouter(services interfaces.Services, subject string) *gin.Engine {
	router := gin.New()
	if subject != "" {
		router.Use(withIdentity(subject))
	}
	router.GET("/health", HealthCheck(services))
	router.GET("/me", GetCurrentUser(services))
	router.PUT("/me", UpdateCurrentUser(services))
	router.PUT("/passages/:key/audio", UploadPassageAudio(services))
	router.GET("/passages/:key/audio", GetPassageAudio(services))
	router.POST("/session", IssueSession(services))
	return router
}

func do(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, bytes.NewReader(body)))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) models.BaseResponse {
	t.Helper()
	resp := models.BaseResponse{Data: data}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	services := newFakeServices()
	router := newRouter(services, "")

	w := do(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	services.pingFn = func() error { return errors.New("connection refused") }
	w = do(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestGetCurrentUser(t *testing.T) {
	router := newRouter(newFakeServices(), "42")

	var data models.CurrentUserResponse
	w := do(router, http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w, &data)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(42), data.UserID)
	assert.Equal(t, "42", data.Subject)
	require.NotNil(t, data.User)
	assert.Equal(t, "ruth", data.User.Username)
}

func TestGetCurrentUserWithoutRecord(t *testing.T) {
	router := newRouter(newFakeServices(), "7")

	var data models.CurrentUserResponse
	w := do(router, http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, w.Code)

	decode(t, w, &data)
	assert.Equal(t, int64(7), data.UserID)
	assert.Nil(t, data.User)
}

func TestGetCurrentUserStoreFailure(t *testing.T) {
	services := newFakeServices()
	services.users.err = errors.New("db down")

	w := do(newRouter(services, "42"), http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestGetCurrentUserUnauthenticated(t *testing.T) {
	w := do(newRouter(newFakeServices(), ""), http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateCurrentUser(t *testing.T) {
	services := newFakeServices()
	router := newRouter(services, "42")

	var data models.UserResponse
	w := do(router, http.MethodPut, "/me", []byte(`{"display_name":"Ruth the Moabite"}`))
	require.Equal(t, http.StatusOK, w.Code)

	decode(t, w, &data)
	assert.Equal(t, "Ruth the Moabite", data.DisplayName)
	assert.Equal(t, "Ruth the Moabite", services.users.users[42].DisplayName)

	w = do(newRouter(services, "7"), http.MethodPut, "/me", []byte(`{"display_name":"x"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateCurrentUserValidation(t *testing.T) {
	router := newRouter(newFakeServices(), "42")

	w := do(router, http.MethodPut, "/me", []byte(`{"email":"not-an-email"}`))
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, models.ErrCodeInvalidRequest, resp.Error.Code)
	assert.Equal(t, map[string]string{"email": "failed email validation"}, resp.Error.Fields)

	w = do(router, http.MethodPut, "/me", []byte(`{"display_name":`))
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp = decode(t, w, nil)
	assert.Empty(t, resp.Error.Fields)
	assert.NotEmpty(t, resp.Error.Details)
}

func TestUpdateCurrentUserConflict(t *testing.T) {
	services := newFakeServices()

	w := do(newRouter(services, "42"), http.MethodPut, "/me", []byte(`{"email":"naomi@bible.game"}`))
	require.Equal(t, http.StatusConflict, w.Code)

	resp := decode(t, w, nil)
	assert.Equal(t, models.ErrCodeConflict, resp.Error.Code)
	assert.Equal(t, "already in use", resp.Error.Fields["email"])
	assert.Equal(t, "ruth@bible.game", services.users.users[42].Email)
}

func TestUpdateCurrentUserDeactivated(t *testing.T) {
	services := newFakeServices()

	w := do(newRouter(services, "44"), http.MethodPut, "/me", []byte(`{"display_name":"Orpah"}`))
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, models.ErrCodeForbidden, decode(t, w, nil).Error.Code)
	assert.Empty(t, services.users.users[44].DisplayName)
}

func TestPassageAudioRoundTrip(t *testing.T) {
	services := newFakeServices()
	router := newRouter(services, "42")

	var data models.AudioUploadResponse
	w := do(router, http.MethodPut, "/passages/GEN.1/audio", []byte("ID3-audio"))
	require.Equal(t, http.StatusCreated, w.Code)
	decode(t, w, &data)
	assert.Equal(t, "GEN.1.mp3", data.Location)
	assert.Equal(t, 9, data.Size)

	w = do(router, http.MethodGet, "/passages/GEN.1/audio", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, storage.AudioContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "ID3-audio", w.Body.String())
}

func TestPassageAudioErrors(t *testing.T) {
	services := newFakeServices()
	router := newRouter(services, "42")

	w := do(router, http.MethodGet, "/passages/REV.22/audio", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodPut, "/passages/GEN.1/audio", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodGet, "/passages/"+strings.Repeat("a", 80)+"/audio", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	services.audio.err = storage.ErrBucketNotConfigured
	w = do(router, http.MethodGet, "/passages/GEN.1/audio", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	services.audio.err = errors.New("AccessDenied")
	w = do(router, http.MethodPut, "/passages/GEN.1/audio", []byte("x"))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, models.ErrCodeStorageError, decode(t, w, nil).Error.Code)
	assert.NotContains(t, w.Body.String(), "AccessDenied")

	services.audio.err = fmt.Errorf("get object: %w", context.DeadlineExceeded)
	w = do(router, http.MethodGet, "/passages/GEN.1/audio", nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestPassageAudioTooLarge(t *testing.T) {
	router := newRouter(newFakeServices(), "42")

	w := do(router, http.MethodPut, "/passages/GEN.1/audio", bytes.Repeat([]byte{1}, MaxAudioBytes+1))
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "limit is 26214400 bytes", decode(t, w, nil).Error.Details)
}

func TestIssueSession(t *testing.T) {
	router := newRouter(newFakeServices(), "")

	var data models.SessionResponse
	w := do(router, http.MethodPost, "/session", []byte(`{"user_id":42}`))
	require.Equal(t, http.StatusCreated, w.Code)

	decode(t, w, &data)
	assert.Equal(t, "token-for-user", data.Token)
	assert.Equal(t, int64(1800), data.ExpiresIn)

	cookie := w.Header().Get("Set-Cookie")
	assert.Contains(t, cookie, "token=token-for-user")
	assert.Contains(t, cookie, "HttpOnly")
	assert.Contains(t, cookie, "Secure")

	w = do(router, http.MethodPost, "/session", []byte(`{}`))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]string{"user_id": "failed required validation"}, decode(t, w, nil).Error.Fields)

	w = do(router, http.MethodPost, "/session", []byte(`{"user_id":13}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestIssueSessionTouchesStoredUser(t *testing.T) {
	services := newFakeServices()
	router := newRouter(services, "")

	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/session", []byte(`{"user_id":42}`)).Code)
	// users unknown locally still get a token
	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/session", []byte(`{"user_id":7}`)).Code)

	assert.Equal(t, []int64{42}, services.users.touched)
}

func TestIssueSessionDevelopmentCookie(t *testing.T) {
	services := newFakeServices()
	services.cfg.Server.Mode = "debug"

	w := do(newRouter(services, ""), http.MethodPost, "/session", []byte(`{"user_id":42}`))
	require.Equal(t, http.StatusCreated, w.Code)

	cookie := w.Header().Get("Set-Cookie")
	assert.Contains(t, cookie, "token=token-for-user")
	assert.NotContains(t, cookie, "Secure")
}
