package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/metrics"
	"eventplatform/internal/models"
	"eventplatform/internal/permissions"
)

type stubAuth struct {
	sessions map[string]*models.Session
	users    map[string]*models.User
}

func (s stubAuth) ResolveSession(_ context.Context, token string) (*models.Session, error) {
	if session, ok := s.sessions[token]; ok {
		return session, nil
	}
	return nil, apperrors.ErrNotFound
}

func (s stubAuth) Authenticate(_ context.Context, username, password string) (*models.User, error) {
	if u, ok := s.users[username]; ok && password == "clave-valida" {
		return u, nil
	}
	return nil, apperrors.ErrInvalidCredentials
}

func newAuth() stubAuth {
	return stubAuth{
		sessions: map[string]*models.Session{
			"tok": {Token: "tok", UserID: 7, Username: "org", Groups: []string{models.GroupOrganizers}},
		},
		users: map[string]*models.User{
			"ana": {UserID: 9, Username: "ana", Groups: []string{models.GroupAttendees}},
		},
	}
}

func setupRouter(auth Authenticator) (*gin.Engine, *permissions.Principal) {
	gin.SetMode(gin.TestMode)
	var seen permissions.Principal

	r := gin.New()
	r.Use(Session(auth, "sessionid"))
	r.GET("/whoami", func(c *gin.Context) {
		seen = PrincipalFromContext(c)
		c.JSON(http.StatusOK, gin.H{"token": SessionToken(c)})
	})
	r.GET("/private", RequireLogin("/usuarios/login/"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r, &seen
}

func TestSession_Cookie(t *testing.T) {
	r, seen := setupRouter(newAuth())

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: "tok"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), seen.UserID)
	assert.True(t, seen.Has(permissions.AddEvent))
	assert.Contains(t, w.Body.String(), `"token":"tok"`)
}

func TestSession_UnknownCookieIsAnonymous(t *testing.T) {
	r, seen := setupRouter(newAuth())

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: "expired"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, seen.IsAuthenticated())
}

func TestSession_BasicAuth(t *testing.T) {
	r, seen := setupRouter(newAuth())

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.SetBasicAuth("ana", "clave-valida")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(9), seen.UserID)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.SetBasicAuth("ana", "otra")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
}

func TestRequireLogin(t *testing.T) {
	r, _ := setupRouter(newAuth())

	req := httptest.NewRequest(http.MethodGet, "/private?x=1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `/usuarios/login/?next=%2Fprivate%3Fx%3D1`)

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: "tok"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTimeout_SetsDeadline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Timeout(time.Second))

	var hasDeadline bool
	r.GET("/", func(c *gin.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, hasDeadline)
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/:id/", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/42/", nil))

	count, err := testutil.GatherAndCount(m.Registry(), "eventos_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
