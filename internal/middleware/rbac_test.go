package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorlane/tutorlane-api/internal/models"
	"github.com/tutorlane/tutorlane-api/internal/service"
)

type stubUserFinder struct {
	users map[string]*models.User
}

func (s *stubUserFinder) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, assert.AnError
}

func newProtectedRouter(t *testing.T, tokens *service.TokenService, finder UserFinder) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/dashboard/stats", JWT(tokens, finder), RequireRoles(models.RoleStudent), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestJWTMissingToken(t *testing.T) {
	tokens := service.NewTokenService(service.TokenConfig{Secret: "secret", Expiration: time.Hour})
	router := newProtectedRouter(t, tokens, &stubUserFinder{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTGarbageToken(t *testing.T) {
	tokens := service.NewTokenService(service.TokenConfig{Secret: "secret", Expiration: time.Hour})
	router := newProtectedRouter(t, tokens, &stubUserFinder{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTDeactivatedAccount(t *testing.T) {
	tokens := service.NewTokenService(service.TokenConfig{Secret: "secret", Expiration: time.Hour})
	user := &models.User{ID: "u1", Email: "student@example.com", Role: models.RoleStudent, Active: false}
	finder := &stubUserFinder{users: map[string]*models.User{"u1": user}}
	router := newProtectedRouter(t, tokens, finder)

	token, err := tokens.Issue(user)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRBACWrongRoleIsForbiddenNotUnauthorized(t *testing.T) {
	tokens := service.NewTokenService(service.TokenConfig{Secret: "secret", Expiration: time.Hour})
	tutor := &models.User{ID: "t1", Email: "tutor@example.com", Role: models.RoleTutor, Active: true}
	finder := &stubUserFinder{users: map[string]*models.User{"t1": tutor}}
	router := newProtectedRouter(t, tokens, finder)

	token, err := tokens.Issue(tutor)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRBACAllowsMatchingRole(t *testing.T) {
	tokens := service.NewTokenService(service.TokenConfig{Secret: "secret", Expiration: time.Hour})
	student := &models.User{ID: "s1", Email: "student@example.com", Role: models.RoleStudent, Active: true}
	finder := &stubUserFinder{users: map[string]*models.User{"s1": student}}
	router := newProtectedRouter(t, tokens, finder)

	token, err := tokens.Issue(student)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
