package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tutorlane/tutorlane-api/internal/models"
	"github.com/tutorlane/tutorlane-api/internal/service"
)

type authRepoStub struct {
	user    *models.User
	created *models.User
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *authRepoStub) FindActiveByEmailAndRole(ctx context.Context, email string, role models.UserRole) (*models.User, error) {
	if s.user == nil || s.user.Email != email || s.user.Role != role || !s.user.Active {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *authRepoStub) FindActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.FindByEmail(ctx, email)
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *authRepoStub) Create(ctx context.Context, user *models.User) error {
	s.created = user
	return nil
}

func (s *authRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	return nil
}

func (s *authRepoStub) UpdateProfile(ctx context.Context, user *models.User) error {
	return nil
}

func (s *authRepoStub) UpdateAvatar(ctx context.Context, id, avatarURL, avatarKey string, updatedAt time.Time) error {
	return nil
}

func (s *authRepoStub) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	return nil
}

func (s *authRepoStub) FindByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) Deactivate(ctx context.Context, id string) error {
	if s.user != nil && s.user.ID == id {
		s.user.Active = false
	}
	return nil
}

type avatarStoreStub struct{}

func (avatarStoreStub) Save(key string, data []byte) (string, error) { return "/tmp/" + key, nil }
func (avatarStoreStub) Delete(key string) error                     { return nil }

func newAuthTestRouter(repo *authRepoStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := service.NewTokenService(service.TokenConfig{Secret: "secret", Expiration: time.Hour})
	svc := service.NewAuthService(repo, tokens, avatarStoreStub{}, nil, nil, validator.New(), zap.NewNop(), service.AuthConfig{
		ResetTokenTTL: 10 * time.Minute,
		FrontendURL:   "https://app.example.com",
	})
	h := NewAuthHandler(svc, 0)

	router := gin.New()
	router.POST("/api/auth/register", h.Register)
	router.POST("/api/auth/login", h.Login)
	return router
}

func TestAuthHandlerRegister(t *testing.T) {
	repo := &authRepoStub{}
	router := newAuthTestRouter(repo)

	body, _ := json.Marshal(gin.H{
		"name":     "Ravi Kumar",
		"email":    "ravi@example.com",
		"password": "password",
		"role":     "student",
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var envelope struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		Data    struct {
			User models.UserInfo `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.Token)
	assert.Equal(t, "ravi@example.com", envelope.Data.User.Email)
	require.NotNil(t, repo.created)
}

func TestAuthHandlerRegisterRejectsUnknownRole(t *testing.T) {
	router := newAuthTestRouter(&authRepoStub{})

	body, _ := json.Marshal(gin.H{
		"name":     "Ravi Kumar",
		"email":    "ravi@example.com",
		"password": "password",
		"role":     "admin",
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerLoginWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &authRepoStub{user: &models.User{ID: "u1", Email: "ravi@example.com", PasswordHash: string(hash), Role: models.RoleStudent, Active: true}}
	router := newAuthTestRouter(repo)

	body, _ := json.Marshal(gin.H{
		"email":    "ravi@example.com",
		"password": "wrong",
		"role":     "student",
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var envelope struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.NotEmpty(t, envelope.Message)
}
