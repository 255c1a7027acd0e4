package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tutorlane/tutorlane-api/internal/models"
	appErrors "github.com/tutorlane/tutorlane-api/pkg/errors"
	"github.com/tutorlane/tutorlane-api/pkg/jobs"
)

type mockUserRepo struct {
	user              *models.User
	created           *models.User
	resetTokenHash    string
	resetTokenExpires time.Time
	updatedHash       string
	updatedProfile    *models.User
	avatarURL         string
	avatarKey         string
	deactivated       string
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.user == nil || m.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockUserRepo) FindActiveByEmailAndRole(ctx context.Context, email string, role models.UserRole) (*models.User, error) {
	if m.user == nil || m.user.Email != email || m.user.Role != role || !m.user.Active {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockUserRepo) FindActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.user == nil || m.user.Email != email || !m.user.Active {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.created = user
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.updatedHash = passwordHash
	m.resetTokenHash = ""
	return nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	m.updatedProfile = user
	return nil
}

func (m *mockUserRepo) UpdateAvatar(ctx context.Context, id, avatarURL, avatarKey string, updatedAt time.Time) error {
	m.avatarURL = avatarURL
	m.avatarKey = avatarKey
	return nil
}

func (m *mockUserRepo) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	m.resetTokenHash = tokenHash
	m.resetTokenExpires = expires
	return nil
}

func (m *mockUserRepo) FindByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	if m.user == nil || m.resetTokenHash == "" || m.resetTokenHash != tokenHash || now.After(m.resetTokenExpires) {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockUserRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = id
	if m.user != nil && m.user.ID == id {
		m.user.Active = false
	}
	return nil
}

type mockAvatarStore struct {
	saved   map[string][]byte
	deleted []string
}

func (m *mockAvatarStore) Save(key string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[key] = data
	return "/tmp/" + key, nil
}

func (m *mockAvatarStore) Delete(key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

func newTestAuthService(repo *mockUserRepo) (*AuthService, *TokenService) {
	tokens := NewTokenService(TokenConfig{Secret: "secret", Expiration: time.Hour, Issuer: "tutorlane"})
	svc := NewAuthService(repo, tokens, &mockAvatarStore{}, nil, nil, validator.New(), zap.NewNop(), AuthConfig{
		ResetTokenTTL: 10 * time.Minute,
		FrontendURL:   "https://app.example.com",
		PublicBaseURL: "https://api.example.com/uploads",
	})
	return svc, tokens
}

func TestAuthServiceRegister(t *testing.T) {
	repo := &mockUserRepo{}
	svc, tokens := newTestAuthService(repo)

	res, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:     "Ravi Kumar",
		Email:    "Ravi@Example.com",
		Password: "password",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, "ravi@example.com", repo.created.Email)
	assert.True(t, repo.created.Active)
	assert.NotEqual(t, "password", repo.created.PasswordHash)

	claims, err := tokens.Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, repo.created.ID, claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u1", Email: "taken@example.com", Role: models.RoleStudent, Active: true}}
	svc, _ := newTestAuthService(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:     "Someone",
		Email:    "taken@example.com",
		Password: "password",
		Role:     models.RoleTutor,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateEmail.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockUserRepo{user: &models.User{ID: "u1", Email: "student@example.com", PasswordHash: string(hash), Role: models.RoleStudent, Active: true}}
	svc, tokens := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "password", Role: models.RoleStudent})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "u1", res.User.ID)

	claims, err := tokens.Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockUserRepo{user: &models.User{ID: "u1", Email: "student@example.com", PasswordHash: string(hash), Role: models.RoleStudent, Active: true}}
	svc, _ := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "wrong", Role: models.RoleStudent})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginWrongRoleLooksLikeWrongCredentials(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockUserRepo{user: &models.User{ID: "u1", Email: "student@example.com", PasswordHash: string(hash), Role: models.RoleStudent, Active: true}}
	svc, _ := newTestAuthService(repo)

	_, wrongRoleErr := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "password", Role: models.RoleTutor})
	_, wrongPassErr := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "wrong", Role: models.RoleStudent})

	require.Error(t, wrongRoleErr)
	require.Error(t, wrongPassErr)
	assert.Equal(t, appErrors.FromError(wrongPassErr).Code, appErrors.FromError(wrongRoleErr).Code)
	assert.Equal(t, appErrors.FromError(wrongPassErr).Message, appErrors.FromError(wrongRoleErr).Message)
}

func TestTokenServiceRejectsExpiredToken(t *testing.T) {
	tokens := NewTokenService(TokenConfig{Secret: "secret", Expiration: time.Hour})

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, models.JWTClaims{
		UserID: "u1",
		Role:   models.RoleStudent,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = tokens.Validate(signed)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceForgotPasswordQueuesMail(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u1", Name: "Ravi", Email: "student@example.com", Role: models.RoleStudent, Active: true}}

	delivered := make(chan jobs.Job, 1)
	queue := jobs.NewQueue("mail", func(ctx context.Context, job jobs.Job) error {
		delivered <- job
		return nil
	}, jobs.QueueConfig{Workers: 1})
	queue.Start(context.Background())
	defer queue.Stop()

	tokens := NewTokenService(TokenConfig{Secret: "secret", Expiration: time.Hour})
	svc := NewAuthService(repo, tokens, &mockAvatarStore{}, queue, nil, validator.New(), zap.NewNop(), AuthConfig{
		ResetTokenTTL: 10 * time.Minute,
		FrontendURL:   "https://app.example.com",
	})

	err := svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "student@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, repo.resetTokenHash)
	assert.True(t, repo.resetTokenExpires.After(time.Now().UTC()))

	select {
	case job := <-delivered:
		payload, ok := job.Payload.(ResetMailPayload)
		require.True(t, ok)
		assert.Equal(t, "student@example.com", payload.To)
		assert.Contains(t, payload.ResetURL, "https://app.example.com/reset-password/")
	case <-time.After(2 * time.Second):
		t.Fatal("reset mail was never delivered")
	}
}

func TestAuthServiceForgotPasswordUnknownEmail(t *testing.T) {
	repo := &mockUserRepo{}
	svc, _ := newTestAuthService(repo)

	err := svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "ghost@example.com"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceResetPassword(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u1", Email: "student@example.com", Role: models.RoleStudent, Active: true}}
	svc, _ := newTestAuthService(repo)

	raw, err := generateResetToken()
	require.NoError(t, err)
	repo.resetTokenHash = hashResetToken(raw)
	repo.resetTokenExpires = time.Now().UTC().Add(10 * time.Minute)

	res, err := svc.ResetPassword(context.Background(), raw, models.ResetPasswordRequest{Password: "newpassword"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.NotEmpty(t, repo.updatedHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.updatedHash), []byte("newpassword")))
	assert.Empty(t, repo.resetTokenHash)
}

func TestAuthServiceResetPasswordExpiredToken(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u1", Email: "student@example.com", Role: models.RoleStudent, Active: true}}
	svc, _ := newTestAuthService(repo)

	raw, err := generateResetToken()
	require.NoError(t, err)
	repo.resetTokenHash = hashResetToken(raw)
	repo.resetTokenExpires = time.Now().UTC().Add(-time.Minute)

	_, err = svc.ResetPassword(context.Background(), raw, models.ResetPasswordRequest{Password: "newpassword"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidResetToken.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceResetPasswordWrongToken(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u1", Email: "student@example.com", Role: models.RoleStudent, Active: true}}
	svc, _ := newTestAuthService(repo)

	raw, err := generateResetToken()
	require.NoError(t, err)
	repo.resetTokenHash = hashResetToken(raw)
	repo.resetTokenExpires = time.Now().UTC().Add(10 * time.Minute)

	_, err = svc.ResetPassword(context.Background(), "deadbeef", models.ResetPasswordRequest{Password: "newpassword"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidResetToken.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceChangePassword(t *testing.T) {
	oldHash, _ := bcrypt.GenerateFromPassword([]byte("oldpassword"), bcrypt.DefaultCost)
	repo := &mockUserRepo{user: &models.User{ID: "u1", Email: "student@example.com", PasswordHash: string(oldHash), Role: models.RoleStudent, Active: true}}
	svc, _ := newTestAuthService(repo)

	res, err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "oldpassword", NewPassword: "newpassword"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.NotEmpty(t, repo.updatedHash)
}

func TestAuthServiceChangePasswordWrongOld(t *testing.T) {
	oldHash, _ := bcrypt.GenerateFromPassword([]byte("oldpassword"), bcrypt.DefaultCost)
	repo := &mockUserRepo{user: &models.User{ID: "u1", Email: "student@example.com", PasswordHash: string(oldHash), Role: models.RoleStudent, Active: true}}
	svc, _ := newTestAuthService(repo)

	_, err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "nope", NewPassword: "newpassword"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceDeactivateAccount(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u1", Email: "student@example.com", Role: models.RoleStudent, Active: true}}
	svc, _ := newTestAuthService(repo)

	require.NoError(t, svc.DeactivateAccount(context.Background(), "u1"))
	assert.Equal(t, "u1", repo.deactivated)
	assert.False(t, repo.user.Active)

	err := svc.DeactivateAccount(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceUpdateProfile(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u1", Name: "Old Name", Email: "student@example.com", Role: models.RoleStudent, Active: true}}
	svc, _ := newTestAuthService(repo)

	name := "New Name"
	bio := "Learning Go"
	info, err := svc.UpdateProfile(context.Background(), "u1", models.UpdateProfileRequest{Name: &name, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "New Name", info.Name)
	require.NotNil(t, repo.updatedProfile)
	assert.Equal(t, "Learning Go", repo.updatedProfile.Bio)
}
