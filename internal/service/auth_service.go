package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tutorlane/tutorlane-api/internal/models"
	appErrors "github.com/tutorlane/tutorlane-api/pkg/errors"
	"github.com/tutorlane/tutorlane-api/pkg/jobs"
	"github.com/tutorlane/tutorlane-api/pkg/storage"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindActiveByEmailAndRole(ctx context.Context, email string, role models.UserRole) (*models.User, error)
	FindActiveByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdateAvatar(ctx context.Context, id, avatarURL, avatarKey string, updatedAt time.Time) error
	SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error
	FindByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	Deactivate(ctx context.Context, id string) error
}

// AvatarStore persists uploaded avatar images.
type AvatarStore interface {
	Save(key string, data []byte) (string, error)
	Delete(key string) error
}

// ResetMailPayload is the job payload for password reset delivery.
type ResetMailPayload struct {
	To       string
	Name     string
	ResetURL string
}

// AvatarCleanupPayload is the job payload for removing replaced avatars.
type AvatarCleanupPayload struct {
	Key string
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	ResetTokenTTL time.Duration
	FrontendURL   string
	PublicBaseURL string
}

// AuthService provides account and session use cases.
type AuthService struct {
	repo      authUserRepository
	tokens    *TokenService
	avatars   AvatarStore
	mailQueue *jobs.Queue
	fileQueue *jobs.Queue
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, tokens *TokenService, avatars AvatarStore, mailQueue, fileQueue *jobs.Queue, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.ResetTokenTTL <= 0 {
		config.ResetTokenTTL = 10 * time.Minute
	}
	return &AuthService{
		repo:      repo,
		tokens:    tokens,
		avatars:   avatars,
		mailQueue: mailQueue,
		fileQueue: fileQueue,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// Register creates a new account and opens a session for it.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "email is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "email is already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue session token")
	}

	s.logger.Info("account registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))

	return &models.AuthResponse{Token: token, User: user.Info()}, nil
}

// Login authenticates a user within a single role. A wrong role is reported
// exactly like wrong credentials so neither case leaks account existence.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.repo.FindActiveByEmailAndRole(ctx, email, req.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue session token")
	}

	return &models.AuthResponse{Token: token, User: user.Info()}, nil
}

// Me returns the profile for the authenticated account.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}
	info := user.Info()
	return &info, nil
}

// UpdateProfile applies the allow-listed profile fields and returns the
// updated account.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.UserInfo, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "name cannot be empty")
		}
		user.Name = name
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}

	info := user.Info()
	return &info, nil
}

// UploadAvatar stores the image and swaps the account's avatar reference.
// The replaced file is removed asynchronously.
func (s *AuthService) UploadAvatar(ctx context.Context, userID, filename string, data []byte) (*models.UserInfo, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}

	key := storage.NewKey("avatars", filename)
	if _, err := s.avatars.Save(key, data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store avatar")
	}

	avatarURL := fmt.Sprintf("%s/%s", strings.TrimRight(s.config.PublicBaseURL, "/"), key)
	previousKey := user.AvatarKey

	if err := s.repo.UpdateAvatar(ctx, userID, avatarURL, key, time.Now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update avatar")
	}

	if previousKey != "" && s.fileQueue != nil {
		if err := s.fileQueue.Enqueue(jobs.Job{Type: "avatar_cleanup", Payload: AvatarCleanupPayload{Key: previousKey}}); err != nil {
			s.logger.Warn("failed to enqueue avatar cleanup", zap.String("key", previousKey), zap.Error(err))
		}
	}

	user.AvatarURL = avatarURL
	user.AvatarKey = key
	info := user.Info()
	return &info, nil
}

// ChangePassword changes the password for an authenticated account.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "old password is incorrect")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	if err := s.repo.UpdatePassword(ctx, userID, string(newHash), time.Now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	// Previously issued tokens stay valid until expiry, there is no
	// server-side revocation list.
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue session token")
	}

	return &models.AuthResponse{Token: token, User: user.Info()}, nil
}

// ForgotPassword issues a single-use reset token and queues the mail.
func (s *AuthService) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid forgot password payload")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.repo.FindActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no account registered with that email")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
	}

	rawToken, err := generateResetToken()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reset token")
	}

	expires := time.Now().UTC().Add(s.config.ResetTokenTTL)
	if err := s.repo.SetResetToken(ctx, user.ID, hashResetToken(rawToken), expires); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store reset token")
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", strings.TrimRight(s.config.FrontendURL, "/"), rawToken)
	if s.mailQueue != nil {
		if err := s.mailQueue.Enqueue(jobs.Job{Type: "password_reset_email", Payload: ResetMailPayload{To: user.Email, Name: user.Name, ResetURL: resetURL}}); err != nil {
			s.logger.Error("failed to enqueue reset mail", zap.String("user_id", user.ID), zap.Error(err))
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue reset mail")
		}
	}

	s.logger.Info("password reset token issued", zap.String("user_id", user.ID), zap.Time("expires", expires))
	return nil
}

// ResetPassword completes the reset flow using the raw token from the mail
// link. The stored hash and expiry are cleared on success and a fresh
// session token is issued.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken string, req models.ResetPasswordRequest) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reset password payload")
	}
	if strings.TrimSpace(rawToken) == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidResetToken, "reset token is invalid or has expired")
	}

	user, err := s.repo.FindByResetTokenHash(ctx, hashResetToken(rawToken), time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidResetToken, "reset token is invalid or has expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash), time.Now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue session token")
	}

	s.logger.Info("password reset completed", zap.String("user_id", user.ID))
	return &models.AuthResponse{Token: token, User: user.Info()}, nil
}

// DeactivateAccount soft-deletes the account. Auth middleware rejects
// inactive accounts, so outstanding tokens stop working immediately.
func (s *AuthService) DeactivateAccount(ctx context.Context, userID string) error {
	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
	}
	if err := s.repo.Deactivate(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate account")
	}

	s.logger.Info("account deactivated", zap.String("user_id", userID))
	return nil
}

func generateResetToken() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
