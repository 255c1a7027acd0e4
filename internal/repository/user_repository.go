package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorlane/tutorlane-api/internal/models"
)

const userColumns = `id, name, email, password_hash, role, phone, bio, avatar_url, avatar_key, active, reset_token_hash, reset_token_expires, created_at, updated_at`

// UserRepository provides database access for accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address regardless of role or state.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindActiveByEmailAndRole performs the login lookup. Email and role form the
// composite key, so a wrong role behaves exactly like a missing account.
func (r *UserRepository) FindActiveByEmailAndRole(ctx context.Context, email string, role models.UserRole) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1 AND role = $2 AND active = TRUE LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email, role); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email and role: %w", err)
	}
	return &user, nil
}

// FindActiveByEmail returns an active user by email, used by the reset flow.
func (r *UserRepository) FindActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1 AND active = TRUE LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// Create inserts a new user record.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, name, email, password_hash, role, phone, bio, avatar_url, avatar_key, active, created_at, updated_at)
        VALUES (:id, :name, :email, :password_hash, :role, :phone, :bio, :avatar_url, :avatar_key, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash and clears any reset token.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, reset_token_hash = NULL, reset_token_expires = NULL, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// UpdateProfile persists the allow-listed profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET name = :name, phone = :phone, bio = :bio, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// UpdateAvatar replaces the stored avatar reference.
func (r *UserRepository) UpdateAvatar(ctx context.Context, id, avatarURL, avatarKey string, updatedAt time.Time) error {
	const query = `UPDATE users SET avatar_url = $2, avatar_key = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, avatarURL, avatarKey, updatedAt); err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}
	return nil
}

// SetResetToken stores the hashed single-use reset token and its expiry.
func (r *UserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	const query = `UPDATE users SET reset_token_hash = $2, reset_token_expires = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, tokenHash, expires, time.Now().UTC()); err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	return nil
}

// FindByResetTokenHash returns the active user holding an unexpired reset
// token with the given hash.
func (r *UserRepository) FindByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE reset_token_hash = $1 AND reset_token_expires > $2 AND active = TRUE LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, tokenHash, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by reset token: %w", err)
	}
	return &user, nil
}

// Deactivate performs a soft delete by marking the user inactive.
func (r *UserRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE users SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	return nil
}
