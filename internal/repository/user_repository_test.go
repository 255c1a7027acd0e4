package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorlane/tutorlane-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func userRows(id, email string, role models.UserRole, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "phone", "bio", "avatar_url", "avatar_key", "active", "reset_token_hash", "reset_token_expires", "created_at", "updated_at"}).
		AddRow(id, "Test User", email, "hash", string(role), "", "", "", "", active, nil, nil, now, now)
}

func TestUserFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1 LIMIT 1`).
		WithArgs("ravi@example.com").
		WillReturnRows(userRows("u1", "ravi@example.com", models.RoleStudent, true))

	user, err := repo.FindByEmail(context.Background(), "ravi@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ravi@example.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserFindActiveByEmailAndRole(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`FROM users WHERE email = \$1 AND role = \$2 AND active = TRUE`).
		WithArgs("ravi@example.com", models.RoleStudent).
		WillReturnRows(userRows("u1", "ravi@example.com", models.RoleStudent, true))

	user, err := repo.FindActiveByEmailAndRole(context.Background(), "ravi@example.com", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserFindActiveByEmailAndRoleMiss(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`FROM users WHERE email = \$1 AND role = \$2 AND active = TRUE`).
		WithArgs("ravi@example.com", models.RoleTutor).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindActiveByEmailAndRole(context.Background(), "ravi@example.com", models.RoleTutor)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Name: "Ravi", Email: "ravi@example.com", PasswordHash: "hash", Role: models.RoleStudent, Active: true}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdatePasswordClearsResetToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users SET password_hash = \$2, reset_token_hash = NULL, reset_token_expires = NULL`).
		WithArgs("u1", "newhash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePassword(context.Background(), "u1", "newhash", time.Now().UTC()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserSetResetToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	expires := time.Now().UTC().Add(10 * time.Minute)
	mock.ExpectExec(`UPDATE users SET reset_token_hash = \$2, reset_token_expires = \$3`).
		WithArgs("u1", "tokenhash", expires, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetResetToken(context.Background(), "u1", "tokenhash", expires))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDeactivate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users SET active = FALSE`).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserFindByResetTokenHash(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM users WHERE reset_token_hash = \$1 AND reset_token_expires > \$2 AND active = TRUE`).
		WithArgs("tokenhash", now).
		WillReturnRows(userRows("u1", "ravi@example.com", models.RoleStudent, true))

	user, err := repo.FindByResetTokenHash(context.Background(), "tokenhash", now)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
