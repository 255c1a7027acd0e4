package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorlane/tutorlane-api/internal/models"
	appErrors "github.com/tutorlane/tutorlane-api/pkg/errors"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "tutorlane"})

	token, err := svc.Issue(&models.User{ID: "u1", Role: models.RoleTutor, Email: "t@example.com", Name: "T"})
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleTutor, claims.Role)
}

func TestTokenServiceRejectsMalformedClaims(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "test-secret", Expiration: time.Hour})

	sign := func(claims models.JWTClaims) string {
		now := time.Now().UTC()
		claims.IssuedAt = jwt.NewNumericDate(now)
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(time.Hour))
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		return signed
	}

	// Correctly signed but carrying a role the service never issues.
	_, err := svc.Validate(sign(models.JWTClaims{UserID: "u1", Role: "admin"}))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	// Missing subject.
	_, err = svc.Validate(sign(models.JWTClaims{Role: models.RoleStudent}))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
