package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tutorlane/tutorlane-api/internal/models"
	"github.com/tutorlane/tutorlane-api/internal/service"
	appErrors "github.com/tutorlane/tutorlane-api/pkg/errors"
	"github.com/tutorlane/tutorlane-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// UserFinder resolves the account behind a token. A token for a deleted or
// deactivated account must not open a session.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// JWT protects routes by requiring a valid session token backed by an
// active account.
func JWT(tokens *service.TokenService, users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authorization header is required"))
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := tokens.Validate(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		if users != nil {
			user, err := users.FindByID(c.Request.Context(), claims.UserID)
			if err != nil || !user.Active {
				response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer active"))
				c.Abort()
				return
			}
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// OptionalJWT attaches claims when a valid bearer token is present but never
// rejects the request. Public routes use it to recognise an owning tutor.
func OptionalJWT(tokens *service.TokenService, users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.Next()
			return
		}

		claims, err := tokens.Validate(parts[1])
		if err != nil {
			c.Next()
			return
		}

		if users != nil {
			user, err := users.FindByID(c.Request.Context(), claims.UserID)
			if err != nil || !user.Active {
				c.Next()
				return
			}
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}
