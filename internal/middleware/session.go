package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/evxlab/certificate-api/internal/models"
	appErrors "github.com/evxlab/certificate-api/pkg/errors"
	"github.com/evxlab/certificate-api/pkg/response"
)

// ContextSessionKey is the gin context key storing session claims.
const ContextSessionKey = "currentSession"

// SessionValidator verifies a session token.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*models.SessionClaims, error)
}

// Session protects routes by requiring a valid session cookie.
func Session(validator SessionValidator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			response.Abort(c, appErrors.Clone(appErrors.ErrUnauthorized, "Unauthorized: no token"))
			return
		}

		claims, err := validator.ValidateSession(c.Request.Context(), token)
		if err != nil {
			response.Abort(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "Unauthorized: invalid token"))
			return
		}

		c.Set(ContextSessionKey, claims)
		c.Next()
	}
}

// SessionFromContext returns the claims stored by Session, or nil.
func SessionFromContext(c *gin.Context) *models.SessionClaims {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
