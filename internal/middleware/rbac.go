package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sprs-api/internal/models"
	appErrors "github.com/noah-isme/sprs-api/pkg/errors"
	"github.com/noah-isme/sprs-api/pkg/response"
)

// RequireRoles only lets callers with one of roles through. A role mismatch
// is answered with 403 regardless of the business error policy.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		claims, ok := claimsValue.(*models.JWTClaims)
		if !exists || !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}

		response.ErrorWithStatus(c, http.StatusForbidden, appErrors.Clone(appErrors.ErrForbidden, "role not allowed for this route"))
		c.Abort()
	}
}
