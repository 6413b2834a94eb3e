package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/fitsync/academia-api/pkg/errors"
	"github.com/fitsync/academia-api/pkg/response"
)

// RequireStaff blocks requests whose token carries no staff role.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !claims.IsStaff() {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "acesso restrito a equipe"))
			c.Abort()
			return
		}
		c.Next()
	}
}
