package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
	appErrors "github.com/noah-isme/sma-adp-datatable/pkg/errors"
	"github.com/noah-isme/sma-adp-datatable/pkg/response"
)

// ViewEditors may create, update and delete saved views and run bulk actions.
var ViewEditors = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin}

// RequireRoles lets the request through only for the listed roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "your role cannot modify this resource"))
			c.Abort()
			return
		}
		c.Next()
	}
}
