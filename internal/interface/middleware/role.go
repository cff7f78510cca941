package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/readly/internal/domain/entity"
	"github.com/oksasatya/readly/pkg/response"
)

// RequireRole must run after Session. A missing identity is 401, a wrong role 403.
func RequireRole(roles ...entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "Unauthorized - no session", nil)
			return
		}
		for _, r := range roles {
			if id.Role == r {
				c.Next()
				return
			}
		}
		response.Abort(c, http.StatusForbidden, "Forbidden - insufficient role", nil)
	}
}

func RequireAdmin() gin.HandlerFunc {
	return RequireRole(entity.RoleAdmin)
}
