package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/readly/internal/domain/entity"
	"github.com/oksasatya/readly/pkg/helpers"
	"github.com/oksasatya/readly/pkg/response"
)

// Session reads the session cookie, validates it and attaches the caller's Identity.
// Requests without a valid token stop here with 401.
func Session(jwt *helpers.JWTManager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			response.Abort(c, http.StatusUnauthorized, "Unauthorized - no token provided", nil)
			return
		}
		claims, err := jwt.Parse(token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "Unauthorized - invalid token",
				gin.H{"reason": helpers.TokenErrorReason(err)})
			return
		}
		role := entity.Role(claims.Role)
		if claims.UserID == "" || !role.Valid() {
			response.Abort(c, http.StatusUnauthorized, "Unauthorized - invalid token",
				gin.H{"reason": "invalid"})
			return
		}
		WithIdentity(c, Identity{UserID: claims.UserID, Role: role})
		c.Next()
	}
}
