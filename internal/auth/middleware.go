package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"adboard-backend/internal/errors"
	"adboard-backend/pkg/utils"
)

// Middleware validates the bearer token and attaches the identity to the
// request context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			utils.SendErrorResponse(c, http.StatusUnauthorized, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			utils.SendErrorResponse(c, http.StatusUnauthorized, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)
		c.Set("client_id", claims.ClientID)
		c.Next()
	}
}

// RequireAdmin aborts the request unless the caller has the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != "admin" {
			utils.SendErrorResponse(c, http.StatusForbidden, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}
