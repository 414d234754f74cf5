package middleware

import (
	"Postpilot/internal/pkg/response"
	"slices"

	"github.com/gin-gonic/gin"
)

// CheckRoles lets the request through when the caller has at least one of requiredRoles
func CheckRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roles := c.GetStringSlice("roles")

		hasPermission := slices.ContainsFunc(requiredRoles, func(required string) bool {
			return slices.Contains(roles, required)
		})

		if !hasPermission {
			response.Fail(c, response.Forbidden, "permission denied")
			c.Abort()
			return
		}

		c.Next()
	}
}
