package middleware

import (
	"Postpilot/internal/pkg/response"
	"Postpilot/internal/pkg/security"
	"context"
	log "log/slog"
	"strings"

	"github.com/gin-gonic/gin"
)

// RevocationChecker reports whether the token with signature was revoked. Nil skips the check.
type RevocationChecker func(ctx context.Context, signature string) (bool, error)

// AuthMiddleware validates the bearer token and puts the caller identity on the context
func AuthMiddleware(verifier *security.TokenVerifier, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			response.Fail(c, response.Unauthorized, "missing or malformed token")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		signature, err := security.ExtractSignature(tokenString)
		if err != nil {
			response.Fail(c, response.Unauthorized, "missing or malformed token")
			c.Abort()
			return
		}

		if revoked != nil {
			isRevoked, err := revoked(c.Request.Context(), signature)
			if err != nil {
				log.ErrorContext(c.Request.Context(), "token revocation lookup failed", "err", err)
				response.Fail(c, response.InternalServerError, "unexpected error, please retry later")
				c.Abort()
				return
			}
			if isRevoked {
				response.Fail(c, response.Unauthorized, "token invalid or expired")
				c.Abort()
				return
			}
		}

		claims, err := verifier.ValidateToken(tokenString)
		if err != nil {
			response.Fail(c, response.Unauthorized, "token invalid or expired")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("roles", claims.Roles)

		newCtx := context.WithValue(c.Request.Context(), "user_id", claims.UserID)
		c.Request = c.Request.WithContext(newCtx)

		c.Next()
	}
}
