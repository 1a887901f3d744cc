// README: Bearer-token auth middleware; injects actor identity for audit logging.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"soko/internal/infra"
)

const (
	// Context keys set by Auth and read by handlers.
	CtxActorID   = "actorID"
	CtxActorRole = "actorRole"
)

func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.Verify(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(CtxActorID, token.UID)
		c.Set(CtxActorRole, token.Role)
		c.Next()
	}
}

// RequireRole guards a route group to a single role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxActorRole) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
