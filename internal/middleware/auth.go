package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"medaudit/internal/port"
)

const (
	// HeaderSessionID carries the audit session a request belongs to.
	HeaderSessionID = "X-Session-ID"

	ContextKeyRequestID = "request_id"
)

// AuthMiddleware returns Gin middleware that asks authorizer whether the
// bearer token may use the audit API.
func AuthMiddleware(authorizer port.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if !authorizer.IsAuthorized(c.Request.Context(), token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "UNAUTHORIZED", "message": "missing, invalid or expired token"},
			})
			return
		}
		c.Next()
	}
}
