package middleware

import (
	"net/http"
	"strings"

	"signal_kz/internal/utils"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuthMiddleware
const (
	AuthUserKey = "authUser"
	AuthRoleKey = "authRole"
)

// JWTAuthMiddleware rejects requests without a valid bearer token and stores
// the caller's id and token role in the context.
func JWTAuthMiddleware(jwtUtil *utils.JWTUtil) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			return
		}

		claims, err := jwtUtil.ValidateToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(AuthUserKey, claims.UserID)
		c.Set(AuthRoleKey, claims.Role)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" || strings.Contains(token, " ") {
		return "", false
	}
	return token, true
}

// AuthUserID returns the user id set by JWTAuthMiddleware
func AuthUserID(c *gin.Context) (int64, bool) {
	id, ok := c.Value(AuthUserKey).(int64)
	return id, ok
}
