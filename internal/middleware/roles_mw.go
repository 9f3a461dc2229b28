package middleware

import (
	"net/http"
	"slices"

	"signal_kz/internal/model"

	"github.com/gin-gonic/gin"
)

// RoleMiddleware gates a route on the role carried by the token. It is a
// coarse filter: handlers authorise on the caller's current role.
func RoleMiddleware(allowed ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := model.ParseRole(c.GetString(AuthRoleKey))
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Token carries no valid role"})
			return
		}
		if !slices.Contains(allowed, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Not allowed for role " + string(role)})
			return
		}
		c.Next()
	}
}

// StaffMiddleware admits moderators, officials and admins
func StaffMiddleware() gin.HandlerFunc {
	return RoleMiddleware(model.RoleModerator, model.RoleOfficial, model.RoleAdmin)
}

// AdminMiddleware admits admins only
func AdminMiddleware() gin.HandlerFunc {
	return RoleMiddleware(model.RoleAdmin)
}
