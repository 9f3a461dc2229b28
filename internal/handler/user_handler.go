package handler

import (
	"net/http"
	"strconv"

	"signal_kz/internal/middleware"
	"signal_kz/internal/service"

	"github.com/gin-gonic/gin"
)

// UserHandler lets admins manage roles from the dashboard
type UserHandler struct {
	roles    service.RoleService
	notifier service.NotificationService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(roles service.RoleService, notifier service.NotificationService) *UserHandler {
	return &UserHandler{roles: roles, notifier: notifier}
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

// SetRole assigns a role to a registered user. The service re-checks that
// the caller is still an admin.
func (h *UserHandler) SetRole(c *gin.Context) {
	actorID, ok := middleware.AuthUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || targetID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := h.roles.SetRole(c.Request.Context(), actorID, targetID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	_ = h.notifier.NotifyUser(c.Request.Context(), targetID, service.RoleAssignedNotice(role))
	c.JSON(http.StatusOK, gin.H{"user_id": targetID, "role": role})
}

// RegisterUserRoutes registers admin-only user management routes
func (h *UserHandler) RegisterUserRoutes(rg *gin.RouterGroup, jwtAuthMW, adminMW gin.HandlerFunc) {
	userGroup := rg.Group("/users")
	userGroup.Use(jwtAuthMW, adminMW)
	{
		userGroup.PUT("/:id/role", h.SetRole)
	}
}
