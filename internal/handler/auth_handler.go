package handler

import (
	"net/http"

	"signal_kz/internal/middleware"
	"signal_kz/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles dashboard authentication requests. Tokens are
// obtained through the bot's /token command.
type AuthHandler struct {
	service service.AuthService
	roles   service.RoleService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(s service.AuthService, roles service.RoleService) *AuthHandler {
	return &AuthHandler{service: s, roles: roles}
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.AuthUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	user, err := h.roles.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":      user.ID,
		"username":     user.Username,
		"display_name": user.DisplayName(),
		"role":         user.Role,
	})
}

// Refresh reissues the token with the caller's current role
func (h *AuthHandler) Refresh(c *gin.Context) {
	userID, ok := middleware.AuthUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	token, user, err := h.service.IssueToken(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Token refreshed",
		"user_id": user.ID,
		"role":    user.Role,
		"token":   token,
	})
}

// RegisterAuthRoutes registers auth routes
func (h *AuthHandler) RegisterAuthRoutes(rg *gin.RouterGroup, jwtAuthMW gin.HandlerFunc) {
	authGroup := rg.Group("/auth")
	authGroup.Use(jwtAuthMW)
	{
		authGroup.GET("/me", h.Me)
		authGroup.POST("/refresh", h.Refresh)
	}
}
