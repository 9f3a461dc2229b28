package handler

import (
	"net/http"
	"strconv"

	"signal_kz/internal/middleware"
	"signal_kz/internal/model"
	"signal_kz/internal/service"

	"github.com/gin-gonic/gin"
)

// ReportHandler serves the staff dashboard API. Every call acts with the
// caller's current role, not the one frozen in the token.
type ReportHandler struct {
	reports service.ReportService
	roles   service.RoleService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports service.ReportService, roles service.RoleService) *ReportHandler {
	return &ReportHandler{reports: reports, roles: roles}
}

type moderationRequest struct {
	Decision model.Decision `json:"decision" binding:"required,oneof=approve reject"`
}

type statusRequest struct {
	Status  model.Status `json:"status" binding:"required"`
	Comment string       `json:"comment" binding:"max=500"`
}

// actor resolves the authenticated user and their current role
func (h *ReportHandler) actor(c *gin.Context) (int64, model.Role, bool) {
	userID, ok := middleware.AuthUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return 0, "", false
	}
	role, err := h.roles.RoleOf(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return 0, "", false
	}
	return userID, role, true
}

func reportID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report ID"})
		return 0, false
	}
	return id, true
}

func (h *ReportHandler) ListReports(c *gin.Context) {
	_, role, ok := h.actor(c)
	if !ok {
		return
	}

	var (
		reports []model.Report
		err     error
	)
	switch scope := c.DefaultQuery("scope", "active"); scope {
	case "pending":
		reports, err = h.reports.ListPending(c.Request.Context(), role)
	case "active":
		reports, err = h.reports.ListActive(c.Request.Context(), role)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be pending or active"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	if reports == nil {
		reports = []model.Report{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (h *ReportHandler) GetReport(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}
	detail, err := h.reports.View(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *ReportHandler) GetHistory(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}
	history, err := h.reports.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if history == nil {
		history = []model.StatusUpdate{}
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (h *ReportHandler) Moderate(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}
	var req moderationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	_, role, ok := h.actor(c)
	if !ok {
		return
	}

	report, err := h.reports.Moderate(c.Request.Context(), id, role, req.Decision)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReportHandler) ChangeStatus(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	userID, role, ok := h.actor(c)
	if !ok {
		return
	}

	report, err := h.reports.ChangeStatus(c.Request.Context(), id, userID, role, req.Status, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// RegisterReportRoutes registers dashboard report routes
func (h *ReportHandler) RegisterReportRoutes(rg *gin.RouterGroup, jwtAuthMW, staffMW gin.HandlerFunc) {
	reportGroup := rg.Group("/reports")
	reportGroup.Use(jwtAuthMW, staffMW)
	{
		reportGroup.GET("", h.ListReports)
		reportGroup.GET("/:id", h.GetReport)
		reportGroup.GET("/:id/history", h.GetHistory)
		reportGroup.POST("/:id/moderation", h.Moderate)
		reportGroup.POST("/:id/status", h.ChangeStatus)
	}
}
