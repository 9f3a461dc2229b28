package handler

import (
	"errors"
	"net/http"

	"signal_kz/internal/errs"

	"github.com/gin-gonic/gin"
)

// respondError maps an error kind to an HTTP status
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrPermission):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		// store details stay in the logs
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
