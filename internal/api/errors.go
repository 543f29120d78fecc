package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pm-tracker-backend/internal/pm"
	"pm-tracker-backend/internal/store"
)

// respondError maps domain errors onto HTTP responses. Unexpected errors are
// logged and reported with a generic message.
func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *pm.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": verr.Fields})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Machine with this ID MSN already exists"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Machine not found"})
	case errors.Is(err, pm.ErrInvalidFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid spreadsheet file"})
	default:
		_ = c.Error(err)
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}
