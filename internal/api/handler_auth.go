package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pm-tracker-backend/internal/mw"
)

// GetCurrentUser handles GET /auth/user and echoes the verified token claims.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	claims, ok := mw.CurrentClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":    claims.Subject,
		"name":  claims.Name,
		"email": claims.Email,
		"role":  claims.Role,
	})
}

// Healthz reports whether the database is reachable.
func (h *Handler) Healthz(c *gin.Context) {
	count, err := h.store.CountMachines(c.Request.Context())
	if err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "machines": count})
}
