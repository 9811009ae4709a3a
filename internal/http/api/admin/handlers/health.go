package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler constructs a health handler.
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthz reports whether the database connection is usable.
func (h *HealthHandler) Healthz(c *gin.Context) {
	if h.db != nil {
		if sqlDB, errDB := h.db.DB(); errDB == nil {
			if errPing := sqlDB.PingContext(c.Request.Context()); errPing != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
				return
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
