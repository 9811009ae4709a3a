package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vqcheckout/wardrate/internal/models"
	"gorm.io/gorm"
)

const maxSecurityLogPageSize = 200

// SecurityLogHandler serves the guard decision audit trail.
type SecurityLogHandler struct {
	db *gorm.DB
}

// NewSecurityLogHandler constructs a security log handler.
func NewSecurityLogHandler(db *gorm.DB) *SecurityLogHandler {
	return &SecurityLogHandler{db: db}
}

// List returns recent security log rows, newest first. Optional filters:
// action, decision, ip.
func (h *SecurityLogHandler) List(c *gin.Context) {
	limit := 50
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, errParse := strconv.Atoi(raw)
		if errParse != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}
	if limit > maxSecurityLogPageSize {
		limit = maxSecurityLogPageSize
	}

	query := h.db.WithContext(c.Request.Context()).Model(&models.SecurityLog{})
	if action := strings.TrimSpace(c.Query("action")); action != "" {
		query = query.Where("action = ?", action)
	}
	if decision := strings.TrimSpace(c.Query("decision")); decision != "" {
		query = query.Where("decision = ?", decision)
	}
	if ip := strings.TrimSpace(c.Query("ip")); ip != "" {
		query = query.Where("ip_address = ?", ip)
	}

	var rows []models.SecurityLog
	if errFind := query.Order("id DESC").Limit(limit).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list security log failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":         row.ID,
			"ip_address": row.IPAddress,
			"action":     row.Action,
			"score":      row.Score,
			"decision":   row.Decision,
			"metadata":   row.Metadata,
			"created_at": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}
