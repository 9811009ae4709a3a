package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vqcheckout/wardrate/internal/models"
	"github.com/vqcheckout/wardrate/internal/security"
	"gorm.io/gorm"
)

// MFAHandler manages TOTP setup for the logged-in admin.
type MFAHandler struct {
	db *gorm.DB
}

// NewMFAHandler constructs an MFA handler.
func NewMFAHandler(db *gorm.DB) *MFAHandler {
	return &MFAHandler{db: db}
}

func (h *MFAHandler) currentAdmin(c *gin.Context) (*models.Admin, bool) {
	adminID, exists := c.Get("adminID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return nil, false
	}
	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).First(&admin, adminID).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return nil, false
	}
	return &admin, true
}

// Status reports whether TOTP is enabled for the current admin.
func (h *MFAHandler) Status(c *gin.Context) {
	admin, ok := h.currentAdmin(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"totp_enabled": admin.TOTPEnabled})
}

// PrepareTOTP generates a new secret and returns the provisioning URL.
// The secret stays inactive until confirmed with a valid code.
func (h *MFAHandler) PrepareTOTP(c *gin.Context) {
	admin, ok := h.currentAdmin(c)
	if !ok {
		return
	}
	if admin.TOTPEnabled {
		c.JSON(http.StatusConflict, gin.H{"error": "totp already enabled"})
		return
	}

	key, errGenerate := security.GenerateTOTPSecret(admin.Username)
	if errGenerate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate secret failed"})
		return
	}

	if errSave := h.db.WithContext(c.Request.Context()).
		Model(&models.Admin{}).
		Where("id = ?", admin.ID).
		Update("totp_secret", key.Secret()).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save secret failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"secret": key.Secret(),
		"url":    key.URL(),
	})
}

type totpConfirmRequest struct {
	Code string `json:"code"`
}

// ConfirmTOTP activates TOTP after the admin proves they hold the secret.
func (h *MFAHandler) ConfirmTOTP(c *gin.Context) {
	admin, ok := h.currentAdmin(c)
	if !ok {
		return
	}
	if admin.TOTPSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no pending secret"})
		return
	}

	var body totpConfirmRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !security.ValidateTOTP(admin.TOTPSecret, strings.TrimSpace(body.Code)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}

	if errSave := h.db.WithContext(c.Request.Context()).
		Model(&models.Admin{}).
		Where("id = ?", admin.ID).
		Update("totp_enabled", true).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enable totp failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"totp_enabled": true})
}

// DisableTOTP turns TOTP off after verifying a current code.
func (h *MFAHandler) DisableTOTP(c *gin.Context) {
	admin, ok := h.currentAdmin(c)
	if !ok {
		return
	}
	if !admin.TOTPEnabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totp not enabled"})
		return
	}

	var body totpConfirmRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !security.ValidateTOTP(admin.TOTPSecret, strings.TrimSpace(body.Code)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}

	if errSave := h.db.WithContext(c.Request.Context()).
		Model(&models.Admin{}).
		Where("id = ?", admin.ID).
		Updates(map[string]any{"totp_enabled": false, "totp_secret": ""}).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "disable totp failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"totp_enabled": false})
}
