package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vqcheckout/wardrate/internal/config"
	"github.com/vqcheckout/wardrate/internal/models"
	"github.com/vqcheckout/wardrate/internal/security"
	"gorm.io/gorm"
)

// AuthHandler manages admin login.
type AuthHandler struct {
	db     *gorm.DB
	jwtCfg config.JWTConfig
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code"` // TOTP code, only on /login/totp.
}

// Login authenticates with username and password. Accounts with TOTP
// enabled must complete login through LoginTOTP instead.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	admin, errAuth := h.checkCredentials(c, body.Username, body.Password)
	if errAuth != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if admin.TOTPEnabled {
		c.JSON(http.StatusOK, gin.H{"totp_required": true})
		return
	}

	h.issueToken(c, admin)
}

// LoginTOTP authenticates with username, password, and a TOTP code.
func (h *AuthHandler) LoginTOTP(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	admin, errAuth := h.checkCredentials(c, body.Username, body.Password)
	if errAuth != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if !admin.TOTPEnabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totp not enabled"})
		return
	}
	if !security.ValidateTOTP(admin.TOTPSecret, strings.TrimSpace(body.Code)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}

	h.issueToken(c, admin)
}

var errBadCredentials = errors.New("bad credentials")

func (h *AuthHandler) checkCredentials(c *gin.Context, username, password string) (*models.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errBadCredentials
	}

	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("username = ?", username).
		First(&admin).Error; errFind != nil {
		// Burn a bcrypt comparison so unknown usernames cost the same.
		security.CheckPassword("$2a$10$0000000000000000000000000000000000000000000000000000", password)
		return nil, errBadCredentials
	}
	if !admin.IsEnabled {
		return nil, errBadCredentials
	}
	if !security.CheckPassword(admin.PasswordHash, password) {
		return nil, errBadCredentials
	}
	return &admin, nil
}

func (h *AuthHandler) issueToken(c *gin.Context, admin *models.Admin) {
	token, errSign := security.SignAdminToken(h.jwtCfg.Secret, admin.ID, admin.Username, h.jwtCfg.Expiry)
	if errSign != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"username": admin.Username,
	})
}
