package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vqcheckout/wardrate/internal/models"
	"github.com/vqcheckout/wardrate/internal/ratelimit"
	"github.com/vqcheckout/wardrate/internal/security"
	"gorm.io/gorm"
)

// PhoneHandler serves phone-based address autofill. It returns the
// minimal field set needed to prefill checkout and masks the email.
type PhoneHandler struct {
	db      *gorm.DB
	limiter *ratelimit.Manager
	auditor *security.Logger
	enabled bool
}

// NewPhoneHandler constructs a phone lookup handler.
func NewPhoneHandler(db *gorm.DB, limiter *ratelimit.Manager, auditor *security.Logger, enabled bool) *PhoneHandler {
	return &PhoneHandler{db: db, limiter: limiter, auditor: auditor, enabled: enabled}
}

type phoneLookupRequest struct {
	Phone string `json:"phone"`
}

// Lookup returns the most recent address saved under a phone number.
func (h *PhoneHandler) Lookup(c *gin.Context) {
	var body phoneLookupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	phone := security.NormalizePhone(body.Phone)
	if !security.ValidPhone(phone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone must be 10 digits starting with 0"})
		return
	}

	ip := c.ClientIP()
	if result, errAllow := h.limiter.Allow(c.Request.Context(), "phone_lookup", ip); errAllow == nil && !result.Allowed {
		h.auditor.LogBlocked(c.Request.Context(), "phone_lookup", ip, nil, map[string]any{"reason": "rate_limit"})
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return
	}

	if !h.enabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "phone lookup is disabled"})
		return
	}

	var row models.Address
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("phone = ?", phone).
		Order("id DESC").
		First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{"found": false})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	address := gin.H{
		"first_name":    row.FirstName,
		"last_name":     row.LastName,
		"address_line":  row.AddressLine,
		"province_code": row.ProvinceCode,
		"district_code": row.DistrictCode,
		"ward_code":     row.WardCode,
	}
	if row.Company != "" {
		address["company"] = row.Company
	}
	if masked := security.MaskEmail(row.Email); masked != "" {
		address["email"] = masked
	}

	c.JSON(http.StatusOK, gin.H{"found": true, "address": address})
}
