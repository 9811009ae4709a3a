package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vqcheckout/wardrate/internal/locations"
	"github.com/vqcheckout/wardrate/internal/models"
	"github.com/vqcheckout/wardrate/internal/security"
	"gorm.io/gorm"
)

// AddressHandler serves the location hierarchy and stores checkout
// addresses for later phone-based autofill.
type AddressHandler struct {
	db       *gorm.DB
	repo     *locations.Repository
	verifier *security.Verifier
}

// NewAddressHandler constructs an address handler.
func NewAddressHandler(db *gorm.DB, repo *locations.Repository, verifier *security.Verifier) *AddressHandler {
	return &AddressHandler{db: db, repo: repo, verifier: verifier}
}

// Provinces lists every province.
func (h *AddressHandler) Provinces(c *gin.Context) {
	provinces, errList := h.repo.Provinces(c.Request.Context())
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list provinces failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"provinces": provinces})
}

// Districts lists the districts of a province.
func (h *AddressHandler) Districts(c *gin.Context) {
	province := strings.TrimSpace(c.Query("province"))
	if province == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "province is required"})
		return
	}
	districts, errList := h.repo.Districts(c.Request.Context(), province)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list districts failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"districts": districts})
}

// Wards lists the wards of a district.
func (h *AddressHandler) Wards(c *gin.Context) {
	district := strings.TrimSpace(c.Query("district"))
	if district == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "district is required"})
		return
	}
	wards, errList := h.repo.Wards(c.Request.Context(), district)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list wards failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"wards": wards})
}

type saveAddressRequest struct {
	Phone        string `json:"phone"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Company      string `json:"company"`
	Email        string `json:"email"`
	AddressLine  string `json:"address_line"`
	ProvinceCode string `json:"province_code"`
	DistrictCode string `json:"district_code"`
	WardCode     string `json:"ward_code"`
	CaptchaToken string `json:"captcha_token"`
}

// Save stores a checkout address keyed by phone, guarded by captcha.
func (h *AddressHandler) Save(c *gin.Context) {
	var body saveAddressRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	phone := security.NormalizePhone(body.Phone)
	if !security.ValidPhone(phone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone must be 10 digits starting with 0"})
		return
	}
	if strings.TrimSpace(body.WardCode) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ward_code is required"})
		return
	}

	if result := h.verifier.Verify(c.Request.Context(), body.CaptchaToken, "address_save", c.ClientIP()); !result.OK {
		c.JSON(http.StatusForbidden, gin.H{"error": result.Message})
		return
	}

	row := models.Address{
		Phone:        phone,
		FirstName:    strings.TrimSpace(body.FirstName),
		LastName:     strings.TrimSpace(body.LastName),
		Company:      strings.TrimSpace(body.Company),
		Email:        strings.TrimSpace(body.Email),
		AddressLine:  strings.TrimSpace(body.AddressLine),
		ProvinceCode: strings.TrimSpace(body.ProvinceCode),
		DistrictCode: strings.TrimSpace(body.DistrictCode),
		WardCode:     strings.TrimSpace(body.WardCode),
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&row).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save address failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"saved": true})
}
