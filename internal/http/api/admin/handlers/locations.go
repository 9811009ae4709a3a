package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vqcheckout/wardrate/internal/locations"
)

// LocationAdminHandler manages reference-data maintenance.
type LocationAdminHandler struct {
	seeder *locations.Seeder
}

// NewLocationAdminHandler constructs a location admin handler.
func NewLocationAdminHandler(seeder *locations.Seeder) *LocationAdminHandler {
	return &LocationAdminHandler{seeder: seeder}
}

type seedRequest struct {
	ProvincesFile string `json:"provinces_file"`
	WardsFile     string `json:"wards_file"`
}

// Seed imports the reference JSON files into the locations table.
func (h *LocationAdminHandler) Seed(c *gin.Context) {
	var body seedRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.ProvincesFile) == "" && strings.TrimSpace(body.WardsFile) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one file is required"})
		return
	}

	if errSeed := h.seeder.Seed(c.Request.Context(), body.ProvincesFile, body.WardsFile); errSeed != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "seed failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"seeded": true})
}
