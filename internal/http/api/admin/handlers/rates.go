package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vqcheckout/wardrate/internal/models"
	"github.com/vqcheckout/wardrate/internal/rates"
)

// RateHandler manages admin CRUD for rate rules.
type RateHandler struct {
	store *rates.Store
}

// NewRateHandler constructs a rate handler.
func NewRateHandler(store *rates.Store) *RateHandler {
	return &RateHandler{store: store}
}

func parseID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// Create validates and inserts a rate rule.
func (h *RateHandler) Create(c *gin.Context) {
	var body rates.Rule
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Label) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "label is required"})
		return
	}
	if body.BaseCost < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "base_cost must not be negative"})
		return
	}

	id, errCreate := h.store.CreateRate(c.Request.Context(), body)
	if errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create rate failed"})
		return
	}

	rule, errGet := h.store.GetRate(c.Request.Context(), id)
	if errGet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load created rate failed"})
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// List returns rate rules ordered by priority. The instance query
// parameter narrows the listing to one carrier instance.
func (h *RateHandler) List(c *gin.Context) {
	var instanceID uint64
	if raw := strings.TrimSpace(c.Query("instance")); raw != "" {
		parsed, errParse := strconv.ParseUint(raw, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid instance"})
			return
		}
		instanceID = parsed
	}

	rules, errList := h.store.ListRates(c.Request.Context(), instanceID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list rates failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rates": rules})
}

// Get returns one rate rule by id.
func (h *RateHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rule, errGet := h.store.GetRate(c.Request.Context(), id)
	if errGet != nil {
		if errors.Is(errGet, rates.ErrRateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// updateRateRequest captures a partial rule update. Absent fields stay
// untouched; conditions set to JSON null are cleared.
type updateRateRequest struct {
	Label           *string                `json:"label"`
	BaseCost        *float64               `json:"base_cost"`
	Priority        *int                   `json:"priority"`
	IsBlockRule     *bool                  `json:"is_block_rule"`
	StopAfterMatch  *bool                  `json:"stop_after_match"`
	Conditions      *models.RateConditions `json:"conditions"`
	ClearConditions bool                   `json:"clear_conditions"`
	WardCodes       *[]string              `json:"ward_codes"`
}

// Update applies a partial update to a rate rule.
func (h *RateHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var body updateRateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Label != nil && strings.TrimSpace(*body.Label) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "label must not be empty"})
		return
	}
	if body.BaseCost != nil && *body.BaseCost < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "base_cost must not be negative"})
		return
	}

	errUpdate := h.store.UpdateRate(c.Request.Context(), id, rates.UpdateParams{
		Label:           body.Label,
		BaseCost:        body.BaseCost,
		Priority:        body.Priority,
		IsBlockRule:     body.IsBlockRule,
		StopAfterMatch:  body.StopAfterMatch,
		Conditions:      body.Conditions,
		ClearConditions: body.ClearConditions,
		WardCodes:       body.WardCodes,
	})
	if errUpdate != nil {
		if errors.Is(errUpdate, rates.ErrRateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update rate failed"})
		return
	}

	rule, errGet := h.store.GetRate(c.Request.Context(), id)
	if errGet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load updated rate failed"})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// Delete removes a rate rule. Deleting an unknown id succeeds.
func (h *RateHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if errDelete := h.store.DeleteRate(c.Request.Context(), id); errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete rate failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type reorderRequest struct {
	IDs []uint64 `json:"ids"`
}

// Reorder assigns priorities from the given id order.
func (h *RateHandler) Reorder(c *gin.Context) {
	var body reorderRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(body.IDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids are required"})
		return
	}
	if errReorder := h.store.Reorder(c.Request.Context(), body.IDs); errReorder != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reorder failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reordered": len(body.IDs)})
}

type importRatesRequest struct {
	Rates []rates.Rule `json:"rates"`
}

// Import bulk-inserts rate rules from a JSON export.
func (h *RateHandler) Import(c *gin.Context) {
	var body importRatesRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(body.Rates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rates are required"})
		return
	}
	for _, rule := range body.Rates {
		if strings.TrimSpace(rule.Label) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "every rate needs a label"})
			return
		}
	}

	count, errImport := h.store.ImportRates(c.Request.Context(), body.Rates)
	if errImport != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"imported": count})
}
