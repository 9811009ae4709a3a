package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vqcheckout/wardrate/internal/ratelimit"
	"github.com/vqcheckout/wardrate/internal/rates"
	"github.com/vqcheckout/wardrate/internal/security"
)

// QuoteHandler resolves shipping decisions for checkout destinations.
type QuoteHandler struct {
	resolver *rates.Resolver
	limiter  *ratelimit.Manager
	auditor  *security.Logger
}

// NewQuoteHandler constructs a quote handler.
func NewQuoteHandler(resolver *rates.Resolver, limiter *ratelimit.Manager, auditor *security.Logger) *QuoteHandler {
	return &QuoteHandler{resolver: resolver, limiter: limiter, auditor: auditor}
}

type quoteRequest struct {
	InstanceID uint64  `json:"carrier_instance_id"`
	WardCode   string  `json:"ward_code"`
	Subtotal   float64 `json:"subtotal"`
}

// Quote returns the shipping decision for a ward and cart subtotal.
func (h *QuoteHandler) Quote(c *gin.Context) {
	ip := c.ClientIP()
	if result, errAllow := h.limiter.Allow(c.Request.Context(), "quote", ip); errAllow == nil && !result.Allowed {
		h.auditor.LogBlocked(c.Request.Context(), "quote", ip, nil, map[string]any{"reason": "rate_limit"})
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return
	}

	var body quoteRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	body.WardCode = strings.TrimSpace(body.WardCode)
	if body.WardCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ward_code is required"})
		return
	}
	if body.Subtotal < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subtotal must not be negative"})
		return
	}

	decision, errResolve := h.resolver.Resolve(c.Request.Context(), body.InstanceID, body.WardCode, body.Subtotal)
	if errResolve != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolve failed"})
		return
	}
	c.JSON(http.StatusOK, decision)
}
