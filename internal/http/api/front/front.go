package front

import (
	"github.com/gin-gonic/gin"
	handlers "github.com/vqcheckout/wardrate/internal/http/api/front/handlers"
	"github.com/vqcheckout/wardrate/internal/locations"
	"github.com/vqcheckout/wardrate/internal/ratelimit"
	"github.com/vqcheckout/wardrate/internal/rates"
	"github.com/vqcheckout/wardrate/internal/security"
	"gorm.io/gorm"
)

// Deps carries the wired services the public API depends on.
type Deps struct {
	DB                 *gorm.DB
	Resolver           *rates.Resolver
	Locations          *locations.Repository
	Limiter            *ratelimit.Manager
	Verifier           *security.Verifier
	Auditor            *security.Logger
	PhoneLookupEnabled bool
}

// RegisterFrontRoutes registers the public checkout-facing routes.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil {
		return
	}

	group := r.Group("/v1")

	quoteHandler := handlers.NewQuoteHandler(deps.Resolver, deps.Limiter, deps.Auditor)
	group.POST("/quote", quoteHandler.Quote)

	addressHandler := handlers.NewAddressHandler(deps.DB, deps.Locations, deps.Verifier)
	group.GET("/address/provinces", addressHandler.Provinces)
	group.GET("/address/districts", addressHandler.Districts)
	group.GET("/address/wards", addressHandler.Wards)
	group.POST("/address", addressHandler.Save)

	phoneHandler := handlers.NewPhoneHandler(deps.DB, deps.Limiter, deps.Auditor, deps.PhoneLookupEnabled)
	group.POST("/phone/lookup", phoneHandler.Lookup)
}
