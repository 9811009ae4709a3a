package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vqcheckout/wardrate/internal/config"
	handlers "github.com/vqcheckout/wardrate/internal/http/api/admin/handlers"
	"github.com/vqcheckout/wardrate/internal/locations"
	"github.com/vqcheckout/wardrate/internal/models"
	"github.com/vqcheckout/wardrate/internal/rates"
	"github.com/vqcheckout/wardrate/internal/security"
	"gorm.io/gorm"
)

// Deps carries the wired services the admin API depends on.
type Deps struct {
	DB     *gorm.DB
	JWT    config.JWTConfig
	Rates  *rates.Store
	Seeder *locations.Seeder
}

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	versionHandler := handlers.NewVersionHandler()
	r.GET("/v0/version", versionHandler.GetVersion)

	adminGroup := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT)
	adminGroup.POST("/login", authHandler.Login)
	adminGroup.POST("/login/totp", authHandler.LoginTOTP)

	authed := adminGroup.Group("")
	authed.Use(adminAuthMiddleware(deps.DB, deps.JWT))

	mfaHandler := handlers.NewMFAHandler(deps.DB)
	authed.GET("/mfa/status", mfaHandler.Status)
	authed.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	authed.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)

	rateHandler := handlers.NewRateHandler(deps.Rates)
	authed.POST("/rates", rateHandler.Create)
	authed.GET("/rates", rateHandler.List)
	authed.GET("/rates/:id", rateHandler.Get)
	authed.PUT("/rates/:id", rateHandler.Update)
	authed.DELETE("/rates/:id", rateHandler.Delete)
	authed.POST("/rates/reorder", rateHandler.Reorder)
	authed.POST("/rates/import", rateHandler.Import)

	locationHandler := handlers.NewLocationAdminHandler(deps.Seeder)
	authed.POST("/locations/seed", locationHandler.Seed)

	securityLogHandler := handlers.NewSecurityLogHandler(deps.DB)
	authed.GET("/security-log", securityLogHandler.List)
}

// adminAuthMiddleware validates admin JWTs and loads admin context.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !admin.IsEnabled {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin disabled"})
			return
		}

		c.Set("adminID", admin.ID)
		c.Set("adminUsername", admin.Username)
		c.Next()
	}
}
