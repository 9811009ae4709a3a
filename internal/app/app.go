package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/vqcheckout/wardrate/internal/cache"
	"github.com/vqcheckout/wardrate/internal/config"
	"github.com/vqcheckout/wardrate/internal/db"
	admin "github.com/vqcheckout/wardrate/internal/http/api/admin"
	"github.com/vqcheckout/wardrate/internal/http/api/front"
	"github.com/vqcheckout/wardrate/internal/locations"
	"github.com/vqcheckout/wardrate/internal/models"
	"github.com/vqcheckout/wardrate/internal/ratelimit"
	"github.com/vqcheckout/wardrate/internal/rates"
	"github.com/vqcheckout/wardrate/internal/security"
	"gorm.io/gorm"
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, configPath string) error {
	cfg, errLoad := config.Load(config.ResolveConfigPath(configPath))
	if errLoad != nil {
		return errLoad
	}
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer boots the rate service: database, cache tiers, guards, and
// both API surfaces. It blocks until ctx is cancelled.
func RunServer(ctx context.Context, configPath string, port int) error {
	cfg, errLoad := config.Load(config.ResolveConfigPath(configPath))
	if errLoad != nil {
		return errLoad
	}

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	redisClient := connectRedis(ctx, cfg.Redis)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	tiers := []cache.Tier{cache.NewRuntimeTier()}
	if redisClient != nil {
		tiers = append(tiers, cache.NewRedisTier(redisClient))
	}
	tiers = append(tiers, cache.NewStoreTier(conn))
	sharedCache := cache.New(cfg.Redis.Prefix, tiers...)

	rateStore := rates.NewStore(conn, sharedCache)
	resolver := rates.NewResolver(rateStore, sharedCache)
	locationRepo := locations.NewRepository(conn, sharedCache)
	seeder := locations.NewSeeder(conn)

	limiter := ratelimit.NewManager(redisClient, cfg.Redis.Prefix, cfg.RateLimit.Limit, cfg.RateLimit.Window)
	auditor := security.NewLogger(conn)
	verifier := security.NewVerifier(cfg.Recaptcha, auditor)

	if errAdmin := EnsureAdmin(conn, cfg.Admin); errAdmin != nil {
		return errAdmin
	}
	if errSeed := seedLocationsIfEmpty(ctx, conn, seeder, cfg.Locations); errSeed != nil {
		return errSeed
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogMiddleware())

	admin.RegisterAdminRoutes(engine, admin.Deps{
		DB:     conn,
		JWT:    cfg.JWT,
		Rates:  rateStore,
		Seeder: seeder,
	})
	front.RegisterFrontRoutes(engine, front.Deps{
		DB:                 conn,
		Resolver:           resolver,
		Locations:          locationRepo,
		Limiter:            limiter,
		Verifier:           verifier,
		Auditor:            auditor,
		PhoneLookupEnabled: cfg.PhoneLookup.Enabled,
	})

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	log.Infof("starting rate service on %s", addr)
	if errListen := srv.ListenAndServe(); errListen != nil && errListen != http.ErrServerClosed {
		return errListen
	}
	return nil
}

// connectRedis dials the optional redis backend. A failed connection
// logs a warning and the service runs on runtime+database tiers only.
func connectRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled() {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		log.WithError(errPing).Warn("redis unreachable, continuing without shared cache tier")
		_ = client.Close()
		return nil
	}
	return client
}

// seedLocationsIfEmpty imports the reference files on first boot only.
func seedLocationsIfEmpty(ctx context.Context, conn *gorm.DB, seeder *locations.Seeder, cfg config.LocationsConfig) error {
	if cfg.ProvincesFile == "" && cfg.WardsFile == "" {
		return nil
	}
	var count int64
	if errCount := conn.WithContext(ctx).Model(&models.Location{}).Count(&count).Error; errCount != nil {
		return fmt.Errorf("app: count locations: %w", errCount)
	}
	if count > 0 {
		return nil
	}
	return seeder.Seed(ctx, cfg.ProvincesFile, cfg.WardsFile)
}

// requestLogMiddleware logs one line per request with latency and status.
func requestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("request")
	}
}
