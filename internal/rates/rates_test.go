package rates

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/vqcheckout/wardrate/internal/cache"
	"github.com/vqcheckout/wardrate/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if sqlDB, errDB := conn.DB(); errDB == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if errMigrate := conn.AutoMigrate(
		&models.Rate{},
		&models.RateLocation{},
		&models.CacheEntry{},
	); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func newTestStore(t *testing.T) (*Store, *Resolver, *cache.Cache) {
	t.Helper()
	conn := openTestDB(t)
	c := cache.New("test", cache.NewRuntimeTier(), cache.NewStoreTier(conn))
	store := NewStore(conn, c)
	return store, NewResolver(store, c), c
}

func floatPtr(v float64) *float64 { return &v }
