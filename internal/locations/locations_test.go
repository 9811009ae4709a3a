package locations

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
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
	if errMigrate := conn.AutoMigrate(&models.Location{}, &models.CacheEntry{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func writeJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()
	raw, errMarshal := json.Marshal(v)
	if errMarshal != nil {
		t.Fatalf("marshal: %v", errMarshal)
	}
	path := filepath.Join(dir, name)
	if errWrite := os.WriteFile(path, raw, 0o644); errWrite != nil {
		t.Fatalf("write: %v", errWrite)
	}
	return path
}

func seedFixture(t *testing.T, conn *gorm.DB) {
	t.Helper()
	dir := t.TempDir()
	provinces := writeJSON(t, dir, "provinces.json", []provinceRecord{
		{Code: "01", Name: "Hà Nội", NameWithType: "Thành phố Hà Nội", Slug: "ha-noi", Type: "thanh-pho"},
		{Code: "79", Name: "Hồ Chí Minh", NameWithType: "Thành phố Hồ Chí Minh", Slug: "ho-chi-minh", Type: "thanh-pho"},
	})
	wards := writeJSON(t, dir, "wards.json", []wardRecord{
		{Code: "26734", Name: "Bến Nghé", NameWithType: "Phường Bến Nghé", ParentCode: "7900", Path: "Bến Nghé, Quận 1, Hồ Chí Minh"},
		{Code: "26737", Name: "Bến Thành", NameWithType: "Phường Bến Thành", ParentCode: "7900", Path: "Bến Thành, Quận 1, Hồ Chí Minh"},
		{Code: "00004", Name: "Ba Đình", NameWithType: "Phường Ba Đình", ParentCode: "0101", Path: "Ba Đình, Hà Nội"},
	})
	if errSeed := NewSeeder(conn).Seed(context.Background(), provinces, wards); errSeed != nil {
		t.Fatalf("seed: %v", errSeed)
	}
}

func TestSeedAndBrowseHierarchy(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	seedFixture(t, conn)
	repo := NewRepository(conn, cache.New("test", cache.NewRuntimeTier()))

	provinces, errProvinces := repo.Provinces(ctx)
	if errProvinces != nil {
		t.Fatalf("provinces: %v", errProvinces)
	}
	if len(provinces) != 2 {
		t.Fatalf("expected 2 provinces, got %d", len(provinces))
	}
	// Ordered by name: Hà Nội before Hồ Chí Minh.
	if provinces[0].Code != "01" || provinces[1].Code != "79" {
		t.Fatalf("unexpected province order: %+v", provinces)
	}

	districts, errDistricts := repo.Districts(ctx, "79")
	if errDistricts != nil {
		t.Fatalf("districts: %v", errDistricts)
	}
	if len(districts) != 1 || districts[0].Code != "7900" {
		t.Fatalf("expected derived district 7900, got %+v", districts)
	}

	wards, errWards := repo.Wards(ctx, "7900")
	if errWards != nil {
		t.Fatalf("wards: %v", errWards)
	}
	if len(wards) != 2 {
		t.Fatalf("expected 2 wards, got %+v", wards)
	}
	if wards[0].Name != "Bến Nghé" || wards[1].Name != "Bến Thành" {
		t.Fatalf("unexpected ward order: %+v", wards)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	seedFixture(t, conn)
	seedFixture(t, conn)

	var count int64
	if errCount := conn.WithContext(ctx).Model(&models.Location{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	// 2 provinces + 2 derived districts + 3 wards.
	if count != 7 {
		t.Fatalf("expected 7 rows after reseed, got %d", count)
	}
}

func TestGetLocation(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	seedFixture(t, conn)
	repo := NewRepository(conn, cache.New("test", cache.NewRuntimeTier()))

	node, errGet := repo.Get(ctx, "26734")
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if node.Level != models.LevelWard || node.ParentCode != "7900" {
		t.Fatalf("unexpected node: %+v", node)
	}

	if _, errMissing := repo.Get(ctx, "99999"); !errors.Is(errMissing, ErrLocationNotFound) {
		t.Fatalf("expected ErrLocationNotFound, got %v", errMissing)
	}
}

func TestLookupsAreCached(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	seedFixture(t, conn)
	repo := NewRepository(conn, cache.New("test", cache.NewRuntimeTier()))

	if _, errWarm := repo.Provinces(ctx); errWarm != nil {
		t.Fatalf("warm: %v", errWarm)
	}

	// Remove the rows behind the repository's back; the cached list
	// must still serve.
	if errWipe := conn.WithContext(ctx).Where("level = ?", models.LevelProvince).Delete(&models.Location{}).Error; errWipe != nil {
		t.Fatalf("wipe: %v", errWipe)
	}

	provinces, errCached := repo.Provinces(ctx)
	if errCached != nil {
		t.Fatalf("cached read: %v", errCached)
	}
	if len(provinces) != 2 {
		t.Fatalf("expected cached provinces to survive, got %+v", provinces)
	}
}

func TestSeedMissingFile(t *testing.T) {
	conn := openTestDB(t)
	errSeed := NewSeeder(conn).Seed(context.Background(), "/nonexistent/provinces.json", "")
	if errSeed == nil {
		t.Fatalf("expected error for missing file")
	}
}
