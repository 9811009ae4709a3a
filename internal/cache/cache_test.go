package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
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
	if errMigrate := conn.AutoMigrate(&models.CacheEntry{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

// failingTier errors on every operation.
type failingTier struct{}

func (failingTier) Name() string { return "failing" }
func (failingTier) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("down")
}
func (failingTier) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("down")
}
func (failingTier) Delete(context.Context, string) error { return errors.New("down") }
func (failingTier) Flush(context.Context, string) error  { return errors.New("down") }

func TestCache_ReadThroughBackfillsFasterTiers(t *testing.T) {
	ctx := context.Background()
	runtime := NewRuntimeTier()
	store := NewStoreTier(openTestDB(t))
	c := New("test", runtime, store)

	c.Set(ctx, "k", []byte(`"v"`), TTLMedium)

	// Drop the runtime copy; the durable tier should serve the read and
	// backfill the runtime tier.
	if errDelete := runtime.Delete(ctx, "test:k"); errDelete != nil {
		t.Fatalf("runtime delete: %v", errDelete)
	}
	value, ok := c.Get(ctx, "k")
	if !ok || string(value) != `"v"` {
		t.Fatalf("expected durable hit, got ok=%v value=%q", ok, value)
	}
	if _, ok, _ := runtime.Get(ctx, "test:k"); !ok {
		t.Fatalf("expected runtime backfill after durable hit")
	}
}

func TestCache_FailingTierDegradesGracefully(t *testing.T) {
	ctx := context.Background()
	store := NewStoreTier(openTestDB(t))
	c := New("test", failingTier{}, store)

	c.Set(ctx, "k", []byte(`1`), TTLMedium)
	if value, ok := c.Get(ctx, "k"); !ok || string(value) != `1` {
		t.Fatalf("expected read through failing tier, got ok=%v value=%q", ok, value)
	}

	c.Delete(ctx, "k")
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestCache_FlushClearsNamespaceOnly(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	a := New("nsa", NewRuntimeTier(), NewStoreTier(conn))
	b := New("nsb", NewRuntimeTier(), NewStoreTier(conn))

	a.Set(ctx, "k", []byte(`1`), TTLMedium)
	b.Set(ctx, "k", []byte(`2`), TTLMedium)

	a.Flush(ctx)

	if _, ok := a.Get(ctx, "k"); ok {
		t.Fatalf("expected flushed namespace to miss")
	}
	if value, ok := b.Get(ctx, "k"); !ok || string(value) != `2` {
		t.Fatalf("expected sibling namespace untouched, got ok=%v value=%q", ok, value)
	}
}

func TestStoreTier_ExpiredRowReadsAsMiss(t *testing.T) {
	ctx := context.Background()
	store := NewStoreTier(openTestDB(t))

	if errSet := store.Set(ctx, "k", []byte(`1`), time.Minute); errSet != nil {
		t.Fatalf("set: %v", errSet)
	}
	store.nowFn = func() time.Time { return time.Now().Add(2 * time.Minute) }

	if _, ok, errGet := store.Get(ctx, "k"); errGet != nil || ok {
		t.Fatalf("expected expired miss, got ok=%v err=%v", ok, errGet)
	}
}

func TestRuntimeTier_HonorsTTL(t *testing.T) {
	ctx := context.Background()
	tier := NewRuntimeTier()
	now := time.Now()
	tier.nowFn = func() time.Time { return now }

	if errSet := tier.Set(ctx, "k", []byte(`1`), time.Minute); errSet != nil {
		t.Fatalf("set: %v", errSet)
	}
	if _, ok, _ := tier.Get(ctx, "k"); !ok {
		t.Fatalf("expected hit before expiry")
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := tier.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after expiry")
	}
}

func TestCache_GetJSONDropsCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c := New("test", NewRuntimeTier())

	c.Set(ctx, "k", []byte(`{not json`), TTLMedium)

	var out map[string]any
	if c.GetJSON(ctx, "k", &out) {
		t.Fatalf("expected corrupt entry to miss")
	}
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("expected corrupt entry to be deleted")
	}
}
