package cache

import (
	"context"
	"errors"
	"time"

	"github.com/vqcheckout/wardrate/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StoreTier is the durable fallback tier backed by the cache_entries table.
type StoreTier struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewStoreTier constructs a StoreTier.
func NewStoreTier(db *gorm.DB) *StoreTier {
	return &StoreTier{db: db, nowFn: time.Now}
}

// Name identifies the tier in logs.
func (t *StoreTier) Name() string { return "store" }

// Get returns the cached value when present and unexpired.
// Expired rows read as misses and are removed best-effort.
func (t *StoreTier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if t == nil || t.db == nil {
		return nil, false, nil
	}
	var entry models.CacheEntry
	if errFind := t.db.WithContext(ctx).Where("key = ?", key).Take(&entry).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, errFind
	}
	if t.nowFn().After(entry.ExpiresAt) {
		t.db.WithContext(ctx).Where("key = ?", key).Delete(&models.CacheEntry{})
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Set upserts the value with the given TTL.
func (t *StoreTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if t == nil || t.db == nil {
		return nil
	}
	entry := models.CacheEntry{
		Key:       key,
		Value:     datatypes.JSON(value),
		ExpiresAt: t.nowFn().Add(ttl),
	}
	return t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at"}),
	}).Create(&entry).Error
}

// Delete removes the key.
func (t *StoreTier) Delete(ctx context.Context, key string) error {
	if t == nil || t.db == nil {
		return nil
	}
	return t.db.WithContext(ctx).Where("key = ?", key).Delete(&models.CacheEntry{}).Error
}

// Flush bulk-deletes every key starting with prefix.
func (t *StoreTier) Flush(ctx context.Context, prefix string) error {
	if t == nil || t.db == nil {
		return nil
	}
	return t.db.WithContext(ctx).Where("key LIKE ?", prefix+"%").Delete(&models.CacheEntry{}).Error
}
