package models

import (
	"time"

	"gorm.io/datatypes"
)

// CacheEntry is one row of the durable cache tier.
type CacheEntry struct {
	Key       string         `gorm:"primaryKey;type:varchar(255)"` // Namespaced cache key.
	Value     datatypes.JSON `gorm:"type:jsonb;not null"`          // Serialized cached value.
	ExpiresAt time.Time      `gorm:"not null;index"`               // Expiry instant.
}

// TableName returns the cache entries table name.
func (CacheEntry) TableName() string {
	return "cache_entries"
}
