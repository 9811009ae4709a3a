package rates

import (
	"context"
	"fmt"

	"github.com/vqcheckout/wardrate/internal/models"
	"gorm.io/gorm"
)

// ImportRates bulk-inserts rules with their ward associations in one
// transaction, then flushes the cache namespace. Returns the number of
// rules imported; any failure rolls back the whole batch.
func (s *Store) ImportRates(ctx context.Context, rules []Rule) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("rates: store not initialized")
	}

	if errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, in := range rules {
			conditions, errEncode := encodeConditions(in.Conditions)
			if errEncode != nil {
				return errEncode
			}
			row := models.Rate{
				ZoneID:         in.ZoneID,
				InstanceID:     in.InstanceID,
				Title:          in.Label,
				Cost:           in.BaseCost,
				Priority:       in.Priority,
				IsBlocked:      in.IsBlockRule,
				StopAfterMatch: in.StopAfterMatch,
				Conditions:     conditions,
			}
			if errCreate := tx.Create(&row).Error; errCreate != nil {
				return fmt.Errorf("rates: import rule %d: %w", i, errCreate)
			}
			if errAttach := attachWards(tx, row.ID, in.WardCodes); errAttach != nil {
				return errAttach
			}
		}
		return nil
	}); errTx != nil {
		return 0, errTx
	}

	s.cache.Flush(ctx)
	return len(rules), nil
}
