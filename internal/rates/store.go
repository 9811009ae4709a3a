package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/vqcheckout/wardrate/internal/cache"
	"github.com/vqcheckout/wardrate/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrRateNotFound indicates a point lookup for an unknown rate id.
var ErrRateNotFound = errors.New("rates: rate not found")

// Store is the single source of truth for rate rules and their ward
// associations. Read paths go through the cache.
type Store struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewStore constructs a Store.
func NewStore(db *gorm.DB, c *cache.Cache) *Store {
	return &Store{db: db, cache: c}
}

// GetRatesForWard returns the rules scoped to instanceID that are
// attached to wardCode, ordered ascending by priority with creation
// order breaking ties. Zero matches returns an empty list, not an error.
func (s *Store) GetRatesForWard(ctx context.Context, instanceID uint64, wardCode string) ([]Rule, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("rates: store not initialized")
	}

	key := cache.RatesForWard(instanceID, wardCode)
	var rules []Rule
	if s.cache.GetJSON(ctx, key, &rules) {
		return rules, nil
	}

	var rows []models.Rate
	if errFind := s.db.WithContext(ctx).
		Joins("INNER JOIN rate_locations ON rate_locations.rate_id = ward_rates.id").
		Where("ward_rates.instance_id = ? AND rate_locations.ward_code = ?", instanceID, wardCode).
		Order("ward_rates.priority ASC, ward_rates.id ASC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("rates: load rules for ward: %w", errFind)
	}

	rules = make([]Rule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, s.toRule(row, nil))
	}

	s.cache.SetJSON(ctx, key, rules, cache.TTLMedium)
	return rules, nil
}

// toRule decodes one stored row. Malformed conditions decode to nil,
// so the rule applies unconditionally instead of breaking checkout.
func (s *Store) toRule(row models.Rate, wardCodes []string) Rule {
	cond, malformed := row.DecodeConditions()
	if malformed {
		log.WithField("rate_id", row.ID).Warn("rates: malformed conditions, treating rule as unconditional")
	}
	return Rule{
		ID:             row.ID,
		ZoneID:         row.ZoneID,
		InstanceID:     row.InstanceID,
		Label:          row.Title,
		BaseCost:       row.Cost,
		Priority:       row.Priority,
		IsBlockRule:    row.IsBlocked,
		StopAfterMatch: row.StopAfterMatch,
		Conditions:     cond,
		WardCodes:      wardCodes,
	}
}

func encodeConditions(cond *models.RateConditions) (datatypes.JSON, error) {
	if cond == nil {
		return nil, nil
	}
	raw, errMarshal := json.Marshal(cond)
	if errMarshal != nil {
		return nil, fmt.Errorf("rates: encode conditions: %w", errMarshal)
	}
	return datatypes.JSON(raw), nil
}

// CreateRate inserts a rule with its ward associations and invalidates
// cached lookups for its instance.
func (s *Store) CreateRate(ctx context.Context, in Rule) (uint64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("rates: store not initialized")
	}

	conditions, errEncode := encodeConditions(in.Conditions)
	if errEncode != nil {
		return 0, errEncode
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

	if errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(&row).Error; errCreate != nil {
			return fmt.Errorf("rates: create rule: %w", errCreate)
		}
		return attachWards(tx, row.ID, in.WardCodes)
	}); errTx != nil {
		return 0, errTx
	}

	s.cache.InvalidateRates(ctx)
	return row.ID, nil
}

// UpdateParams carries a partial rule update. Nil pointers leave the
// field untouched; a non-nil WardCodes fully replaces the association
// set; ClearConditions removes the conditions record.
type UpdateParams struct {
	Label           *string
	BaseCost        *float64
	Priority        *int
	IsBlockRule     *bool
	StopAfterMatch  *bool
	Conditions      *models.RateConditions
	ClearConditions bool
	WardCodes       *[]string
}

// UpdateRate applies a partial update and invalidates cached rate
// lookups. An unknown id mutates nothing.
func (s *Store) UpdateRate(ctx context.Context, id uint64, params UpdateParams) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("rates: store not initialized")
	}

	var row models.Rate
	if errFind := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return ErrRateNotFound
		}
		return fmt.Errorf("rates: load rule %d: %w", id, errFind)
	}

	updates := map[string]any{}
	if params.Label != nil {
		updates["title"] = *params.Label
	}
	if params.BaseCost != nil {
		updates["cost"] = *params.BaseCost
	}
	if params.Priority != nil {
		updates["priority"] = *params.Priority
	}
	if params.IsBlockRule != nil {
		updates["is_blocked"] = *params.IsBlockRule
	}
	if params.StopAfterMatch != nil {
		updates["stop_after_match"] = *params.StopAfterMatch
	}
	if params.Conditions != nil {
		conditions, errEncode := encodeConditions(params.Conditions)
		if errEncode != nil {
			return errEncode
		}
		updates["conditions"] = conditions
	} else if params.ClearConditions {
		updates["conditions"] = nil
	}

	if len(updates) > 0 {
		if errUpdate := s.db.WithContext(ctx).
			Model(&models.Rate{}).
			Where("id = ?", id).
			Updates(updates).Error; errUpdate != nil {
			return fmt.Errorf("rates: update rule %d: %w", id, errUpdate)
		}
	}

	// Association replacement is delete-then-insert. A crash between the
	// two leaves the rule temporarily without wards; a known gap.
	if params.WardCodes != nil {
		if errDetach := s.db.WithContext(ctx).
			Where("rate_id = ?", id).
			Delete(&models.RateLocation{}).Error; errDetach != nil {
			return fmt.Errorf("rates: detach wards for rule %d: %w", id, errDetach)
		}
		if errAttach := attachWards(s.db.WithContext(ctx), id, *params.WardCodes); errAttach != nil {
			return errAttach
		}
	}

	s.cache.InvalidateRates(ctx)
	return nil
}

// DeleteRate removes a rule and its associations. Deleting an unknown
// id is a no-op.
func (s *Store) DeleteRate(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("rates: store not initialized")
	}

	var row models.Rate
	if errFind := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("rates: load rule %d: %w", id, errFind)
	}

	if errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errDetach := tx.Where("rate_id = ?", id).Delete(&models.RateLocation{}).Error; errDetach != nil {
			return fmt.Errorf("rates: detach wards for rule %d: %w", id, errDetach)
		}
		if errDelete := tx.Where("id = ?", id).Delete(&models.Rate{}).Error; errDelete != nil {
			return fmt.Errorf("rates: delete rule %d: %w", id, errDelete)
		}
		return nil
	}); errTx != nil {
		return errTx
	}

	s.cache.InvalidateRates(ctx)
	return nil
}

// GetRate returns one rule with its ward codes, or ErrRateNotFound.
func (s *Store) GetRate(ctx context.Context, id uint64) (Rule, error) {
	if s == nil || s.db == nil {
		return Rule{}, fmt.Errorf("rates: store not initialized")
	}

	var row models.Rate
	if errFind := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return Rule{}, ErrRateNotFound
		}
		return Rule{}, fmt.Errorf("rates: load rule %d: %w", id, errFind)
	}

	wardCodes, errWards := s.loadWardCodes(ctx, id)
	if errWards != nil {
		return Rule{}, errWards
	}
	return s.toRule(row, wardCodes), nil
}

// ListRates returns rules for the admin listing, ordered by priority.
// A zero instanceID lists every instance.
func (s *Store) ListRates(ctx context.Context, instanceID uint64) ([]Rule, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("rates: store not initialized")
	}

	query := s.db.WithContext(ctx).Model(&models.Rate{})
	if instanceID > 0 {
		query = query.Where("instance_id = ?", instanceID)
	}

	var rows []models.Rate
	if errFind := query.Order("priority ASC, id ASC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("rates: list rules: %w", errFind)
	}

	rules := make([]Rule, 0, len(rows))
	for _, row := range rows {
		wardCodes, errWards := s.loadWardCodes(ctx, row.ID)
		if errWards != nil {
			return nil, errWards
		}
		rules = append(rules, s.toRule(row, wardCodes))
	}
	return rules, nil
}

// Reorder assigns priority = position for each id, then flushes the
// whole cache namespace: priority changes affect every cached decision.
func (s *Store) Reorder(ctx context.Context, ids []uint64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("rates: store not initialized")
	}

	if errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for position, id := range ids {
			if errUpdate := tx.Model(&models.Rate{}).
				Where("id = ?", id).
				Update("priority", position).Error; errUpdate != nil {
				return fmt.Errorf("rates: reorder rule %d: %w", id, errUpdate)
			}
		}
		return nil
	}); errTx != nil {
		return errTx
	}

	s.cache.Flush(ctx)
	return nil
}

func (s *Store) loadWardCodes(ctx context.Context, rateID uint64) ([]string, error) {
	var wardCodes []string
	if errFind := s.db.WithContext(ctx).
		Model(&models.RateLocation{}).
		Where("rate_id = ?", rateID).
		Order("ward_code ASC").
		Pluck("ward_code", &wardCodes).Error; errFind != nil {
		return nil, fmt.Errorf("rates: load wards for rule %d: %w", rateID, errFind)
	}
	return wardCodes, nil
}

func attachWards(tx *gorm.DB, rateID uint64, wardCodes []string) error {
	if len(wardCodes) == 0 {
		return nil
	}
	links := make([]models.RateLocation, 0, len(wardCodes))
	seen := make(map[string]struct{}, len(wardCodes))
	for _, code := range wardCodes {
		if _, dup := seen[code]; dup || code == "" {
			continue
		}
		seen[code] = struct{}{}
		links = append(links, models.RateLocation{RateID: rateID, WardCode: code})
	}
	if len(links) == 0 {
		return nil
	}
	if errCreate := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; errCreate != nil {
		return fmt.Errorf("rates: attach wards for rule %d: %w", rateID, errCreate)
	}
	return nil
}
