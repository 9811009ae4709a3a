package rates

import (
	"github.com/vqcheckout/wardrate/internal/models"
)

// Rule is a decoded rate rule ready for evaluation. It doubles as the
// JSON shape used by the import/export and bulk-edit tooling.
type Rule struct {
	ID             uint64                 `json:"id"`
	ZoneID         uint64                 `json:"zone_id,omitempty"`
	InstanceID     uint64                 `json:"carrier_instance_id"`
	Label          string                 `json:"label"`
	BaseCost       float64                `json:"base_cost"`
	Priority       int                    `json:"priority"`
	IsBlockRule    bool                   `json:"is_block_rule"`
	StopAfterMatch bool                   `json:"stop_after_match"`
	Conditions     *models.RateConditions `json:"conditions"`
	WardCodes      []string               `json:"ward_codes,omitempty"`
}

// Decision is the outcome of resolving a rate for a destination.
// A zero RateID marks the fallback decision: no rule matched, the
// carrier still answers deterministically with zero cost and no label.
type Decision struct {
	RateID   uint64         `json:"rate_id"`
	Label    string         `json:"label"`
	Cost     float64        `json:"cost"`
	Blocked  bool           `json:"blocked"`
	Meta     map[string]any `json:"meta,omitempty"`
	CacheHit bool           `json:"cache_hit"`
}
