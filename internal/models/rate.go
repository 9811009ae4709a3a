package models

import (
	"bytes"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Rate is one priced or blocking shipping rule scoped to a carrier instance.
type Rate struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ZoneID     uint64 `gorm:"not null;default:0;index"` // Shipping zone grouping above the instance.
	InstanceID uint64 `gorm:"not null;index"`           // Carrier instance the rule belongs to.

	Title string  `gorm:"type:varchar(255);not null"`            // Buyer-facing label when the rule wins.
	Cost  float64 `gorm:"type:decimal(10,2);not null;default:0"` // Base cost in currency-agnostic units.

	Priority       int  `gorm:"not null;default:0;index"` // Lower values evaluate first.
	IsBlocked      bool `gorm:"not null;default:false"`   // Destination is unserviceable when matched.
	StopAfterMatch bool `gorm:"not null;default:false"`   // Halt evaluation when this rule applies.

	Conditions datatypes.JSON `gorm:"type:jsonb"` // Optional min/max/free_shipping_min record.

	Locations []RateLocation `gorm:"foreignKey:RateID;constraint:OnDelete:CASCADE"` // Attached ward codes.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName returns the rates table name.
func (Rate) TableName() string {
	return "ward_rates"
}

// RateConditions is the decoded form of the conditions column.
// All fields are optional; a nil record means the rule always applies.
type RateConditions struct {
	Min             *float64 `json:"min,omitempty"`               // Subtotal must be >= this value.
	Max             *float64 `json:"max,omitempty"`               // Subtotal must be <= this value.
	FreeShippingMin *float64 `json:"free_shipping_min,omitempty"` // Subtotal >= this forces cost to zero.
}

// DecodeConditions parses the stored conditions column.
// Malformed or empty payloads decode to nil so bad historical data
// cannot break rate evaluation; the second return reports whether the
// payload was malformed.
func (r *Rate) DecodeConditions() (*RateConditions, bool) {
	raw := bytes.TrimSpace(r.Conditions)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	var cond RateConditions
	if errUnmarshal := json.Unmarshal(raw, &cond); errUnmarshal != nil {
		return nil, true
	}
	if cond.Min == nil && cond.Max == nil && cond.FreeShippingMin == nil {
		return nil, false
	}
	return &cond, false
}
