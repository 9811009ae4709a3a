package models

import (
	"time"

	"gorm.io/datatypes"
)

// Security log decisions.
const (
	SecurityDecisionAllowed = "allowed"
	SecurityDecisionBlocked = "blocked"
)

// SecurityLog records rate-limit and captcha decisions for public endpoints.
type SecurityLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	IPAddress string         `gorm:"type:varchar(45);not null;index"` // Client IP.
	Action    string         `gorm:"type:varchar(50);not null;index"` // Guarded action name.
	Score     *float64       `gorm:"type:decimal(3,2)"`               // Captcha score when available.
	Decision  string         `gorm:"type:varchar(20);not null"`       // allowed or blocked.
	Metadata  datatypes.JSON `gorm:"type:jsonb"`                      // Free-form detail.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}

// TableName returns the security log table name.
func (SecurityLog) TableName() string {
	return "security_log"
}
