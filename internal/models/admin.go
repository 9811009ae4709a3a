package models

import "time"

// Admin is an administrative account for the rate-management API.
type Admin struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username     string `gorm:"type:varchar(100);not null;uniqueIndex"` // Login name.
	PasswordHash string `gorm:"type:varchar(255);not null"`             // Bcrypt hash.

	TOTPSecret  string `gorm:"type:varchar(255)"`      // TOTP secret when MFA is set up.
	TOTPEnabled bool   `gorm:"not null;default:false"` // Whether TOTP is required at login.

	IsEnabled bool `gorm:"not null;default:true"` // Whether the account may log in.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName returns the admins table name.
func (Admin) TableName() string {
	return "admins"
}
