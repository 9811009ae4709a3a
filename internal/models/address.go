package models

import "time"

// Address is a checkout address remembered for phone-based autofill.
// Only the most recent row per phone is served back.
type Address struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Phone string `gorm:"type:varchar(15);not null;index"` // Normalized phone number.

	FirstName string `gorm:"type:varchar(100)"` // Recipient first name.
	LastName  string `gorm:"type:varchar(100)"` // Recipient last name.
	Company   string `gorm:"type:varchar(255)"` // Optional company.
	Email     string `gorm:"type:varchar(255)"` // Contact email, masked on output.

	AddressLine  string `gorm:"type:varchar(255)"`      // Street address.
	ProvinceCode string `gorm:"type:varchar(10)"`       // Province code.
	DistrictCode string `gorm:"type:varchar(10)"`       // District code.
	WardCode     string `gorm:"type:varchar(10);index"` // Ward code.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName returns the addresses table name.
func (Address) TableName() string {
	return "addresses"
}
