package models

// RateLocation links a rate rule to one ward code.
// Rows are created and destroyed together with their rule.
type RateLocation struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	RateID   uint64 `gorm:"not null;uniqueIndex:idx_rate_ward"`                        // Owning rate rule.
	WardCode string `gorm:"type:varchar(10);not null;uniqueIndex:idx_rate_ward;index"` // Attached ward code.
}

// TableName returns the rate locations table name.
func (RateLocation) TableName() string {
	return "rate_locations"
}
