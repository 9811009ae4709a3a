package models

// Administrative levels stored in the locations table.
const (
	LevelProvince = 1
	LevelDistrict = 2
	LevelWard     = 3
)

// Location is one node of the province/district/ward hierarchy.
type Location struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Code         string  `gorm:"type:varchar(10);not null;uniqueIndex"` // Administrative code.
	Name         string  `gorm:"type:varchar(255);not null"`            // Short name.
	NameWithType string  `gorm:"type:varchar(255);not null"`            // Name including its type prefix.
	ParentCode   *string `gorm:"type:varchar(10);index"`                // Parent code, nil for provinces.
	Level        int     `gorm:"not null;index"`                        // 1=province, 2=district, 3=ward.
	Slug         string  `gorm:"type:varchar(255)"`                     // URL-safe name.
	Type         string  `gorm:"type:varchar(50)"`                      // Administrative type label.
	Path         string  `gorm:"type:text"`                             // Full human-readable path.
}

// TableName returns the locations table name.
func (Location) TableName() string {
	return "locations"
}
