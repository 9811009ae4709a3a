package db

import (
	"fmt"

	"github.com/vqcheckout/wardrate/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if IsSQLite(conn) {
		if errPragma := conn.Exec("PRAGMA foreign_keys = ON").Error; errPragma != nil {
			return fmt.Errorf("db: enable sqlite foreign keys: %w", errPragma)
		}
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.Admin{},
		&models.Rate{},
		&models.RateLocation{},
		&models.Location{},
		&models.CacheEntry{},
		&models.Address{},
		&models.SecurityLog{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return nil
}
