package app

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/vqcheckout/wardrate/internal/config"
	"github.com/vqcheckout/wardrate/internal/db"
	"github.com/vqcheckout/wardrate/internal/models"
	"github.com/vqcheckout/wardrate/internal/security"
	"gorm.io/gorm"
)

// HasAdminInitialized reports whether at least one admin account exists.
func HasAdminInitialized(conn *gorm.DB) (bool, error) {
	if conn == nil {
		return false, fmt.Errorf("nil db")
	}
	if !conn.Migrator().HasTable(&models.Admin{}) {
		return false, nil
	}
	var count int64
	if errCount := conn.Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}

// EnsureAdmin creates the bootstrap admin account from config on first
// boot. Existing accounts are never touched, so a password change in
// the config file does not silently rewrite credentials.
func EnsureAdmin(conn *gorm.DB, cfg config.AdminConfig) error {
	initialized, errCheck := HasAdminInitialized(conn)
	if errCheck != nil {
		return errCheck
	}
	if initialized {
		return nil
	}

	username := strings.TrimSpace(cfg.Username)
	if username == "" || strings.TrimSpace(cfg.Password) == "" {
		log.Warn("app: no admin account exists and no bootstrap credentials configured")
		return nil
	}

	hashed, errHash := security.HashPassword(cfg.Password)
	if errHash != nil {
		return errHash
	}

	admin := models.Admin{
		Username:     username,
		PasswordHash: hashed,
		IsEnabled:    true,
	}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		// Another replica may have bootstrapped the same account first.
		if db.IsDuplicateKey(errCreate) {
			return nil
		}
		return fmt.Errorf("app: create bootstrap admin: %w", errCreate)
	}
	log.WithField("username", username).Info("app: bootstrap admin created")
	return nil
}
