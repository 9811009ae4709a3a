package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the database selected by the DSN.
// Postgres DSNs (postgres:// or key=value form) use the pgx-backed driver;
// everything else is treated as a SQLite path.
func Open(dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("db: empty dsn")
	}

	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var dialector gorm.Dialector
	if isPostgresDSN(dsn) {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(strings.TrimPrefix(dsn, "sqlite://"))
	}

	conn, errOpen := gorm.Open(dialector, cfg)
	if errOpen != nil {
		return nil, fmt.Errorf("db: open: %w", errOpen)
	}
	return conn, nil
}

func isPostgresDSN(dsn string) bool {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return true
	}
	return strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=")
}
