package security

import (
	"context"
	"encoding/json"

	log "github.com/sirupsen/logrus"
	"github.com/vqcheckout/wardrate/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Logger records guard decisions in the security log table. Writes are
// best-effort: an audit insert failure never blocks the request path.
type Logger struct {
	db *gorm.DB
}

// NewLogger constructs a Logger. A nil db disables persistence.
func NewLogger(db *gorm.DB) *Logger {
	return &Logger{db: db}
}

// LogAllowed records a passed check.
func (l *Logger) LogAllowed(ctx context.Context, action, ip string, score *float64) {
	l.write(ctx, action, ip, models.SecurityDecisionAllowed, score, nil)
}

// LogBlocked records a failed check with optional detail.
func (l *Logger) LogBlocked(ctx context.Context, action, ip string, score *float64, detail map[string]any) {
	l.write(ctx, action, ip, models.SecurityDecisionBlocked, score, detail)
}

func (l *Logger) write(ctx context.Context, action, ip, decision string, score *float64, detail map[string]any) {
	if l == nil || l.db == nil {
		return
	}
	row := models.SecurityLog{
		IPAddress: ip,
		Action:    action,
		Score:     score,
		Decision:  decision,
	}
	if len(detail) > 0 {
		if raw, errMarshal := json.Marshal(detail); errMarshal == nil {
			row.Metadata = datatypes.JSON(raw)
		}
	}
	if errCreate := l.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).Warn("security: audit log write failed")
	}
}
