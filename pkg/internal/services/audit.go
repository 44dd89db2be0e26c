package services

import (
	"github.com/echonet/echonet/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AuditRecorder appends lifecycle transitions to the audit database.
// Recording is best-effort; a failed insert never blocks an operation.
type AuditRecorder struct {
	db *gorm.DB
}

func NewAuditRecorder(db *gorm.DB) *AuditRecorder {
	return &AuditRecorder{db: db}
}

func (v *AuditRecorder) Record(entry models.AuditEntry) {
	if err := v.db.Create(&entry).Error; err != nil {
		log.Warn().Err(err).Str("action", entry.Action).Msg("Unable to record an audit entry...")
	}
}

func (v *AuditRecorder) List(take, offset int) ([]models.AuditEntry, error) {
	if take <= 0 || take > 100 {
		take = 100
	}

	var entries []models.AuditEntry
	if err := v.db.
		Limit(take).Offset(offset).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return entries, err
	}

	return entries, nil
}
