package auditlog

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/event"
	"github.com/plugward/plugward/internal/database/models"
	"github.com/plugward/plugward/internal/dbcore"
	"github.com/plugward/plugward/internal/eventType"
)

// Log appends an audit row and broadcasts it to any live listeners.
// Persistence failures are logged, never fatal: auditing must not take the
// pipeline down.
func Log(pluginId, category, message, detail string) {
	rec := models.AuditLog{
		Uuid:     uuid.New().String(),
		PluginId: pluginId,
		Category: category,
		Message:  message,
		Detail:   detail,
		Time:     models.Now(),
	}
	db := dbcore.GetDBInstance()
	if db != nil {
		if err := db.Create(&rec).Error; err != nil {
			slog.Error("failed to persist audit log", "error", err, "plugin", pluginId)
		}
	}
	event.Async(eventType.AuditLogged, event.M{
		"uuid":     rec.Uuid,
		"plugin":   rec.PluginId,
		"category": rec.Category,
		"message":  rec.Message,
		"detail":   rec.Detail,
		"time":     rec.Time.Time().Format(time.RFC3339),
	})
}

// Recent returns up to limit newest rows, optionally filtered by plugin id.
func Recent(pluginId string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	db := dbcore.GetDBInstance()
	q := db.Order("time desc").Limit(limit)
	if pluginId != "" {
		q = q.Where("plugin_id = ?", pluginId)
	}
	var recs []models.AuditLog
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// RemoveOldLogs prunes rows older than the retention window.
func RemoveOldLogs(olderThan time.Duration) {
	db := dbcore.GetDBInstance()
	if db == nil {
		return
	}
	cutoff := models.UTCTime(time.Now().UTC().Add(-olderThan))
	if err := db.Where("time < ?", cutoff).Delete(&models.AuditLog{}).Error; err != nil {
		slog.Error("failed to prune audit logs", "error", err)
	}
}
