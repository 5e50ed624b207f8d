package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/securecontrol/backend/internal/models"
	"gorm.io/gorm"
)

// Recorder appends audit entries. The workflow, blacklist, and policy
// services call Record exactly once per committed mutation.
type Recorder interface {
	Record(entry Entry) error
}

// Entry describes one committed state change
type Entry struct {
	Actor      uuid.UUID
	Action     models.AuditAction
	EntityType string
	EntityID   string
	OldValues  models.JSON
	NewValues  models.JSON
	IPAddress  string
}

// Logger persists audit entries to the database. Entries are append-only;
// the logger exposes no update or delete operations.
type Logger struct {
	db *gorm.DB
}

// NewLogger creates a new audit logger
func NewLogger(db *gorm.DB) *Logger {
	return &Logger{db: db}
}

// Record writes a single audit entry
func (l *Logger) Record(entry Entry) error {
	row := models.AuditLog{
		UserID:     entry.Actor,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		OldValues:  entry.OldValues,
		NewValues:  entry.NewValues,
		IPAddress:  entry.IPAddress,
	}
	if err := l.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// QueryFilter narrows an audit log listing
type QueryFilter struct {
	UserID     *uuid.UUID
	Actions    []models.AuditAction
	EntityType string
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int
	Offset     int
}

// Query returns audit entries matching the filter, newest first,
// together with the total match count
func (l *Logger) Query(filter QueryFilter) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var count int64

	query := l.db.Model(&models.AuditLog{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if len(filter.Actions) > 0 {
		query = query.Where("action IN ?", filter.Actions)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.StartTime != nil {
		query = query.Where("created_at >= ?", filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("created_at <= ?", filter.EndTime)
	}

	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	if err := query.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to query audit logs: %w", err)
	}

	return logs, count, nil
}
