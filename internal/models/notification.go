package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType groups notifications for display filtering
type NotificationType string

const (
	NotificationInfo        NotificationType = "info"
	NotificationTransaction NotificationType = "transaction"
	NotificationPolicy      NotificationType = "policy"
	NotificationKYC         NotificationType = "kyc"
	NotificationUser        NotificationType = "user"
	NotificationSystem      NotificationType = "system"
)

// Notification is an in-app message delivered to a single user
type Notification struct {
	ID         uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Title      string           `gorm:"type:varchar(200);not null" json:"title"`
	Message    string           `gorm:"type:text;not null" json:"message"`
	Type       NotificationType `gorm:"type:varchar(20);not null;default:'info'" json:"type"`
	EntityType string           `gorm:"type:varchar(30)" json:"entity_type,omitempty"`
	EntityID   string           `gorm:"type:varchar(64)" json:"entity_id,omitempty"`
	Read       bool             `gorm:"default:false;index" json:"read"`
	CreatedAt  time.Time        `json:"created_at"`
}
