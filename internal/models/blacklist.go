package models

import (
	"time"

	"github.com/google/uuid"
)

// BlacklistEntry flags an account number so the policy engine can block
// transactions touching it. Every mutation is paired with an audit entry.
type BlacklistEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	AccountNumber string    `gorm:"type:varchar(50);not null;index" json:"account_number"`
	EntityName    string    `gorm:"type:varchar(255)" json:"entity_name"`
	Reason        string    `gorm:"type:text" json:"reason"`
	Active        bool      `gorm:"default:true;index" json:"is_active"`
	CreatedBy     uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
