package models

import (
	"time"
)

// OTPChallenge is the database-backed storage row for a pending one-time
// passcode. Key is the lowercased identity (email or user id). The payload
// carries staged registration data; it is empty for MFA challenges.
type OTPChallenge struct {
	Key       string    `gorm:"type:varchar(255);primary_key" json:"key"`
	Code      string    `gorm:"type:varchar(6);not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	Attempts  int       `gorm:"not null;default:0" json:"attempts"`
	Payload   JSON      `gorm:"type:jsonb" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
