package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction is the known vocabulary of state-changing actions
type AuditAction string

const (
	ActionTransactionCreated  AuditAction = "TRANSACTION_CREATED"
	ActionTransactionApproved AuditAction = "TRANSACTION_APPROVED"
	ActionTransactionRejected AuditAction = "TRANSACTION_REJECTED"
	ActionTransactionFlagged  AuditAction = "TRANSACTION_FLAGGED"
	ActionBlacklistAdded      AuditAction = "BLACKLIST_ADDED"
	ActionBlacklistUpdated    AuditAction = "BLACKLIST_UPDATED"
	ActionBlacklistRemoved    AuditAction = "BLACKLIST_REMOVED"
	ActionPolicyCreated       AuditAction = "POLICY_CREATED"
	ActionPolicyUpdated       AuditAction = "POLICY_UPDATED"
	ActionUserLogin           AuditAction = "USER_LOGIN"
	ActionUserLogout          AuditAction = "USER_LOGOUT"
	ActionUserCreated         AuditAction = "USER_CREATED"
	ActionUserUpdated         AuditAction = "USER_UPDATED"
	ActionPasswordChanged     AuditAction = "PASSWORD_CHANGED"
	ActionPasswordReset       AuditAction = "PASSWORD_RESET"
	ActionMFAEnabled          AuditAction = "MFA_ENABLED"
	ActionMFADisabled         AuditAction = "MFA_DISABLED"
	ActionKYCSubmitted        AuditAction = "KYC_SUBMITTED"
	ActionKYCReviewed         AuditAction = "KYC_REVIEWED"
)

// AuditLog is an append-only record of a committed state change.
// Rows are never updated or deleted.
type AuditLog struct {
	ID         uuid.UUID   `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID     uuid.UUID   `gorm:"type:uuid;not null;index" json:"user_id"`
	Action     AuditAction `gorm:"type:varchar(40);not null;index" json:"action"`
	EntityType string      `gorm:"type:varchar(30);not null" json:"entity_type"`
	EntityID   string      `gorm:"type:varchar(64);not null" json:"entity_id"`
	OldValues  JSON        `gorm:"type:jsonb" json:"old_values,omitempty"`
	NewValues  JSON        `gorm:"type:jsonb" json:"new_values,omitempty"`
	IPAddress  string      `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	CreatedAt  time.Time   `gorm:"index" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
