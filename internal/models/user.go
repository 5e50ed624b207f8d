package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole determines which workflow operations a user may perform
type UserRole string

const (
	RoleMaker      UserRole = "maker"
	RoleChecker    UserRole = "checker"
	RoleAdmin      UserRole = "admin"
	RoleSuperAdmin UserRole = "superadmin"
)

// MFAMethod is the second-factor mechanism configured for a user
type MFAMethod string

const (
	MFAMethodEmail MFAMethod = "email"
	MFAMethodTOTP  MFAMethod = "totp"
)

// User represents a user in the system
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Username     string         `gorm:"type:varchar(50);uniqueIndex" json:"username"`
	FirstName    string         `gorm:"type:varchar(100)" json:"first_name"`
	LastName     string         `gorm:"type:varchar(100)" json:"last_name"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	Role         UserRole       `gorm:"type:varchar(20);not null;default:'maker';index" json:"role"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	MFAEnabled   bool           `gorm:"default:false" json:"mfa_enabled"`
	MFAMethod    MFAMethod      `gorm:"type:varchar(10);default:'email'" json:"mfa_method"`
	TOTPSecret   string         `gorm:"type:varchar(64)" json:"-"`
	LastLoginAt  *time.Time     `json:"last_login_at"`
	CreatedAt    time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// FullName returns the user's display name
func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Email
	}
	return u.FirstName + " " + u.LastName
}

// CanReview reports whether the user may act as a checker
func (u *User) CanReview() bool {
	return u.Role == RoleChecker || u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}
