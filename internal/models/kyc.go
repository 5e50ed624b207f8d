package models

import (
	"time"

	"github.com/google/uuid"
)

// KYCStatus is the review state of a customer application
type KYCStatus string

const (
	KYCPending     KYCStatus = "pending"
	KYCApproved    KYCStatus = "approved"
	KYCRejected    KYCStatus = "rejected"
	KYCUnderReview KYCStatus = "under_review"
)

// AccountType is the account product chosen on the application
type AccountType string

const (
	AccountSavings AccountType = "savings"
	AccountCurrent AccountType = "current"
	AccountSalary  AccountType = "salary"
)

// KYCApplication is a customer onboarding application reviewed by a checker
type KYCApplication struct {
	Base
	UserID           uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	FirstName        string      `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName         string      `gorm:"type:varchar(100);not null" json:"last_name"`
	DateOfBirth      string      `gorm:"type:varchar(10);not null" json:"dob"`
	Mobile           string      `gorm:"type:varchar(20);not null" json:"mobile"`
	AddressCurrent   string      `gorm:"type:text;not null" json:"address_current"`
	AddressPermanent string      `gorm:"type:text" json:"address_permanent"`
	Occupation       string      `gorm:"type:varchar(100)" json:"occupation"`
	AccountType      AccountType `gorm:"type:varchar(10);not null;default:'savings'" json:"account_type"`
	PEP              bool        `gorm:"default:false" json:"pep"`
	NomineeName      string      `gorm:"type:varchar(200)" json:"nominee_name"`
	NomineeRelation  string      `gorm:"type:varchar(30)" json:"nominee_relation"`
	Status           KYCStatus   `gorm:"type:varchar(15);not null;default:'pending';index" json:"kyc_status"`
	CheckerID        *uuid.UUID  `gorm:"type:uuid" json:"checker_id"`
	CheckerNotes     string      `gorm:"type:text" json:"checker_notes"`
	ReviewedAt       *time.Time  `json:"reviewed_at"`

	User    *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Checker *User `gorm:"foreignKey:CheckerID" json:"checker,omitempty"`
}
