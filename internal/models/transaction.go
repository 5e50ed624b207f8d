package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the closed set of operations a maker may submit
type TransactionType string

const (
	TypeFundTransfer    TransactionType = "fund_transfer"
	TypePaymentApproval TransactionType = "payment_approval"
	TypeAccountChange   TransactionType = "account_change"
	TypeLoanApproval    TransactionType = "loan_approval"
)

// ValidTransactionType reports whether t is a known transaction type
func ValidTransactionType(t TransactionType) bool {
	switch t {
	case TypeFundTransfer, TypePaymentApproval, TypeAccountChange, TypeLoanApproval:
		return true
	}
	return false
}

// TransactionStatus is the maker-checker lifecycle state
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusApproved TransactionStatus = "approved"
	StatusRejected TransactionStatus = "rejected"
	StatusFlagged  TransactionStatus = "flagged"
)

// Terminal reports whether no further review decision is accepted
func (s TransactionStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Transaction represents a maker-submitted transaction awaiting checker review
type Transaction struct {
	Base
	Type               TransactionType   `gorm:"type:varchar(30);not null" json:"transaction_type"`
	Amount             decimal.Decimal   `gorm:"type:numeric(20,4);not null" json:"amount"`
	Currency           string            `gorm:"type:varchar(3);not null" json:"currency"`
	SourceAccount      string            `gorm:"type:varchar(50);not null" json:"source_account"`
	DestinationAccount string            `gorm:"type:varchar(50);not null;index" json:"destination_account"`
	Description        string            `gorm:"type:text" json:"description"`
	Status             TransactionStatus `gorm:"type:varchar(10);not null;default:'pending';index" json:"status"`
	CreatedBy          uuid.UUID         `gorm:"type:uuid;not null;index" json:"created_by"`
	CheckedBy          *uuid.UUID        `gorm:"type:uuid" json:"checked_by"`
	CheckerNotes       string            `gorm:"type:text" json:"checker_notes"`
	Metadata           JSON              `gorm:"type:jsonb" json:"metadata,omitempty"`

	Creator    *User             `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Checker    *User             `gorm:"foreignKey:CheckedBy" json:"checker,omitempty"`
	Violations []PolicyViolation `gorm:"foreignKey:TransactionID" json:"violations,omitempty"`
}
