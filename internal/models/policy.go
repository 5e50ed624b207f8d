package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RuleType is the closed set of policy rule kinds the engine can evaluate.
// Adding a value here requires adding an evaluator in the policy package.
type RuleType string

const (
	RuleAmountThreshold    RuleType = "amount_threshold"
	RuleDuplicateDetection RuleType = "duplicate_detection"
	RuleBlacklistCheck     RuleType = "blacklist_check"
	RuleTimeBased          RuleType = "time_based"
)

// ValidRuleType reports whether t is a known rule type
func ValidRuleType(t RuleType) bool {
	switch t {
	case RuleAmountThreshold, RuleDuplicateDetection, RuleBlacklistCheck, RuleTimeBased:
		return true
	}
	return false
}

// Severity classifies how serious a policy violation is
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityScore is the fixed risk contribution of each severity level
var SeverityScore = map[Severity]int{
	SeverityCritical: 40,
	SeverityHigh:     25,
	SeverityMedium:   15,
	SeverityLow:      5,
}

// PolicyRule is a toggleable screening condition evaluated against every new
// transaction. Toggling Active is the only supported applicability mutation.
type PolicyRule struct {
	ID          uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name        string           `gorm:"type:varchar(100);not null" json:"rule_name"`
	Type        RuleType         `gorm:"type:varchar(30);not null" json:"rule_type"`
	Threshold   *decimal.Decimal `gorm:"type:numeric(20,4)" json:"threshold_value"`
	Active      bool             `gorm:"default:true;index" json:"is_active"`
	Description string           `gorm:"type:text" json:"description"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// PolicyViolation is immutable evidence that a rule matched a transaction.
// Rows are write-once, never updated or deleted.
type PolicyViolation struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TransactionID uuid.UUID `gorm:"type:uuid;not null;index" json:"transaction_id"`
	RuleID        uuid.UUID `gorm:"type:uuid;not null" json:"rule_id"`
	Details       string    `gorm:"type:text;not null" json:"violation_details"`
	Severity      Severity  `gorm:"type:varchar(10);not null" json:"severity"`
	CreatedAt     time.Time `json:"created_at"`

	Rule *PolicyRule `gorm:"foreignKey:RuleID" json:"rule,omitempty"`
}
