package policy

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/securecontrol/backend/internal/audit"
	"github.com/securecontrol/backend/internal/errs"
	"github.com/securecontrol/backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RuleService manages policy rule definitions. Rules are read-only to the
// engine at evaluation time; only privileged operators mutate them.
type RuleService struct {
	db      *gorm.DB
	auditor audit.Recorder
}

// NewRuleService creates a new rule service
func NewRuleService(db *gorm.DB, auditor audit.Recorder) *RuleService {
	return &RuleService{db: db, auditor: auditor}
}

// RuleInput carries operator-supplied rule fields
type RuleInput struct {
	Name        string
	Type        models.RuleType
	Threshold   *decimal.Decimal
	Active      bool
	Description string
}

// List returns all rules, active and inactive
func (s *RuleService) List() ([]models.PolicyRule, error) {
	var rules []models.PolicyRule
	if err := s.db.Order("created_at ASC").Find(&rules).Error; err != nil {
		return nil, errs.Dependency("list policy rules", err)
	}
	return rules, nil
}

// Create adds a new rule and records the mutation
func (s *RuleService) Create(actor uuid.UUID, input RuleInput) (*models.PolicyRule, error) {
	if input.Name == "" {
		return nil, errs.Validation("rule_name", "rule name is required")
	}
	if !models.ValidRuleType(input.Type) {
		return nil, errs.Validation("rule_type", fmt.Sprintf("unknown rule type %q", input.Type))
	}
	if input.Type == models.RuleAmountThreshold && (input.Threshold == nil || !input.Threshold.IsPositive()) {
		return nil, errs.Validation("threshold_value", "amount threshold rules require a positive threshold")
	}

	rule := models.PolicyRule{
		Name:        input.Name,
		Type:        input.Type,
		Threshold:   input.Threshold,
		Active:      input.Active,
		Description: input.Description,
	}
	if err := s.db.Create(&rule).Error; err != nil {
		return nil, errs.Dependency("create policy rule", err)
	}

	s.recordAudit(actor, models.ActionPolicyCreated, rule.ID, nil, models.JSON{
		"rule_name": rule.Name,
		"rule_type": string(rule.Type),
		"is_active": rule.Active,
	})
	return &rule, nil
}

// SetActive toggles a rule's applicability, the only supported mutation to
// whether a rule participates in screening
func (s *RuleService) SetActive(actor uuid.UUID, ruleID uuid.UUID, active bool) (*models.PolicyRule, error) {
	var rule models.PolicyRule
	if err := s.db.First(&rule, "id = ?", ruleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("policy rule", ruleID.String())
		}
		return nil, errs.Dependency("load policy rule", err)
	}

	old := rule.Active
	if err := s.db.Model(&rule).Update("active", active).Error; err != nil {
		return nil, errs.Dependency("update policy rule", err)
	}
	rule.Active = active

	s.recordAudit(actor, models.ActionPolicyUpdated, rule.ID,
		models.JSON{"is_active": old},
		models.JSON{"is_active": active})
	return &rule, nil
}

// UpdateThreshold changes the numeric threshold of an amount rule
func (s *RuleService) UpdateThreshold(actor uuid.UUID, ruleID uuid.UUID, threshold decimal.Decimal) (*models.PolicyRule, error) {
	if !threshold.IsPositive() {
		return nil, errs.Validation("threshold_value", "threshold must be positive")
	}

	var rule models.PolicyRule
	if err := s.db.First(&rule, "id = ?", ruleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("policy rule", ruleID.String())
		}
		return nil, errs.Dependency("load policy rule", err)
	}
	if rule.Type != models.RuleAmountThreshold {
		return nil, errs.Validation("rule_type", "only amount threshold rules carry a threshold")
	}

	old := rule.Threshold
	if err := s.db.Model(&rule).Update("threshold", threshold).Error; err != nil {
		return nil, errs.Dependency("update policy rule", err)
	}
	rule.Threshold = &threshold

	oldVal := models.JSON{}
	if old != nil {
		oldVal["threshold_value"] = old.String()
	}
	s.recordAudit(actor, models.ActionPolicyUpdated, rule.ID, oldVal,
		models.JSON{"threshold_value": threshold.String()})
	return &rule, nil
}

// recordAudit writes the audit entry for a committed rule mutation. A
// failed audit write is a warning, not a rollback.
func (s *RuleService) recordAudit(actor uuid.UUID, action models.AuditAction, ruleID uuid.UUID, oldVals, newVals models.JSON) {
	err := s.auditor.Record(audit.Entry{
		Actor:      actor,
		Action:     action,
		EntityType: "policy_rule",
		EntityID:   ruleID.String(),
		OldValues:  oldVals,
		NewValues:  newVals,
	})
	if err != nil {
		log.Printf("warning: audit write failed for %s on rule %s: %v", action, ruleID, err)
	}
}
