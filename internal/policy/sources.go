package policy

import (
	"errors"
	"fmt"
	"time"

	"github.com/securecontrol/backend/internal/models"
	"gorm.io/gorm"
)

// GormRuleSource reads active rules from the database
type GormRuleSource struct {
	db *gorm.DB
}

// NewGormRuleSource creates a rule source backed by the database
func NewGormRuleSource(db *gorm.DB) *GormRuleSource {
	return &GormRuleSource{db: db}
}

// ActiveRules returns all rules with the active flag set
func (s *GormRuleSource) ActiveRules() ([]models.PolicyRule, error) {
	var rules []models.PolicyRule
	if err := s.db.Where("active = ?", true).Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("error loading active rules: %w", err)
	}
	return rules, nil
}

// GormHistorySource counts similar transactions from the database
type GormHistorySource struct {
	db *gorm.DB
}

// NewGormHistorySource creates a history source backed by the database
func NewGormHistorySource(db *gorm.DB) *GormHistorySource {
	return &GormHistorySource{db: db}
}

// CountSimilar counts transactions other than the given one with the same
// destination account and the same amount created since the cutoff
func (s *GormHistorySource) CountSimilar(exclude models.Transaction, since time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.Transaction{}).
		Where("destination_account = ?", exclude.DestinationAccount).
		Where("amount = ?", exclude.Amount).
		Where("id <> ?", exclude.ID).
		Where("created_at >= ?", since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("error counting similar transactions: %w", err)
	}
	return count, nil
}

// GormBlacklistSource looks up active blacklist entries from the database
type GormBlacklistSource struct {
	db *gorm.DB
}

// NewGormBlacklistSource creates a blacklist source backed by the database
func NewGormBlacklistSource(db *gorm.DB) *GormBlacklistSource {
	return &GormBlacklistSource{db: db}
}

// FindActiveMatch returns the first active blacklist entry whose account
// number matches any of the given accounts, or nil when none match
func (s *GormBlacklistSource) FindActiveMatch(accounts ...string) (*models.BlacklistEntry, error) {
	var entry models.BlacklistEntry
	err := s.db.Where("active = ? AND account_number IN ?", true, accounts).
		Limit(1).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying blacklist: %w", err)
	}
	return &entry, nil
}

// ViolationStore persists screening evidence
type ViolationStore interface {
	SaveViolations(violations []models.PolicyViolation) error
}

// GormViolationStore writes violations to the database
type GormViolationStore struct {
	db *gorm.DB
}

// NewGormViolationStore creates a violation store backed by the database
func NewGormViolationStore(db *gorm.DB) *GormViolationStore {
	return &GormViolationStore{db: db}
}

// SaveViolations inserts the detected violations. Violations are write-once;
// there is no update path.
func (s *GormViolationStore) SaveViolations(violations []models.PolicyViolation) error {
	if len(violations) == 0 {
		return nil
	}
	if err := s.db.Create(&violations).Error; err != nil {
		return fmt.Errorf("error saving violations: %w", err)
	}
	return nil
}
