package blacklist

import (
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/securecontrol/backend/internal/audit"
	"github.com/securecontrol/backend/internal/errs"
	"github.com/securecontrol/backend/internal/models"
	"gorm.io/gorm"
)

// Service manages blacklist entries. Every mutation writes exactly one
// audit entry after the change is durably applied.
type Service struct {
	db      *gorm.DB
	auditor audit.Recorder
}

// NewService creates a new blacklist service
func NewService(db *gorm.DB, auditor audit.Recorder) *Service {
	return &Service{db: db, auditor: auditor}
}

// List returns all blacklist entries, newest first
func (s *Service) List(activeOnly bool) ([]models.BlacklistEntry, error) {
	var entries []models.BlacklistEntry
	query := s.db.Order("created_at DESC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, errs.Dependency("list blacklist entries", err)
	}
	return entries, nil
}

// Add creates a new blacklist entry
func (s *Service) Add(actor uuid.UUID, accountNumber, entityName, reason string) (*models.BlacklistEntry, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	if accountNumber == "" {
		return nil, errs.Validation("account_number", "account number is required")
	}

	var existing models.BlacklistEntry
	err := s.db.Where("account_number = ? AND active = ?", accountNumber, true).First(&existing).Error
	if err == nil {
		return nil, errs.Conflict("account is already blacklisted")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Dependency("check existing blacklist entry", err)
	}

	entry := models.BlacklistEntry{
		AccountNumber: accountNumber,
		EntityName:    strings.TrimSpace(entityName),
		Reason:        strings.TrimSpace(reason),
		Active:        true,
		CreatedBy:     actor,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, errs.Dependency("create blacklist entry", err)
	}

	s.recordAudit(actor, models.ActionBlacklistAdded, entry.ID, nil, models.JSON{
		"account_number": entry.AccountNumber,
		"entity_name":    entry.EntityName,
		"reason":         entry.Reason,
	})
	return &entry, nil
}

// SetActive activates or deactivates an entry
func (s *Service) SetActive(actor uuid.UUID, entryID uuid.UUID, active bool) (*models.BlacklistEntry, error) {
	var entry models.BlacklistEntry
	if err := s.db.First(&entry, "id = ?", entryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("blacklist entry", entryID.String())
		}
		return nil, errs.Dependency("load blacklist entry", err)
	}

	old := entry.Active
	if err := s.db.Model(&entry).Update("active", active).Error; err != nil {
		return nil, errs.Dependency("update blacklist entry", err)
	}
	entry.Active = active

	s.recordAudit(actor, models.ActionBlacklistUpdated, entry.ID,
		models.JSON{"is_active": old},
		models.JSON{"is_active": active})
	return &entry, nil
}

// Remove deletes an entry
func (s *Service) Remove(actor uuid.UUID, entryID uuid.UUID) error {
	var entry models.BlacklistEntry
	if err := s.db.First(&entry, "id = ?", entryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound("blacklist entry", entryID.String())
		}
		return errs.Dependency("load blacklist entry", err)
	}

	if err := s.db.Delete(&entry).Error; err != nil {
		return errs.Dependency("delete blacklist entry", err)
	}

	s.recordAudit(actor, models.ActionBlacklistRemoved, entry.ID, models.JSON{
		"account_number": entry.AccountNumber,
		"entity_name":    entry.EntityName,
	}, nil)
	return nil
}

// recordAudit writes the audit entry for a committed mutation. A failed
// audit write is a warning, not a rollback.
func (s *Service) recordAudit(actor uuid.UUID, action models.AuditAction, entryID uuid.UUID, oldVals, newVals models.JSON) {
	err := s.auditor.Record(audit.Entry{
		Actor:      actor,
		Action:     action,
		EntityType: "blacklist",
		EntityID:   entryID.String(),
		OldValues:  oldVals,
		NewValues:  newVals,
	})
	if err != nil {
		log.Printf("warning: audit write failed for %s on blacklist entry %s: %v", action, entryID, err)
	}
}
