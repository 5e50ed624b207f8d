package workflow

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/securecontrol/backend/internal/models"
	"gorm.io/gorm"
)

// Store persists transactions. Review decisions and flagging are applied
// through conditional updates so concurrent checkers cannot both win.
type Store interface {
	Insert(tx *models.Transaction) error
	GetByID(id uuid.UUID) (*models.Transaction, error)
	List(filter ListFilter) ([]models.Transaction, int64, error)
	// ApplyReview atomically records a review decision for a transaction
	// still awaiting one. It reports whether the update was applied.
	ApplyReview(id uuid.UUID, decision models.TransactionStatus, reviewer uuid.UUID, notes string) (bool, error)
	// Flag moves a pending transaction to flagged. It reports whether the
	// update was applied.
	Flag(id uuid.UUID) (bool, error)
}

// ListFilter narrows a transaction listing
type ListFilter struct {
	Statuses  []models.TransactionStatus
	CreatedBy *uuid.UUID
	Limit     int
	Offset    int
}

// GormStore is the database-backed transaction store
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a transaction store backed by the database
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Insert persists a new transaction
func (s *GormStore) Insert(tx *models.Transaction) error {
	if err := s.db.Create(tx).Error; err != nil {
		return fmt.Errorf("error creating transaction: %w", err)
	}
	return nil
}

// GetByID loads a transaction with its violations
func (s *GormStore) GetByID(id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.Preload("Violations").Preload("Violations.Rule").First(&tx, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, gorm.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading transaction: %w", err)
	}
	return &tx, nil
}

// List returns transactions matching the filter, newest first
func (s *GormStore) List(filter ListFilter) ([]models.Transaction, int64, error) {
	var txs []models.Transaction
	var count int64

	query := s.db.Model(&models.Transaction{})
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", filter.CreatedBy)
	}

	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting transactions: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&txs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("error listing transactions: %w", err)
	}
	return txs, count, nil
}

// ApplyReview performs the conditional review update. The WHERE clause on
// status guarantees at most one reviewer's decision is durably applied.
func (s *GormStore) ApplyReview(id uuid.UUID, decision models.TransactionStatus, reviewer uuid.UUID, notes string) (bool, error) {
	result := s.db.Model(&models.Transaction{}).
		Where("id = ? AND status IN ?", id, []models.TransactionStatus{models.StatusPending, models.StatusFlagged}).
		Updates(map[string]interface{}{
			"status":        decision,
			"checked_by":    reviewer,
			"checker_notes": notes,
		})
	if result.Error != nil {
		return false, fmt.Errorf("error applying review: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Flag moves a pending transaction to flagged
func (s *GormStore) Flag(id uuid.UUID) (bool, error) {
	result := s.db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Update("status", models.StatusFlagged)
	if result.Error != nil {
		return false, fmt.Errorf("error flagging transaction: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
