package otp

import (
	"errors"
	"fmt"
	"time"

	"github.com/securecontrol/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps challenges in the shared relational store. Used when no
// redis cache is configured; the attempt counter is updated under a row
// lock so concurrent verify calls serialize on the key.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a database-backed challenge store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Put stores or replaces the challenge for a key
func (s *GormStore) Put(key string, challenge Challenge) error {
	row := models.OTPChallenge{
		Key:       key,
		Code:      challenge.Code,
		ExpiresAt: challenge.ExpiresAt,
		Attempts:  challenge.Attempts,
		Payload:   payloadToJSON(challenge.Payload),
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

// Get returns the challenge for a key, or nil when absent
func (s *GormStore) Get(key string) (*Challenge, error) {
	var row models.OTPChallenge
	err := s.db.First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	return &Challenge{
		Code:      row.Code,
		ExpiresAt: row.ExpiresAt,
		Attempts:  row.Attempts,
		Payload:   payloadFromJSON(row.Payload),
	}, nil
}

// Delete discards the challenge for a key
func (s *GormStore) Delete(key string) error {
	if err := s.db.Delete(&models.OTPChallenge{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

// Verify performs the compare-and-increment inside one database transaction
// holding a row lock on the key
func (s *GormStore) Verify(key, code string, now time.Time, maxAttempts int) (Outcome, Payload, error) {
	var outcome Outcome
	var payload Payload

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var row models.OTPChallenge
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&row, "key = ?", key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			outcome = OutcomeMissing
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load challenge: %w", err)
		}

		if now.After(row.ExpiresAt) {
			outcome = OutcomeExpired
			return tx.Delete(&models.OTPChallenge{}, "key = ?", key).Error
		}
		if row.Attempts >= maxAttempts {
			outcome = OutcomeExhausted
			return tx.Delete(&models.OTPChallenge{}, "key = ?", key).Error
		}
		if row.Code == code {
			outcome = OutcomeMatched
			payload = payloadFromJSON(row.Payload)
			return tx.Delete(&models.OTPChallenge{}, "key = ?", key).Error
		}

		outcome = OutcomeMismatch
		return tx.Model(&models.OTPChallenge{}).
			Where("key = ?", key).
			Update("attempts", gorm.Expr("attempts + 1")).Error
	})
	if err != nil {
		return "", nil, err
	}
	return outcome, payload, nil
}

// DeleteExpired removes challenges past their expiry. Called by the
// periodic cleanup job.
func (s *GormStore) DeleteExpired(now time.Time) (int64, error) {
	result := s.db.Delete(&models.OTPChallenge{}, "expires_at < ?", now)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired challenges: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func payloadToJSON(p Payload) models.JSON {
	if p == nil {
		return nil
	}
	out := models.JSON{}
	for k, v := range p {
		out[k] = v
	}
	return out
}

func payloadFromJSON(j models.JSON) Payload {
	if j == nil {
		return nil
	}
	out := Payload{}
	for k, v := range j {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
