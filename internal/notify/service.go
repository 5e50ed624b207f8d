package notify

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/securecontrol/backend/internal/errs"
	"github.com/securecontrol/backend/internal/models"
	"github.com/securecontrol/backend/internal/services/email"
	"gorm.io/gorm"
)

// Service delivers in-app notifications and email broadcasts to checkers
type Service struct {
	db     *gorm.DB
	sender *email.Sender
}

// NewService creates a new notification service
func NewService(db *gorm.DB, sender *email.Sender) *Service {
	return &Service{db: db, sender: sender}
}

// Create writes one in-app notification for a single user
func (s *Service) Create(userID uuid.UUID, title, message string, ntype models.NotificationType, entityType, entityID string) error {
	n := models.Notification{
		UserID:     userID,
		Title:      title,
		Message:    message,
		Type:       ntype,
		EntityType: entityType,
		EntityID:   entityID,
	}
	if err := s.db.Create(&n).Error; err != nil {
		return errs.Dependency("create notification", err)
	}
	return nil
}

// NotifyCheckers creates an in-app notification for every checker and admin
// and emails each of them. Email failures are logged, not escalated; the
// broadcast is best-effort by design.
func (s *Service) NotifyCheckers(title, message string, ntype models.NotificationType, entityType, entityID string) (int, int) {
	var reviewers []models.User
	err := s.db.Where("role IN ? AND is_active = ?",
		[]models.UserRole{models.RoleChecker, models.RoleAdmin, models.RoleSuperAdmin}, true).
		Find(&reviewers).Error
	if err != nil {
		log.Printf("error: failed to load checkers for broadcast: %v", err)
		return 0, 0
	}
	if len(reviewers) == 0 {
		return 0, 0
	}

	rows := make([]models.Notification, 0, len(reviewers))
	for _, reviewer := range reviewers {
		rows = append(rows, models.Notification{
			UserID:     reviewer.ID,
			Title:      title,
			Message:    message,
			Type:       ntype,
			EntityType: entityType,
			EntityID:   entityID,
		})
	}

	notified := 0
	if err := s.db.Create(&rows).Error; err != nil {
		log.Printf("error: failed to insert checker notifications: %v", err)
	} else {
		notified = len(rows)
	}

	emailed := 0
	for _, reviewer := range reviewers {
		if err := s.sender.SendNotification(reviewer.Email, reviewer.FullName(), title, message); err != nil {
			log.Printf("warning: notification email to %s failed: %v", reviewer.Email, err)
			continue
		}
		emailed++
	}
	return notified, emailed
}

// TransactionSubmitted implements workflow.Notifier: it tells checkers a
// new item needs review
func (s *Service) TransactionSubmitted(tx models.Transaction, flagged bool) {
	title := "New transaction pending review"
	message := fmt.Sprintf("A %s of %s %s to account %s is awaiting review.",
		tx.Type, tx.Currency, tx.Amount.StringFixed(2), tx.DestinationAccount)
	if flagged {
		title = "Flagged transaction needs attention"
		message = fmt.Sprintf("A %s of %s %s to account %s was flagged by policy screening and needs elevated scrutiny.",
			tx.Type, tx.Currency, tx.Amount.StringFixed(2), tx.DestinationAccount)
	}
	s.NotifyCheckers(title, message, models.NotificationTransaction, "transaction", tx.ID.String())
}

// KYCSubmitted tells checkers a new application needs review
func (s *Service) KYCSubmitted(app models.KYCApplication) {
	title := "New KYC application submitted"
	message := fmt.Sprintf("%s %s submitted a KYC application for review.", app.FirstName, app.LastName)
	s.NotifyCheckers(title, message, models.NotificationKYC, "kyc_application", app.ID.String())
}

// ListForUser returns a user's notifications, newest first
func (s *Service) ListForUser(userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	var rows []models.Notification
	query := s.db.Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	if err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, errs.Dependency("list notifications", err)
	}
	return rows, nil
}

// MarkRead marks one notification as read
func (s *Service) MarkRead(userID, notificationID uuid.UUID) error {
	result := s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true)
	if result.Error != nil {
		return errs.Dependency("mark notification read", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NotFound("notification", notificationID.String())
	}
	return nil
}

// PurgeRead removes read notifications older than the given number of days.
// Called by the periodic cleanup job.
func (s *Service) PurgeRead(olderThanDays int) (int64, error) {
	result := s.db.Delete(&models.Notification{},
		"read = ? AND created_at < NOW() - (? * INTERVAL '1 day')", true, olderThanDays)
	if result.Error != nil {
		return 0, errs.Dependency("purge notifications", result.Error)
	}
	return result.RowsAffected, nil
}
