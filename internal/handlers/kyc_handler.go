package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/securecontrol/backend/internal/audit"
	"github.com/securecontrol/backend/internal/errs"
	"github.com/securecontrol/backend/internal/middleware"
	"github.com/securecontrol/backend/internal/models"
	"github.com/securecontrol/backend/internal/notify"
	"gorm.io/gorm"
)

// KYCHandler manages customer onboarding applications. Applications go
// through the same maker-checker pattern as transactions: the applicant
// submits, a checker decides.
type KYCHandler struct {
	db       *gorm.DB
	auditor  audit.Recorder
	notifier *notify.Service
}

// NewKYCHandler creates a new KYC handler
func NewKYCHandler(db *gorm.DB, auditor audit.Recorder, notifier *notify.Service) *KYCHandler {
	return &KYCHandler{db: db, auditor: auditor, notifier: notifier}
}

// SubmitKYCRequest represents the request body for a new application
type SubmitKYCRequest struct {
	FirstName        string             `json:"first_name" binding:"required"`
	LastName         string             `json:"last_name" binding:"required"`
	DateOfBirth      string             `json:"dob" binding:"required"`
	Mobile           string             `json:"mobile" binding:"required"`
	AddressCurrent   string             `json:"address_current" binding:"required"`
	AddressPermanent string             `json:"address_permanent"`
	Occupation       string             `json:"occupation"`
	AccountType      models.AccountType `json:"account_type" binding:"required,oneof=savings current salary"`
	PEP              bool               `json:"pep"`
	NomineeName      string             `json:"nominee_name"`
	NomineeRelation  string             `json:"nominee_relation"`
}

// ReviewKYCRequest represents the request body for a review decision
type ReviewKYCRequest struct {
	Decision models.KYCStatus `json:"decision" binding:"required,oneof=approved rejected under_review"`
	Notes    string           `json:"notes"`
}

// Submit files a KYC application for the authenticated user. One
// application per user; resubmission of a pending or approved one conflicts.
func (h *KYCHandler) Submit(c *gin.Context) {
	var req SubmitKYCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	if _, err := time.Parse("2006-01-02", req.DateOfBirth); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date of birth, expected YYYY-MM-DD"})
		return
	}

	var existing models.KYCApplication
	if result := h.db.Where("user_id = ?", userID).First(&existing); result.RowsAffected > 0 {
		if existing.Status == models.KYCRejected {
			// Rejected applicants may re-apply; replace the old application
			if err := h.db.Unscoped().Delete(&existing).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to replace application"})
				return
			}
		} else {
			c.JSON(http.StatusConflict, gin.H{"error": "An application already exists for this user"})
			return
		}
	}

	app := models.KYCApplication{
		UserID:           userID,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		DateOfBirth:      req.DateOfBirth,
		Mobile:           req.Mobile,
		AddressCurrent:   req.AddressCurrent,
		AddressPermanent: req.AddressPermanent,
		Occupation:       req.Occupation,
		AccountType:      req.AccountType,
		PEP:              req.PEP,
		NomineeName:      req.NomineeName,
		NomineeRelation:  req.NomineeRelation,
		Status:           models.KYCPending,
	}
	if err := h.db.Create(&app).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit application"})
		return
	}

	h.record(c, userID, models.ActionKYCSubmitted, app.ID, models.JSON{
		"account_type": string(app.AccountType),
		"pep":          app.PEP,
	})
	h.notifier.KYCSubmitted(app)

	c.JSON(http.StatusCreated, gin.H{"application": app})
}

// Mine returns the authenticated user's own application
func (h *KYCHandler) Mine(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var app models.KYCApplication
	if err := h.db.Where("user_id = ?", userID).First(&app).Error; err != nil {
		respondError(c, errs.NotFound("kyc application", userID.String()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

// List returns applications for checker review, filterable by status
func (h *KYCHandler) List(c *gin.Context) {
	query := h.db.Model(&models.KYCApplication{}).Preload("User")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list applications"})
		return
	}

	var apps []models.KYCApplication
	if err := query.Order("created_at ASC").Limit(limit).Offset(offset).Find(&apps).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list applications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": apps, "total": total})
}

// Review records a checker decision on an application. Approved and
// rejected are final; under_review parks it without closing it.
func (h *KYCHandler) Review(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application id"})
		return
	}

	var req ReviewKYCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Decision == models.KYCRejected && req.Notes == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rejection requires notes"})
		return
	}

	checkerID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var app models.KYCApplication
	if err := h.db.First(&app, "id = ?", id).Error; err != nil {
		respondError(c, errs.NotFound("kyc application", id.String()))
		return
	}

	now := time.Now()
	result := h.db.Model(&models.KYCApplication{}).
		Where("id = ? AND status IN ?", id, []models.KYCStatus{models.KYCPending, models.KYCUnderReview}).
		Updates(map[string]interface{}{
			"status":        req.Decision,
			"checker_id":    checkerID,
			"checker_notes": req.Notes,
			"reviewed_at":   now,
		})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record decision"})
		return
	}
	if result.RowsAffected == 0 {
		respondError(c, errs.Conflict("application has already been decided"))
		return
	}

	h.record(c, checkerID, models.ActionKYCReviewed, app.ID, models.JSON{
		"decision":   string(req.Decision),
		"was_status": string(app.Status),
	})

	c.JSON(http.StatusOK, gin.H{"message": "Decision recorded", "status": req.Decision})
}

func (h *KYCHandler) record(c *gin.Context, actor uuid.UUID, action models.AuditAction, entityID uuid.UUID, details models.JSON) {
	err := h.auditor.Record(audit.Entry{
		Actor:      actor,
		Action:     action,
		EntityType: "kyc_application",
		EntityID:   entityID.String(),
		NewValues:  details,
		IPAddress:  c.ClientIP(),
	})
	if err != nil {
		log.Printf("warning: failed to record %s audit entry: %v", action, err)
	}
}
