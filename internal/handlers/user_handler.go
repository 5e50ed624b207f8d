package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/securecontrol/backend/internal/audit"
	"github.com/securecontrol/backend/internal/middleware"
	"github.com/securecontrol/backend/internal/models"
	"github.com/securecontrol/backend/internal/services/email"
	"github.com/securecontrol/backend/internal/utils"
	"gorm.io/gorm"
)

// UserHandler lets superadmins manage checker and admin accounts
type UserHandler struct {
	db      *gorm.DB
	sender  *email.Sender
	auditor audit.Recorder
}

// NewUserHandler creates a new user handler
func NewUserHandler(db *gorm.DB, sender *email.Sender, auditor audit.Recorder) *UserHandler {
	return &UserHandler{db: db, sender: sender, auditor: auditor}
}

// CreateUserRequest represents the request body for provisioning an account
type CreateUserRequest struct {
	Email     string          `json:"email" binding:"required,email"`
	FirstName string          `json:"first_name" binding:"required"`
	LastName  string          `json:"last_name" binding:"required"`
	Role      models.UserRole `json:"role" binding:"required,oneof=checker admin"`
}

// UpdateUserRequest represents the request body for toggling an account
type UpdateUserRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// List returns all user accounts
func (h *UserHandler) List(c *gin.Context) {
	var users []models.User
	if err := h.db.Order("created_at DESC").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Create provisions a checker or admin account with a generated temporary
// password. The credentials email is sent inside the database transaction;
// if delivery fails the insert is rolled back, so an account never exists
// without its owner having received the credentials.
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var existing models.User
	if result := h.db.Where("email = ?", req.Email).First(&existing); result.RowsAffected > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
		return
	}

	temporaryPassword, err := utils.GenerateTemporaryPassword(12)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate password"})
		return
	}
	passwordHash, err := utils.HashPassword(temporaryPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	username, err := deriveUsername(req.FirstName, req.LastName, usernameTaken(h.db))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	user := models.User{
		Email:        req.Email,
		Username:     username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: passwordHash,
		Role:         req.Role,
		IsActive:     true,
		MFAMethod:    models.MFAMethodEmail,
	}

	tx := h.db.Begin()
	if err := tx.Create(&user).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	if err := h.sender.SendCredentials(user.Email, user.FullName(), string(user.Role), temporaryPassword); err != nil {
		tx.Rollback()
		log.Printf("error: credentials email to %s failed, account not created: %v", user.Email, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to deliver credentials email; account was not created"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	h.record(c, actor, models.ActionUserCreated, user.ID, models.JSON{
		"email": user.Email,
		"role":  string(user.Role),
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created; credentials emailed",
		"user":    user,
	})
}

// Update activates or deactivates an account
func (h *UserHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	if actor == id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot change your own account status"})
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if user.Role == models.RoleSuperAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Superadmin accounts cannot be modified"})
		return
	}

	wasActive := user.IsActive
	if err := h.db.Model(&user).Update("is_active", *req.IsActive).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	h.record(c, actor, models.ActionUserUpdated, user.ID, models.JSON{
		"was_active": wasActive,
		"is_active":  *req.IsActive,
	})

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) record(c *gin.Context, actor uuid.UUID, action models.AuditAction, entityID uuid.UUID, details models.JSON) {
	err := h.auditor.Record(audit.Entry{
		Actor:      actor,
		Action:     action,
		EntityType: "user",
		EntityID:   entityID.String(),
		NewValues:  details,
		IPAddress:  c.ClientIP(),
	})
	if err != nil {
		log.Printf("warning: failed to record %s audit entry: %v", action, err)
	}
}
