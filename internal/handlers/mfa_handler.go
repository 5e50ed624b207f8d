package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/securecontrol/backend/internal/audit"
	"github.com/securecontrol/backend/internal/middleware"
	"github.com/securecontrol/backend/internal/models"
	"github.com/securecontrol/backend/internal/otp"
	"github.com/securecontrol/backend/internal/services/email"
	"github.com/securecontrol/backend/internal/utils"
	"gorm.io/gorm"
)

// MFAHandler manages second-factor enrollment for the authenticated user
type MFAHandler struct {
	db      *gorm.DB
	otp     *otp.Manager
	sender  *email.Sender
	auditor audit.Recorder
}

// NewMFAHandler creates a new MFA handler
func NewMFAHandler(db *gorm.DB, otpManager *otp.Manager, sender *email.Sender, auditor audit.Recorder) *MFAHandler {
	return &MFAHandler{
		db:      db,
		otp:     otpManager,
		sender:  sender,
		auditor: auditor,
	}
}

// MFASetupRequest represents the request body for starting enrollment
type MFASetupRequest struct {
	Method models.MFAMethod `json:"method" binding:"required,oneof=email totp"`
}

// MFAEnableRequest represents the request body for confirming enrollment
type MFAEnableRequest struct {
	Code string `json:"code" binding:"required,len=6"`
}

// MFADisableRequest represents the request body for disabling MFA
type MFADisableRequest struct {
	Password string `json:"password" binding:"required"`
}

// Setup starts enrollment for the chosen method. Email enrollment sends a
// confirmation code; TOTP enrollment returns the provisioning secret. MFA
// is not enabled until the first code is confirmed via Enable.
func (h *MFAHandler) Setup(c *gin.Context) {
	var req MFASetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if user.MFAEnabled {
		c.JSON(http.StatusConflict, gin.H{"error": "MFA is already enabled"})
		return
	}

	switch req.Method {
	case models.MFAMethodTOTP:
		key, err := utils.GenerateTOTPKey(utils.DefaultTOTPConfig(), user.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authenticator secret"})
			return
		}
		updates := map[string]interface{}{
			"totp_secret": key.Secret,
			"mfa_method":  models.MFAMethodTOTP,
		}
		if err := h.db.Model(user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save authenticator secret"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"method": models.MFAMethodTOTP,
			"secret": key.Secret,
			"url":    key.URL,
		})

	default:
		err := h.otp.Issue(mfaSetupKey(user.Email), otp.Payload{}, func(code string) error {
			return h.sender.SendOTP(user.Email, user.FirstName, code, int(otp.Expiry.Minutes()))
		})
		if err != nil {
			respondError(c, err)
			return
		}
		if err := h.db.Model(user).Update("mfa_method", models.MFAMethodEmail).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save MFA method"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"method":  models.MFAMethodEmail,
			"message": "Confirmation code sent to your email",
		})
	}
}

// Enable confirms enrollment with the first valid code
func (h *MFAHandler) Enable(c *gin.Context) {
	var req MFAEnableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if user.MFAEnabled {
		c.JSON(http.StatusConflict, gin.H{"error": "MFA is already enabled"})
		return
	}

	switch user.MFAMethod {
	case models.MFAMethodTOTP:
		if user.TOTPSecret == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Start MFA setup first"})
			return
		}
		if !utils.ValidateTOTPCode(user.TOTPSecret, req.Code, utils.DefaultTOTPConfig()) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid verification code"})
			return
		}
	default:
		if _, outcome, err := h.otp.Verify(mfaSetupKey(user.Email), req.Code); err != nil {
			log.Printf("mfa enrollment for %s failed: %s", user.Email, outcome)
			respondError(c, err)
			return
		}
	}

	if err := h.db.Model(user).Update("mfa_enabled", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enable MFA"})
		return
	}

	h.record(c, user, models.ActionMFAEnabled)
	c.JSON(http.StatusOK, gin.H{"message": "MFA enabled", "method": user.MFAMethod})
}

// Disable turns MFA off after re-checking the account password
func (h *MFAHandler) Disable(c *gin.Context) {
	var req MFADisableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if !user.MFAEnabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "MFA is not enabled"})
		return
	}
	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	updates := map[string]interface{}{
		"mfa_enabled": false,
		"totp_secret": "",
	}
	if err := h.db.Model(user).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to disable MFA"})
		return
	}

	h.record(c, user, models.ActionMFADisabled)
	c.JSON(http.StatusOK, gin.H{"message": "MFA disabled"})
}

func (h *MFAHandler) currentUser(c *gin.Context) (*models.User, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return nil, false
	}
	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return nil, false
	}
	return &user, true
}

func (h *MFAHandler) record(c *gin.Context, user *models.User, action models.AuditAction) {
	err := h.auditor.Record(audit.Entry{
		Actor:      user.ID,
		Action:     action,
		EntityType: "user",
		EntityID:   user.ID.String(),
		NewValues:  models.JSON{"mfa_method": string(user.MFAMethod)},
		IPAddress:  c.ClientIP(),
	})
	if err != nil {
		log.Printf("warning: failed to record %s audit entry: %v", action, err)
	}
}

func mfaSetupKey(email string) string { return "mfa-setup:" + email }
