package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/securecontrol/backend/internal/audit"
	"github.com/securecontrol/backend/internal/errs"
	"github.com/securecontrol/backend/internal/middleware"
	"github.com/securecontrol/backend/internal/models"
	"github.com/securecontrol/backend/internal/otp"
	"github.com/securecontrol/backend/internal/services/email"
	"github.com/securecontrol/backend/internal/utils"
	"gorm.io/gorm"
)

const sessionDuration = 24 * time.Hour

// AuthHandler handles registration, login, and session endpoints
type AuthHandler struct {
	db      *gorm.DB
	otp     *otp.Manager
	sender  *email.Sender
	auditor audit.Recorder
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *gorm.DB, otpManager *otp.Manager, sender *email.Sender, auditor audit.Recorder) *AuthHandler {
	return &AuthHandler{
		db:      db,
		otp:     otpManager,
		sender:  sender,
		auditor: auditor,
	}
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

// VerifyOTPRequest represents the request body for code verification
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6"`
}

// ResendOTPRequest represents the request body for resending a code
type ResendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest represents the request body for changing a password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// ResetPasswordRequest represents the request body for completing a password reset
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,len=6"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// Register stages a new maker account and emails a verification code.
// No user row is created until the code is verified.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing models.User
	if result := h.db.Where("email = ?", req.Email).First(&existing); result.RowsAffected > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
		return
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	payload := otp.Payload{
		"password_hash": passwordHash,
		"first_name":    req.FirstName,
		"last_name":     req.LastName,
	}
	err = h.otp.Issue(registrationKey(req.Email), payload, func(code string) error {
		return h.sender.SendOTP(req.Email, req.FirstName, code, int(otp.Expiry.Minutes()))
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Verification code sent. Please check your email.",
	})
}

// VerifyRegistration redeems a registration code and creates the account
func (h *AuthHandler) VerifyRegistration(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload, outcome, err := h.otp.Verify(registrationKey(req.Email), req.Code)
	if err != nil {
		log.Printf("registration verification for %s failed: %s", req.Email, outcome)
		respondError(c, err)
		return
	}

	// The address may have been registered by someone else while the code
	// was outstanding
	var existing models.User
	if result := h.db.Where("email = ?", req.Email).First(&existing); result.RowsAffected > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
		return
	}

	username, err := deriveUsername(payload["first_name"], payload["last_name"], usernameTaken(h.db))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	user := models.User{
		Email:        req.Email,
		Username:     username,
		FirstName:    payload["first_name"],
		LastName:     payload["last_name"],
		PasswordHash: payload["password_hash"],
		Role:         models.RoleMaker,
		IsActive:     true,
		MFAMethod:    models.MFAMethodEmail,
	}
	if err := h.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	h.recordAuth(c, user.ID, models.ActionUserCreated, models.JSON{
		"email": user.Email,
		"role":  string(user.Role),
	})

	token, err := utils.GenerateToken(user.ID, user.Email, user.Role, sessionDuration)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created successfully",
		"token":   token,
		"user":    user,
	})
}

// ResendOTP reissues the outstanding registration code
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.otp.Reissue(registrationKey(req.Email), func(code string) error {
		return h.sender.SendOTP(req.Email, "", code, int(otp.Expiry.Minutes()))
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent"})
}

// Login checks credentials. When MFA is enabled for the account the
// response asks for a second factor instead of issuing a session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ? AND is_active = ?", req.Email, true).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if user.MFAEnabled {
		// Either way a challenge is staged, so VerifyMFA can insist on a
		// successful password check having happened first. For email MFA
		// the code is delivered; for authenticator apps the code itself is
		// unused and the challenge just marks the login as pending with an
		// attempt budget.
		deliver := func(code string) error { return nil }
		if user.MFAMethod == models.MFAMethodEmail {
			deliver = func(code string) error {
				return h.sender.SendOTP(user.Email, user.FirstName, code, int(otp.Expiry.Minutes()))
			}
		}
		if err := h.otp.Issue(mfaKey(user.Email), otp.Payload{}, deliver); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"mfa_required": true,
			"mfa_method":   user.MFAMethod,
		})
		return
	}

	h.completeLogin(c, &user)
}

// VerifyMFA redeems the second factor and issues the session
func (h *AuthHandler) VerifyMFA(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ? AND is_active = ?", req.Email, true).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid verification code"})
		return
	}
	if !user.MFAEnabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "MFA is not enabled for this account"})
		return
	}

	switch user.MFAMethod {
	case models.MFAMethodTOTP:
		if !utils.ValidateTOTPCode(user.TOTPSecret, req.Code, utils.DefaultTOTPConfig()) {
			outcome, err := h.otp.SpendAttempt(mfaKey(user.Email))
			log.Printf("mfa verification for %s failed: %s", user.Email, outcome)
			respondError(c, err)
			return
		}
		// A valid authenticator code alone is not enough; the pending
		// challenge staged by Login proves the password check succeeded.
		if _, outcome, err := h.otp.Redeem(mfaKey(user.Email)); err != nil {
			log.Printf("mfa verification for %s refused: %s", user.Email, outcome)
			respondError(c, err)
			return
		}
	default:
		if _, outcome, err := h.otp.Verify(mfaKey(user.Email), req.Code); err != nil {
			log.Printf("mfa verification for %s failed: %s", user.Email, outcome)
			respondError(c, err)
			return
		}
	}

	h.completeLogin(c, &user)
}

// Logout records the end of a session. The token itself is stateless; the
// audit trail is what matters here.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	h.recordAuth(c, userID, models.ActionUserLogout, nil)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the authenticated user's profile
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errs.NotFound("user", userID.String()).Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ChangePassword lets an authenticated user rotate their own password.
// Checkers created by an admin receive a generated password by email and
// are expected to call this on first login.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errs.NotFound("user", userID.String()).Error()})
		return
	}

	if !utils.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
		return
	}

	passwordHash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}
	if err := h.db.Model(&user).Update("password_hash", passwordHash).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	h.recordAuth(c, user.ID, models.ActionPasswordChanged, nil)
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// ForgotPassword stages a reset code for the given address. The response
// is the same whether or not the address belongs to an account.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ? AND is_active = ?", req.Email, true).First(&user).Error; err == nil {
		err := h.otp.Issue(resetKey(user.Email), otp.Payload{}, func(code string) error {
			return h.sender.SendOTP(user.Email, user.FirstName, code, int(otp.Expiry.Minutes()))
		})
		if err != nil {
			log.Printf("warning: failed to stage password reset for %s: %v", user.Email, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "If that address belongs to an account, a reset code has been sent.",
	})
}

// ResetPassword redeems a reset code and sets the new password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, outcome, err := h.otp.Verify(resetKey(req.Email), req.Code); err != nil {
		log.Printf("password reset for %s failed: %s", req.Email, outcome)
		respondError(c, err)
		return
	}

	var user models.User
	if err := h.db.Where("email = ? AND is_active = ?", req.Email, true).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired verification code"})
		return
	}

	passwordHash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}
	if err := h.db.Model(&user).Update("password_hash", passwordHash).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	h.recordAuth(c, user.ID, models.ActionPasswordReset, nil)
	c.JSON(http.StatusOK, gin.H{"message": "Password updated. You can now log in."})
}

func (h *AuthHandler) completeLogin(c *gin.Context, user *models.User) {
	token, err := utils.GenerateToken(user.ID, user.Email, user.Role, sessionDuration)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	now := time.Now()
	if err := h.db.Model(user).Update("last_login_at", now).Error; err != nil {
		log.Printf("warning: failed to record last login for %s: %v", user.Email, err)
	}

	h.recordAuth(c, user.ID, models.ActionUserLogin, models.JSON{"email": user.Email})

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

func (h *AuthHandler) recordAuth(c *gin.Context, actor uuid.UUID, action models.AuditAction, details models.JSON) {
	err := h.auditor.Record(audit.Entry{
		Actor:      actor,
		Action:     action,
		EntityType: "user",
		EntityID:   actor.String(),
		NewValues:  details,
		IPAddress:  c.ClientIP(),
	})
	if err != nil {
		log.Printf("warning: failed to record %s audit entry: %v", action, err)
	}
}

func registrationKey(email string) string { return "register:" + email }
func mfaKey(email string) string          { return "mfa:" + email }
func resetKey(email string) string        { return "reset:" + email }
