package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/securecontrol/backend/internal/handlers"
	"github.com/securecontrol/backend/internal/middleware"
	"github.com/securecontrol/backend/internal/models"
)

// Handlers bundles the wired handlers so registration stays one call
type Handlers struct {
	Auth          *handlers.AuthHandler
	MFA           *handlers.MFAHandler
	Transactions  *handlers.TransactionHandler
	Policies      *handlers.PolicyHandler
	Blacklist     *handlers.BlacklistHandler
	Audit         *handlers.AuditHandler
	Users         *handlers.UserHandler
	Notifications *handlers.NotificationHandler
	KYC           *handlers.KYCHandler
}

// Register wires all API routes onto the router
func Register(router *gin.Engine, h Handlers, rateLimiter *middleware.RateLimiter) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.Use(rateLimiter.IPRateLimiterMiddleware())

	// Auth routes carry the stricter per-account limiter
	authGroup := router.Group("/api/auth")
	authGroup.Use(rateLimiter.AuthRateLimiterMiddleware())
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/verify-otp", h.Auth.VerifyRegistration)
		authGroup.POST("/resend-otp", h.Auth.ResendOTP)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/verify-mfa", h.Auth.VerifyMFA)
		authGroup.POST("/forgot-password", h.Auth.ForgotPassword)
		authGroup.POST("/reset-password", h.Auth.ResetPassword)
	}

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware())
	{
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
		api.POST("/auth/change-password", h.Auth.ChangePassword)

		mfaGroup := api.Group("/mfa")
		{
			mfaGroup.POST("/setup", h.MFA.Setup)
			mfaGroup.POST("/enable", h.MFA.Enable)
			mfaGroup.POST("/disable", h.MFA.Disable)
		}

		txGroup := api.Group("/transactions")
		{
			txGroup.POST("", h.Transactions.Create)
			txGroup.GET("", h.Transactions.List)
			txGroup.GET("/:id", h.Transactions.Get)
			txGroup.POST("/analyze", h.Policies.Analyze)

			review := txGroup.Group("")
			review.Use(middleware.RequireRole(models.RoleChecker, models.RoleAdmin, models.RoleSuperAdmin))
			{
				review.POST("/:id/approve", h.Transactions.Approve)
				review.POST("/:id/reject", h.Transactions.Reject)
			}
		}

		kycGroup := api.Group("/kyc")
		{
			kycGroup.POST("", h.KYC.Submit)
			kycGroup.GET("/me", h.KYC.Mine)

			kycReview := kycGroup.Group("")
			kycReview.Use(middleware.RequireRole(models.RoleChecker, models.RoleAdmin, models.RoleSuperAdmin))
			{
				kycReview.GET("", h.KYC.List)
				kycReview.POST("/:id/review", h.KYC.Review)
			}
		}

		notifGroup := api.Group("/notifications")
		{
			notifGroup.GET("", h.Notifications.List)
			notifGroup.PUT("/:id/read", h.Notifications.MarkRead)
		}

		auditGroup := api.Group("/audit")
		auditGroup.Use(middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))
		{
			auditGroup.GET("/logs", h.Audit.List)
		}

		adminGroup := api.Group("/admin")
		adminGroup.Use(middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))
		{
			adminGroup.GET("/policies", h.Policies.List)
			adminGroup.POST("/policies", h.Policies.Create)
			adminGroup.PUT("/policies/:id", h.Policies.Update)

			adminGroup.GET("/blacklist", h.Blacklist.List)
			adminGroup.POST("/blacklist", h.Blacklist.Add)
			adminGroup.PUT("/blacklist/:id", h.Blacklist.Update)
			adminGroup.DELETE("/blacklist/:id", h.Blacklist.Remove)
		}

		userGroup := api.Group("/admin/users")
		userGroup.Use(middleware.RequireRole(models.RoleSuperAdmin))
		{
			userGroup.GET("", h.Users.List)
			userGroup.POST("", h.Users.Create)
			userGroup.PUT("/:id", h.Users.Update)
		}
	}
}
