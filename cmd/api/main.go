package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/securecontrol/backend/internal/audit"
	"github.com/securecontrol/backend/internal/blacklist"
	"github.com/securecontrol/backend/internal/config"
	"github.com/securecontrol/backend/internal/database"
	"github.com/securecontrol/backend/internal/database/migrations"
	"github.com/securecontrol/backend/internal/handlers"
	"github.com/securecontrol/backend/internal/jobs"
	"github.com/securecontrol/backend/internal/middleware"
	"github.com/securecontrol/backend/internal/notify"
	"github.com/securecontrol/backend/internal/otp"
	"github.com/securecontrol/backend/internal/policy"
	"github.com/securecontrol/backend/internal/routes"
	"github.com/securecontrol/backend/internal/services/email"
	"github.com/securecontrol/backend/internal/workflow"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// OTP challenges live in Redis when one is configured, otherwise in
	// the relational store with a periodic expiry sweep.
	var otpStore otp.Store
	var gormOTPStore *otp.GormStore
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		if cfg.Redis.Password != "" {
			opts.Password = cfg.Redis.Password
		}
		opts.DB = cfg.Redis.DB
		otpStore = otp.NewRedisStore(redis.NewClient(opts))
		log.Println("Using Redis for verification challenges")
	} else {
		gormOTPStore = otp.NewGormStore(db)
		otpStore = gormOTPStore
		log.Println("Using database for verification challenges")
	}
	otpManager := otp.NewManager(otpStore)

	mailer := email.NewSMTPMailer(cfg.SMTP)
	sender := email.NewSender(mailer, cfg.FrontendURL)

	auditor := audit.NewLogger(db)
	notifier := notify.NewService(db, sender)

	engine := policy.NewEngine(
		policy.NewGormRuleSource(db),
		policy.NewGormHistorySource(db),
		policy.NewGormBlacklistSource(db),
	)
	workflowService := workflow.NewService(
		workflow.NewGormStore(db),
		engine,
		policy.NewGormViolationStore(db),
		auditor,
		notifier,
	)
	ruleService := policy.NewRuleService(db, auditor)
	blacklistService := blacklist.NewService(db, auditor)

	cleaner := jobs.NewCleaner(gormOTPStore, notifier)
	cleaner.Start()
	defer cleaner.Stop()

	rateLimiter := middleware.NewRateLimiter(20, 10, 40, 5)
	defer rateLimiter.Stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	routes.Register(router, routes.Handlers{
		Auth:          handlers.NewAuthHandler(db, otpManager, sender, auditor),
		MFA:           handlers.NewMFAHandler(db, otpManager, sender, auditor),
		Transactions:  handlers.NewTransactionHandler(workflowService),
		Policies:      handlers.NewPolicyHandler(ruleService, engine),
		Blacklist:     handlers.NewBlacklistHandler(blacklistService),
		Audit:         handlers.NewAuditHandler(auditor),
		Users:         handlers.NewUserHandler(db, sender, auditor),
		Notifications: handlers.NewNotificationHandler(notifier),
		KYC:           handlers.NewKYCHandler(db, auditor, notifier),
	}, rateLimiter)

	log.Printf("Starting server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
