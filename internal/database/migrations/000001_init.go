package migrations

import (
	"os"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/securecontrol/backend/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	migrationsList = append(migrationsList,
		&gormigrate.Migration{
			ID: "000001_create_core_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&models.User{},
					&models.Transaction{},
					&models.PolicyRule{},
					&models.PolicyViolation{},
					&models.BlacklistEntry{},
					&models.AuditLog{},
					&models.Notification{},
					&models.KYCApplication{},
					&models.OTPChallenge{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					&models.OTPChallenge{},
					&models.KYCApplication{},
					&models.Notification{},
					&models.AuditLog{},
					&models.BlacklistEntry{},
					&models.PolicyViolation{},
					&models.PolicyRule{},
					&models.Transaction{},
					&models.User{},
				)
			},
		},
		&gormigrate.Migration{
			ID: "000002_seed_superadmin",
			Migrate: func(tx *gorm.DB) error {
				email := os.Getenv("SUPERADMIN_EMAIL")
				password := os.Getenv("SUPERADMIN_PASSWORD")
				if email == "" || password == "" {
					// No seed requested for this environment
					return nil
				}

				var count int64
				if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
					return err
				}
				if count > 0 {
					return tx.Model(&models.User{}).Where("email = ?", email).
						Update("role", models.RoleSuperAdmin).Error
				}

				hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
				if err != nil {
					return err
				}
				return tx.Create(&models.User{
					Email:        email,
					Username:     "superadmin",
					FirstName:    "Super",
					LastName:     "Admin",
					PasswordHash: string(hash),
					Role:         models.RoleSuperAdmin,
					IsActive:     true,
				}).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return nil
			},
		},
		&gormigrate.Migration{
			ID: "000003_seed_default_policy_rules",
			Migrate: func(tx *gorm.DB) error {
				var count int64
				if err := tx.Model(&models.PolicyRule{}).Count(&count).Error; err != nil {
					return err
				}
				if count > 0 {
					return nil
				}

				threshold := decimal.NewFromInt(10000)
				rules := []models.PolicyRule{
					{
						Name:        "Large Amount Threshold",
						Type:        models.RuleAmountThreshold,
						Threshold:   &threshold,
						Active:      true,
						Description: "Flags transactions above the configured amount",
					},
					{
						Name:        "Duplicate Transaction Detection",
						Type:        models.RuleDuplicateDetection,
						Active:      true,
						Description: "Flags repeated transfers of the same amount to the same account within 24 hours",
					},
					{
						Name:        "Blacklist Screening",
						Type:        models.RuleBlacklistCheck,
						Active:      true,
						Description: "Blocks transactions touching blacklisted accounts",
					},
					{
						Name:        "Outside Business Hours",
						Type:        models.RuleTimeBased,
						Active:      true,
						Description: "Flags transactions created outside Mon-Fri 09:00-18:00",
					},
				}
				return tx.Create(&rules).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return nil
			},
		},
	)
}
