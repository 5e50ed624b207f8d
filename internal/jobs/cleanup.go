package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/securecontrol/backend/internal/notify"
	"github.com/securecontrol/backend/internal/otp"
)

const notificationRetentionDays = 30

// Cleaner runs the periodic housekeeping jobs: expired OTP challenges and
// old read notifications.
type Cleaner struct {
	scheduler     *gocron.Scheduler
	otpStore      *otp.GormStore
	notifications *notify.Service
}

// NewCleaner creates a new cleanup scheduler. otpStore may be nil when
// challenges live in Redis, where TTLs handle expiry.
func NewCleaner(otpStore *otp.GormStore, notifications *notify.Service) *Cleaner {
	return &Cleaner{
		scheduler:     gocron.NewScheduler(time.UTC),
		otpStore:      otpStore,
		notifications: notifications,
	}
}

// Start schedules the jobs and runs the scheduler in the background
func (c *Cleaner) Start() {
	if c.otpStore != nil {
		c.scheduler.Every(5).Minutes().Do(func() {
			removed, err := c.otpStore.DeleteExpired(time.Now())
			if err != nil {
				log.Printf("error: expired challenge cleanup failed: %v", err)
				return
			}
			if removed > 0 {
				log.Printf("Removed %d expired verification challenges", removed)
			}
		})
	}

	c.scheduler.Every(1).Day().At("03:00").Do(func() {
		purged, err := c.notifications.PurgeRead(notificationRetentionDays)
		if err != nil {
			log.Printf("error: notification purge failed: %v", err)
			return
		}
		if purged > 0 {
			log.Printf("Purged %d read notifications", purged)
		}
	})

	c.scheduler.StartAsync()
	log.Println("Cleanup scheduler started")
}

// Stop stops the scheduler
func (c *Cleaner) Stop() {
	c.scheduler.Stop()
}
