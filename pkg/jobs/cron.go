package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/backup"
	"github.com/aqarlink/crm/pkg/email"
	"github.com/aqarlink/crm/pkg/leadscoring"
	"github.com/aqarlink/crm/pkg/models"
	"github.com/aqarlink/crm/pkg/notifications"
	"github.com/aqarlink/crm/pkg/reminders"
)

// CronManager manages scheduled jobs
type CronManager struct {
	cron          *cron.Cron
	db            *gorm.DB
	reminders     *reminders.Service
	notifications *notifications.Service
	scoring       *leadscoring.Service
	backups       *backup.Service
	email         *email.Service
	logger        *log.Logger
}

// NewCronManager creates a new cron manager. backups may be nil when
// scheduled backups are disabled.
func NewCronManager(
	db *gorm.DB,
	reminderSvc *reminders.Service,
	notificationSvc *notifications.Service,
	scoringSvc *leadscoring.Service,
	backupSvc *backup.Service,
	emailSvc *email.Service,
	logger *log.Logger,
) *CronManager {
	if logger == nil {
		logger = log.Default()
	}

	return &CronManager{
		cron:          cron.New(),
		db:            db,
		reminders:     reminderSvc,
		notifications: notificationSvc,
		scoring:       scoringSvc,
		backups:       backupSvc,
		email:         emailSvc,
		logger:        logger,
	}
}

// SetupJobs configures all scheduled jobs
func (cm *CronManager) SetupJobs() error {
	cm.logger.Println("Setting up cron jobs...")

	// Every 5 minutes: deliver due reminders
	_, err := cm.cron.AddFunc("*/5 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := cm.DeliverDueReminders(ctx); err != nil {
			cm.logger.Printf("❌ Reminder delivery job failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	// Daily at 3 AM: recompute lead scores
	_, err = cm.cron.AddFunc("0 3 * * *", func() {
		cm.logger.Println("🕐 Running nightly score recompute...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		updated, err := cm.scoring.RecomputeAll(ctx)
		if err != nil {
			cm.logger.Printf("❌ Score recompute failed: %v", err)
			return
		}
		cm.logger.Printf("✅ Recomputed scores for %d leads", updated)
	})
	if err != nil {
		return err
	}

	// Daily at 2 AM: database backup (when enabled)
	if cm.backups != nil {
		_, err = cm.cron.AddFunc("0 2 * * *", func() {
			cm.logger.Println("🕐 Running nightly database backup...")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()

			if _, err := cm.backups.CreateBackup(ctx); err != nil {
				cm.logger.Printf("❌ Nightly backup failed: %v", err)
			}
		})
		if err != nil {
			return err
		}
	}

	cm.logger.Println("✅ Cron jobs configured successfully")
	cm.logger.Println("  - Every 5 minutes: deliver due reminders")
	cm.logger.Println("  - Daily at 3 AM: recompute lead scores")
	if cm.backups != nil {
		cm.logger.Println("  - Daily at 2 AM: database backup")
	}

	return nil
}

// DeliverDueReminders scans for pending reminders whose time has passed,
// creates a notification for each (pushed live over SSE when the user is
// connected), sends a best-effort email, and stamps the reminder so it is
// not delivered twice.
func (cm *CronManager) DeliverDueReminders(ctx context.Context) error {
	due, err := cm.reminders.DueUnnotified(ctx)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	cm.logger.Printf("🔔 Delivering %d due reminders", len(due))

	var delivered int
	for _, r := range due {
		if r.User == nil {
			cm.logger.Printf("⚠️  Reminder %d has no user, skipping", r.ID)
			continue
		}

		data := models.JSONMap{
			"reminder_id": r.ID,
			"note":        r.Note,
			"remind_at":   r.RemindAt.Format(time.RFC3339),
		}
		leadName := ""
		if r.LeadID != nil {
			data["lead_id"] = *r.LeadID
			var lead models.Lead
			if err := cm.db.WithContext(ctx).Select("id", "name").First(&lead, *r.LeadID).Error; err == nil {
				leadName = lead.Name
				data["lead_name"] = lead.Name
			}
		}

		if _, err := cm.notifications.Notify(ctx, r.User.Email, "reminder_due", models.NotificationHigh, data); err != nil {
			cm.logger.Printf("⚠️  Failed to notify user %s for reminder %d: %v", r.User.Email, r.ID, err)
			continue
		}

		if cm.email != nil {
			if err := cm.email.SendReminderDueEmail(r.User.Email, r.User.Name, r.Note, r.RemindAt, leadName); err != nil {
				cm.logger.Printf("⚠️  Failed to email user %s for reminder %d: %v", r.User.Email, r.ID, err)
			}
		}

		if err := cm.reminders.MarkNotified(ctx, r.ID); err != nil {
			cm.logger.Printf("⚠️  Failed to mark reminder %d notified: %v", r.ID, err)
			continue
		}
		delivered++
	}

	cm.logger.Printf("✅ Delivered %d/%d due reminders", delivered, len(due))
	return nil
}

// Start starts the cron scheduler
func (cm *CronManager) Start() {
	cm.logger.Println("🚀 Starting cron scheduler...")
	cm.cron.Start()
}

// Stop stops the cron scheduler
func (cm *CronManager) Stop() {
	cm.logger.Println("🛑 Stopping cron scheduler...")
	cm.cron.Stop()
}
