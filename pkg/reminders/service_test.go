package reminders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.User{}, &models.Lead{}, &models.Reminder{})
	require.NoError(t, err)

	return db
}

func TestCreateReminder(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	remindAt := time.Now().Add(2 * time.Hour)
	reminder, err := service.Create(context.Background(), 1, models.CreateReminderRequest{
		Note:     "call back about the villa",
		RemindAt: remindAt,
	})
	require.NoError(t, err)

	assert.Equal(t, models.ReminderPending, reminder.Status)
	assert.Nil(t, reminder.DoneAt)
	assert.Nil(t, reminder.NotifiedAt)
}

func TestCreateRejectsPastRemindAt(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	_, err := service.Create(context.Background(), 1, models.CreateReminderRequest{
		Note:     "too late",
		RemindAt: time.Now().Add(-time.Minute),
	})
	assert.ErrorIs(t, err, ErrRemindAtInPast)
}

func TestCreateRejectsMissingLead(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	missing := uint(9999)
	_, err := service.Create(context.Background(), 1, models.CreateReminderRequest{
		Note:     "linked to nothing",
		RemindAt: time.Now().Add(time.Hour),
		LeadID:   &missing,
	})
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestMarkDone(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	reminder, err := service.Create(ctx, 1, models.CreateReminderRequest{
		Note:     "send contract draft",
		RemindAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	done, err := service.MarkDone(ctx, 1, reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReminderDone, done.Status)
	assert.NotNil(t, done.DoneAt)

	// Completing twice is a no-op.
	again, err := service.MarkDone(ctx, 1, reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, done.DoneAt.Unix(), again.DoneAt.Unix())

	// Another user may not complete it.
	_, err = service.MarkDone(ctx, 2, reminder.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = service.MarkDone(ctx, 1, 9999)
	assert.ErrorIs(t, err, ErrReminderNotFound)
}

func TestUpdateReminder(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	reminder, err := service.Create(ctx, 1, models.CreateReminderRequest{
		Note:     "confirm viewing time",
		RemindAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	// Simulate a reminder already delivered once.
	require.NoError(t, db.Model(&models.Reminder{}).Where("id = ?", reminder.ID).Update("notified_at", time.Now()).Error)

	newNote := "confirm viewing time with the owner"
	newAt := time.Now().Add(48 * time.Hour)
	updated, err := service.Update(ctx, 1, reminder.ID, models.UpdateReminderRequest{
		Note:     &newNote,
		RemindAt: &newAt,
	})
	require.NoError(t, err)
	assert.Equal(t, newNote, updated.Note)
	assert.Equal(t, newAt.Unix(), updated.RemindAt.Unix())
	// Rescheduling re-arms delivery.
	assert.Nil(t, updated.NotifiedAt)

	past := time.Now().Add(-time.Hour)
	_, err = service.Update(ctx, 1, reminder.ID, models.UpdateReminderRequest{RemindAt: &past})
	assert.ErrorIs(t, err, ErrRemindAtInPast)

	_, err = service.Update(ctx, 2, reminder.ID, models.UpdateReminderRequest{Note: &newNote})
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = service.Update(ctx, 1, 9999, models.UpdateReminderRequest{Note: &newNote})
	assert.ErrorIs(t, err, ErrReminderNotFound)
}

func TestListForUserPendingOnly(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	first, err := service.Create(ctx, 1, models.CreateReminderRequest{
		Note: "first", RemindAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = service.Create(ctx, 1, models.CreateReminderRequest{
		Note: "second", RemindAt: time.Now().Add(2 * time.Hour),
	})
	require.NoError(t, err)
	_, err = service.Create(ctx, 2, models.CreateReminderRequest{
		Note: "other user", RemindAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = service.MarkDone(ctx, 1, first.ID)
	require.NoError(t, err)

	all, err := service.ListForUser(ctx, 1, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := service.ListForUser(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "second", pending[0].Note)
}

func TestDueUnnotifiedAndMarkNotified(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	// Insert directly to bypass the future-only creation check.
	past := models.Reminder{
		UserID:   1,
		Note:     "already due",
		RemindAt: time.Now().Add(-10 * time.Minute),
		Status:   models.ReminderPending,
	}
	require.NoError(t, db.Create(&past).Error)

	_, err := service.Create(ctx, 1, models.CreateReminderRequest{
		Note: "not yet", RemindAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	due, err := service.DueUnnotified(ctx)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "already due", due[0].Note)

	require.NoError(t, service.MarkNotified(ctx, due[0].ID))

	due, err = service.DueUnnotified(ctx)
	require.NoError(t, err)
	assert.Empty(t, due)

	assert.ErrorIs(t, service.MarkNotified(ctx, 9999), ErrReminderNotFound)
}
