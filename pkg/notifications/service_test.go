package notifications

import (
	"context"
	"fmt"
	"testing"

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

	err = db.AutoMigrate(&models.Notification{})
	require.NoError(t, err)

	return db
}

func TestNotifyStoresAndNormalizesEmail(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, nil)

	n, err := service.Notify(context.Background(), "Sara@Example.com", "reminder_due", "", models.JSONMap{"reminder_id": 7})
	require.NoError(t, err)

	assert.Equal(t, "sara@example.com", n.TargetUserEmail)
	assert.Equal(t, models.NotificationNormal, n.Priority)
	assert.False(t, n.SentViaSSE)
	assert.False(t, n.IsRead)
}

func TestNotifyStampsSSEDelivery(t *testing.T) {
	db := setupTestDB(t)
	hub := NewHub()
	service := NewService(db, hub)
	ctx := context.Background()

	// Nobody connected: stored but not stamped.
	offline, err := service.Notify(ctx, "sara@example.com", "lead_assigned", models.NotificationHigh, nil)
	require.NoError(t, err)
	assert.False(t, offline.SentViaSSE)

	ch := hub.subscribe("sara@example.com")
	defer hub.unsubscribe("sara@example.com", ch)

	online, err := service.Notify(ctx, "sara@example.com", "lead_assigned", models.NotificationHigh, nil)
	require.NoError(t, err)
	assert.True(t, online.SentViaSSE)

	received := <-ch
	assert.Equal(t, online.ID, received.ID)

	var stored models.Notification
	require.NoError(t, db.First(&stored, online.ID).Error)
	assert.True(t, stored.SentViaSSE)
}

func TestMarkReadOwnership(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, nil)
	ctx := context.Background()

	n, err := service.Notify(ctx, "sara@example.com", "reminder_due", "", nil)
	require.NoError(t, err)

	// A different user cannot read it.
	err = service.MarkRead(ctx, "other@example.com", n.ID)
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	require.NoError(t, service.MarkRead(ctx, "sara@example.com", n.ID))

	list, err := service.ListForUser(ctx, "sara@example.com", false, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsRead)
	assert.NotNil(t, list[0].ReadAt)
}

func TestUnreadCountAndMarkAllRead(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := service.Notify(ctx, "sara@example.com", "reminder_due", "", nil)
		require.NoError(t, err)
	}
	_, err := service.Notify(ctx, "other@example.com", "reminder_due", "", nil)
	require.NoError(t, err)

	count, err := service.UnreadCount(ctx, "sara@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	affected, err := service.MarkAllRead(ctx, "sara@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)

	count, err = service.UnreadCount(ctx, "sara@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	unread, err := service.ListForUser(ctx, "sara@example.com", true, 0)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestHubPushRoutesByUser(t *testing.T) {
	hub := NewHub()

	saraCh := hub.subscribe("sara@example.com")
	defer hub.unsubscribe("sara@example.com", saraCh)
	omarCh := hub.subscribe("omar@example.com")
	defer hub.unsubscribe("omar@example.com", omarCh)

	assert.Equal(t, 1, hub.ClientCount("sara@example.com"))

	delivered := hub.Push(models.Notification{ID: 1, TargetUserEmail: "sara@example.com", Type: "lead_assigned"})
	assert.True(t, delivered)

	select {
	case n := <-saraCh:
		assert.Equal(t, uint(1), n.ID)
	default:
		t.Fatal("expected notification on sara's channel")
	}

	select {
	case <-omarCh:
		t.Fatal("notification leaked to another user")
	default:
	}

	// Nobody connected for this user.
	assert.False(t, hub.Push(models.Notification{ID: 2, TargetUserEmail: "nobody@example.com"}))
}
