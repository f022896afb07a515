package audit

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

	err = db.AutoMigrate(&models.AuditLog{})
	require.NoError(t, err)

	return db
}

func TestLogDefaultsSeverity(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	userID := uint(1)

	err := service.Log(context.Background(), Entry{
		UserID:       &userID,
		Action:       models.AuditLeadConvert,
		ResourceType: "lead",
		ResourceID:   "42",
		Metadata:     models.JSONMap{"client_id": 7},
	})
	require.NoError(t, err)

	var row models.AuditLog
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, models.AuditLeadConvert, row.Action)
	assert.Equal(t, models.SeverityInfo, row.Severity)
	assert.Equal(t, "42", row.ResourceID)
}

func TestListFilters(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	sara := uint(1)
	omar := uint(2)
	require.NoError(t, service.LogLeadAction(ctx, sara, models.AuditLeadCreate, 1, "created"))
	require.NoError(t, service.LogLeadAction(ctx, sara, models.AuditLeadConvert, 1, "converted"))
	require.NoError(t, service.LogUserAction(ctx, omar, models.AuditUserLogin, "10.0.0.1", "curl"))

	all, total, err := service.List(ctx, ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	bySara, total, err := service.List(ctx, ListRequest{UserID: &sara})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, bySara, 2)

	logins, total, err := service.List(ctx, ListRequest{Action: models.AuditUserLogin})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "10.0.0.1", logins[0].IPAddress)

	future := time.Now().Add(time.Hour)
	none, total, err := service.List(ctx, ListRequest{Since: &future})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, none)
}
