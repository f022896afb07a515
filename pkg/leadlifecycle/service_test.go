package leadlifecycle

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
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Lead{},
		&models.Client{},
		&models.LeadStatusHistory{},
	))
	return db
}

func createLead(t *testing.T, db *gorm.DB) models.Lead {
	budget := 800_000.0
	lead := models.Lead{
		Name:     "Omar Farouk",
		Phone:    "+201012345678",
		Email:    "omar@example.com",
		Company:  "Farouk Holdings",
		Source:   "referral",
		Location: "Maadi",
		Budget:   &budget,
		Notes:    "prefers sea view",
	}
	require.NoError(t, db.Create(&lead).Error)
	return lead
}

func TestUpdateStatus_RecordsHistory(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	lead := createLead(t, db)

	updated, err := service.UpdateStatus(context.Background(), 1, lead.ID, models.LeadStatusContacted, "first call")
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusContacted, updated.Status)

	history, err := service.GetStatusHistory(context.Background(), lead.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.LeadStatusNew, history[0].OldStatus)
	assert.Equal(t, models.LeadStatusContacted, history[0].NewStatus)
	assert.Equal(t, "first call", history[0].Reason)
}

func TestUpdateStatus_SameStatusIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	lead := createLead(t, db)

	_, err := service.UpdateStatus(context.Background(), 1, lead.ID, models.LeadStatusNew, "")
	require.NoError(t, err)

	history, err := service.GetStatusHistory(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestUpdateStatus_AnyJumpAllowed(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	lead := createLead(t, db)

	// No transition table: new -> lost directly is legal.
	updated, err := service.UpdateStatus(context.Background(), 1, lead.ID, models.LeadStatusLost, "")
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusLost, updated.Status)
}

func TestConvert_CreatesClientAndStampsLead(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	lead := createLead(t, db)

	result, err := service.Convert(context.Background(), 7, lead.ID)
	require.NoError(t, err)

	// Exactly one client row, contact fields carried over.
	var clientCount int64
	require.NoError(t, db.Model(&models.Client{}).Count(&clientCount).Error)
	assert.EqualValues(t, 1, clientCount)
	assert.Equal(t, lead.Name, result.Client.Name)
	assert.Equal(t, lead.Phone, result.Client.Phone)
	assert.Equal(t, lead.Email, result.Client.Email)
	require.NotNil(t, result.Client.ConvertedFromID)
	assert.Equal(t, lead.ID, *result.Client.ConvertedFromID)

	var stored models.Lead
	require.NoError(t, db.First(&stored, lead.ID).Error)
	assert.Equal(t, models.LeadStatusConverted, stored.Status)
	require.NotNil(t, stored.ConvertedAt)
	require.NotNil(t, stored.ConvertedToID)
	assert.Equal(t, result.Client.ID, *stored.ConvertedToID)
	require.NotNil(t, stored.ConvertedByID)
	assert.EqualValues(t, 7, *stored.ConvertedByID)
}

func TestConvert_Twice(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	lead := createLead(t, db)

	_, err := service.Convert(context.Background(), 1, lead.ID)
	require.NoError(t, err)

	_, err = service.Convert(context.Background(), 1, lead.ID)
	assert.ErrorIs(t, err, ErrAlreadyConverted)

	// Still exactly one client.
	var clientCount int64
	require.NoError(t, db.Model(&models.Client{}).Count(&clientCount).Error)
	assert.EqualValues(t, 1, clientCount)
}

func TestArchive_SoftDeletes(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	lead := createLead(t, db)

	require.NoError(t, service.Archive(context.Background(), 3, lead.ID))

	var stored models.Lead
	require.NoError(t, db.First(&stored, lead.ID).Error)
	assert.True(t, stored.IsArchived())
	require.NotNil(t, stored.ArchivedByID)
	assert.EqualValues(t, 3, *stored.ArchivedByID)

	// Archived leads refuse further status changes.
	_, err := service.UpdateStatus(context.Background(), 1, lead.ID, models.LeadStatusContacted, "")
	assert.ErrorIs(t, err, ErrLeadArchived)
}

func TestGetStatusCounts(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	l1 := createLead(t, db)
	createLead(t, db)

	_, err := service.UpdateStatus(context.Background(), 1, l1.ID, models.LeadStatusQualified, "")
	require.NoError(t, err)

	counts, err := service.GetStatusCounts(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts["new"])
	assert.EqualValues(t, 1, counts["qualified"])
	assert.EqualValues(t, 0, counts["lost"])
}

func TestUpdateStatus_LeadNotFound(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	_, err := service.UpdateStatus(context.Background(), 1, 9999, models.LeadStatusContacted, "")
	assert.ErrorIs(t, err, ErrLeadNotFound)
}
