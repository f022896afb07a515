package leads

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

	err = db.AutoMigrate(&models.User{}, &models.Lead{})
	require.NoError(t, err)

	return db
}

func strPtr(s string) *string { return &s }

func TestCreateNormalizesPhoneAndScores(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	lead, err := service.Create(ctx, models.CreateLeadRequest{
		Name:     "Ahmed Hassan",
		Phone:    "01012345678",
		Email:    "ahmed@example.com",
		Source:   "referral",
		Interest: "high",
		Type:     "investor",
		Location: "New Cairo",
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, "+201012345678", lead.Phone)
	assert.Equal(t, models.LeadStatusNew, lead.Status)
	assert.Equal(t, models.PriorityMedium, lead.Priority)
	// referral 15 + high 25 + investor 20 + both contacts 20 + location 15
	assert.Equal(t, 95, lead.Score)
	assert.NotZero(t, lead.ID)
}

func TestCreateRejectsInvalidPhone(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	_, err := service.Create(context.Background(), models.CreateLeadRequest{
		Name:   "Bad Phone",
		Phone:  "12345",
		Source: "website",
	}, 1)
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestUpdatePatchesFieldsAndRecomputesScore(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	lead, err := service.Create(ctx, models.CreateLeadRequest{
		Name:     "Mona Adel",
		Phone:    "01198765432",
		Source:   "website",
		Interest: "low",
	}, 1)
	require.NoError(t, err)
	originalScore := lead.Score

	updated, err := service.Update(ctx, lead.ID, models.UpdateLeadRequest{
		Interest: strPtr("high"),
		Location: strPtr("Zamalek"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Mona Adel", updated.Name)
	assert.Equal(t, "high", updated.Interest)
	assert.Greater(t, updated.Score, originalScore)
}

func TestUpdateNotFound(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	_, err := service.Update(context.Background(), 9999, models.UpdateLeadRequest{})
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestGetByID(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	created, err := service.Create(ctx, models.CreateLeadRequest{
		Name:   "Omar Said",
		Phone:  "01234567890",
		Source: "advertising",
	}, 1)
	require.NoError(t, err)

	found, err := service.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = service.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestListFiltersAndPagination(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	userID := uint(7)
	for i := 0; i < 5; i++ {
		lead := models.Lead{
			Name:   fmt.Sprintf("Lead %d", i),
			Phone:  fmt.Sprintf("+2010123456%02d", i),
			Source: "website",
			Status: models.LeadStatusNew,
		}
		if i < 2 {
			lead.Status = models.LeadStatusContacted
			lead.AssignedToID = &userID
		}
		require.NoError(t, db.Create(&lead).Error)
	}

	// Archived leads are hidden from the default listing.
	archived := models.Lead{Name: "Archived Lead", Phone: "+201099999999", Source: "website"}
	require.NoError(t, db.Create(&archived).Error)
	require.NoError(t, db.Model(&archived).Update("archived_at", gorm.Expr("CURRENT_TIMESTAMP")).Error)

	all, err := service.List(ctx, models.LeadListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), all.Total)

	contacted, err := service.List(ctx, models.LeadListRequest{Status: "contacted"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), contacted.Total)

	unassigned, err := service.List(ctx, models.LeadListRequest{Unassigned: true})
	require.NoError(t, err)
	assert.Equal(t, int64(3), unassigned.Total)

	assignedTo, err := service.List(ctx, models.LeadListRequest{AssignedTo: userID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), assignedTo.Total)

	archivedOnly, err := service.List(ctx, models.LeadListRequest{Archived: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), archivedOnly.Total)

	paged, err := service.List(ctx, models.LeadListRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, paged.Leads, 2)
	assert.Equal(t, int64(5), paged.Total)
}

func TestListSearch(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Lead{Name: "Karim Fathy", Phone: "+201012345678", Source: "website"}).Error)
	require.NoError(t, db.Create(&models.Lead{Name: "Sara Nabil", Phone: "+201187654321", Email: "sara@acme.eg", Source: "referral"}).Error)

	byName, err := service.List(ctx, models.LeadListRequest{Search: "Karim"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), byName.Total)

	byEmail, err := service.List(ctx, models.LeadListRequest{Search: "acme"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), byEmail.Total)

	byPhone, err := service.List(ctx, models.LeadListRequest{Search: "2010123"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), byPhone.Total)
}
