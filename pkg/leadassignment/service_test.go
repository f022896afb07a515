package leadassignment

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
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Lead{}, &models.LeadAssignment{}))
	return db
}

func createSalesUser(t *testing.T, db *gorm.DB, name string) models.User {
	user := models.User{
		Email:        name + "@aqarlink.test",
		PasswordHash: "x",
		Name:         name,
		Role:         models.RoleSales,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createUnassignedLead(t *testing.T, db *gorm.DB, name string) models.Lead {
	lead := models.Lead{Name: name, Phone: "+201012345678", Source: "website"}
	require.NoError(t, db.Create(&lead).Error)
	return lead
}

func TestDistributeUnassigned_RoundRobinBalance(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	u1 := createSalesUser(t, db, "user1")
	u2 := createSalesUser(t, db, "user2")
	u3 := createSalesUser(t, db, "user3")

	// 7 leads over 3 users: counts must be ceil(7/3)=3, 2, 2.
	for i := 0; i < 7; i++ {
		createUnassignedLead(t, db, fmt.Sprintf("lead-%d", i))
	}

	summary, err := service.DistributeUnassigned(context.Background(), 99)
	require.NoError(t, err)

	assert.Equal(t, 7, summary.TotalUnassigned)
	assert.Equal(t, 7, summary.AssignedCount)
	assert.Equal(t, 0, summary.FailedCount)
	assert.Equal(t, 3, summary.PerUser[u1.ID])
	assert.Equal(t, 2, summary.PerUser[u2.ID])
	assert.Equal(t, 2, summary.PerUser[u3.ID])
}

func TestDistributeUnassigned_DeterministicOrder(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	u1 := createSalesUser(t, db, "first")
	u2 := createSalesUser(t, db, "second")

	l1 := createUnassignedLead(t, db, "a")
	l2 := createUnassignedLead(t, db, "b")
	l3 := createUnassignedLead(t, db, "c")

	_, err := service.DistributeUnassigned(context.Background(), 99)
	require.NoError(t, err)

	// Assignment follows input (id) order: l1->u1, l2->u2, l3->u1.
	var stored []models.Lead
	require.NoError(t, db.Order("id ASC").Find(&stored).Error)
	assert.Equal(t, u1.ID, *stored[0].AssignedToID)
	assert.Equal(t, u2.ID, *stored[1].AssignedToID)
	assert.Equal(t, u1.ID, *stored[2].AssignedToID)

	_ = l1
	_ = l2
	_ = l3
}

func TestDistributeUnassigned_NoSalesUsers(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	createUnassignedLead(t, db, "orphan")

	_, err := service.DistributeUnassigned(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNoSalesUsers)
}

func TestDistributeUnassigned_SkipsAssignedAndArchived(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	u := createSalesUser(t, db, "only")

	assigned := createUnassignedLead(t, db, "taken")
	require.NoError(t, db.Model(&assigned).Update("assigned_to_id", u.ID).Error)

	archived := createUnassignedLead(t, db, "gone")
	require.NoError(t, db.Model(&archived).Update("archived_at", gorm.Expr("CURRENT_TIMESTAMP")).Error)

	fresh := createUnassignedLead(t, db, "fresh")

	summary, err := service.DistributeUnassigned(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalUnassigned)
	assert.Equal(t, []uint{fresh.ID}, summary.AssignedLeadIDs)
}

func TestAssignLead_Manual(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	user := createSalesUser(t, db, "closer")
	lead := createUnassignedLead(t, db, "hot lead")

	resp, err := service.AssignLead(context.Background(), lead.ID, user.ID, 1, "")
	require.NoError(t, err)
	assert.Equal(t, "manual", resp.Type)
	assert.Equal(t, "manual", resp.Reason)

	var stored models.Lead
	require.NoError(t, db.First(&stored, lead.ID).Error)
	require.NotNil(t, stored.AssignedToID)
	assert.Equal(t, user.ID, *stored.AssignedToID)
}

func TestAssignLead_ReassignDeactivatesPrevious(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	u1 := createSalesUser(t, db, "first")
	u2 := createSalesUser(t, db, "second")
	lead := createUnassignedLead(t, db, "lead")

	_, err := service.AssignLead(context.Background(), lead.ID, u1.ID, 1, "")
	require.NoError(t, err)
	_, err = service.AssignLead(context.Background(), lead.ID, u2.ID, 1, "handover")
	require.NoError(t, err)

	var active []models.LeadAssignment
	require.NoError(t, db.Where("lead_id = ? AND is_active = ?", lead.ID, true).Find(&active).Error)
	require.Len(t, active, 1)
	assert.Equal(t, u2.ID, active[0].UserID)

	history, err := service.GetLeadHistory(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestAssignLead_NotFound(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	user := createSalesUser(t, db, "u")

	_, err := service.AssignLead(context.Background(), 9999, user.ID, 1, "")
	assert.ErrorIs(t, err, ErrLeadNotFound)

	lead := createUnassignedLead(t, db, "l")
	_, err = service.AssignLead(context.Background(), lead.ID, 9999, 1, "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
