package leaddedup

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
	require.NoError(t, db.AutoMigrate(&models.Lead{}))
	return db
}

func createLead(t *testing.T, db *gorm.DB, name, phoneNum, email string) models.Lead {
	lead := models.Lead{Name: name, Phone: phoneNum, Email: email, Source: "website"}
	require.NoError(t, db.Create(&lead).Error)
	return lead
}

func TestCheck_ExactPhoneMatch(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	existing := createLead(t, db, "Ahmed", "+201012345678", "ahmed@example.com")

	result, err := service.Check(context.Background(), "+201012345678", "")
	require.NoError(t, err)
	assert.True(t, result.HasDuplicates)
	require.Len(t, result.Duplicates, 1)
	assert.Equal(t, existing.ID, result.Duplicates[0].ID)
}

func TestCheck_NormalizesPhoneBeforeComparing(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	createLead(t, db, "Ahmed", "+201012345678", "")

	// Local-format input must collide with the stored E.164 value.
	result, err := service.Check(context.Background(), "01012345678", "")
	require.NoError(t, err)
	assert.True(t, result.HasDuplicates)
}

func TestCheck_NoMatchReturnsEmptyList(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	createLead(t, db, "Ahmed", "+201012345678", "")

	result, err := service.Check(context.Background(), "+201099999999", "")
	require.NoError(t, err)
	assert.False(t, result.HasDuplicates)
	assert.Empty(t, result.Duplicates)
}

func TestCheck_EmailMatchIsCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	createLead(t, db, "Mona", "+201012345678", "Mona@Example.com")

	result, err := service.Check(context.Background(), "", "mona@example.com")
	require.NoError(t, err)
	assert.True(t, result.HasDuplicates)
}

func TestCheck_ArchivedLeadsIgnored(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	lead := createLead(t, db, "Old", "+201012345678", "")
	require.NoError(t, db.Model(&lead).Update("archived_at", gorm.Expr("CURRENT_TIMESTAMP")).Error)

	result, err := service.Check(context.Background(), "+201012345678", "")
	require.NoError(t, err)
	assert.False(t, result.HasDuplicates)
}

func TestBulkCheck_Counts(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	createLead(t, db, "Ahmed", "+201012345678", "ahmed@example.com")
	createLead(t, db, "Mona", "+201155555555", "mona@example.com")

	phones := []string{"01012345678", "+201099999999", "01155555555"}
	emails := []string{"", "new@example.com", ""}

	result, err := service.BulkCheck(context.Background(), phones, emails)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalInputCount)
	assert.Equal(t, 2, result.DuplicateCount)
	assert.Equal(t, 1, result.NewCount)

	indices := []int{result.Duplicates[0].Index, result.Duplicates[1].Index}
	assert.ElementsMatch(t, []int{0, 2}, indices)
}

func TestBulkCheck_EmptyInput(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	result, err := service.BulkCheck(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalInputCount)
	assert.Equal(t, 0, result.DuplicateCount)
	assert.Equal(t, 0, result.NewCount)
}

func TestBulkCheck_EmailOnlyCandidates(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	createLead(t, db, "Ahmed", "+201012345678", "ahmed@example.com")

	result, err := service.BulkCheck(context.Background(), []string{""}, []string{"AHMED@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.DuplicateCount)
	assert.Equal(t, 0, result.NewCount)
}
