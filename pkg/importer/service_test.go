package importer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/leaddedup"
	"github.com/aqarlink/crm/pkg/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.Lead{})
	require.NoError(t, err)

	return db
}

func newTestService(db *gorm.DB) *Service {
	return NewService(db, leaddedup.NewService(db))
}

func TestImportCSVBilingualHeaders(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(db)

	csvData := "\uFEFFالاسم,رقم الهاتف,البريد,ملاحظات\n" +
		"أحمد حسن,01012345678,ahmed@example.com,مهتم\n" +
		"Sara Nabil,01198765432,sara@example.com,\n"

	result, err := service.ImportFile(context.Background(), "leads.csv", strings.NewReader(csvData), Options{}, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 2, result.ImportedCount)
	assert.Equal(t, 0, result.SkippedCount)

	var leads []models.Lead
	require.NoError(t, db.Order("id ASC").Find(&leads).Error)
	require.Len(t, leads, 2)
	assert.Equal(t, "أحمد حسن", leads[0].Name)
	assert.Equal(t, "+201012345678", leads[0].Phone)
	assert.Equal(t, "import", leads[0].Source)
	assert.Equal(t, "medium", leads[0].Interest)
	assert.Equal(t, models.LeadStatusNew, leads[0].Status)
	assert.Greater(t, leads[0].Score, 0)
}

func TestImportSkipsBadRowsSilently(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(db)

	csvData := "name,phone\n" +
		"Good Lead,01012345678\n" +
		",01198765432\n" + // missing name
		"Short Phone,12345\n" // phone under 10 digits

	result, err := service.ImportFile(context.Background(), "leads.csv", strings.NewReader(csvData), Options{}, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 1, result.ImportedCount)
	assert.Equal(t, 2, result.SkippedCount)
	require.Len(t, result.Skipped, 2)
	assert.Equal(t, "missing name", result.Skipped[0].Reason)
	assert.Equal(t, 3, result.Skipped[0].Row)
	assert.Equal(t, "phone shorter than 10 digits", result.Skipped[1].Reason)
}

func TestImportSkipsDuplicates(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Lead{
		Name: "Existing", Phone: "+201012345678", Source: "website",
	}).Error)

	csvData := "name,phone\n" +
		"Duplicate Of Existing,01012345678\n" +
		"Fresh Lead,01198765432\n"

	result, err := service.ImportFile(ctx, "leads.csv", strings.NewReader(csvData), Options{SkipDuplicates: true}, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ImportedCount)
	assert.Equal(t, 1, result.DuplicateCount)
	require.Len(t, result.Duplicates, 1)
	assert.Equal(t, "+201012345678", result.Duplicates[0].Phone)

	var count int64
	require.NoError(t, db.Model(&models.Lead{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestImportXLSX(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(db)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]string{"Name", "Mobile", "Budget"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]string{"Omar Said", "01234567890", "2,000,000"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	result, err := service.ImportFile(context.Background(), "leads.xlsx", &buf, Options{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ImportedCount)

	var lead models.Lead
	require.NoError(t, db.First(&lead).Error)
	assert.Equal(t, "+201234567890", lead.Phone)
	require.NotNil(t, lead.Budget)
	assert.Equal(t, float64(2000000), *lead.Budget)
}

func TestImportRejectsUnknownFormatAndMissingPhoneColumn(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(db)
	ctx := context.Background()

	_, err := service.ImportFile(ctx, "leads.pdf", strings.NewReader("x"), Options{}, 1)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = service.ImportFile(ctx, "leads.csv", strings.NewReader("name,email\nA,b@c.com\n"), Options{}, 1)
	assert.ErrorIs(t, err, ErrNoPhoneColumn)
}

func TestMapColumns(t *testing.T) {
	columns := mapColumns([]string{"Company Name", "اسم العميل", "رقم الموبايل", "E-Mail"})

	assert.Equal(t, 0, columns["company"])
	assert.Equal(t, 1, columns["name"])
	assert.Equal(t, 2, columns["phone"])
	assert.Equal(t, 3, columns["email"])
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "Ahmed Hassan", CleanName("  Ahmed \t Hassan\x00 "))
	assert.Equal(t, "أحمد", CleanName("\uFEFFأحمد"))
	assert.Equal(t, "", CleanName(" \t\n"))
}

func TestWriteTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf))

	raw := buf.Bytes()
	assert.True(t, bytes.HasPrefix(raw, utf8BOM), "template must start with a UTF-8 BOM")

	content := string(raw[len(utf8BOM):])
	assert.Contains(t, content, "الاسم")
	assert.Contains(t, content, "Phone")

	// The template header must survive a round trip through the matcher.
	lines := strings.Split(content, "\n")
	columns := mapColumns(strings.Split(lines[0], ","))
	assert.Contains(t, columns, "name")
	assert.Contains(t, columns, "phone")
}
