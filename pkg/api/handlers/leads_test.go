package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aqarlink/crm/pkg/audit"
	"github.com/aqarlink/crm/pkg/leaddedup"
	"github.com/aqarlink/crm/pkg/leadlifecycle"
	"github.com/aqarlink/crm/pkg/leads"
	"github.com/aqarlink/crm/pkg/metrics"
	"github.com/aqarlink/crm/pkg/middleware"
	"github.com/aqarlink/crm/pkg/models"
)

var testMetrics = metrics.New()

func setupLeadHandler(t *testing.T) (*LeadHandler, *gorm.DB, *models.User) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Lead{}, &models.LeadStatusHistory{},
		&models.Client{}, &models.AuditLog{},
	))

	manager := models.User{Email: "mona@example.com", Name: "Mona", PasswordHash: "x", Role: models.RoleSalesManager, IsActive: true}
	require.NoError(t, db.Create(&manager).Error)

	h := NewLeadHandler(
		leads.NewService(db),
		leadlifecycle.NewService(db),
		leaddedup.NewService(db),
		audit.NewService(db),
		testMetrics,
	)
	return h, db, &manager
}

func newAuthedContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, user *models.User) echo.Context {
	c := e.NewContext(req, rec)
	c.Set(middleware.ContextUserID, user.ID)
	c.Set(middleware.ContextUserEmail, user.Email)
	c.Set(middleware.ContextUserRole, user.Role)
	c.Set(middleware.ContextUser, user)
	return c
}

func TestCreateLeadNormalizesPhone(t *testing.T) {
	h, db, user := setupLeadHandler(t)
	e := echo.New()

	body := `{"name":"Ahmed Hassan","phone":"01012345678","source":"referral"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := newAuthedContext(e, req, rec, user)

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var lead models.Lead
	require.NoError(t, db.Where("name = ?", "Ahmed Hassan").First(&lead).Error)
	assert.Equal(t, "+201012345678", lead.Phone)
	assert.Greater(t, lead.Score, 0)
}

func TestCreateLeadRejectsShortPhone(t *testing.T) {
	h, _, user := setupLeadHandler(t)
	e := echo.New()

	body := `{"name":"Ahmed Hassan","phone":"12345","source":"referral"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := newAuthedContext(e, req, rec, user)

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLeadNotFound(t *testing.T) {
	h, _, user := setupLeadHandler(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/leads/999", nil)
	rec := httptest.NewRecorder()
	c := newAuthedContext(e, req, rec, user)
	c.SetParamNames("id")
	c.SetParamValues("999")

	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckDuplicatesFindsNormalizedMatch(t *testing.T) {
	h, db, user := setupLeadHandler(t)
	e := echo.New()

	existing := models.Lead{Name: "Sara", Phone: "+201098765432", CreatedByID: user.ID}
	require.NoError(t, db.Create(&existing).Error)

	// Local format of the same number must match the stored E.164 form.
	body := `{"phone":"01098765432"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads/check-duplicates", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := newAuthedContext(e, req, rec, user)

	require.NoError(t, h.CheckDuplicates(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			HasDuplicates bool `json:"has_duplicates"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.True(t, envelope.Data.HasDuplicates)
}

func TestUpdateLeadOwnershipForbidden(t *testing.T) {
	h, db, _ := setupLeadHandler(t)
	e := echo.New()

	owner := models.User{Email: "owner@example.com", Name: "Owner", PasswordHash: "x", Role: models.RoleSales, IsActive: true}
	require.NoError(t, db.Create(&owner).Error)
	other := models.User{Email: "other@example.com", Name: "Other", PasswordHash: "x", Role: models.RoleSales, IsActive: true}
	require.NoError(t, db.Create(&other).Error)

	lead := models.Lead{Name: "Ahmed", Phone: "+201012345678", CreatedByID: owner.ID}
	require.NoError(t, db.Create(&lead).Error)

	body := `{"notes":"mine now"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/leads/1", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := newAuthedContext(e, req, rec, &other)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprintf("%d", lead.ID))

	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
