package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/auth"
	"github.com/aqarlink/crm/pkg/models"
)

const testSecret = "test-secret-key-minimum-32-characters-long"

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func doRequest(t *testing.T, mw echo.MiddlewareFunc, header, query string) *httptest.ResponseRecorder {
	e := echo.New()
	target := "/"
	if query != "" {
		target += "?" + query
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := mw(okHandler)(c)
	require.NoError(t, err)
	return rec
}

func TestJWTMiddleware(t *testing.T) {
	token, err := auth.GenerateJWT(1, "sara@example.com", models.RoleSales, testSecret, 24)
	require.NoError(t, err)

	mw := JWTMiddleware(testSecret)

	rec := doRequest(t, mw, "Bearer "+token, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, mw, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, mw, "Token "+token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, mw, "Bearer not.a.token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareChecksUserRow(t *testing.T) {
	db := setupTestDB(t)
	user := models.User{Email: "sara@example.com", PasswordHash: "x", Name: "Sara", Role: models.RoleSales, IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	token, err := auth.GenerateJWT(user.ID, user.Email, user.Role, testSecret, 24)
	require.NoError(t, err)

	mw := JWTMiddlewareWithBlacklist(testSecret, nil, db)

	rec := doRequest(t, mw, "Bearer "+token, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// A disabled account is rejected even with a valid token.
	require.NoError(t, db.Model(&user).Update("is_active", false).Error)
	rec = doRequest(t, mw, "Bearer "+token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Unknown user id.
	stray, err := auth.GenerateJWT(9999, "ghost@example.com", models.RoleSales, testSecret, 24)
	require.NoError(t, err)
	rec = doRequest(t, mw, "Bearer "+stray, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTFromQueryOrHeader(t *testing.T) {
	token, err := auth.GenerateJWT(1, "sara@example.com", models.RoleSales, testSecret, 24)
	require.NoError(t, err)

	mw := JWTFromQueryOrHeader(testSecret, nil, nil)

	rec := doRequest(t, mw, "", "token="+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, mw, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()

	run := func(role interface{}, mw echo.MiddlewareFunc) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if role != nil {
			c.Set(ContextUserRole, role)
		}
		require.NoError(t, mw(okHandler)(c))
		return rec
	}

	adminOnly := RequireAdmin()
	assert.Equal(t, http.StatusOK, run(models.RoleAdmin, adminOnly).Code)
	assert.Equal(t, http.StatusForbidden, run(models.RoleSales, adminOnly).Code)
	assert.Equal(t, http.StatusUnauthorized, run(nil, adminOnly).Code)

	managers := RequireRole(models.RoleAdmin, models.RoleSalesManager)
	assert.Equal(t, http.StatusOK, run(models.RoleSalesManager, managers).Code)
	assert.Equal(t, http.StatusForbidden, run(models.RoleViewer, managers).Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	mw := rl.Middleware()
	e := echo.New()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", "10.0.0.1")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		require.NoError(t, mw(okHandler)(c))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])

	// A different IP gets its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "10.0.0.2")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, mw(okHandler)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
