package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend_medpos/models"
	"backend_medpos/services"
	"backend_medpos/testutils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupGatedRouter(db *gorm.DB, tenantID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)

	notifications := services.NewNotificationService(db)
	usage := services.NewUsageService(db, nil)
	limits := services.NewLimitService(db, usage, notifications)
	usage.SetLimitService(limits)

	productAPI := NewProductAPI(db, limits, usage)
	saleAPI := NewSaleAPI(db, limits, usage)
	userAPI := NewUserAPI(db, limits, usage)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		// Контекст аутентифицированного запроса без полного стека middleware
		c.Set("tenant_id", tenantID)
		c.Set("user_id", uint(1))
		c.Next()
	})
	r.POST("/api/products", productAPI.CreateProduct)
	r.POST("/api/sales", saleAPI.CreateSale)
	r.POST("/api/users", userAPI.CreateUser)
	return r
}

func postJSON(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateProduct_DeniedAtPlanCeiling(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	tenant := testutils.CreateTestTenant(db)
	plan := testutils.CreateTestPlan(db)
	db.Model(plan).Update("max_products", 2)
	testutils.CreateTestSubscription(db, tenant.ID, plan.ID)

	r := setupGatedRouter(db, tenant.ID)

	// Две позиции проходят
	for i := 0; i < 2; i++ {
		w := postJSON(r, "/api/products", gin.H{"name": "Aspirin", "price": 3.5})
		assert.Equal(t, http.StatusCreated, w.Code)
	}

	// Третья упирается в потолок плана
	w := postJSON(r, "/api/products", gin.H{"name": "Ibuprofen", "price": 4.0})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "is_within_limit")

	var count int64
	db.Model(&models.Product{}).Where("tenant_id = ?", tenant.ID).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestCreateProduct_NoSubscriptionDenied(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	tenant := testutils.CreateTestTenant(db)
	r := setupGatedRouter(db, tenant.ID)

	w := postJSON(r, "/api/products", gin.H{"name": "Aspirin"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "No active subscription found")
}

func TestCreateSale_RecordsActivity(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	tenant := testutils.CreateTestTenant(db)
	plan := testutils.CreateTestPlan(db)
	testutils.CreateTestSubscription(db, tenant.ID, plan.ID)

	r := setupGatedRouter(db, tenant.ID)

	w := postJSON(r, "/api/sales", gin.H{"receipt_number": "R-001", "total_amount": 25.5})
	assert.Equal(t, http.StatusCreated, w.Code)

	var sale models.Sale
	require.NoError(t, db.Where("tenant_id = ?", tenant.ID).First(&sale).Error)
	assert.Equal(t, models.SaleStatusCompleted, sale.Status)

	// Продажа оставляет след в журнале активности
	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&models.UsageRecord{}).
			Where("tenant_id = ? AND activity_type = ?", tenant.ID, models.ActivityTypeTransaction).
			Count(&count)
		return count == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestCreateUser_AdminOverrideWithPurchasedSeats(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	tenant := testutils.CreateTestTenant(db)
	plan := testutils.CreateTestPlan(db)
	db.Model(plan).Update("max_users", 1)
	testutils.CreateTestSubscription(db, tenant.ID, plan.ID)
	testutils.CreateTestUser(db, tenant.ID, models.RoleCashier)

	r := setupGatedRouter(db, tenant.ID)

	// Потолок занят, обычное создание отклоняется
	w := postJSON(r, "/api/users", gin.H{
		"username": "newcashier", "email": "nc@test.local", "password": "secret123",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// С докупленным местом и флагом переопределения - проходит
	db.Create(&models.AdditionalUserPurchase{
		TenantID:      tenant.ID,
		NumberOfUsers: 1,
		StartDate:     time.Now().UTC().AddDate(0, 0, -1),
		Status:        "active",
		IsActive:      true,
	})
	w = postJSON(r, "/api/users", gin.H{
		"username": "newcashier", "email": "nc@test.local", "password": "secret123",
		"admin_override": true,
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}
