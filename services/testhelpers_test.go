package services

import (
	"time"

	"backend_medpos/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB создает чистую in-memory базу для одного теста
func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic("Failed to connect to test database")
	}

	err = db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.SubscriptionPlan{},
		&models.Subscription{},
		&models.AdditionalUserPurchase{},
		&models.Product{},
		&models.Branch{},
		&models.Sale{},
		&models.Patient{},
		&models.Prescription{},
		&models.UsageRecord{},
		&models.UsageSnapshot{},
		&models.Notification{},
		&models.PaymentTransaction{},
	)
	if err != nil {
		panic("Failed to migrate test database: " + err.Error())
	}

	return db
}

// createTestTenant создает аптеку для тестов
func createTestTenant(db *gorm.DB) *models.Tenant {
	id := uuid.New()
	tenant := &models.Tenant{
		ID:        id,
		Name:      "Test Pharmacy",
		Subdomain: "pharmacy-" + id.String()[:8],
		IsActive:  true,
	}
	db.Create(tenant)
	return tenant
}

// createTestPlan создает тарифный план с заданными лимитами
func createTestPlan(db *gorm.DB, name string, maxUsers, maxProducts, maxTransactions, maxBranches int) *models.SubscriptionPlan {
	plan := &models.SubscriptionPlan{
		Name:                    name,
		Price:                   decimal.NewFromFloat(50),
		MaxUsers:                maxUsers,
		MaxProducts:             maxProducts,
		MaxTransactionsPerMonth: maxTransactions,
		MaxBranches:             maxBranches,
		MaxStorageGB:            10,
		IsActive:                true,
	}
	db.Create(plan)
	return plan
}

// createTestSubscription создает подписку с заданным статусом и датой окончания
func createTestSubscription(db *gorm.DB, tenantID uuid.UUID, planID uint, status string, endDate time.Time) *models.Subscription {
	subscription := &models.Subscription{
		TenantID:  tenantID,
		PlanID:    planID,
		StartDate: endDate.AddDate(0, -1, 0),
		EndDate:   endDate,
		Status:    status,
		IsActive:  status == models.SubscriptionStatusActive || status == models.SubscriptionStatusGracePeriod,
		Amount:    decimal.NewFromFloat(50),
	}
	db.Create(subscription)
	return subscription
}

// createTestAdmin создает активного администратора аптеки
func createTestAdmin(db *gorm.DB, tenantID uuid.UUID, username string) *models.User {
	admin := &models.User{
		Username: username,
		Email:    username + "@test.local",
		Password: "hash",
		Role:     models.RoleAdmin,
		IsActive: true,
		TenantID: tenantID,
	}
	db.Create(admin)
	return admin
}

// createTestUsers создает n активных пользователей-кассиров
func createTestUsers(db *gorm.DB, tenantID uuid.UUID, n int) {
	for i := 0; i < n; i++ {
		db.Create(&models.User{
			Username: uuid.NewString()[:8],
			Email:    uuid.NewString()[:8] + "@test.local",
			Password: "hash",
			Role:     models.RoleCashier,
			IsActive: true,
			TenantID: tenantID,
		})
	}
}

// createTestProducts создает n активных товарных позиций
func createTestProducts(db *gorm.DB, tenantID uuid.UUID, n int) {
	for i := 0; i < n; i++ {
		db.Create(&models.Product{
			Name:     "Product " + uuid.NewString()[:8],
			IsActive: true,
			TenantID: tenantID,
		})
	}
}

// createTestSales создает n завершенных продаж с заданной датой
func createTestSales(db *gorm.DB, tenantID uuid.UUID, n int, createdAt time.Time) {
	for i := 0; i < n; i++ {
		sale := &models.Sale{
			TotalAmount: decimal.NewFromFloat(10),
			Status:      models.SaleStatusCompleted,
			TenantID:    tenantID,
		}
		db.Create(sale)
		db.Model(sale).Update("created_at", createdAt)
	}
}
