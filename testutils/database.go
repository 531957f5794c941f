package testutils

import (
	"time"

	"backend_medpos/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB создает и настраивает тестовую базу данных в памяти.
// Эта функция должна использоваться во всех тестах для обеспечения консистентности.
func SetupTestDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		// Базовые модели
		&models.Tenant{},
		&models.User{},

		// Подписки
		&models.SubscriptionPlan{},
		&models.Subscription{},
		&models.AdditionalUserPurchase{},
		&models.PaymentTransaction{},

		// Доменные таблицы аптеки
		&models.Product{},
		&models.Branch{},
		&models.Sale{},
		&models.Patient{},
		&models.Prescription{},

		// Учет использования и уведомления
		&models.UsageRecord{},
		&models.UsageSnapshot{},
		&models.Notification{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// CleanupTestDB закрывает соединение с тестовой базой
func CleanupTestDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// CreateTestTenant создает тестовую аптеку
func CreateTestTenant(db *gorm.DB) *models.Tenant {
	tenant := &models.Tenant{
		ID:        uuid.New(),
		Name:      "Test Pharmacy",
		Subdomain: "test-" + uuid.NewString()[:8],
		IsActive:  true,
	}
	db.Create(tenant)
	return tenant
}

// CreateTestUser создает тестового пользователя с паролем "password"
func CreateTestUser(db *gorm.DB, tenantID uuid.UUID, role string) *models.User {
	user := &models.User{
		Username: "user-" + uuid.NewString()[:8],
		Email:    uuid.NewString()[:8] + "@test.local",
		Role:     role,
		IsActive: true,
		TenantID: tenantID,
	}
	user.SetPassword("password")
	db.Create(user)
	return user
}

// CreateTestPlan создает тестовый тарифный план
func CreateTestPlan(db *gorm.DB) *models.SubscriptionPlan {
	plan := &models.SubscriptionPlan{
		Name:                    "Plan " + uuid.NewString()[:8],
		Price:                   decimal.NewFromFloat(50),
		MaxUsers:                5,
		MaxProducts:             100,
		MaxTransactionsPerMonth: 1000,
		MaxBranches:             2,
		MaxStorageGB:            10,
		IsActive:                true,
	}
	db.Create(plan)
	return plan
}

// CreateTestSubscription создает активную подписку на месяц вперед
func CreateTestSubscription(db *gorm.DB, tenantID uuid.UUID, planID uint) *models.Subscription {
	now := time.Now().UTC()
	subscription := &models.Subscription{
		TenantID:  tenantID,
		PlanID:    planID,
		StartDate: now,
		EndDate:   now.AddDate(0, 1, 0),
		Status:    models.SubscriptionStatusActive,
		IsActive:  true,
		Amount:    decimal.NewFromFloat(50),
	}
	db.Create(subscription)
	return subscription
}
