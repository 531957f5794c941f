package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB создает тестовую базу данных в памяти
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&Tenant{},
		&User{},
		&SubscriptionPlan{},
		&Subscription{},
		&AdditionalUserPurchase{},
		&Product{},
		&Branch{},
		&Sale{},
		&Patient{},
		&Prescription{},
		&UsageRecord{},
		&UsageSnapshot{},
		&Notification{},
		&PaymentTransaction{},
	)
	require.NoError(t, err)

	return db
}

// Каждая модель должна мигрировать на SQLite по отдельности:
// ни один gorm-тег не должен генерировать postgres-специфичный DDL
func TestMigration_EachModelOnSQLite(t *testing.T) {
	tables := map[string]interface{}{
		"tenants":                   &Tenant{},
		"users":                     &User{},
		"subscription_plans":        &SubscriptionPlan{},
		"subscriptions":             &Subscription{},
		"additional_user_purchases": &AdditionalUserPurchase{},
		"products":                  &Product{},
		"branches":                  &Branch{},
		"sales":                     &Sale{},
		"patients":                  &Patient{},
		"prescriptions":             &Prescription{},
		"usage_records":             &UsageRecord{},
		"usage_snapshots":           &UsageSnapshot{},
		"notifications":             &Notification{},
		"payment_transactions":      &PaymentTransaction{},
	}

	for table, model := range tables {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		require.NoError(t, err)

		require.NoError(t, db.AutoMigrate(model), "миграция модели для таблицы %s", table)
		assert.True(t, db.Migrator().HasTable(table), "таблица %s не создана", table)
	}
}

func TestTenant_BeforeCreateGeneratesID(t *testing.T) {
	db := setupTestDB(t)

	tenant := Tenant{Name: "Аптека №1", Subdomain: "apteka-1"}
	require.NoError(t, db.Create(&tenant).Error)
	assert.NotEqual(t, uuid.Nil, tenant.ID)

	// Явно заданный ID сохраняется
	explicit := uuid.New()
	tenant2 := Tenant{ID: explicit, Name: "Аптека №2", Subdomain: "apteka-2"}
	require.NoError(t, db.Create(&tenant2).Error)
	assert.Equal(t, explicit, tenant2.ID)
}

func TestUser_PasswordHashing(t *testing.T) {
	user := User{Username: "pharmacist1"}
	require.NoError(t, user.SetPassword("secret123"))

	assert.NotEqual(t, "secret123", user.Password)
	assert.True(t, user.CheckPassword("secret123"))
	assert.False(t, user.CheckPassword("wrong"))
}

func TestUser_IsAdministrator(t *testing.T) {
	assert.True(t, (&User{Role: RoleAdmin}).IsAdministrator())
	assert.True(t, (&User{Role: RoleOwner}).IsAdministrator())
	assert.False(t, (&User{Role: RolePharmacist}).IsAdministrator())
	assert.False(t, (&User{Role: RoleCashier}).IsAdministrator())
}

func TestSubscription_IsEntitled(t *testing.T) {
	assert.True(t, (&Subscription{Status: SubscriptionStatusActive}).IsEntitled())
	assert.True(t, (&Subscription{Status: SubscriptionStatusGracePeriod}).IsEntitled())
	assert.False(t, (&Subscription{Status: SubscriptionStatusExpired}).IsEntitled())
	assert.False(t, (&Subscription{Status: SubscriptionStatusCancelled}).IsEntitled())
}

func TestSubscription_GraceDeadline(t *testing.T) {
	endDate := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	subscription := Subscription{EndDate: endDate}

	deadline := subscription.GraceDeadline(7)
	assert.Equal(t, time.Date(2026, 5, 17, 0, 0, 0, 0, time.UTC), deadline)
}

func TestAdditionalUserPurchase_IsValidAt(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	// Бессрочная активная покупка действительна
	open := AdditionalUserPurchase{
		StartDate: now.AddDate(0, -1, 0),
		Status:    "active",
		IsActive:  true,
	}
	assert.True(t, open.IsValidAt(now))

	// Окончание в будущем - действительна, в прошлом - нет
	future := now.AddDate(0, 0, 5)
	bounded := open
	bounded.EndDate = &future
	assert.True(t, bounded.IsValidAt(now))

	past := now.AddDate(0, 0, -5)
	expired := open
	expired.EndDate = &past
	assert.False(t, expired.IsValidAt(now))

	// Еще не началась
	notStarted := open
	notStarted.StartDate = now.AddDate(0, 0, 1)
	assert.False(t, notStarted.IsValidAt(now))

	// Деактивирована
	disabled := open
	disabled.IsActive = false
	assert.False(t, disabled.IsValidAt(now))
}

func TestIsUnlimited(t *testing.T) {
	assert.True(t, IsUnlimited(UnlimitedValue))
	assert.False(t, IsUnlimited(0))
	assert.False(t, IsUnlimited(100))
}

func TestNotification_ReadAndExpiry(t *testing.T) {
	now := time.Now().UTC()

	notification := Notification{Title: "Test", Message: "test"}
	assert.False(t, notification.IsExpired(now))

	past := now.Add(-time.Hour)
	notification.ExpiresAt = &past
	assert.True(t, notification.IsExpired(now))

	notification.MarkAsRead(now)
	assert.True(t, notification.IsRead)
	require.NotNil(t, notification.ReadAt)
	assert.Equal(t, now, *notification.ReadAt)
}

func TestSubscription_PersistsWithPlan(t *testing.T) {
	db := setupTestDB(t)

	tenant := Tenant{Name: "Аптека"}
	require.NoError(t, db.Create(&tenant).Error)

	plan := SubscriptionPlan{Name: "Basic", MaxUsers: 5}
	require.NoError(t, db.Create(&plan).Error)

	subscription := Subscription{
		TenantID:  tenant.ID,
		PlanID:    plan.ID,
		StartDate: time.Now().UTC(),
		EndDate:   time.Now().UTC().AddDate(0, 1, 0),
		Status:    SubscriptionStatusActive,
	}
	require.NoError(t, db.Create(&subscription).Error)

	var loaded Subscription
	require.NoError(t, db.Preload("Plan").First(&loaded, subscription.ID).Error)
	assert.Equal(t, "Basic", loaded.Plan.Name)
	assert.Equal(t, 5, loaded.Plan.MaxUsers)
}
