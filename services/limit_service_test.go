package services

import (
	"testing"
	"time"

	"backend_medpos/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newTestLimitService(db *gorm.DB) (*LimitService, *UsageService, *NotificationService) {
	notifications := NewNotificationService(db)
	usage := NewUsageService(db, nil)
	limits := NewLimitService(db, usage, notifications)
	usage.SetLimitService(limits)
	return limits, usage, notifications
}

func TestLimitService_CheckUserLimit_StrictBoundary(t *testing.T) {
	db := setupTestDB()
	limits, _, _ := newTestLimitService(db)

	tenant := createTestTenant(db)
	plan := createTestPlan(db, "Basic", 3, 100, 100, 1)
	createTestSubscription(db, tenant.ID, plan.ID, models.SubscriptionStatusActive,
		time.Now().UTC().AddDate(0, 1, 0))

	// 2 из 3 - можно создать еще одного
	createTestUsers(db, tenant.ID, 2)
	result := limits.CheckUserLimit(tenant.ID, false)
	assert.True(t, result.IsWithinLimit)
	assert.Equal(t, 2, result.CurrentCount)
	assert.Equal(t, 3, result.Limit)

	// Ровно на потолке - отказ, строгое "меньше"
	createTestUsers(db, tenant.ID, 1)
	result = limits.CheckUserLimit(tenant.ID, false)
	assert.False(t, result.IsWithinLimit)
	assert.Equal(t, 3, result.CurrentCount)
	assert.Contains(t, result.Reason, "limit exceeded")
	assert.InDelta(t, 100.0, result.Percentage, 0.01)
}

func TestLimitService_CheckUserLimit_NoSubscription(t *testing.T) {
	db := setupTestDB()
	limits, _, _ := newTestLimitService(db)

	tenant := createTestTenant(db)
	createTestUsers(db, tenant.ID, 1)

	result := limits.CheckUserLimit(tenant.ID, false)
	assert.False(t, result.IsWithinLimit)
	assert.Equal(t, "No active subscription found", result.Reason)
	assert.False(t, limits.CanCreateUser(tenant.ID))
}

func TestLimitService_CheckUserLimit_ExpiredSubscriptionDenies(t *testing.T) {
	db := setupTestDB()
	limits, _, _ := newTestLimitService(db)

	tenant := createTestTenant(db)
	plan := createTestPlan(db, "Basic", 10, 10, 10, 10)
	createTestSubscription(db, tenant.ID, plan.ID, models.SubscriptionStatusExpired,
		time.Now().UTC().AddDate(0, 0, -30))

	result := limits.CheckUserLimit(tenant.ID, false)
	assert.False(t, result.IsWithinLimit)
	assert.Equal(t, "No active subscription found", result.Reason)
}

func TestLimitService_GracePeriodStillEntitled(t *testing.T) {
	db := setupTestDB()
	limits, _, _ := newTestLimitService(db)

	tenant := createTestTenant(db)
	plan := createTestPlan(db, "Basic", 10, 10, 10, 10)
	createTestSubscription(db, tenant.ID, plan.ID, models.SubscriptionStatusGracePeriod,
		time.Now().UTC().AddDate(0, 0, -2))

	assert.True(t, limits.CanCreateUser(tenant.ID))
	assert.True(t, limits.CanAddProduct(tenant.ID))
}

func TestLimitService_UnlimitedPlan(t *testing.T) {
	db := setupTestDB()
	limits, _, _ := newTestLimitService(db)

	tenant := createTestTenant(db)
	plan := createTestPlan(db, "Enterprise", models.UnlimitedValue, models.UnlimitedValue,
		models.UnlimitedValue, models.UnlimitedValue)
	createTestSubscription(db, tenant.ID, plan.ID, models.SubscriptionStatusActive,
		time.Now().UTC().AddDate(0, 1, 0))

	createTestUsers(db, tenant.ID, 50)
	createTestProducts(db, tenant.ID, 200)

	result := limits.CheckUserLimit(tenant.ID, false)
	assert.True(t, result.IsWithinLimit)
	assert.Equal(t, models.UnlimitedValue, result.Limit)
	// Безлимит никогда не дает процент - пороговые алерты не должны срабатывать
	assert.Equal(t, 0.0, result.Percentage)

	assert.True(t, limits.CanAddProduct(tenant.ID))
}

func TestLimitService_AdminOverride(t *testing.T) {
	db := setupTestDB()
	limits, _, _ := newTestLimitService(db)

	tenant := createTestTenant(db)
	plan := createTestPlan(db, "Basic", 2, 10, 10, 10)
	createTestSubscription(db, tenant.ID, plan.ID, models.SubscriptionStatusActive,
		time.Now().UTC().AddDate(0, 1, 0))
	createTestUsers(db, tenant.ID, 3)

	// Без докупленных мест переопределение не работает
	result := limits.CheckUserLimit(tenant.ID, true)
	assert.False(t, result.IsWithinLimit)

	// С докупленным местом переопределение пропускает проверку
	db.Create(&models.AdditionalUserPurchase{
		TenantID:      tenant.ID,
		NumberOfUsers: 1,
		StartDate:     time.Now().UTC().AddDate(0, 0, -1),
		Status:        "active",
		IsActive:      true,
		Amount:        decimal.NewFromFloat(10),
	})
	result = limits.CheckUserLimit(tenant.ID, true)
	assert.True(t, result.IsWithinLimit)

	// Без флага переопределения действует обычная арифметика: 2 + 1 = 3 мест,
	// занято 3 - отказ
	result = limits.CheckUserLimit(tenant.ID, false)
	assert.False(t, result.IsWithinLimit)
	assert.Equal(t, 3, result.Limit)
}

func TestLimitService_AdditionalSeatsExtendLimit(t *testing.T) {
	db := setupTestDB()
	limits, _, _ := newTestLimitService(db)

	tenant := createTestTenant(db)
	plan := createTestPlan(db, "Basic", 2, 10, 10, 10)
	createTestSubscription(db, tenant.ID, plan.ID, models.SubscriptionStatusActive,
		time.Now().UTC().AddDate(0, 1, 0))
	createTestUsers(db, tenant.ID, 2)

	// На потолке плана
	assert.False(t, limits.CanCreateUser(tenant.ID))

	// Докупка двух мест поднимает действующий лимит до 4
	db.Create(&models.AdditionalUserPurchase{
		TenantID:      tenant.ID,
		NumberOfUsers: 2,
		StartDate:     time.Now().UTC().AddDate(0, 0, -1),
		Status:        "active",
		IsActive:      true,
	})
	result := limits.CheckUserLimit(tenant.ID, false)
	assert.True(t, result.IsWithinLimit)
	assert.Equal(t, 4, result.Limit)

	// Просроченная покупка не учитывается
	expired := time.Now().UTC().AddDate(0, 0, -1)
	db.Create(&models.AdditionalUserPurchase{
		TenantID:      tenant.ID,
		NumberOfUsers: 5,
		StartDate:     time.Now().UTC().AddDate(0, -1, 0),
		EndDate:       &expired,
		Status:        "active",
		IsActive:      true,
	})
	result = limits.CheckUserLimit(tenant.ID, false)
	assert.Equal(t, 4, result.Limit)
}

func TestLimitService_ProductLimitDenialNotifiesAdmins(t *testing.T) {
	db := setupTestDB()
	limits, _, _ := newTestLimitService(db)

	tenant := createTestTenant(db)
	admin := createTestAdmin(db, tenant.ID, "admin1")
	plan := createTestPlan(db, "Basic", 10, 2, 10, 10)
	createTestSubscription(db, tenant.ID, plan.ID, models.SubscriptionStatusActive,
		time.Now().UTC().AddDate(0, 1, 0))
	createTestProducts(db, tenant.ID, 2)

	result := limits.CheckProductLimit(tenant.ID)
	assert.False(t, result.IsWithinLimit)
	assert.Equal(t, 2, result.CurrentCount)

	// Уведомление уходит асинхронно
	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&models.Notification{}).
			Where("user_id = ? AND type = ?", admin.ID, models.NotificationTypeProductLimit).
			Count(&count)
		return count > 0
	}, 2*time.Second, 20*time.Millisecond)

	var notification models.Notification
	db.Where("user_id = ? AND type = ?", admin.ID, models.NotificationTypeProductLimit).
		First(&notification)
	assert.Equal(t, models.NotificationSeverityCritical, notification.Severity)
	assert.Contains(t, notification.Message, "Upgrade your plan to add more products")
}

func TestLimitService_TransactionLimitMonthlyWindow(t *testing.T) {
	db := setupTestDB()
	limits, _, _ := newTestLimitService(db)

	tenant := createTestTenant(db)
	plan := createTestPlan(db, "Basic", 10, 10, 5, 10)
	createTestSubscription(db, tenant.ID, plan.ID, models.SubscriptionStatusActive,
		time.Now().UTC().AddDate(0, 1, 0))

	now := time.Now().UTC()
	// Продажи прошлого месяца в лимит текущего не входят
	createTestSales(db, tenant.ID, 5, now.AddDate(0, -1, 0))
	assert.True(t, limits.CanRecordTransaction(tenant.ID))

	// Пять продаж в этом месяце исчерпывают лимит
	createTestSales(db, tenant.ID, 5, now)
	result := limits.CheckTransactionLimit(tenant.ID)
	assert.False(t, result.IsWithinLimit)
	assert.Equal(t, 5, result.CurrentCount)
}

func TestLimitService_BranchLimit(t *testing.T) {
	db := setupTestDB()
	limits, _, _ := newTestLimitService(db)

	tenant := createTestTenant(db)
	plan := createTestPlan(db, "Basic", 10, 10, 10, 1)
	createTestSubscription(db, tenant.ID, plan.ID, models.SubscriptionStatusActive,
		time.Now().UTC().AddDate(0, 1, 0))

	assert.True(t, limits.CanAddBranch(tenant.ID))

	db.Create(&models.Branch{Name: "Main", IsActive: true, TenantID: tenant.ID})
	assert.False(t, limits.CanAddBranch(tenant.ID))

	// Закрытый филиал место не занимает
	db.Model(&models.Branch{}).Where("tenant_id = ?", tenant.ID).Update("is_active", false)
	assert.True(t, limits.CanAddBranch(tenant.ID))
}

func TestLimitService_GetLimitAlerts(t *testing.T) {
	db := setupTestDB()
	limits, _, _ := newTestLimitService(db)

	tenant := createTestTenant(db)
	plan := createTestPlan(db, "Basic", 10, 10, 100, 10)
	createTestSubscription(db, tenant.ID, plan.ID, models.SubscriptionStatusActive,
		time.Now().UTC().AddDate(0, 1, 0))

	// 9 из 10 пользователей - 90%, предупреждение
	createTestUsers(db, tenant.ID, 9)
	// 10 из 10 товаров - 100%, критично
	createTestProducts(db, tenant.ID, 10)

	alerts := limits.GetLimitAlerts(tenant.ID)
	assert.Len(t, alerts, 2)

	bySeverity := map[string]LimitAlert{}
	for _, alert := range alerts {
		bySeverity[alert.Resource] = alert
	}
	assert.Equal(t, models.NotificationSeverityWarning, bySeverity[ResourceUsers].Severity)
	assert.Equal(t, models.NotificationSeverityCritical, bySeverity[ResourceProducts].Severity)
}

func TestLimitService_GetLimitAlerts_NoSubscription(t *testing.T) {
	db := setupTestDB()
	limits, _, _ := newTestLimitService(db)

	// Без подписки метрики нулевые и алертов нет
	alerts := limits.GetLimitAlerts(uuid.New())
	assert.Empty(t, alerts)
}
