package services

import (
	"testing"
	"time"

	"backend_medpos/models"

	"github.com/stretchr/testify/assert"
)

func TestNotificationService_DispatchOnlyToActiveAdmins(t *testing.T) {
	db := setupTestDB()
	notifications := NewNotificationService(db)

	tenant := createTestTenant(db)
	admin := createTestAdmin(db, tenant.ID, "admin1")

	// Владелец тоже получает уведомления
	owner := &models.User{
		Username: "owner1", Email: "owner1@test.local", Password: "hash",
		Role: models.RoleOwner, IsActive: true, TenantID: tenant.ID,
	}
	db.Create(owner)

	// Кассир и деактивированный администратор - нет
	db.Create(&models.User{
		Username: "cashier1", Email: "cashier1@test.local", Password: "hash",
		Role: models.RoleCashier, IsActive: true, TenantID: tenant.ID,
	})
	// gorm пропускает нулевые значения при default:true, поэтому деактивируем после создания
	exadmin := &models.User{
		Username: "exadmin", Email: "exadmin@test.local", Password: "hash",
		Role: models.RoleAdmin, TenantID: tenant.ID,
	}
	db.Create(exadmin)
	db.Model(exadmin).Update("is_active", false)

	notifications.NotifyLimitExceeded(tenant.ID, ResourceProducts, 10, 10)

	var all []models.Notification
	db.Where("tenant_id = ?", tenant.ID).Find(&all)
	assert.Len(t, all, 2)

	recipients := map[uint]bool{}
	for _, n := range all {
		recipients[n.UserID] = true
		assert.Equal(t, models.NotificationTypeProductLimit, n.Type)
		assert.Equal(t, models.NotificationSeverityCritical, n.Severity)
	}
	assert.True(t, recipients[admin.ID])
	assert.True(t, recipients[owner.ID])
}

func TestNotificationService_DefaultTTL(t *testing.T) {
	db := setupTestDB()
	notifications := NewNotificationService(db)

	tenant := createTestTenant(db)
	createTestAdmin(db, tenant.ID, "admin1")

	notifications.NotifyUpgradeRequired(tenant.ID, "analytics")

	var notification models.Notification
	assert.NoError(t, db.Where("tenant_id = ?", tenant.ID).First(&notification).Error)
	assert.Equal(t, models.NotificationSeverityInfo, notification.Severity)
	assert.NotNil(t, notification.ExpiresAt)

	// Срок жизни по умолчанию - 30 дней
	expected := time.Now().UTC().AddDate(0, 0, 30)
	assert.WithinDuration(t, expected, *notification.ExpiresAt, time.Minute)
}

func TestNotificationService_MetadataCarriesEventDetails(t *testing.T) {
	db := setupTestDB()
	notifications := NewNotificationService(db)

	tenant := createTestTenant(db)
	createTestAdmin(db, tenant.ID, "admin1")

	notifications.NotifyLimitApproaching(tenant.ID, ResourceUsers, 9, 10, 90)

	var notification models.Notification
	assert.NoError(t, db.Where("tenant_id = ?", tenant.ID).First(&notification).Error)
	assert.Equal(t, models.NotificationSeverityWarning, notification.Severity)
	assert.Contains(t, notification.Metadata, `"resource":"users"`)
	assert.NotEmpty(t, notification.ActionURL)
}

func TestNotificationService_NoAdminsNoError(t *testing.T) {
	db := setupTestDB()
	notifications := NewNotificationService(db)

	tenant := createTestTenant(db)

	// Без администраторов рассылка тихо пропускается
	notifications.NotifyLimitExceeded(tenant.ID, ResourceUsers, 5, 5)

	var count int64
	db.Model(&models.Notification{}).Where("tenant_id = ?", tenant.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestNotificationService_GetNotificationsAndMarkAsRead(t *testing.T) {
	db := setupTestDB()
	notifications := NewNotificationService(db)

	tenant := createTestTenant(db)
	admin := createTestAdmin(db, tenant.ID, "admin1")

	notifications.NotifyLimitExceeded(tenant.ID, ResourceUsers, 5, 5)
	notifications.NotifyUpgradeRequired(tenant.ID, "reports")

	list, total, err := notifications.GetNotifications(tenant.ID, admin.ID, false, 10, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	assert.NoError(t, notifications.MarkAsRead(tenant.ID, admin.ID, list[0].ID))

	unread, unreadTotal, err := notifications.GetNotifications(tenant.ID, admin.ID, true, 10, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), unreadTotal)
	assert.Len(t, unread, 1)

	var read models.Notification
	db.First(&read, list[0].ID)
	assert.True(t, read.IsRead)
	assert.NotNil(t, read.ReadAt)
}

func TestNotificationService_MarkAsRead_WrongUser(t *testing.T) {
	db := setupTestDB()
	notifications := NewNotificationService(db)

	tenant := createTestTenant(db)
	admin := createTestAdmin(db, tenant.ID, "admin1")
	notifications.NotifyUpgradeRequired(tenant.ID, "reports")

	var notification models.Notification
	db.Where("tenant_id = ?", tenant.ID).First(&notification)

	// Чужое уведомление пометить нельзя
	err := notifications.MarkAsRead(tenant.ID, admin.ID+1, notification.ID)
	assert.Error(t, err)
}

func TestNotificationService_CleanupExpired(t *testing.T) {
	db := setupTestDB()
	notifications := NewNotificationService(db)

	tenant := createTestTenant(db)
	admin := createTestAdmin(db, tenant.ID, "admin1")

	past := time.Now().UTC().AddDate(0, 0, -1)
	future := time.Now().UTC().AddDate(0, 0, 10)
	db.Create(&models.Notification{
		UserID: admin.ID, TenantID: tenant.ID,
		Title: "Old", Message: "old", Type: models.NotificationTypeUpgradeRequired,
		ExpiresAt: &past,
	})
	db.Create(&models.Notification{
		UserID: admin.ID, TenantID: tenant.ID,
		Title: "Fresh", Message: "fresh", Type: models.NotificationTypeUpgradeRequired,
		ExpiresAt: &future,
	})

	deleted, err := notifications.CleanupExpired()
	assert.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []models.Notification
	db.Find(&remaining)
	assert.Len(t, remaining, 1)
	assert.Equal(t, "Fresh", remaining[0].Title)
}
