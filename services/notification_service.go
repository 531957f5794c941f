package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"backend_medpos/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationService преобразует события подписок и лимитов в персистентные
// уведомления для администраторов аптеки. Сервис не принимает решений сам -
// это чистый слой трансляции и рассылки, ошибки внутри него логируются и
// никогда не прерывают вызывающий код.
type NotificationService struct {
	DB *gorm.DB

	// Срок жизни уведомлений в днях
	TTLDays int
}

// NewNotificationService создает новый экземпляр NotificationService
func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{
		DB:      db,
		TTLDays: 30,
	}
}

// notificationEvent описывает одно событие для рассылки администраторам
type notificationEvent struct {
	Type      string
	Severity  string
	Title     string
	Message   string
	ActionURL string
	Metadata  map[string]interface{}
}

// dispatchToAdmins создает по одному уведомлению на каждого активного
// администратора аптеки. Возвращаемая ошибка нужна только для логов.
func (s *NotificationService) dispatchToAdmins(tenantID uuid.UUID, event notificationEvent) error {
	var admins []models.User
	if err := s.DB.Where("tenant_id = ? AND is_active = ? AND role IN ?",
		tenantID, true, []string{models.RoleAdmin, models.RoleOwner}).
		Find(&admins).Error; err != nil {
		log.Printf("Ошибка получения администраторов аптеки %s: %v", tenantID, err)
		return err
	}

	if len(admins) == 0 {
		log.Printf("У аптеки %s нет активных администраторов для уведомления '%s'", tenantID, event.Type)
		return nil
	}

	metadata := ""
	if event.Metadata != nil {
		if data, err := json.Marshal(event.Metadata); err == nil {
			metadata = string(data)
		} else {
			log.Printf("Ошибка сериализации метаданных уведомления: %v", err)
		}
	}

	expiresAt := time.Now().UTC().AddDate(0, 0, s.TTLDays)

	for _, admin := range admins {
		notification := models.Notification{
			UserID:    admin.ID,
			TenantID:  tenantID,
			Title:     event.Title,
			Message:   event.Message,
			Type:      event.Type,
			Severity:  event.Severity,
			ExpiresAt: &expiresAt,
			Metadata:  metadata,
			ActionURL: event.ActionURL,
		}

		if err := s.DB.Create(&notification).Error; err != nil {
			// Сбой на одном получателе не должен останавливать рассылку
			log.Printf("Ошибка создания уведомления для пользователя %d: %v", admin.ID, err)
		}
	}

	return nil
}

// NotifySubscriptionExpired уведомляет администраторов об истечении подписки
func (s *NotificationService) NotifySubscriptionExpired(tenantID uuid.UUID, subscription *models.Subscription) {
	err := s.dispatchToAdmins(tenantID, notificationEvent{
		Type:      models.NotificationTypeSubscriptionExpired,
		Severity:  models.NotificationSeverityCritical,
		Title:     "Subscription expired",
		Message:   fmt.Sprintf("Your subscription expired on %s. Renew now to restore access.", subscription.EndDate.Format("2006-01-02")),
		ActionURL: "/settings/subscription/renew",
		Metadata: map[string]interface{}{
			"subscription_id": subscription.ID,
			"end_date":        subscription.EndDate,
		},
	})
	if err != nil {
		log.Printf("Ошибка отправки уведомления об истечении подписки: %v", err)
	}
}

// NotifyGracePeriodStarted уведомляет о начале льготного периода
func (s *NotificationService) NotifyGracePeriodStarted(tenantID uuid.UUID, subscription *models.Subscription, graceDays int) {
	deadline := subscription.GraceDeadline(graceDays)
	err := s.dispatchToAdmins(tenantID, notificationEvent{
		Type:     models.NotificationTypeGracePeriod,
		Severity: models.NotificationSeverityWarning,
		Title:    "Grace period started",
		Message: fmt.Sprintf("Your subscription expired on %s. Service continues until %s, after which access will be suspended.",
			subscription.EndDate.Format("2006-01-02"), deadline.Format("2006-01-02")),
		ActionURL: "/settings/subscription/renew",
		Metadata: map[string]interface{}{
			"subscription_id": subscription.ID,
			"end_date":        subscription.EndDate,
			"grace_deadline":  deadline,
		},
	})
	if err != nil {
		log.Printf("Ошибка отправки уведомления о льготном периоде: %v", err)
	}
}

// NotifyExpirationWarning уведомляет о приближении срока истечения подписки.
// Важность подбирается по числу оставшихся дней.
func (s *NotificationService) NotifyExpirationWarning(tenantID uuid.UUID, subscription *models.Subscription, daysLeft int) {
	severity := models.NotificationSeverityWarning
	if daysLeft <= 1 {
		severity = models.NotificationSeverityCritical
	}

	err := s.dispatchToAdmins(tenantID, notificationEvent{
		Type:     models.NotificationTypeExpirationWarning,
		Severity: severity,
		Title:    fmt.Sprintf("Subscription expires in %d day(s)", daysLeft),
		Message: fmt.Sprintf("Your subscription will expire on %s. Renew to avoid interruption of service.",
			subscription.EndDate.Format("2006-01-02")),
		ActionURL: "/settings/subscription/renew",
		Metadata: map[string]interface{}{
			"subscription_id": subscription.ID,
			"end_date":        subscription.EndDate,
			"days_left":       daysLeft,
		},
	})
	if err != nil {
		log.Printf("Ошибка отправки предупреждения об истечении подписки: %v", err)
	}
}

// NotifyLimitExceeded уведомляет о превышении лимита ресурса
func (s *NotificationService) NotifyLimitExceeded(tenantID uuid.UUID, resource string, current, limit int) {
	err := s.dispatchToAdmins(tenantID, notificationEvent{
		Type:     limitNotificationType(resource),
		Severity: models.NotificationSeverityCritical,
		Title:    fmt.Sprintf("%s limit reached", resourceDisplayName(resource)),
		Message: fmt.Sprintf("You have reached your plan limit of %d %s (%d/%d). Upgrade your plan to add more %s.",
			limit, resource, current, limit, resource),
		ActionURL: "/settings/subscription/upgrade",
		Metadata: map[string]interface{}{
			"resource": resource,
			"current":  current,
			"limit":    limit,
		},
	})
	if err != nil {
		log.Printf("Ошибка отправки уведомления о превышении лимита %s: %v", resource, err)
	}
}

// NotifyLimitApproaching уведомляет о приближении к лимиту ресурса
func (s *NotificationService) NotifyLimitApproaching(tenantID uuid.UUID, resource string, current, limit int, percentage float64) {
	err := s.dispatchToAdmins(tenantID, notificationEvent{
		Type:     models.NotificationTypeLimitApproaching,
		Severity: models.NotificationSeverityWarning,
		Title:    fmt.Sprintf("%s usage at %.0f%%", resourceDisplayName(resource), percentage),
		Message: fmt.Sprintf("You are using %d of %d %s (%.0f%%). Consider upgrading your plan before you hit the limit.",
			current, limit, resource, percentage),
		ActionURL: "/settings/subscription/upgrade",
		Metadata: map[string]interface{}{
			"resource":   resource,
			"current":    current,
			"limit":      limit,
			"percentage": percentage,
		},
	})
	if err != nil {
		log.Printf("Ошибка отправки уведомления о приближении к лимиту %s: %v", resource, err)
	}
}

// NotifyUpgradeRequired уведомляет о необходимости повышения тарифа для функции
func (s *NotificationService) NotifyUpgradeRequired(tenantID uuid.UUID, feature string) {
	err := s.dispatchToAdmins(tenantID, notificationEvent{
		Type:      models.NotificationTypeUpgradeRequired,
		Severity:  models.NotificationSeverityInfo,
		Title:     "Plan upgrade required",
		Message:   fmt.Sprintf("The feature '%s' is not available on your current plan. Upgrade to unlock it.", feature),
		ActionURL: "/settings/subscription/upgrade",
		Metadata: map[string]interface{}{
			"feature": feature,
		},
	})
	if err != nil {
		log.Printf("Ошибка отправки уведомления о необходимости апгрейда: %v", err)
	}
}

// GetNotifications возвращает уведомления пользователя с пагинацией
func (s *NotificationService) GetNotifications(tenantID uuid.UUID, userID uint, onlyUnread bool, limit, offset int) ([]models.Notification, int64, error) {
	query := s.DB.Model(&models.Notification{}).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID)
	if onlyUnread {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	query.Count(&total)

	var notifications []models.Notification
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&notifications).Error
	return notifications, total, err
}

// MarkAsRead помечает уведомление прочитанным
func (s *NotificationService) MarkAsRead(tenantID uuid.UUID, userID, notificationID uint) error {
	var notification models.Notification
	if err := s.DB.Where("id = ? AND tenant_id = ? AND user_id = ?",
		notificationID, tenantID, userID).First(&notification).Error; err != nil {
		return fmt.Errorf("уведомление не найдено: %w", err)
	}

	notification.MarkAsRead(time.Now().UTC())
	return s.DB.Save(&notification).Error
}

// CleanupExpired удаляет уведомления с истекшим сроком жизни.
// Вызывается фоновой задачей обслуживания.
func (s *NotificationService) CleanupExpired() (int64, error) {
	result := s.DB.Unscoped().
		Where("expires_at IS NOT NULL AND expires_at < ?", time.Now().UTC()).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("ошибка удаления просроченных уведомлений: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// limitNotificationType возвращает тип уведомления для ресурса
func limitNotificationType(resource string) string {
	switch resource {
	case "users":
		return models.NotificationTypeUserLimit
	case "products":
		return models.NotificationTypeProductLimit
	case "transactions":
		return models.NotificationTypeTransactionLimit
	case "branches":
		return models.NotificationTypeBranchLimit
	default:
		return models.NotificationTypeLimitApproaching
	}
}

// resourceDisplayName возвращает читаемое название ресурса
func resourceDisplayName(resource string) string {
	switch resource {
	case "users":
		return "User"
	case "products":
		return "Product"
	case "transactions":
		return "Transaction"
	case "branches":
		return "Branch"
	case "storage":
		return "Storage"
	default:
		return resource
	}
}
