package services

import (
	"fmt"
	"log"
	"time"

	"backend_medpos/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Стандартные причины отказа
const (
	ReasonNoSubscription = "No active subscription found"
	ReasonCheckError     = "error checking limit"
)

// Порог приближения к лимиту для предупреждений, в процентах
const approachingThreshold = 90

// LimitCheckResult - результат проверки лимита одного ресурса
type LimitCheckResult struct {
	IsWithinLimit bool    `json:"is_within_limit"`
	CurrentCount  int     `json:"current_count"`
	Limit         int     `json:"limit"`
	Percentage    float64 `json:"percentage"`
	Reason        string  `json:"reason,omitempty"`
}

// LimitAlert - предупреждение о приближении или достижении лимита
type LimitAlert struct {
	Resource   string  `json:"resource"`
	Severity   string  `json:"severity"` // warning, critical
	Current    int     `json:"current"`
	Limit      int     `json:"limit"`
	Percentage float64 `json:"percentage"`
}

// LimitService - синхронный шлюз допуска, вызываемый перед операциями,
// увеличивающими потребление метрируемого ресурса. При любом сбое чтения
// шлюз отказывает (fail closed), а не пропускает.
//
// Проверка "посчитать и разрешить" сознательно не атомарна с последующим
// созданием ресурса: при высокой конкурентности лимит может быть
// незначительно превышен. Это принятое поведение, не ошибка.
type LimitService struct {
	DB            *gorm.DB
	usage         *UsageService
	notifications *NotificationService
}

// NewLimitService создает новый экземпляр LimitService
func NewLimitService(db *gorm.DB, usage *UsageService, notifications *NotificationService) *LimitService {
	return &LimitService{
		DB:            db,
		usage:         usage,
		notifications: notifications,
	}
}

// CheckUserLimit проверяет лимит пользователей. Действующий лимит равен
// лимиту плана плюс докупленные места.
//
// Режим allowAdminOverride: при наличии хотя бы одного докупленного места
// проверка пропускается полностью - отдельный шаг покупки мест выше по
// стеку считается достаточным основанием. Обдуманное решение, см. DESIGN.md.
func (s *LimitService) CheckUserLimit(tenantID uuid.UUID, allowAdminOverride bool) LimitCheckResult {
	subscription, result := s.resolveSubscription(tenantID)
	if subscription == nil {
		return result
	}

	additionalUsers := s.usage.GetAdditionalUserCount(tenantID)

	if allowAdminOverride && additionalUsers > 0 {
		current, err := s.usage.CountActiveUsers(tenantID)
		if err != nil {
			return s.failClosed(tenantID, ResourceUsers, err)
		}
		return LimitCheckResult{
			IsWithinLimit: true,
			CurrentCount:  current,
			Limit:         effectiveUserLimit(subscription.Plan.MaxUsers, additionalUsers),
			Reason:        "admin override with purchased seats",
		}
	}

	return s.checkResource(tenantID, ResourceUsers,
		effectiveUserLimit(subscription.Plan.MaxUsers, additionalUsers),
		s.usage.CountActiveUsers)
}

// CheckProductLimit проверяет лимит товарных позиций
func (s *LimitService) CheckProductLimit(tenantID uuid.UUID) LimitCheckResult {
	subscription, result := s.resolveSubscription(tenantID)
	if subscription == nil {
		return result
	}
	return s.checkResource(tenantID, ResourceProducts, subscription.Plan.MaxProducts,
		s.usage.CountActiveProducts)
}

// CheckTransactionLimit проверяет лимит транзакций текущего месяца
func (s *LimitService) CheckTransactionLimit(tenantID uuid.UUID) LimitCheckResult {
	subscription, result := s.resolveSubscription(tenantID)
	if subscription == nil {
		return result
	}
	return s.checkResource(tenantID, ResourceTransactions, subscription.Plan.MaxTransactionsPerMonth,
		func(id uuid.UUID) (int, error) {
			return s.usage.CountMonthlyTransactions(id, time.Now().UTC())
		})
}

// CheckBranchLimit проверяет лимит филиалов
func (s *LimitService) CheckBranchLimit(tenantID uuid.UUID) LimitCheckResult {
	subscription, result := s.resolveSubscription(tenantID)
	if subscription == nil {
		return result
	}
	return s.checkResource(tenantID, ResourceBranches, subscription.Plan.MaxBranches,
		s.usage.CountActiveBranches)
}

// CanCreateUser сообщает, может ли аптека добавить пользователя
func (s *LimitService) CanCreateUser(tenantID uuid.UUID) bool {
	return s.CheckUserLimit(tenantID, false).IsWithinLimit
}

// CanAddProduct сообщает, может ли аптека добавить товар
func (s *LimitService) CanAddProduct(tenantID uuid.UUID) bool {
	return s.CheckProductLimit(tenantID).IsWithinLimit
}

// CanRecordTransaction сообщает, может ли аптека провести продажу
func (s *LimitService) CanRecordTransaction(tenantID uuid.UUID) bool {
	return s.CheckTransactionLimit(tenantID).IsWithinLimit
}

// CanAddBranch сообщает, может ли аптека добавить филиал
func (s *LimitService) CanAddBranch(tenantID uuid.UUID) bool {
	return s.CheckBranchLimit(tenantID).IsWithinLimit
}

// resolveSubscription находит действующую подписку. При ее отсутствии или
// сбое чтения возвращает nil и готовый отрицательный результат.
func (s *LimitService) resolveSubscription(tenantID uuid.UUID) (*models.Subscription, LimitCheckResult) {
	subscription, err := s.usage.GetActiveSubscription(tenantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, LimitCheckResult{IsWithinLimit: false, Reason: ReasonNoSubscription}
		}
		log.Printf("Ошибка получения подписки аптеки %s: %v", tenantID, err)
		return nil, LimitCheckResult{IsWithinLimit: false, Reason: ReasonCheckError}
	}
	return subscription, LimitCheckResult{}
}

// checkResource выполняет общую проверку "current < limit" (строго меньше:
// аптека на потолке не может создать еще один ресурс). При отказе
// администраторы уведомляются, сбой доставки не влияет на вердикт.
func (s *LimitService) checkResource(tenantID uuid.UUID, resource string, limit int, counter func(uuid.UUID) (int, error)) LimitCheckResult {
	current, err := counter(tenantID)
	if err != nil {
		return s.failClosed(tenantID, resource, err)
	}

	result := LimitCheckResult{
		CurrentCount: current,
		Limit:        limit,
	}

	if models.IsUnlimited(limit) {
		result.IsWithinLimit = true
		return result
	}

	if limit > 0 {
		result.Percentage = float64(current) / float64(limit) * 100
	}

	if current < limit {
		result.IsWithinLimit = true
		return result
	}

	result.IsWithinLimit = false
	result.Reason = denialReason(resource, current, limit)

	// Уведомление об отказе не должно задерживать и тем более ломать вердикт
	if s.notifications != nil {
		go s.notifications.NotifyLimitExceeded(tenantID, resource, current, limit)
	}

	return result
}

// failClosed возвращает отказ при сбое чтения хранилища
func (s *LimitService) failClosed(tenantID uuid.UUID, resource string, err error) LimitCheckResult {
	log.Printf("Ошибка проверки лимита %s аптеки %s: %v", resource, tenantID, err)
	return LimitCheckResult{IsWithinLimit: false, Reason: ReasonCheckError}
}

// GetLimitAlerts возвращает предупреждения по всем ресурсам с потреблением
// от 90%. Чистое чтение без побочных эффектов, используется дашбордом.
func (s *LimitService) GetLimitAlerts(tenantID uuid.UUID) []LimitAlert {
	metrics := s.usage.GetUsageMetrics(tenantID)

	alerts := make([]LimitAlert, 0)
	for resource, usage := range map[string]models.ResourceUsage{
		ResourceUsers:        metrics.Users,
		ResourceProducts:     metrics.Products,
		ResourceTransactions: metrics.Transactions,
		ResourceBranches:     metrics.Branches,
		ResourceStorage:      metrics.Storage,
	} {
		if usage.Percentage < approachingThreshold {
			continue
		}
		severity := models.NotificationSeverityWarning
		if usage.Percentage >= 100 {
			severity = models.NotificationSeverityCritical
		}
		alerts = append(alerts, LimitAlert{
			Resource:   resource,
			Severity:   severity,
			Current:    usage.Current,
			Limit:      usage.Limit,
			Percentage: usage.Percentage,
		})
	}
	return alerts
}

// CheckApproachingLimits проверяет приближение к лимитам и рассылает
// предупреждения. Запускается асинхронно после записи активности.
func (s *LimitService) CheckApproachingLimits(tenantID uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Паника при проверке приближения к лимитам аптеки %s: %v", tenantID, r)
		}
	}()

	metrics := s.usage.GetUsageMetrics(tenantID)

	for resource, usage := range map[string]models.ResourceUsage{
		ResourceUsers:        metrics.Users,
		ResourceProducts:     metrics.Products,
		ResourceTransactions: metrics.Transactions,
		ResourceBranches:     metrics.Branches,
	} {
		if usage.Percentage >= approachingThreshold && usage.Percentage < 100 && s.notifications != nil {
			s.notifications.NotifyLimitApproaching(tenantID, resource, usage.Current, usage.Limit, usage.Percentage)
		}
	}
}

// denialReason строит читаемую причину отказа, например "User limit exceeded (12/10)"
func denialReason(resource string, current, limit int) string {
	return fmt.Sprintf("%s limit exceeded (%d/%d)", resourceDisplayName(resource), current, limit)
}
