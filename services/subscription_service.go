package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"backend_medpos/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentProcessor - внешний платежный шлюз. Реализация списывает сумму
// выбранным методом и возвращает референс транзакции шлюза.
type PaymentProcessor interface {
	Charge(tenantID uuid.UUID, amount decimal.Decimal, method string) (reference string, err error)
}

// SubscriptionService управляет подписками аптек: оформление, продление
// платежом, отмена, докупка пользовательских мест и каталог тарифов
type SubscriptionService struct {
	DB            *gorm.DB
	payments      PaymentProcessor
	notifications *NotificationService
	cache         *CacheService
}

// NewSubscriptionService создает новый экземпляр SubscriptionService
func NewSubscriptionService(db *gorm.DB, payments PaymentProcessor, notifications *NotificationService, cache *CacheService) *SubscriptionService {
	return &SubscriptionService{
		DB:            db,
		payments:      payments,
		notifications: notifications,
		cache:         cache,
	}
}

// GetPlans возвращает активные тарифные планы по возрастанию цены
func (s *SubscriptionService) GetPlans() ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	if err := s.DB.Where("is_active = ?", true).Order("price ASC").Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения тарифных планов: %w", err)
	}
	return plans, nil
}

// GetPlan возвращает тарифный план по ID, включая деактивированные:
// исторические подписки должны находить свой план
func (s *SubscriptionService) GetPlan(planID uint) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := s.DB.First(&plan, planID).Error; err != nil {
		return nil, fmt.Errorf("тарифный план %d не найден: %w", planID, err)
	}
	return &plan, nil
}

// CreatePlan создает новый тарифный план
func (s *SubscriptionService) CreatePlan(plan *models.SubscriptionPlan) error {
	if plan.Name == "" {
		return errors.New("название тарифного плана обязательно")
	}
	if err := s.DB.Create(plan).Error; err != nil {
		return fmt.Errorf("ошибка создания тарифного плана: %w", err)
	}
	return nil
}

// UpdatePlan обновляет тарифный план. Изменение потолков действует на все
// привязанные подписки немедленно - лимиты читаются из плана при каждой проверке
func (s *SubscriptionService) UpdatePlan(planID uint, updates map[string]interface{}) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := s.DB.First(&plan, planID).Error; err != nil {
		return nil, fmt.Errorf("тарифный план %d не найден: %w", planID, err)
	}
	if err := s.DB.Model(&plan).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("ошибка обновления тарифного плана: %w", err)
	}

	// Новые потолки должны сразу отражаться в метриках подписанных аптек
	s.invalidatePlanSubscribers(planID)

	return &plan, nil
}

// invalidatePlanSubscribers сбрасывает кэш метрик всех аптек с действующей
// подпиской на план
func (s *SubscriptionService) invalidatePlanSubscribers(planID uint) {
	if s.cache == nil {
		return
	}

	var tenantIDs []uuid.UUID
	err := s.DB.Model(&models.Subscription{}).
		Where("plan_id = ? AND status IN ?", planID,
			[]string{models.SubscriptionStatusActive, models.SubscriptionStatusGracePeriod}).
		Distinct("tenant_id").
		Pluck("tenant_id", &tenantIDs).Error
	if err != nil {
		log.Printf("Ошибка поиска подписчиков плана %d для сброса кэша: %v", planID, err)
		return
	}

	for _, tenantID := range tenantIDs {
		s.cache.InvalidateUsageMetrics(tenantID)
	}
}

// DeactivatePlan скрывает план из каталога. Физическое удаление не
// поддерживается: подписки ссылаются на план по FK
func (s *SubscriptionService) DeactivatePlan(planID uint) error {
	result := s.DB.Model(&models.SubscriptionPlan{}).
		Where("id = ?", planID).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("ошибка деактивации тарифного плана: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("тарифный план %d не найден", planID)
	}
	return nil
}

// Subscribe оформляет подписку аптеки на план сроком months месяцев.
// Прежняя действующая подписка (active/grace_period) отменяется: в каждый
// момент у аптеки не больше одной действующей подписки.
func (s *SubscriptionService) Subscribe(tenantID uuid.UUID, planID uint, months int) (*models.Subscription, error) {
	if months <= 0 {
		months = 1
	}

	plan, err := s.GetPlan(planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, fmt.Errorf("тарифный план '%s' недоступен для подписки", plan.Name)
	}

	now := time.Now().UTC()
	subscription := &models.Subscription{
		TenantID:  tenantID,
		PlanID:    plan.ID,
		StartDate: now,
		EndDate:   now.AddDate(0, months, 0),
		Status:    models.SubscriptionStatusActive,
		IsActive:  true,
		Amount:    plan.Price.Mul(decimal.NewFromInt(int64(months))),
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		// Закрываем прежнюю действующую подписку
		if err := tx.Model(&models.Subscription{}).
			Where("tenant_id = ? AND status IN ?", tenantID,
				[]string{models.SubscriptionStatusActive, models.SubscriptionStatusGracePeriod}).
			Updates(map[string]interface{}{
				"status":    models.SubscriptionStatusCancelled,
				"is_active": false,
			}).Error; err != nil {
			return err
		}
		return tx.Create(subscription).Error
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка оформления подписки: %w", err)
	}

	subscription.Plan = *plan
	s.invalidateCache(tenantID)
	log.Printf("Аптека %s подписана на план '%s' до %s",
		tenantID, plan.Name, subscription.EndDate.Format("2006-01-02"))
	return subscription, nil
}

// ProcessPayment проводит платеж за подписку и продлевает ее.
// Число оплаченных периодов выводится из суммы: floor(amount / price),
// но не меньше одного. EndDate сдвигается вперед от max(EndDate, now),
// статус сбрасывается в active независимо от прежнего состояния - это
// единственный путь возврата из grace_period/expired.
func (s *SubscriptionService) ProcessPayment(tenantID uuid.UUID, subscriptionID uint, amount decimal.Decimal, method string) (*models.Subscription, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("сумма платежа должна быть положительной")
	}

	// Подписка ищется только в рамках своей аптеки, чужие ID недоступны
	var subscription models.Subscription
	if err := s.DB.Preload("Plan").
		Where("id = ? AND tenant_id = ?", subscriptionID, tenantID).
		First(&subscription).Error; err != nil {
		return nil, fmt.Errorf("подписка %d не найдена: %w", subscriptionID, err)
	}
	if subscription.Status == models.SubscriptionStatusCancelled {
		return nil, errors.New("отмененную подписку нельзя продлить, оформите новую")
	}

	reference := ""
	if s.payments != nil {
		ref, err := s.payments.Charge(subscription.TenantID, amount, method)
		if err != nil {
			s.recordPayment(&subscription, amount, method, "", models.PaymentStatusFailed)
			return nil, fmt.Errorf("платеж отклонен: %w", err)
		}
		reference = ref
	}

	now := time.Now().UTC()
	periods := paidPeriods(amount, subscription.Plan.Price)

	// Продление от текущей даты окончания, если подписка еще не истекла,
	// иначе от момента платежа: оплаченное время не сгорает
	base := subscription.EndDate
	if base.Before(now) {
		base = now
	}
	newEndDate := base.AddDate(0, periods, 0)
	nextPayment := newEndDate

	err := s.DB.Model(&subscription).Updates(map[string]interface{}{
		"status":            models.SubscriptionStatusActive,
		"is_active":         true,
		"end_date":          newEndDate,
		"last_payment_date": now,
		"next_payment_date": nextPayment,
		"payment_method":    method,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка продления подписки: %w", err)
	}

	s.recordPayment(&subscription, amount, method, reference, models.PaymentStatusCompleted)
	s.invalidateCache(subscription.TenantID)

	log.Printf("Платеж %s за подписку %d проведен: %d период(ов), новая дата окончания %s",
		amount.String(), subscription.ID, periods, newEndDate.Format("2006-01-02"))
	return &subscription, nil
}

// Cancel отменяет подписку. Статус cancelled терминален - вернуть такую
// подписку к жизни нельзя, только оформить новую
func (s *SubscriptionService) Cancel(tenantID uuid.UUID, subscriptionID uint) error {
	result := s.DB.Model(&models.Subscription{}).
		Where("id = ? AND tenant_id = ? AND status IN ?", subscriptionID, tenantID,
			[]string{models.SubscriptionStatusActive, models.SubscriptionStatusGracePeriod}).
		Updates(map[string]interface{}{
			"status":        models.SubscriptionStatusCancelled,
			"is_active":     false,
			"is_auto_renew": false,
		})
	if result.Error != nil {
		return fmt.Errorf("ошибка отмены подписки: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("действующая подписка не найдена")
	}

	s.invalidateCache(tenantID)
	log.Printf("Подписка %d аптеки %s отменена", subscriptionID, tenantID)
	return nil
}

// PurchaseAdditionalUsers докупает пользовательские места сверх лимита
// плана. Окно действия мест привязывается к дате окончания текущей подписки.
func (s *SubscriptionService) PurchaseAdditionalUsers(tenantID uuid.UUID, numberOfUsers int, amount decimal.Decimal, method string) (*models.AdditionalUserPurchase, error) {
	if numberOfUsers <= 0 {
		return nil, errors.New("количество мест должно быть положительным")
	}

	var subscription models.Subscription
	err := s.DB.Where("tenant_id = ? AND status IN ?", tenantID,
		[]string{models.SubscriptionStatusActive, models.SubscriptionStatusGracePeriod}).
		Order("end_date DESC").
		First(&subscription).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New("для докупки мест нужна действующая подписка")
		}
		return nil, fmt.Errorf("ошибка получения подписки: %w", err)
	}

	if s.payments != nil {
		if _, err := s.payments.Charge(tenantID, amount, method); err != nil {
			return nil, fmt.Errorf("платеж отклонен: %w", err)
		}
	}

	now := time.Now().UTC()
	endDate := subscription.EndDate
	purchase := &models.AdditionalUserPurchase{
		TenantID:      tenantID,
		NumberOfUsers: numberOfUsers,
		StartDate:     now,
		EndDate:       &endDate,
		Status:        "active",
		IsActive:      true,
		Amount:        amount,
	}
	if err := s.DB.Create(purchase).Error; err != nil {
		return nil, fmt.Errorf("ошибка сохранения докупленных мест: %w", err)
	}

	s.invalidateCache(tenantID)
	log.Printf("Аптека %s докупила %d пользовательских мест до %s",
		tenantID, numberOfUsers, endDate.Format("2006-01-02"))
	return purchase, nil
}

// GetSubscriptionHistory возвращает все подписки аптеки, новые первыми
func (s *SubscriptionService) GetSubscriptionHistory(tenantID uuid.UUID) ([]models.Subscription, error) {
	var subscriptions []models.Subscription
	err := s.DB.Preload("Plan").
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&subscriptions).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории подписок: %w", err)
	}
	return subscriptions, nil
}

// recordPayment фиксирует результат платежа. Сбой записи логируется и не
// влияет на сам платеж - транзакция в шлюзе уже прошла
func (s *SubscriptionService) recordPayment(subscription *models.Subscription, amount decimal.Decimal, method, reference, status string) {
	now := time.Now().UTC()
	transaction := models.PaymentTransaction{
		TenantID:       subscription.TenantID,
		SubscriptionID: subscription.ID,
		Amount:         amount,
		Method:         method,
		Status:         status,
		Reference:      reference,
		ProcessedAt:    &now,
	}
	if err := s.DB.Create(&transaction).Error; err != nil {
		log.Printf("Ошибка записи платежной транзакции подписки %d: %v", subscription.ID, err)
	}
}

// invalidateCache сбрасывает кэш метрик аптеки после изменения подписки
func (s *SubscriptionService) invalidateCache(tenantID uuid.UUID) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateUsageMetrics(tenantID)
}

// paidPeriods выводит число оплаченных месячных периодов из суммы платежа:
// floor(amount / price), минимум один период
func paidPeriods(amount, price decimal.Decimal) int {
	if price.LessThanOrEqual(decimal.Zero) {
		return 1
	}
	periods := int(amount.Div(price).IntPart())
	if periods < 1 {
		periods = 1
	}
	return periods
}
