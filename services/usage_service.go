package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"backend_medpos/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Имена метрируемых ресурсов
const (
	ResourceUsers        = "users"
	ResourceProducts     = "products"
	ResourceTransactions = "transactions"
	ResourceBranches     = "branches"
	ResourceStorage      = "storage"
)

// Эвристика оценки хранилища: средний размер записи по таблицам, в КБ.
// Оценка приблизительная по построению, метрика считается мягкой.
const (
	storageKBPerProduct      = 2
	storageKBPerSale         = 4
	storageKBPerPatient      = 3
	storageKBPerPrescription = 5
)

// UsageService вычисляет текущее потребление ресурсов аптеки относительно
// лимитов тарифного плана и ведет журнал активности для аналитики
type UsageService struct {
	DB    *gorm.DB
	cache *CacheService

	// Асинхронная проверка приближения к лимитам после записи активности
	limitService *LimitService
}

// NewUsageService создает новый экземпляр UsageService
func NewUsageService(db *gorm.DB, cache *CacheService) *UsageService {
	return &UsageService{
		DB:    db,
		cache: cache,
	}
}

// SetLimitService связывает сервис с проверкой лимитов.
// Вызывается из main после создания обоих сервисов (циклическая зависимость).
func (s *UsageService) SetLimitService(ls *LimitService) {
	s.limitService = ls
}

// GetActiveSubscription возвращает действующую подписку аптеки
// (статус active или grace_period) вместе с тарифным планом
func (s *UsageService) GetActiveSubscription(tenantID uuid.UUID) (*models.Subscription, error) {
	var subscription models.Subscription
	err := s.DB.Preload("Plan").
		Where("tenant_id = ? AND status IN ?", tenantID,
			[]string{models.SubscriptionStatusActive, models.SubscriptionStatusGracePeriod}).
		Order("end_date DESC").
		First(&subscription).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

// GetUsageMetrics вычисляет снимок потребления всех пяти ресурсов.
// Без действующей подписки все метрики нулевые - вызывающие обязаны
// трактовать это как отсутствие прав, а не как безлимит.
func (s *UsageService) GetUsageMetrics(tenantID uuid.UUID) *models.UsageMetrics {
	metrics := &models.UsageMetrics{TenantID: tenantID}

	subscription, err := s.GetActiveSubscription(tenantID)
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Printf("Ошибка получения подписки аптеки %s: %v", tenantID, err)
		}
		return metrics
	}

	// Пытаемся взять свежий снимок из кэша
	if s.cache != nil {
		if cached, err := s.cache.GetCachedUsageMetrics(tenantID); err == nil {
			return cached
		}
	}

	now := time.Now().UTC()
	plan := subscription.Plan

	additionalUsers := s.GetAdditionalUserCount(tenantID)

	metrics.Users = s.buildResourceUsage(s.countOrZero(s.CountActiveUsers, tenantID),
		effectiveUserLimit(plan.MaxUsers, additionalUsers))
	metrics.Products = s.buildResourceUsage(s.countOrZero(s.CountActiveProducts, tenantID), plan.MaxProducts)

	transactions, err := s.CountMonthlyTransactions(tenantID, now)
	if err != nil {
		log.Printf("Ошибка подсчета транзакций аптеки %s: %v", tenantID, err)
		transactions = 0
	}
	metrics.Transactions = s.buildResourceUsage(transactions, plan.MaxTransactionsPerMonth)

	metrics.Branches = s.buildResourceUsage(s.countOrZero(s.CountActiveBranches, tenantID), plan.MaxBranches)
	metrics.Storage = s.buildResourceUsage(s.EstimateStorageGB(tenantID), plan.MaxStorageGB)

	if s.cache != nil {
		if err := s.cache.CacheUsageMetrics(tenantID, metrics); err != nil {
			log.Printf("Ошибка кэширования метрик аптеки %s: %v", tenantID, err)
		}
	}

	return metrics
}

// buildResourceUsage собирает тройку {current, limit, percentage}.
// Для безлимита процент всегда 0, чтобы пороговые алерты не срабатывали.
func (s *UsageService) buildResourceUsage(current, limit int) models.ResourceUsage {
	usage := models.ResourceUsage{Current: current, Limit: limit}
	if models.IsUnlimited(limit) || limit <= 0 {
		return usage
	}
	usage.Percentage = float64(current) / float64(limit) * 100
	return usage
}

// effectiveUserLimit возвращает действующий лимит пользователей:
// лимит плана плюс докупленные места, безлимит остается безлимитом
func effectiveUserLimit(planLimit, additionalUsers int) int {
	if models.IsUnlimited(planLimit) {
		return models.UnlimitedValue
	}
	return planLimit + additionalUsers
}

// GetAdditionalUserCount суммирует действующие докупленные места.
// Окно действия каждой покупки проверяется относительно текущего момента,
// отдельной чистки просроченных записей нет.
func (s *UsageService) GetAdditionalUserCount(tenantID uuid.UUID) int {
	now := time.Now().UTC()

	var purchases []models.AdditionalUserPurchase
	if err := s.DB.Where("tenant_id = ? AND status = ? AND is_active = ?",
		tenantID, "active", true).Find(&purchases).Error; err != nil {
		log.Printf("Ошибка получения докупленных мест аптеки %s: %v", tenantID, err)
		return 0
	}

	total := 0
	for _, purchase := range purchases {
		if purchase.IsValidAt(now) {
			total += purchase.NumberOfUsers
		}
	}
	return total
}

// Подсчет текущего потребления по доменным таблицам.
// Ошибки возвращаются вызывающему: шлюз лимитов обязан отличать сбой
// хранилища (отказ по умолчанию) от реального нулевого потребления.

func (s *UsageService) CountActiveUsers(tenantID uuid.UUID) (int, error) {
	var count int64
	if err := s.DB.Model(&models.User{}).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("ошибка подсчета пользователей: %w", err)
	}
	return int(count), nil
}

func (s *UsageService) CountActiveProducts(tenantID uuid.UUID) (int, error) {
	var count int64
	if err := s.DB.Model(&models.Product{}).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("ошибка подсчета товаров: %w", err)
	}
	return int(count), nil
}

// CountMonthlyTransactions считает завершенные продажи текущего календарного
// месяца. Окно [начало месяца, начало следующего) берется от UTC "сейчас" и
// автоматически сдвигается на границе месяца.
func (s *UsageService) CountMonthlyTransactions(tenantID uuid.UUID, now time.Time) (int, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var count int64
	if err := s.DB.Model(&models.Sale{}).
		Where("tenant_id = ? AND status = ? AND created_at >= ? AND created_at < ?",
			tenantID, models.SaleStatusCompleted, monthStart, monthEnd).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("ошибка подсчета транзакций: %w", err)
	}
	return int(count), nil
}

func (s *UsageService) CountActiveBranches(tenantID uuid.UUID) (int, error) {
	var count int64
	if err := s.DB.Model(&models.Branch{}).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("ошибка подсчета филиалов: %w", err)
	}
	return int(count), nil
}

// countOrZero деградирует ошибку подсчета до нуля для снимка метрик
func (s *UsageService) countOrZero(counter func(uuid.UUID) (int, error), tenantID uuid.UUID) int {
	count, err := counter(tenantID)
	if err != nil {
		log.Printf("Ошибка подсчета ресурса аптеки %s: %v", tenantID, err)
		return 0
	}
	return count
}

// EstimateStorageGB оценивает занимаемое хранилище по количеству документов
// и средним размерам записей. Это эвристика, а не измеренные байты.
func (s *UsageService) EstimateStorageGB(tenantID uuid.UUID) int {
	var products, sales, patients, prescriptions int64

	s.DB.Model(&models.Product{}).Where("tenant_id = ?", tenantID).Count(&products)
	s.DB.Model(&models.Sale{}).Where("tenant_id = ?", tenantID).Count(&sales)
	s.DB.Model(&models.Patient{}).Where("tenant_id = ?", tenantID).Count(&patients)
	s.DB.Model(&models.Prescription{}).Where("tenant_id = ?", tenantID).Count(&prescriptions)

	totalKB := products*storageKBPerProduct +
		sales*storageKBPerSale +
		patients*storageKBPerPatient +
		prescriptions*storageKBPerPrescription

	return int(totalKB / (1024 * 1024))
}

// RecordActivity добавляет запись в журнал активности и асинхронно запускает
// проверку приближения к лимитам. Вызов не блокируется на доставке
// уведомлений; решение о допуске операции принимается отдельно и раньше.
func (s *UsageService) RecordActivity(tenantID uuid.UUID, userID *uint, activityType string, metadata map[string]interface{}) error {
	record := models.UsageRecord{
		TenantID:     tenantID,
		UserID:       userID,
		ActivityType: activityType,
	}

	if metadata != nil {
		if data, err := json.Marshal(metadata); err == nil {
			record.Metadata = string(data)
		}
	}

	if err := s.DB.Create(&record).Error; err != nil {
		return fmt.Errorf("ошибка записи активности: %w", err)
	}

	// Потребление изменилось, снимок в кэше устарел
	if s.cache != nil {
		s.cache.InvalidateUsageMetrics(tenantID)
	}

	if s.limitService != nil {
		go s.limitService.CheckApproachingLimits(tenantID)
	}

	return nil
}

// UsageAnalytics содержит производную аналитику использования
type UsageAnalytics struct {
	TenantID     uuid.UUID            `json:"tenant_id"`
	GrowthRates  map[string]float64   `json:"growth_rates"`  // Прирост к последнему снимку, %
	PeakHours    []HourlyActivity     `json:"peak_hours"`    // Топ-3 часа по активности
	TopFeatures  []FeatureUsage       `json:"top_features"`  // Топ-5 типов активности
	CurrentUsage *models.UsageMetrics `json:"current_usage"` // Текущий снимок метрик
}

// HourlyActivity - активность за час суток
type HourlyActivity struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

// FeatureUsage - частота использования типа активности
type FeatureUsage struct {
	ActivityType string `json:"activity_type"`
	Count        int64  `json:"count"`
}

// GetUsageAnalytics строит аналитику использования за последние 30 дней:
// темпы роста относительно последнего ежедневного снимка, пиковые часы
// и наиболее используемые функции
func (s *UsageService) GetUsageAnalytics(tenantID uuid.UUID) (*UsageAnalytics, error) {
	analytics := &UsageAnalytics{
		TenantID:    tenantID,
		GrowthRates: make(map[string]float64),
	}

	analytics.CurrentUsage = s.GetUsageMetrics(tenantID)

	// Темпы роста: сравниваем с последним ежедневным снимком.
	// Пока снимков нет, прирост остается нулевым.
	var snapshot models.UsageSnapshot
	err := s.DB.Where("tenant_id = ?", tenantID).
		Order("created_at DESC").First(&snapshot).Error
	if err == nil {
		analytics.GrowthRates[ResourceUsers] = growthRate(snapshot.Users, analytics.CurrentUsage.Users.Current)
		analytics.GrowthRates[ResourceProducts] = growthRate(snapshot.Products, analytics.CurrentUsage.Products.Current)
		analytics.GrowthRates[ResourceTransactions] = growthRate(snapshot.Transactions, analytics.CurrentUsage.Transactions.Current)
		analytics.GrowthRates[ResourceBranches] = growthRate(snapshot.Branches, analytics.CurrentUsage.Branches.Current)
	} else if err != gorm.ErrRecordNotFound {
		log.Printf("Ошибка получения снимка использования аптеки %s: %v", tenantID, err)
	}

	since := time.Now().UTC().AddDate(0, 0, -30)

	var records []models.UsageRecord
	if err := s.DB.Where("tenant_id = ? AND created_at >= ?", tenantID, since).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения журнала активности: %w", err)
	}

	analytics.PeakHours = peakHours(records, 3)
	analytics.TopFeatures = topFeatures(records, 5)

	return analytics, nil
}

// TakeSnapshot сохраняет ежедневный снимок метрик для расчета темпов роста
func (s *UsageService) TakeSnapshot(tenantID uuid.UUID) error {
	metrics := s.GetUsageMetrics(tenantID)

	snapshot := models.UsageSnapshot{
		TenantID:     tenantID,
		Users:        metrics.Users.Current,
		Products:     metrics.Products.Current,
		Transactions: metrics.Transactions.Current,
		Branches:     metrics.Branches.Current,
		StorageGB:    metrics.Storage.Current,
	}

	if err := s.DB.Create(&snapshot).Error; err != nil {
		return fmt.Errorf("ошибка сохранения снимка использования: %w", err)
	}
	return nil
}

// growthRate считает прирост в процентах относительно предыдущего значения
func growthRate(previous, current int) float64 {
	if previous <= 0 {
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}

// peakHours группирует записи по часу суток и возвращает топ-N часов
func peakHours(records []models.UsageRecord, limit int) []HourlyActivity {
	byHour := make(map[int]int64)
	for _, record := range records {
		byHour[record.CreatedAt.UTC().Hour()]++
	}

	hours := make([]HourlyActivity, 0, len(byHour))
	for hour, count := range byHour {
		hours = append(hours, HourlyActivity{Hour: hour, Count: count})
	}

	sort.Slice(hours, func(i, j int) bool {
		if hours[i].Count != hours[j].Count {
			return hours[i].Count > hours[j].Count
		}
		return hours[i].Hour < hours[j].Hour
	})

	if len(hours) > limit {
		hours = hours[:limit]
	}
	return hours
}

// topFeatures группирует записи по типу активности и возвращает топ-N
func topFeatures(records []models.UsageRecord, limit int) []FeatureUsage {
	byType := make(map[string]int64)
	for _, record := range records {
		byType[record.ActivityType]++
	}

	features := make([]FeatureUsage, 0, len(byType))
	for activityType, count := range byType {
		features = append(features, FeatureUsage{ActivityType: activityType, Count: count})
	}

	sort.Slice(features, func(i, j int) bool {
		if features[i].Count != features[j].Count {
			return features[i].Count > features[j].Count
		}
		return features[i].ActivityType < features[j].ActivityType
	})

	if len(features) > limit {
		features = features[:limit]
	}
	return features
}
