package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"backend_medpos/database"
	"backend_medpos/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// CacheService предоставляет методы для кэширования
type CacheService struct {
	redis  *redis.Client
	logger *log.Logger
}

// NewCacheService создает новый экземпляр CacheService
func NewCacheService(redisClient *redis.Client, logger *log.Logger) *CacheService {
	return &CacheService{
		redis:  redisClient,
		logger: logger,
	}
}

// Константы для TTL кэша
const (
	CacheTTLShort  = 5 * time.Minute  // Для часто изменяемых данных
	CacheTTLMedium = 15 * time.Minute // Для умеренно изменяемых данных
	CacheTTLLong   = 1 * time.Hour    // Для редко изменяемых данных
)

// Get получает значение из кэша
func (cs *CacheService) Get(ctx context.Context, key string) (string, error) {
	if cs.redis == nil {
		return "", fmt.Errorf("Redis не подключен")
	}

	val, err := cs.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("ключ не найден")
	}
	return val, err
}

// Set сохраняет значение в кэш
func (cs *CacheService) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if cs.redis == nil {
		if cs.logger != nil {
			cs.logger.Printf("Redis не подключен, пропускаем кэширование для ключа: %s", key)
		}
		return nil // Не возвращаем ошибку, просто пропускаем кэширование
	}

	return cs.redis.Set(ctx, key, value, ttl).Err()
}

// Del удаляет значение из кэша
func (cs *CacheService) Del(ctx context.Context, key string) error {
	if cs.redis == nil {
		return nil
	}

	return cs.redis.Del(ctx, key).Err()
}

// usageMetricsCacheKey генерирует ключ кэша метрик использования
func usageMetricsCacheKey(tenantID uuid.UUID) string {
	return database.GenerateTenantCacheKey(tenantID, "usage", "metrics")
}

// CacheUsageMetrics кэширует снимок метрик использования аптеки
func (cs *CacheService) CacheUsageMetrics(tenantID uuid.UUID, metrics *models.UsageMetrics) error {
	if cs.redis == nil {
		return nil
	}

	data, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("ошибка сериализации метрик: %w", err)
	}
	return cs.Set(context.Background(), usageMetricsCacheKey(tenantID), string(data), CacheTTLShort)
}

// GetCachedUsageMetrics получает метрики использования из кэша
func (cs *CacheService) GetCachedUsageMetrics(tenantID uuid.UUID) (*models.UsageMetrics, error) {
	if cs.redis == nil {
		return nil, fmt.Errorf("Redis не подключен")
	}

	data, err := cs.Get(context.Background(), usageMetricsCacheKey(tenantID))
	if err != nil {
		return nil, err
	}

	var metrics models.UsageMetrics
	if err := json.Unmarshal([]byte(data), &metrics); err != nil {
		return nil, fmt.Errorf("ошибка десериализации метрик: %w", err)
	}
	return &metrics, nil
}

// InvalidateUsageMetrics сбрасывает кэш метрик после изменения ресурсов
func (cs *CacheService) InvalidateUsageMetrics(tenantID uuid.UUID) {
	if err := cs.Del(context.Background(), usageMetricsCacheKey(tenantID)); err != nil {
		if cs.logger != nil {
			cs.logger.Printf("Ошибка сброса кэша метрик для %s: %v", tenantID, err)
		}
	}
}
