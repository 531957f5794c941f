package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var Redis *redis.Client
var Ctx = context.Background()

// InitRedis инициализирует подключение к Redis
func InitRedis() error {
	// Получаем настройки Redis из переменных окружения
	host := getEnv("REDIS_HOST", "localhost")
	port := getEnv("REDIS_PORT", "6379")
	password := getEnv("REDIS_PASSWORD", "")
	dbStr := getEnv("REDIS_DB", "0")

	// Конвертируем номер БД в int
	db, err := strconv.Atoi(dbStr)
	if err != nil {
		db = 0
	}

	// Создаем клиент Redis
	Redis = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  300 * time.Second,
	})

	// Проверяем подключение
	if err := Redis.Ping(Ctx).Err(); err != nil {
		Redis = nil
		return fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	log.Println("✅ Успешно подключено к Redis")
	return nil
}

// GetRedis возвращает экземпляр Redis клиента
func GetRedis() *redis.Client {
	return Redis
}

// ErrCacheUnavailable возвращается хелперами кэша, когда Redis не подключен
var ErrCacheUnavailable = fmt.Errorf("redis не подключен")

// CacheSet сохраняет значение в кэш с TTL
func CacheSet(key string, value interface{}, ttl time.Duration) error {
	if Redis == nil {
		return ErrCacheUnavailable
	}
	return Redis.Set(Ctx, key, value, ttl).Err()
}

// CacheGet получает значение из кэша
func CacheGet(key string) (string, error) {
	if Redis == nil {
		return "", ErrCacheUnavailable
	}
	return Redis.Get(Ctx, key).Result()
}

// CacheDel удаляет значение из кэша
func CacheDel(key string) error {
	if Redis == nil {
		return ErrCacheUnavailable
	}
	return Redis.Del(Ctx, key).Err()
}

// CacheSetJSON сохраняет JSON объект в кэш
func CacheSetJSON(key string, value interface{}, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("ошибка сериализации JSON: %w", err)
	}
	return CacheSet(key, string(jsonData), ttl)
}

// CacheGetJSON получает JSON объект из кэша
func CacheGetJSON(key string, dest interface{}) error {
	jsonData, err := CacheGet(key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(jsonData), dest); err != nil {
		return fmt.Errorf("ошибка десериализации JSON: %w", err)
	}

	return nil
}

// GenerateTenantCacheKey генерирует ключ кэша для мультитенантности
func GenerateTenantCacheKey(tenantID uuid.UUID, prefix string, suffix string) string {
	return fmt.Sprintf("tenant:%s:%s:%s", tenantID, prefix, suffix)
}

// ClearTenantCache очищает весь кэш аптеки
func ClearTenantCache(tenantID uuid.UUID) error {
	if Redis == nil {
		return ErrCacheUnavailable
	}
	pattern := fmt.Sprintf("tenant:%s:*", tenantID)
	keys, err := Redis.Keys(Ctx, pattern).Result()
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		return Redis.Del(Ctx, keys...).Err()
	}

	return nil
}
