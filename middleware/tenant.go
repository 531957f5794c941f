package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"backend_medpos/database"
	"backend_medpos/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantMiddleware управляет мультитенантностью
type TenantMiddleware struct {
	DB *gorm.DB
}

// NewTenantMiddleware создает новый экземпляр TenantMiddleware
func NewTenantMiddleware(db *gorm.DB) *TenantMiddleware {
	return &TenantMiddleware{DB: db}
}

// SetTenant определяет текущую аптеку и кладет ее ID в контекст запроса.
// Все данные живут в одной схеме и разделяются колонкой tenant_id.
func (tm *TenantMiddleware) SetTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isPublicRoute(c.Request.URL.Path) {
			c.Next()
			return
		}

		tenant, err := tm.extractTenant(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  "Не удалось определить аптеку: " + err.Error(),
			})
			c.Abort()
			return
		}

		if !tenant.IsActive {
			c.JSON(http.StatusForbidden, gin.H{
				"status": "error",
				"error":  "Аптека деактивирована",
			})
			c.Abort()
			return
		}

		c.Set("tenant", tenant)
		c.Set("tenant_id", tenant.ID)

		c.Next()
	}
}

// extractTenant извлекает аптеку из заголовка X-Tenant-ID или из JWT токена.
// Заголовок, противоречащий аптеке из токена, отклоняется: токен выдан
// для конкретной аптеки и не дает доступ к чужим данным
func (tm *TenantMiddleware) extractTenant(c *gin.Context) (*models.Tenant, error) {
	headerTenantID := strings.TrimSpace(c.GetHeader("X-Tenant-ID"))
	tokenTenantID := c.GetString("token_tenant_id")

	if headerTenantID != "" && tokenTenantID != "" && headerTenantID != tokenTenantID {
		return nil, fmt.Errorf("аптека из заголовка не совпадает с аптекой из токена")
	}

	if headerTenantID != "" {
		return tm.getTenantByID(headerTenantID)
	}
	if tokenTenantID != "" {
		return tm.getTenantByID(tokenTenantID)
	}

	return nil, fmt.Errorf("аптека не указана")
}

// getTenantByID получает аптеку по ID с кэшированием
func (tm *TenantMiddleware) getTenantByID(tenantID string) (*models.Tenant, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(tenantID))
	if err != nil {
		return nil, fmt.Errorf("некорректный формат ID аптеки: %v", err)
	}

	cacheKey := fmt.Sprintf("tenant:id:%s", parsed)
	var tenant models.Tenant
	if err := database.CacheGetJSON(cacheKey, &tenant); err == nil {
		return &tenant, nil
	}

	if err := tm.DB.Where("id = ?", parsed).First(&tenant).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("аптека с ID %s не найдена", tenantID)
		}
		return nil, fmt.Errorf("ошибка поиска аптеки: %v", err)
	}

	// Кэшируем на 15 минут
	database.CacheSetJSON(cacheKey, &tenant, 15*time.Minute)

	return &tenant, nil
}

// isPublicRoute проверяет, является ли маршрут публичным
func isPublicRoute(path string) bool {
	publicRoutes := []string{
		"/health",
		"/api/auth/login",
		"/api/plans",
	}
	for _, route := range publicRoutes {
		if path == route || strings.HasPrefix(path, route+"/") {
			return true
		}
	}
	return false
}
