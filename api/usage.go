package api

import (
	"net/http"

	"backend_medpos/services"

	"github.com/gin-gonic/gin"
)

// UsageAPI представляет API метрик потребления и лимитов
type UsageAPI struct {
	usage  *services.UsageService
	limits *services.LimitService
}

// NewUsageAPI создает новый экземпляр UsageAPI
func NewUsageAPI(usage *services.UsageService, limits *services.LimitService) *UsageAPI {
	return &UsageAPI{usage: usage, limits: limits}
}

// GetUsageMetrics возвращает текущее потребление по всем ресурсам
// GET /api/usage/metrics
func (api *UsageAPI) GetUsageMetrics(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	metrics := api.usage.GetUsageMetrics(tenantID)

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": metrics})
}

// GetUsageAnalytics возвращает аналитику потребления за 30 дней
// GET /api/usage/analytics
func (api *UsageAPI) GetUsageAnalytics(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	analytics, err := api.usage.GetUsageAnalytics(tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка получения аналитики: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": analytics})
}

// GetLimitAlerts возвращает предупреждения о приближении к лимитам
// GET /api/usage/alerts
func (api *UsageAPI) GetLimitAlerts(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	alerts := api.limits.GetLimitAlerts(tenantID)

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": alerts})
}

// CheckLimit возвращает результат проверки лимита одного ресурса
// GET /api/usage/limits/:resource
func (api *UsageAPI) CheckLimit(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	var result services.LimitCheckResult
	switch c.Param("resource") {
	case services.ResourceUsers:
		result = api.limits.CheckUserLimit(tenantID, false)
	case services.ResourceProducts:
		result = api.limits.CheckProductLimit(tenantID)
	case services.ResourceTransactions:
		result = api.limits.CheckTransactionLimit(tenantID)
	case services.ResourceBranches:
		result = api.limits.CheckBranchLimit(tenantID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Неизвестный ресурс: " + c.Param("resource")})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": result})
}
