package api

import (
	"net/http"
	"strconv"

	"backend_medpos/models"
	"backend_medpos/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleAPI представляет API кассовых операций
type SaleAPI struct {
	DB     *gorm.DB
	limits *services.LimitService
	usage  *services.UsageService
}

// NewSaleAPI создает новый экземпляр SaleAPI
func NewSaleAPI(db *gorm.DB, limits *services.LimitService, usage *services.UsageService) *SaleAPI {
	return &SaleAPI{DB: db, limits: limits, usage: usage}
}

// GetSales возвращает продажи аптеки с пагинацией
// GET /api/sales
func (api *SaleAPI) GetSales(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	query := api.DB.Model(&models.Sale{}).Where("tenant_id = ?", tenantID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var sales []models.Sale
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&sales).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка получения продаж: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"sales":  sales,
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

type CreateSaleRequest struct {
	ReceiptNumber string  `json:"receipt_number"`
	TotalAmount   float64 `json:"total_amount" binding:"min=0"`
	BranchID      *uint   `json:"branch_id"`
}

// CreateSale проводит продажу после проверки месячного лимита транзакций
// POST /api/sales
func (api *SaleAPI) CreateSale(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	var req CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Некорректные данные: " + err.Error()})
		return
	}

	check := api.limits.CheckTransactionLimit(tenantID)
	if !check.IsWithinLimit {
		c.JSON(http.StatusForbidden, gin.H{
			"status": "error",
			"error":  "Месячный лимит транзакций исчерпан",
			"data":   check,
		})
		return
	}

	actorID := GetUserIDFromContext(c)
	sale := models.Sale{
		ReceiptNumber: req.ReceiptNumber,
		TotalAmount:   decimal.NewFromFloat(req.TotalAmount),
		Status:        models.SaleStatusCompleted,
		TenantID:      tenantID,
		BranchID:      req.BranchID,
		UserID:        &actorID,
	}
	if err := api.DB.Create(&sale).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка проведения продажи: " + err.Error()})
		return
	}

	api.usage.RecordActivity(tenantID, &actorID, models.ActivityTypeTransaction, map[string]interface{}{
		"sale_id": sale.ID,
		"amount":  req.TotalAmount,
	})

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": sale})
}
