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

// ProductAPI представляет API управления товарными позициями
type ProductAPI struct {
	DB     *gorm.DB
	limits *services.LimitService
	usage  *services.UsageService
}

// NewProductAPI создает новый экземпляр ProductAPI
func NewProductAPI(db *gorm.DB, limits *services.LimitService, usage *services.UsageService) *ProductAPI {
	return &ProductAPI{DB: db, limits: limits, usage: usage}
}

// GetProducts возвращает товарные позиции аптеки с пагинацией
// GET /api/products
func (api *ProductAPI) GetProducts(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	query := api.DB.Model(&models.Product{}).Where("tenant_id = ?", tenantID)
	if search := c.Query("search"); search != "" {
		query = query.Where("name ILIKE ? OR sku = ?", "%"+search+"%", search)
	}

	var total int64
	query.Count(&total)

	var products []models.Product
	if err := query.Order("name ASC").Limit(limit).Offset(offset).Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка получения товаров: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"products": products,
			"total":    total,
			"limit":    limit,
			"offset":   offset,
		},
	})
}

type CreateProductRequest struct {
	Name     string  `json:"name" binding:"required"`
	SKU      string  `json:"sku"`
	Barcode  string  `json:"barcode"`
	Price    float64 `json:"price" binding:"min=0"`
	Quantity int     `json:"quantity"`
	BranchID *uint   `json:"branch_id"`
}

// CreateProduct создает товарную позицию после проверки лимита плана
// POST /api/products
func (api *ProductAPI) CreateProduct(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Некорректные данные: " + err.Error()})
		return
	}

	check := api.limits.CheckProductLimit(tenantID)
	if !check.IsWithinLimit {
		c.JSON(http.StatusForbidden, gin.H{
			"status": "error",
			"error":  "Лимит товарных позиций исчерпан",
			"data":   check,
		})
		return
	}

	product := models.Product{
		Name:     req.Name,
		SKU:      req.SKU,
		Barcode:  req.Barcode,
		Price:    decimal.NewFromFloat(req.Price),
		Quantity: req.Quantity,
		IsActive: true,
		TenantID: tenantID,
		BranchID: req.BranchID,
	}
	if err := api.DB.Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка создания товара: " + err.Error()})
		return
	}

	actorID := GetUserIDFromContext(c)
	api.usage.RecordActivity(tenantID, &actorID, models.ActivityTypeProductOperation, map[string]interface{}{
		"action":     "create",
		"product_id": product.ID,
	})

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": product})
}

// DeactivateProduct снимает товар с учета, освобождая место в лимите
// DELETE /api/products/:id
func (api *ProductAPI) DeactivateProduct(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	result := api.DB.Model(&models.Product{}).
		Where("id = ? AND tenant_id = ?", c.Param("id"), tenantID).
		Update("is_active", false)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка снятия товара с учета: " + result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "Товар не найден"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Товар снят с учета"})
}
