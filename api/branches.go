package api

import (
	"net/http"

	"backend_medpos/models"
	"backend_medpos/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// BranchAPI представляет API управления филиалами аптеки
type BranchAPI struct {
	DB     *gorm.DB
	limits *services.LimitService
	usage  *services.UsageService
}

// NewBranchAPI создает новый экземпляр BranchAPI
func NewBranchAPI(db *gorm.DB, limits *services.LimitService, usage *services.UsageService) *BranchAPI {
	return &BranchAPI{DB: db, limits: limits, usage: usage}
}

// GetBranches возвращает филиалы аптеки
// GET /api/branches
func (api *BranchAPI) GetBranches(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	var branches []models.Branch
	if err := api.DB.Where("tenant_id = ?", tenantID).Order("name ASC").Find(&branches).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка получения филиалов: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": branches})
}

type CreateBranchRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// CreateBranch создает филиал после проверки лимита плана
// POST /api/branches
func (api *BranchAPI) CreateBranch(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	var req CreateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Некорректные данные: " + err.Error()})
		return
	}

	check := api.limits.CheckBranchLimit(tenantID)
	if !check.IsWithinLimit {
		c.JSON(http.StatusForbidden, gin.H{
			"status": "error",
			"error":  "Лимит филиалов исчерпан",
			"data":   check,
		})
		return
	}

	branch := models.Branch{
		Name:     req.Name,
		Address:  req.Address,
		Phone:    req.Phone,
		IsActive: true,
		TenantID: tenantID,
	}
	if err := api.DB.Create(&branch).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка создания филиала: " + err.Error()})
		return
	}

	actorID := GetUserIDFromContext(c)
	api.usage.RecordActivity(tenantID, &actorID, models.ActivityTypeBranchOperation, map[string]interface{}{
		"action":    "create",
		"branch_id": branch.ID,
	})

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": branch})
}

// DeactivateBranch закрывает филиал, освобождая место в лимите
// DELETE /api/branches/:id
func (api *BranchAPI) DeactivateBranch(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	result := api.DB.Model(&models.Branch{}).
		Where("id = ? AND tenant_id = ?", c.Param("id"), tenantID).
		Update("is_active", false)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка закрытия филиала: " + result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "Филиал не найден"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Филиал закрыт"})
}
