package api

import (
	"net/http"
	"strconv"

	"backend_medpos/models"
	"backend_medpos/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PlanAPI представляет API каталога тарифных планов
type PlanAPI struct {
	service *services.SubscriptionService
}

// NewPlanAPI создает новый экземпляр PlanAPI
func NewPlanAPI(service *services.SubscriptionService) *PlanAPI {
	return &PlanAPI{service: service}
}

// GetPlans возвращает активные тарифные планы
// GET /api/plans
func (api *PlanAPI) GetPlans(c *gin.Context) {
	plans, err := api.service.GetPlans()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка получения тарифных планов: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": plans})
}

// GetPlan возвращает тарифный план по ID
// GET /api/plans/:id
func (api *PlanAPI) GetPlan(c *gin.Context) {
	planID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Некорректный ID тарифного плана"})
		return
	}

	plan, err := api.service.GetPlan(uint(planID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "Тарифный план не найден"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": plan})
}

type CreatePlanRequest struct {
	Name                    string  `json:"name" binding:"required"`
	Description             string  `json:"description"`
	Price                   float64 `json:"price" binding:"min=0"`
	MaxUsers                int     `json:"max_users"`
	MaxProducts             int     `json:"max_products"`
	MaxTransactionsPerMonth int     `json:"max_transactions_per_month"`
	MaxBranches             int     `json:"max_branches"`
	MaxStorageGB            int     `json:"max_storage_gb"`
	IsPopular               bool    `json:"is_popular"`
}

// toModel собирает модель тарифного плана из запроса
func (req *CreatePlanRequest) toModel() *models.SubscriptionPlan {
	return &models.SubscriptionPlan{
		Name:                    req.Name,
		Description:             req.Description,
		Price:                   decimal.NewFromFloat(req.Price),
		MaxUsers:                req.MaxUsers,
		MaxProducts:             req.MaxProducts,
		MaxTransactionsPerMonth: req.MaxTransactionsPerMonth,
		MaxBranches:             req.MaxBranches,
		MaxStorageGB:            req.MaxStorageGB,
		IsActive:                true,
		IsPopular:               req.IsPopular,
	}
}

// CreatePlan создает новый тарифный план
// POST /api/plans
func (api *PlanAPI) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Некорректные данные: " + err.Error()})
		return
	}

	plan := req.toModel()
	if err := api.service.CreatePlan(plan); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка создания тарифного плана: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": plan})
}

// UpdatePlan обновляет тарифный план
// PUT /api/plans/:id
func (api *PlanAPI) UpdatePlan(c *gin.Context) {
	planID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Некорректный ID тарифного плана"})
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Некорректные данные: " + err.Error()})
		return
	}

	plan, err := api.service.UpdatePlan(uint(planID), updates)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка обновления тарифного плана: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": plan})
}

// DeactivatePlan скрывает тарифный план из каталога
// DELETE /api/plans/:id
func (api *PlanAPI) DeactivatePlan(c *gin.Context) {
	planID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Некорректный ID тарифного плана"})
		return
	}

	if err := api.service.DeactivatePlan(uint(planID)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка деактивации тарифного плана: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Тарифный план деактивирован"})
}
