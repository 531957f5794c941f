package api

import (
	"net/http"
	"strconv"

	"backend_medpos/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SubscriptionAPI представляет API управления подписками аптеки
type SubscriptionAPI struct {
	service *services.SubscriptionService
	usage   *services.UsageService
}

// NewSubscriptionAPI создает новый экземпляр SubscriptionAPI
func NewSubscriptionAPI(service *services.SubscriptionService, usage *services.UsageService) *SubscriptionAPI {
	return &SubscriptionAPI{service: service, usage: usage}
}

// GetCurrentSubscription возвращает действующую подписку аптеки
// GET /api/subscriptions/current
func (api *SubscriptionAPI) GetCurrentSubscription(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	subscription, err := api.usage.GetActiveSubscription(tenantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "No active subscription found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка получения подписки: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": subscription})
}

// GetSubscriptionHistory возвращает все подписки аптеки
// GET /api/subscriptions/history
func (api *SubscriptionAPI) GetSubscriptionHistory(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	subscriptions, err := api.service.GetSubscriptionHistory(tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка получения истории подписок: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": subscriptions})
}

type SubscribeRequest struct {
	PlanID uint `json:"plan_id" binding:"required"`
	Months int  `json:"months"`
}

// Subscribe оформляет подписку аптеки на тарифный план
// POST /api/subscriptions
func (api *SubscriptionAPI) Subscribe(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Некорректные данные: " + err.Error()})
		return
	}

	subscription, err := api.service.Subscribe(tenantID, req.PlanID, req.Months)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Ошибка оформления подписки: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": subscription})
}

type PaymentRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Method string  `json:"method" binding:"required"`
}

// ProcessPayment проводит платеж и продлевает подписку
// POST /api/subscriptions/:id/payments
func (api *SubscriptionAPI) ProcessPayment(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	subscriptionID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Некорректный ID подписки"})
		return
	}

	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Некорректные данные: " + err.Error()})
		return
	}

	subscription, err := api.service.ProcessPayment(tenantID, uint(subscriptionID), decimal.NewFromFloat(req.Amount), req.Method)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Ошибка проведения платежа: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": subscription})
}

// Cancel отменяет подписку аптеки
// DELETE /api/subscriptions/:id
func (api *SubscriptionAPI) Cancel(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	subscriptionID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Некорректный ID подписки"})
		return
	}

	if err := api.service.Cancel(tenantID, uint(subscriptionID)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Ошибка отмены подписки: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Подписка отменена"})
}

type AdditionalUsersRequest struct {
	NumberOfUsers int     `json:"number_of_users" binding:"required,gt=0"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	Method        string  `json:"method" binding:"required"`
}

// PurchaseAdditionalUsers докупает пользовательские места
// POST /api/subscriptions/additional-users
func (api *SubscriptionAPI) PurchaseAdditionalUsers(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	var req AdditionalUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Некорректные данные: " + err.Error()})
		return
	}

	purchase, err := api.service.PurchaseAdditionalUsers(tenantID, req.NumberOfUsers,
		decimal.NewFromFloat(req.Amount), req.Method)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Ошибка докупки мест: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": purchase})
}
