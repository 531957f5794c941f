package api

import (
	"net/http"

	"backend_medpos/models"
	"backend_medpos/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UserAPI представляет API управления пользователями аптеки
type UserAPI struct {
	DB     *gorm.DB
	limits *services.LimitService
	usage  *services.UsageService
}

// NewUserAPI создает новый экземпляр UserAPI
func NewUserAPI(db *gorm.DB, limits *services.LimitService, usage *services.UsageService) *UserAPI {
	return &UserAPI{DB: db, limits: limits, usage: usage}
}

// GetUsers возвращает пользователей аптеки
// GET /api/users
func (api *UserAPI) GetUsers(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	var users []models.User
	if err := api.DB.Where("tenant_id = ?", tenantID).Order("created_at DESC").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка получения пользователей: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": users})
}

type CreateUserRequest struct {
	Username      string `json:"username" binding:"required,min=3,max=64"`
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=6"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Role          string `json:"role"`
	AdminOverride bool   `json:"admin_override"`
}

// CreateUser создает пользователя аптеки. Перед созданием проверяется
// лимит пользователей тарифного плана; отказ возвращается как 403 с
// причиной, создание не выполняется.
// POST /api/users
func (api *UserAPI) CreateUser(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Некорректные данные: " + err.Error()})
		return
	}

	check := api.limits.CheckUserLimit(tenantID, req.AdminOverride)
	if !check.IsWithinLimit {
		c.JSON(http.StatusForbidden, gin.H{
			"status": "error",
			"error":  "Лимит пользователей исчерпан",
			"data":   check,
		})
		return
	}

	user := models.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		IsActive:  true,
		TenantID:  tenantID,
	}
	if user.Role == "" {
		user.Role = models.RoleCashier
	}
	if err := user.SetPassword(req.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка обработки пароля"})
		return
	}

	if err := api.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка создания пользователя: " + err.Error()})
		return
	}

	actorID := GetUserIDFromContext(c)
	api.usage.RecordActivity(tenantID, &actorID, models.ActivityTypeUserOperation, map[string]interface{}{
		"action":  "create",
		"user_id": user.ID,
	})

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": user})
}

// DeactivateUser деактивирует пользователя, освобождая место в лимите
// DELETE /api/users/:id
func (api *UserAPI) DeactivateUser(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)

	result := api.DB.Model(&models.User{}).
		Where("id = ? AND tenant_id = ?", c.Param("id"), tenantID).
		Update("is_active", false)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка деактивации пользователя: " + result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "Пользователь не найден"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Пользователь деактивирован"})
}
