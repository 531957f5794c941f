package api

import (
	"log"
	"net/http"
	"time"

	"backend_medpos/middleware"
	"backend_medpos/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Срок жизни токена доступа
const tokenTTL = 24 * time.Hour

type LoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=3,max=64"`
}

// AuthAPI представляет API аутентификации
type AuthAPI struct {
	DB   *gorm.DB
	Auth *middleware.AuthMiddleware
}

// NewAuthAPI создает новый экземпляр AuthAPI
func NewAuthAPI(db *gorm.DB, auth *middleware.AuthMiddleware) *AuthAPI {
	return &AuthAPI{DB: db, Auth: auth}
}

// Login аутентифицирует пользователя и выдает JWT токен
// POST /api/auth/login
func (api *AuthAPI) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Invalid username or password"})
		return
	}

	var user models.User
	err := api.DB.Where("username = ? AND is_active = ?", req.Username, true).First(&user).Error
	if err != nil {
		log.Printf("Неудачная попытка входа: пользователь '%s' не найден (IP %s)", req.Username, c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "Invalid username or password"})
		return
	}

	if !user.CheckPassword(req.Password) {
		log.Printf("Неудачная попытка входа: неверный пароль пользователя '%s' (IP %s)", req.Username, c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "Invalid username or password"})
		return
	}

	token, err := api.Auth.GenerateToken(user.ID, user.TenantID, user.Role, tokenTTL)
	if err != nil {
		log.Printf("Ошибка выпуска токена для пользователя '%s': %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Failed to issue token"})
		return
	}

	now := time.Now().UTC()
	api.DB.Model(&user).Update("last_login_at", now)

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"token": token,
			"user": gin.H{
				"id":        user.ID,
				"username":  user.Username,
				"email":     user.Email,
				"role":      user.Role,
				"tenant_id": user.TenantID,
			},
		},
	})
}

// GetCurrentUser возвращает профиль аутентифицированного пользователя
// GET /api/auth/me
func (api *AuthAPI) GetCurrentUser(c *gin.Context) {
	userID := GetUserIDFromContext(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "Не удалось определить пользователя"})
		return
	}

	var user models.User
	if err := api.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "Пользователь не найден"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": user})
}
