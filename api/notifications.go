package api

import (
	"net/http"
	"strconv"

	"backend_medpos/services"

	"github.com/gin-gonic/gin"
)

// NotificationAPI представляет API для чтения уведомлений
type NotificationAPI struct {
	service *services.NotificationService
}

// NewNotificationAPI создает новый экземпляр NotificationAPI
func NewNotificationAPI(service *services.NotificationService) *NotificationAPI {
	return &NotificationAPI{service: service}
}

// GetNotifications возвращает уведомления пользователя
// GET /api/notifications
func (api *NotificationAPI) GetNotifications(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)
	userID := GetUserIDFromContext(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	onlyUnread := c.Query("unread") == "true"

	notifications, total, err := api.service.GetNotifications(tenantID, userID, onlyUnread, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Ошибка получения уведомлений: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"notifications": notifications,
			"total":         total,
			"limit":         limit,
			"offset":        offset,
		},
	})
}

// MarkAsRead помечает уведомление прочитанным
// PUT /api/notifications/:id/read
func (api *NotificationAPI) MarkAsRead(c *gin.Context) {
	tenantID := GetTenantIDFromContext(c)
	userID := GetUserIDFromContext(c)

	notificationID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Некорректный ID уведомления"})
		return
	}

	if err := api.service.MarkAsRead(tenantID, userID, uint(notificationID)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "Уведомление не найдено"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Уведомление прочитано"})
}
