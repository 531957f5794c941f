package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetTenantIDFromContext извлекает ID аптеки из контекста Gin
func GetTenantIDFromContext(c *gin.Context) uuid.UUID {
	if tenantID, exists := c.Get("tenant_id"); exists {
		if id, ok := tenantID.(uuid.UUID); ok {
			return id
		}
		if id, ok := tenantID.(string); ok {
			if parsed, err := uuid.Parse(id); err == nil {
				return parsed
			}
		}
	}
	return uuid.Nil
}

// GetUserIDFromContext извлекает ID пользователя из контекста Gin
func GetUserIDFromContext(c *gin.Context) uint {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(uint); ok {
			return id
		}
	}
	return 0
}
