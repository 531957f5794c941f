package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Branch представляет филиал (точку продаж) аптеки
type Branch struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Основные поля
	Name     string `json:"name" gorm:"not null;type:varchar(100)"`
	Address  string `json:"address" gorm:"type:text"`
	Phone    string `json:"phone" gorm:"type:varchar(20)"`
	IsActive bool   `json:"is_active" gorm:"default:true;index"`

	// Мультитенантность
	TenantID uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index"`
}

// TableName задает имя таблицы для модели Branch
func (Branch) TableName() string {
	return "branches"
}
