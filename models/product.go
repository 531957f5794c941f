package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product представляет товарную позицию аптеки.
// Модель нужна ядру только как предмет проверки лимитов и подсчета хранилища.
type Product struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Основные поля
	Name     string          `json:"name" gorm:"not null;type:varchar(200)"`
	SKU      string          `json:"sku" gorm:"type:varchar(100);index"`
	Barcode  string          `json:"barcode" gorm:"type:varchar(100)"`
	Price    decimal.Decimal `json:"price" gorm:"type:decimal(10,2)"`
	Quantity int             `json:"quantity" gorm:"default:0"`
	IsActive bool            `json:"is_active" gorm:"default:true;index"`

	// Мультитенантность
	TenantID uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index"`
	BranchID *uint     `json:"branch_id" gorm:"index"`
}

// TableName задает имя таблицы для модели Product
func (Product) TableName() string {
	return "products"
}
