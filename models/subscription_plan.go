package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UnlimitedValue - значение лимита, означающее "безлимитно"
const UnlimitedValue = -1

// SubscriptionPlan представляет тарифный план подписки
type SubscriptionPlan struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Основные поля тарифного плана
	Name        string          `json:"name" gorm:"uniqueIndex;not null;type:varchar(100)"`
	Description string          `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Currency    string          `json:"currency" gorm:"default:'USD';type:varchar(3)"`

	// Период тарификации
	BillingPeriod string `json:"billing_period" gorm:"default:'monthly';type:varchar(20)"` // monthly, yearly

	// Лимиты ресурсов (-1 = безлимитно)
	MaxUsers                int `json:"max_users" gorm:"default:0"`
	MaxProducts             int `json:"max_products" gorm:"default:0"`
	MaxTransactionsPerMonth int `json:"max_transactions_per_month" gorm:"default:0"`
	MaxBranches             int `json:"max_branches" gorm:"default:0"`
	MaxStorageGB            int `json:"max_storage_gb" gorm:"default:0"`

	// Статус и доступность
	IsActive  bool `json:"is_active" gorm:"default:true"`
	IsPopular bool `json:"is_popular" gorm:"default:false"`
}

// TableName задает имя таблицы для модели SubscriptionPlan
func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

// IsUnlimited проверяет, является ли лимит безлимитным
func IsUnlimited(limit int) bool {
	return limit == UnlimitedValue
}
