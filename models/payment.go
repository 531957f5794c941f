package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Статусы платежной транзакции
const (
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// PaymentTransaction представляет зафиксированный платеж за подписку.
// Сам платежный шлюз (мобильные деньги, карта, банковский перевод) -
// внешний компонент, здесь хранится только результат.
type PaymentTransaction struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Связи
	TenantID       uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index"`
	SubscriptionID uint      `json:"subscription_id" gorm:"index"`

	// Платежная информация
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency    string          `json:"currency" gorm:"default:'USD';type:varchar(3)"`
	Method      string          `json:"method" gorm:"type:varchar(50)"` // mobile_money, card, bank_transfer
	Status      string          `json:"status" gorm:"default:'completed';type:varchar(20)"`
	Reference   string          `json:"reference" gorm:"type:varchar(100)"`
	ProcessedAt *time.Time      `json:"processed_at"`
}

// TableName задает имя таблицы для модели PaymentTransaction
func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}
