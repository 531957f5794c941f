package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Статусы подписки
const (
	SubscriptionStatusActive      = "active"
	SubscriptionStatusGracePeriod = "grace_period"
	SubscriptionStatusExpired     = "expired"
	SubscriptionStatusCancelled   = "cancelled"
)

// Subscription представляет подписку аптеки на тарифный план
type Subscription struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Связи
	TenantID uuid.UUID        `json:"tenant_id" gorm:"type:uuid;not null;index"`
	PlanID   uint             `json:"plan_id" gorm:"not null"`
	Plan     SubscriptionPlan `json:"plan" gorm:"foreignKey:PlanID"`

	// Период подписки. Инвариант: EndDate >= StartDate
	StartDate time.Time `json:"start_date" gorm:"not null"`
	EndDate   time.Time `json:"end_date" gorm:"not null;index"`

	// Статус подписки: active, grace_period, expired, cancelled
	Status      string `json:"status" gorm:"default:'active';type:varchar(20);index"`
	IsAutoRenew bool   `json:"is_auto_renew" gorm:"default:true"`
	IsActive    bool   `json:"is_active" gorm:"default:true"`

	// Платежная информация
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(10,2)"`
	LastPaymentDate *time.Time      `json:"last_payment_date"`
	NextPaymentDate *time.Time      `json:"next_payment_date"`
	PaymentMethod   string          `json:"payment_method" gorm:"type:varchar(50)"`
}

// TableName задает имя таблицы для модели Subscription
func (Subscription) TableName() string {
	return "subscriptions"
}

// IsEntitled проверяет, дает ли подписка право на работу в системе
func (s *Subscription) IsEntitled() bool {
	return s.Status == SubscriptionStatusActive || s.Status == SubscriptionStatusGracePeriod
}

// GraceDeadline возвращает момент окончания льготного периода
func (s *Subscription) GraceDeadline(graceDays int) time.Time {
	return s.EndDate.AddDate(0, 0, graceDays)
}

// AdditionalUserPurchase представляет докупленные пользовательские места
// сверх лимита тарифного плана. Несколько активных записей суммируются.
type AdditionalUserPurchase struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Связи
	TenantID uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index"`

	// Количество мест и окно действия
	NumberOfUsers int        `json:"number_of_users" gorm:"not null"`
	StartDate     time.Time  `json:"start_date" gorm:"not null"`
	EndDate       *time.Time `json:"end_date"` // NULL = бессрочно

	// Статус
	Status   string          `json:"status" gorm:"default:'active';type:varchar(20)"`
	IsActive bool            `json:"is_active" gorm:"default:true"`
	Amount   decimal.Decimal `json:"amount" gorm:"type:decimal(10,2)"`
}

// TableName задает имя таблицы для модели AdditionalUserPurchase
func (AdditionalUserPurchase) TableName() string {
	return "additional_user_purchases"
}

// IsValidAt проверяет, действительна ли покупка мест в указанный момент
func (p *AdditionalUserPurchase) IsValidAt(now time.Time) bool {
	if p.Status != "active" || !p.IsActive {
		return false
	}
	if p.StartDate.After(now) {
		return false
	}
	return p.EndDate == nil || !p.EndDate.Before(now)
}
