package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Уровни важности уведомлений
const (
	NotificationSeverityInfo     = "info"
	NotificationSeverityWarning  = "warning"
	NotificationSeverityCritical = "critical"
)

// Типы уведомлений
const (
	NotificationTypeSubscriptionExpired = "subscription_expired"
	NotificationTypeGracePeriod         = "grace_period"
	NotificationTypeExpirationWarning   = "expiration_warning"
	NotificationTypeUserLimit           = "user_limit"
	NotificationTypeProductLimit        = "product_limit"
	NotificationTypeTransactionLimit    = "transaction_limit"
	NotificationTypeBranchLimit         = "branch_limit"
	NotificationTypeLimitApproaching    = "limit_approaching"
	NotificationTypeUpgradeRequired     = "upgrade_required"
)

// Notification представляет персистентное уведомление для пользователя.
// Клиенты опрашивают таблицу через API, живой доставки нет.
type Notification struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Получатель
	UserID   uint      `json:"user_id" gorm:"not null;index"`
	User     *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	TenantID uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index"`

	// Содержимое
	Title    string `json:"title" gorm:"not null;type:varchar(200)"`
	Message  string `json:"message" gorm:"type:text;not null"`
	Type     string `json:"type" gorm:"not null;type:varchar(50);index"`
	Severity string `json:"severity" gorm:"default:'info';type:varchar(20)"` // info, warning, critical

	// Состояние прочтения
	IsRead bool       `json:"is_read" gorm:"default:false;index"`
	ReadAt *time.Time `json:"read_at"`

	// Срок жизни. Просроченные записи удаляются фоновой задачей.
	ExpiresAt *time.Time `json:"expires_at" gorm:"index"`

	// Метаданные события (JSON) и ссылка на экран устранения проблемы
	Metadata  string `json:"metadata" gorm:"type:text"`
	ActionURL string `json:"action_url" gorm:"type:varchar(500)"`
}

// TableName задает имя таблицы для модели Notification
func (Notification) TableName() string {
	return "notifications"
}

// IsExpired проверяет, истек ли срок жизни уведомления
func (n *Notification) IsExpired(now time.Time) bool {
	return n.ExpiresAt != nil && n.ExpiresAt.Before(now)
}

// MarkAsRead помечает уведомление прочитанным
func (n *Notification) MarkAsRead(now time.Time) {
	n.IsRead = true
	n.ReadAt = &now
}

// GetSeverityDisplayName возвращает читаемое название уровня важности
func (n *Notification) GetSeverityDisplayName() string {
	switch n.Severity {
	case NotificationSeverityCritical:
		return "Critical"
	case NotificationSeverityWarning:
		return "Warning"
	default:
		return "Info"
	}
}
