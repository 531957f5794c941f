package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы активности для журнала использования
const (
	ActivityTypeTransaction      = "transaction"
	ActivityTypeProductOperation = "product_operation"
	ActivityTypeUserOperation    = "user_operation"
	ActivityTypeBranchOperation  = "branch_operation"
	ActivityTypePrescription     = "prescription"
)

// UsageRecord представляет запись журнала активности аптеки.
// Записи только добавляются и используются исключительно для аналитики,
// лимиты считаются напрямую по доменным таблицам.
type UsageRecord struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	// Связи
	TenantID uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index"`
	UserID   *uint     `json:"user_id" gorm:"index"`

	// Тип активности и произвольные метаданные (JSON)
	ActivityType string `json:"activity_type" gorm:"not null;type:varchar(50);index"`
	Metadata     string `json:"metadata" gorm:"type:text"`
}

// TableName задает имя таблицы для модели UsageRecord
func (UsageRecord) TableName() string {
	return "usage_records"
}

// UsageSnapshot представляет ежедневный срез метрик использования.
// Снимки пишутся фоновой задачей и нужны для расчета темпов роста.
type UsageSnapshot struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	TenantID uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index"`

	Users        int `json:"users"`
	Products     int `json:"products"`
	Transactions int `json:"transactions"`
	Branches     int `json:"branches"`
	StorageGB    int `json:"storage_gb"`
}

// TableName задает имя таблицы для модели UsageSnapshot
func (UsageSnapshot) TableName() string {
	return "usage_snapshots"
}

// ResourceUsage описывает потребление одного ресурса относительно лимита
type ResourceUsage struct {
	Current    int     `json:"current"`
	Limit      int     `json:"limit"`
	Percentage float64 `json:"percentage"`
}

// UsageMetrics - снимок потребления всех метрируемых ресурсов аптеки.
// Вычисляется заново при каждом запросе, никогда не сохраняется.
type UsageMetrics struct {
	TenantID     uuid.UUID     `json:"tenant_id"`
	Users        ResourceUsage `json:"users"`
	Products     ResourceUsage `json:"products"`
	Transactions ResourceUsage `json:"transactions"`
	Branches     ResourceUsage `json:"branches"`
	Storage      ResourceUsage `json:"storage"`
}
