package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Статусы продажи
const (
	SaleStatusCompleted = "completed"
	SaleStatusPending   = "pending"
	SaleStatusRefunded  = "refunded"
)

// Sale представляет продажу (кассовую транзакцию).
// Лимит транзакций считается по завершенным продажам текущего календарного месяца.
type Sale struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Основные поля
	ReceiptNumber string          `json:"receipt_number" gorm:"type:varchar(50);index"`
	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2)"`
	Status        string          `json:"status" gorm:"default:'completed';type:varchar(20);index"`

	// Связи
	TenantID uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index"`
	BranchID *uint     `json:"branch_id" gorm:"index"`
	UserID   *uint     `json:"user_id" gorm:"index"`
}

// TableName задает имя таблицы для модели Sale
func (Sale) TableName() string {
	return "sales"
}

// Patient представляет пациента аптеки.
// Нужен ядру только для оценки занимаемого хранилища.
type Patient struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	FullName string `json:"full_name" gorm:"not null;type:varchar(200)"`
	Phone    string `json:"phone" gorm:"type:varchar(20)"`

	TenantID uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index"`
}

// TableName задает имя таблицы для модели Patient
func (Patient) TableName() string {
	return "patients"
}

// Prescription представляет рецепт пациента
type Prescription struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	PatientID  uint   `json:"patient_id" gorm:"index"`
	DoctorName string `json:"doctor_name" gorm:"type:varchar(200)"`
	Status     string `json:"status" gorm:"default:'open';type:varchar(20)"`

	TenantID uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index"`
}

// TableName задает имя таблицы для модели Prescription
func (Prescription) TableName() string {
	return "prescriptions"
}
