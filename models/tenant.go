package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant представляет аптеку (tenant) в мультитенантной системе
type Tenant struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Основные поля аптеки
	Name      string `json:"name" gorm:"not null;type:varchar(100)"`
	Subdomain string `json:"subdomain" gorm:"uniqueIndex;type:varchar(100)"` // Поддомен для доступа
	License   string `json:"license" gorm:"type:varchar(100)"`               // Номер фармацевтической лицензии

	// Контактная информация
	ContactEmail  string `json:"contact_email" gorm:"type:varchar(100)"`
	ContactPhone  string `json:"contact_phone" gorm:"type:varchar(20)"`
	ContactPerson string `json:"contact_person" gorm:"type:varchar(100)"`

	// Адрес
	Address string `json:"address" gorm:"type:text"`
	City    string `json:"city" gorm:"type:varchar(100)"`
	Country string `json:"country" gorm:"type:varchar(100)"`

	// Настройки локализации
	Timezone string `json:"timezone" gorm:"default:'UTC';type:varchar(50)"`
	Currency string `json:"currency" gorm:"default:'USD';type:varchar(3)"`

	// Статус
	IsActive bool `json:"is_active" gorm:"default:true"`
}

// TableName задает имя таблицы для модели Tenant
func (Tenant) TableName() string {
	return "tenants"
}

// BeforeCreate вызывается перед созданием записи
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	// UUID генерируем на стороне приложения, чтобы миграции работали и на SQLite
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
