package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Роли пользователей
const (
	RoleOwner      = "owner"
	RoleAdmin      = "admin"
	RolePharmacist = "pharmacist"
	RoleCashier    = "cashier"
)

// User представляет пользователя аптеки
type User struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Основные поля
	Username string `json:"username" gorm:"uniqueIndex;not null"`
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-" gorm:"not null"` // Пароль не возвращается в JSON

	// Дополнительные поля
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role" gorm:"default:'cashier';type:varchar(30);index"`
	IsActive  bool   `json:"is_active" gorm:"default:true"`

	LastLoginAt *time.Time `json:"last_login_at"`

	// Мультитенантность
	TenantID uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index"`
}

// TableName задает имя таблицы для модели User
func (User) TableName() string {
	return "users"
}

// IsAdministrator проверяет, является ли пользователь администратором аптеки
func (u *User) IsAdministrator() bool {
	return u.Role == RoleAdmin || u.Role == RoleOwner
}

// SetPassword хэширует и устанавливает пароль пользователя
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

// CheckPassword проверяет пароль пользователя
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}
