package services

import (
	"log"

	"backend_medpos/models"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// MaintenanceService выполняет регламентные фоновые задачи по расписанию:
// ежедневные снимки потребления (основа для темпов роста в аналитике)
// и чистку протухших уведомлений
type MaintenanceService struct {
	DB            *gorm.DB
	usage         *UsageService
	notifications *NotificationService
	cron          *cron.Cron
}

// NewMaintenanceService создает новый экземпляр MaintenanceService
func NewMaintenanceService(db *gorm.DB, usage *UsageService, notifications *NotificationService) *MaintenanceService {
	return &MaintenanceService{
		DB:            db,
		usage:         usage,
		notifications: notifications,
		cron:          cron.New(),
	}
}

// Start регистрирует задачи и запускает планировщик cron
func (s *MaintenanceService) Start() error {
	// Снимки потребления - каждый день в 02:00
	if _, err := s.cron.AddFunc("0 2 * * *", s.TakeUsageSnapshots); err != nil {
		return err
	}

	// Чистка протухших уведомлений - каждый день в 03:00
	if _, err := s.cron.AddFunc("0 3 * * *", s.CleanupExpiredNotifications); err != nil {
		return err
	}

	s.cron.Start()
	log.Println("Сервис регламентных задач запущен")
	return nil
}

// Stop останавливает планировщик и дожидается завершения текущих задач
func (s *MaintenanceService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Сервис регламентных задач остановлен")
}

// TakeUsageSnapshots снимает метрики потребления всех активных аптек.
// Сбой на одной аптеке не прерывает обход.
func (s *MaintenanceService) TakeUsageSnapshots() {
	var tenants []models.Tenant
	if err := s.DB.Where("is_active = ?", true).Find(&tenants).Error; err != nil {
		log.Printf("Ошибка получения списка аптек для снимков: %v", err)
		return
	}

	taken := 0
	for _, tenant := range tenants {
		if err := s.usage.TakeSnapshot(tenant.ID); err != nil {
			log.Printf("Ошибка снимка потребления аптеки %s: %v", tenant.ID, err)
			continue
		}
		taken++
	}
	log.Printf("Снимки потребления: %d из %d аптек", taken, len(tenants))
}

// CleanupExpiredNotifications удаляет уведомления с истекшим сроком жизни
func (s *MaintenanceService) CleanupExpiredNotifications() {
	deleted, err := s.notifications.CleanupExpired()
	if err != nil {
		log.Printf("Ошибка чистки уведомлений: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("Удалено %d протухших уведомлений", deleted)
	}
}
