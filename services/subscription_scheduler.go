package services

import (
	"context"
	"log"
	"sync"
	"time"

	"backend_medpos/models"

	"gorm.io/gorm"
)

// SubscriptionScheduler - фоновый процесс жизненного цикла подписок.
// Раз в интервал опроса переводит подписки по состояниям (active ->
// grace_period -> expired) и рассылает ступенчатые предупреждения об
// истечении. Каждый переход защищен предикатом по статусу и дате, поэтому
// повторный проход и рестарт процесса безопасны без отдельного учета
// обработанных строк.
type SubscriptionScheduler struct {
	DB            *gorm.DB
	notifications *NotificationService

	// Длина льготного периода в днях
	GracePeriodDays int
	// Дни до истечения, в которые рассылаются предупреждения (например 7, 3, 1)
	WarningDays []int
	// Интервал между итерациями
	PollInterval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSubscriptionScheduler создает новый экземпляр SubscriptionScheduler
func NewSubscriptionScheduler(db *gorm.DB, notifications *NotificationService) *SubscriptionScheduler {
	return &SubscriptionScheduler{
		DB:              db,
		notifications:   notifications,
		GracePeriodDays: 7,
		WarningDays:     []int{7, 3, 1},
		PollInterval:    time.Hour,
	}
}

// Start запускает фоновый цикл. Первая итерация выполняется сразу,
// последующие - по тикеру. Остановка - через отмену контекста или Stop.
func (s *SubscriptionScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		log.Printf("Планировщик подписок запущен (интервал %s, льготный период %d дн.)",
			s.PollInterval, s.GracePeriodDays)

		ticker := time.NewTicker(s.PollInterval)
		defer ticker.Stop()

		s.RunIteration()

		for {
			select {
			case <-ctx.Done():
				log.Println("Планировщик подписок остановлен")
				return
			case <-ticker.C:
				s.RunIteration()
			}
		}
	}()
}

// Stop останавливает цикл и дожидается завершения текущей итерации
func (s *SubscriptionScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// RunIteration выполняет один полный проход по подпискам. Любая паника
// внутри итерации гасится, чтобы не убить фоновую горутину; частичные
// сбои доберет следующий проход.
func (s *SubscriptionScheduler) RunIteration() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Паника в итерации планировщика подписок: %v", r)
		}
	}()

	// Свежая сессия на итерацию: планировщик не делит состояние
	// запросов с обработчиками HTTP
	db := s.DB.Session(&gorm.Session{NewDB: true})
	now := time.Now().UTC()

	s.transitionExpired(db, now)
	s.transitionGracePeriod(db, now)
	s.sendExpirationWarnings(db, now)
}

// transitionExpired переводит в expired подписки, у которых льготный период
// закончился. Подписки в active, пропущенные прошлыми проходами (простой
// процесса дольше льготного периода), переводятся сразу в expired.
func (s *SubscriptionScheduler) transitionExpired(db *gorm.DB, now time.Time) {
	graceCutoff := now.AddDate(0, 0, -s.GracePeriodDays)

	var subscriptions []models.Subscription
	err := db.Where("status IN ? AND end_date < ?",
		[]string{models.SubscriptionStatusActive, models.SubscriptionStatusGracePeriod},
		graceCutoff).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Ошибка выборки истекших подписок: %v", err)
		return
	}

	for _, subscription := range subscriptions {
		updates := map[string]interface{}{
			"status":    models.SubscriptionStatusExpired,
			"is_active": false,
		}
		if err := db.Model(&models.Subscription{}).
			Where("id = ?", subscription.ID).
			Updates(updates).Error; err != nil {
			log.Printf("Ошибка перевода подписки %d в expired: %v", subscription.ID, err)
			continue
		}

		log.Printf("Подписка %d аптеки %s переведена в expired (end_date %s)",
			subscription.ID, subscription.TenantID, subscription.EndDate.Format("2006-01-02"))
		s.notifications.NotifySubscriptionExpired(subscription.TenantID, &subscription)
	}
}

// transitionGracePeriod переводит в grace_period активные подписки,
// чья дата окончания уже прошла, но льготное окно еще открыто
func (s *SubscriptionScheduler) transitionGracePeriod(db *gorm.DB, now time.Time) {
	graceCutoff := now.AddDate(0, 0, -s.GracePeriodDays)

	var subscriptions []models.Subscription
	err := db.Where("status = ? AND end_date < ? AND end_date >= ?",
		models.SubscriptionStatusActive, now, graceCutoff).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Ошибка выборки подписок для льготного периода: %v", err)
		return
	}

	for _, subscription := range subscriptions {
		if err := db.Model(&models.Subscription{}).
			Where("id = ?", subscription.ID).
			Update("status", models.SubscriptionStatusGracePeriod).Error; err != nil {
			log.Printf("Ошибка перевода подписки %d в grace_period: %v", subscription.ID, err)
			continue
		}

		log.Printf("Подписка %d аптеки %s переведена в grace_period до %s",
			subscription.ID, subscription.TenantID,
			subscription.GraceDeadline(s.GracePeriodDays).Format("2006-01-02"))
		s.notifications.NotifyGracePeriodStarted(subscription.TenantID, &subscription, s.GracePeriodDays)
	}
}

// sendExpirationWarnings рассылает предупреждения активным подпискам,
// до истечения которых осталось не больше самого дальнего порога.
// Статус подписки предупреждения не меняют, поэтому по мере приближения
// срока одна подписка получит предупреждение каждого порога.
func (s *SubscriptionScheduler) sendExpirationWarnings(db *gorm.DB, now time.Time) {
	maxDays := 0
	for _, d := range s.WarningDays {
		if d > maxDays {
			maxDays = d
		}
	}
	if maxDays == 0 {
		return
	}

	horizon := now.AddDate(0, 0, maxDays)

	var subscriptions []models.Subscription
	err := db.Where("status = ? AND end_date > ? AND end_date <= ?",
		models.SubscriptionStatusActive, now, horizon).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Ошибка выборки подписок для предупреждений: %v", err)
		return
	}

	for _, subscription := range subscriptions {
		daysLeft := daysUntil(now, subscription.EndDate)
		if !withinWarningCohort(daysLeft, s.WarningDays) {
			continue
		}
		s.notifications.NotifyExpirationWarning(subscription.TenantID, &subscription, daysLeft)
	}
}

// daysUntil считает оставшиеся до истечения полные или частичные дни
// (округление вверх: 12 часов до срока - это 1 день)
func daysUntil(now, endDate time.Time) int {
	remaining := endDate.Sub(now)
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// withinWarningCohort сообщает, попадает ли остаток дней в один из порогов
func withinWarningCohort(daysLeft int, warningDays []int) bool {
	for _, d := range warningDays {
		if daysLeft <= d {
			return true
		}
	}
	return false
}
