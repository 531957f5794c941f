package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend_medpos/api"
	"backend_medpos/config"
	"backend_medpos/database"
	"backend_medpos/middleware"
	"backend_medpos/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// initDB инициализирует подключение к базе данных
func initDB() {
	log.Println("🔧 Инициализация базы данных...")

	if err := database.CreateDatabaseIfNotExists(); err != nil {
		log.Fatal("❌ Ошибка при создании базы данных:", err)
	}

	if err := database.ConnectDatabase(); err != nil {
		log.Fatal("❌ Ошибка подключения к базе данных:", err)
	}

	log.Println("✅ База данных успешно инициализирована")
}

func main() {
	// Загружаем переменные окружения из .env файла
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Файл .env не найден, используются системные переменные окружения")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("❌ Ошибка загрузки конфигурации:", err)
	}

	initDB()
	db := database.GetDB()

	// Redis не обязателен: без него кэш метрик просто отключается
	if err := database.InitRedis(); err != nil {
		log.Printf("⚠️  Redis недоступен, кэширование отключено: %v", err)
	}

	// Сервисный слой
	cache := services.NewCacheService(database.GetRedis(), nil)
	notifications := services.NewNotificationService(db)
	notifications.TTLDays = cfg.Subscription.NotificationTTLDays

	usage := services.NewUsageService(db, cache)
	limits := services.NewLimitService(db, usage, notifications)
	usage.SetLimitService(limits)

	subscriptions := services.NewSubscriptionService(db, nil, notifications, cache)

	scheduler := services.NewSubscriptionScheduler(db, notifications)
	scheduler.GracePeriodDays = cfg.Subscription.GracePeriodDays
	scheduler.WarningDays = cfg.Subscription.WarningDays
	scheduler.PollInterval = cfg.Subscription.PollInterval

	maintenance := services.NewMaintenanceService(db, usage, notifications)

	// Фоновые процессы
	ctx, cancel := context.WithCancel(context.Background())
	scheduler.Start(ctx)
	if err := maintenance.Start(); err != nil {
		log.Fatal("❌ Ошибка запуска регламентных задач:", err)
	}

	// HTTP слой
	auth := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	tenant := middleware.NewTenantMiddleware(db)

	authAPI := api.NewAuthAPI(db, auth)
	planAPI := api.NewPlanAPI(subscriptions)
	subscriptionAPI := api.NewSubscriptionAPI(subscriptions, usage)
	usageAPI := api.NewUsageAPI(usage, limits)
	notificationAPI := api.NewNotificationAPI(notifications)
	userAPI := api.NewUserAPI(db, limits, usage)
	productAPI := api.NewProductAPI(db, limits, usage)
	branchAPI := api.NewBranchAPI(db, limits, usage)
	saleAPI := api.NewSaleAPI(db, limits, usage)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(cors.Default()) // Для избежания CORS-ошибок

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":   "success",
			"message":  "ok",
			"database": "connected",
		})
	})

	// Публичные роуты
	r.POST("/api/auth/login", authAPI.Login)
	r.GET("/api/plans", planAPI.GetPlans)
	r.GET("/api/plans/:id", planAPI.GetPlan)

	// Защищенные роуты
	protected := r.Group("/api")
	protected.Use(auth.RequireAuth(), tenant.SetTenant())
	{
		protected.GET("/auth/me", authAPI.GetCurrentUser)

		protected.GET("/subscriptions/current", subscriptionAPI.GetCurrentSubscription)
		protected.GET("/subscriptions/history", subscriptionAPI.GetSubscriptionHistory)
		protected.POST("/subscriptions", subscriptionAPI.Subscribe)
		protected.POST("/subscriptions/:id/payments", subscriptionAPI.ProcessPayment)
		protected.DELETE("/subscriptions/:id", subscriptionAPI.Cancel)
		protected.POST("/subscriptions/additional-users", subscriptionAPI.PurchaseAdditionalUsers)

		protected.GET("/usage/metrics", usageAPI.GetUsageMetrics)
		protected.GET("/usage/analytics", usageAPI.GetUsageAnalytics)
		protected.GET("/usage/alerts", usageAPI.GetLimitAlerts)
		protected.GET("/usage/limits/:resource", usageAPI.CheckLimit)

		protected.GET("/notifications", notificationAPI.GetNotifications)
		protected.PUT("/notifications/:id/read", notificationAPI.MarkAsRead)

		protected.GET("/users", userAPI.GetUsers)
		protected.POST("/users", userAPI.CreateUser)
		protected.DELETE("/users/:id", userAPI.DeactivateUser)

		protected.GET("/products", productAPI.GetProducts)
		protected.POST("/products", productAPI.CreateProduct)
		protected.DELETE("/products/:id", productAPI.DeactivateProduct)

		protected.GET("/branches", branchAPI.GetBranches)
		protected.POST("/branches", branchAPI.CreateBranch)
		protected.DELETE("/branches/:id", branchAPI.DeactivateBranch)

		protected.GET("/sales", saleAPI.GetSales)
		protected.POST("/sales", saleAPI.CreateSale)

		// Управление каталогом тарифов - только администраторы
		admin := protected.Group("")
		admin.Use(auth.RequireAdmin())
		{
			admin.POST("/plans", planAPI.CreatePlan)
			admin.PUT("/plans/:id", planAPI.UpdatePlan)
			admin.DELETE("/plans/:id", planAPI.DeactivatePlan)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: r,
	}

	go func() {
		log.Printf("🚀 Сервер запущен на порту %s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Ошибка HTTP сервера:", err)
		}
	}()

	// Корректное завершение: останавливаем фоновые процессы и HTTP сервер
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Завершение работы...")

	cancel()
	scheduler.Stop()
	maintenance.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Ошибка остановки HTTP сервера: %v", err)
	}

	log.Println("Сервер остановлен")
}
