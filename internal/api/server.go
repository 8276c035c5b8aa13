package api

import (
	"fmt"
	"log"
	"net/http"

	"kidbook/internal/cache"
	"kidbook/internal/config"
	"kidbook/internal/database"
	"kidbook/internal/handlers"
	"kidbook/internal/messaging"
	"kidbook/internal/middleware"
	"kidbook/internal/models"
	"kidbook/internal/repository"
	"kidbook/internal/search"
	"kidbook/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server представляет HTTP сервер API
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	services *service.Services
	repos    *repository.Repositories
}

// NewServer создает новый экземпляр сервера
func NewServer(cfg *config.Config) *Server {
	// Устанавливаем режим Gin
	gin.SetMode(cfg.GinMode)

	// Подключаемся к базе данных
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Запускаем миграции
	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Подключаемся к NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}

	// Elasticsearch опционален, каталог переживает его отсутствие
	var esClient *search.ElasticsearchClient
	esClient, err = search.NewElasticsearchClient(config.LoadElasticsearchConfig())
	if err != nil {
		log.Printf("Elasticsearch unavailable, catalog search falls back to Postgres: %v", err)
		esClient = nil
	}

	// Valkey опционален, без него просто нет кеша
	valkeyClient, err := cache.NewValkeyClient()
	if err != nil {
		log.Printf("Valkey unavailable, continuing without cache: %v", err)
		valkeyClient = nil
	}

	// Создаем репозитории
	repos := repository.NewRepositories(db)

	// Создаем сервисы
	services := service.NewServices(repos, natsClient, esClient, valkeyClient)

	// Создаем роутер
	router := gin.Default()

	// Применяем middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	// Создаем сервер
	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		valkey:   valkeyClient,
		services: services,
		repos:    repos,
	}

	// Настраиваем роуты
	server.setupRoutes()

	return server
}

// setupRoutes настраивает все API роуты
func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services, s.valkey)

	parentOnly := middleware.RequireRole(s.repos.Users, models.RoleParent)
	venueOnly := middleware.RequireRole(s.repos.Users, models.RoleVenueAdmin)
	hrOnly := middleware.RequireRole(s.repos.Users, models.RoleHRAdmin)
	anyRole := middleware.RequireRole(s.repos.Users,
		models.RoleParent, models.RoleHRAdmin, models.RoleVenueAdmin)

	// API routes
	api := s.router.Group("/api")
	// Обязательная Basic Auth для всех API роутов
	api.Use(middleware.BasicAuth(s.repos.Users, s.valkey))
	{
		// Activities endpoints
		activities := api.Group("/activities")
		{
			activities.POST("", venueOnly, h.CreateActivity)
			activities.GET("", h.ListActivities)
			activities.GET("/:id", h.GetActivity)
			activities.GET("/:id/slots", h.ListSlotAvailability)
		}

		// Slots endpoints
		slots := api.Group("/slots")
		{
			slots.POST("", venueOnly, h.CreateSlot)
			slots.PATCH("/:id/cancel", venueOnly, h.CancelSlot)
			slots.PATCH("/:id/complete", venueOnly, h.CompleteSlot)
			slots.GET("/:id/waitlist", venueOnly, h.ListSlotWaitlist)
		}

		// Bookings endpoints
		bookings := api.Group("/bookings")
		{
			bookings.POST("", parentOnly, h.CreateBooking)
			bookings.GET("", parentOnly, h.ListBookings)
			bookings.GET("/:id", anyRole, h.GetBooking)
			bookings.PATCH("/confirm", venueOnly, h.ConfirmBooking)
			bookings.PATCH("/cancel", anyRole, h.CancelBooking)
			bookings.PATCH("/attendance", venueOnly, h.MarkAttendance)
		}

		// Waitlist endpoints
		waitlist := api.Group("/waitlist")
		{
			waitlist.POST("", parentOnly, h.JoinWaitlist)
			waitlist.GET("", parentOnly, h.ListMyWaitlist)
			waitlist.POST("/convert", parentOnly, h.ConvertWaitlist)
		}

		// Credits endpoints
		credits := api.Group("/credits")
		{
			credits.POST("/allocate", hrOnly, h.AllocateCredits)
			credits.POST("/adjust", hrOnly, h.AdjustCredits)
			credits.GET("/account", h.GetMyAccount)
			credits.GET("/accounts/:id/transactions", hrOnly, h.ListAccountTransactions)
			credits.GET("/accounts/:id/verify", hrOnly, h.VerifyCreditAccount)
			credits.GET("/report", hrOnly, h.CreditReport)
		}

		// Reports endpoints
		api.GET("/venues/:id/report", venueOnly, h.VenueReport)
	}

	// Health check endpoint
	s.router.GET("/health", s.healthCheck)

	// Prometheus metrics
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// healthCheck обрабатывает health check запросы, включая пинг базы
func (s *Server) healthCheck(c *gin.Context) {
	check := s.db.HealthCheck(c.Request.Context())

	status := http.StatusOK
	if check.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   check.Status,
		"service":  "kidbook-api",
		"version":  "1.0.0",
		"database": check,
	})
}

// Run запускает HTTP сервер
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.Printf("Error closing NATS connection: %v", err)
		}
	}

	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			log.Printf("Error closing Valkey connection: %v", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
			return err
		}
	}

	return nil
}
