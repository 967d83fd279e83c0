package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"eventplatform/internal/cache"
	"eventplatform/internal/config"
	"eventplatform/internal/database"
	"eventplatform/internal/handlers"
	"eventplatform/internal/logger"
	"eventplatform/internal/messaging"
	"eventplatform/internal/metrics"
	"eventplatform/internal/middleware"
	"eventplatform/internal/repository"
	"eventplatform/internal/search"
	"eventplatform/internal/service"

	"github.com/gin-gonic/gin"
)

// Server представляет HTTP сервер приложения
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	es       *search.ElasticsearchClient
	metrics  *metrics.Metrics
	services *service.Services
}

// NewServer создает новый экземпляр сервера
func NewServer(cfg *config.Config) (*Server, error) {
	// Устанавливаем режим Gin
	gin.SetMode(cfg.GinMode)

	// Подключаемся к базе данных
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Запускаем миграции
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Сессии хранятся в Valkey
	valkey, err := cache.NewValkeyClient(cfg.Valkey)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}

	// Подключаемся к NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		valkey.Close()
		db.Close()
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	m := metrics.New()
	repos := repository.NewRepositories(db)

	deps := service.Deps{
		Events:        repos.Events,
		EventTypes:    repos.EventTypes,
		Registrations: repos.Registrations,
		Users:         repos.Users,
		Sessions:      valkey,
		Publisher:     natsClient,
		Metrics:       m,
		PageSize:      cfg.PageSize,
		BcryptCost:    cfg.BcryptCost,
		SessionTTL:    cfg.Session.TTL,
	}

	// Поиск через Elasticsearch опционален, без него работает ILIKE
	var es *search.ElasticsearchClient
	if cfg.Elasticsearch.Enabled {
		es, err = search.NewElasticsearchClient(cfg.Elasticsearch)
		if err != nil {
			logger.Get().Warn("Elasticsearch unavailable, falling back to SQL search", "error", err)
			es = nil
		} else {
			deps.Searcher = es
			deps.Indexer = es
		}
	}

	server := &Server{
		router:   gin.New(),
		config:   cfg,
		db:       db,
		nats:     natsClient,
		valkey:   valkey,
		es:       es,
		metrics:  m,
		services: service.NewServices(deps),
	}

	server.setupRoutes()
	return server, nil
}

// setupRoutes настраивает middleware и роуты
func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.Metrics(s.metrics))
	s.router.Use(middleware.Timeout(s.config.RequestTimeout))

	// Служебные эндпоинты
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	h := handlers.NewHandlers(s.services, handlers.CookieConfig{
		Name:     s.config.Session.CookieName,
		TTL:      s.config.Session.TTL,
		Secure:   s.config.Session.Secure,
		LoginURL: s.config.Session.LoginURL,
	})
	h.Register(s.router)
}

// healthCheck обрабатывает health check запросы
func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	db := s.db.HealthCheck(ctx)
	s.db.ValidateConnectionPool()

	status := http.StatusOK
	components := gin.H{"database": db}

	if err := s.valkey.HealthCheck(ctx); err != nil {
		status = http.StatusServiceUnavailable
		components["valkey"] = gin.H{"status": "unhealthy", "error": err.Error()}
	} else {
		components["valkey"] = gin.H{"status": "healthy"}
	}

	if s.es != nil {
		if err := s.es.HealthCheck(ctx); err != nil {
			// поиск деградирует до SQL, сервис остается рабочим
			components["elasticsearch"] = gin.H{"status": "degraded", "error": err.Error()}
		} else {
			components["elasticsearch"] = gin.H{"status": "healthy"}
		}
	}

	components["nats"] = gin.H{"enabled": s.nats.Enabled()}

	if db.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":     http.StatusText(status),
		"service":    "eventos-api",
		"components": components,
	})
}

// Services возвращает сервисы для CLI-команд
func (s *Server) Services() *service.Services {
	return s.services
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			logger.Get().Error("Error closing NATS connection", "error", err)
		}
	}

	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			logger.Get().Error("Error closing Valkey connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
