package config

import (
	"os"
	"strconv"
	"time"

	"eventplatform/internal/cache"
	"eventplatform/internal/database"
	"eventplatform/internal/messaging"
)

// Config содержит конфигурацию приложения
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	PageSize   int
	BcryptCost int

	Session       SessionConfig
	Database      database.Config
	NATS          messaging.Config
	Valkey        cache.Config
	Elasticsearch ElasticsearchConfig
}

// SessionConfig описывает cookie сессии
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	LoginURL   string
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8000"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		PageSize:   getEnvInt("PAGE_SIZE", 10),
		BcryptCost: getEnvInt("BCRYPT_COST", 12),

		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "sessionid"),
			TTL:        time.Duration(getEnvInt("SESSION_TTL_HOURS", 336)) * time.Hour,
			Secure:     getEnvBool("SESSION_COOKIE_SECURE", false),
			LoginURL:   getEnv("LOGIN_URL", "/usuarios/login/"),
		},

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "eventos"),
			Password:           getEnv("DB_PASSWORD", "eventos"),
			DBName:             getEnv("DB_NAME", "eventos"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			Enabled:   getEnvBool("NATS_ENABLED", false),
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "eventos"),
			ClientID:  getEnv("NATS_CLIENT_ID", "eventos-api"),
		},

		Valkey: cache.Config{
			Addr:      getEnv("VALKEY_ADDR", "localhost:6379"),
			Password:  os.Getenv("VALKEY_PASSWORD"),
			DB:        getEnvInt("VALKEY_DB", 0),
			KeyPrefix: getEnv("VALKEY_SESSION_PREFIX", "session:"),
		},

		Elasticsearch: LoadElasticsearchConfig(),
	}
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленное значение переменной окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
