package config

import (
	"fmt"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis (for club list caching)
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int
	CacheTTL      int // seconds

	// Server
	Port        string
	Environment string

	// Services
	ImportServiceURL string
	ClubServiceURL   string

	// Wizard sessions
	SessionMaxIdleMinutes int
	ReapIntervalMinutes   int
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	redisPort, _ := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	cacheTTL, _ := strconv.Atoi(getEnv("CACHE_TTL", "300")) // 5 minutes default
	maxIdle, _ := strconv.Atoi(getEnv("SESSION_MAX_IDLE_MINUTES", "60"))
	reapInterval, _ := strconv.Atoi(getEnv("SESSION_REAP_INTERVAL_MINUTES", "10"))

	return &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "license_console_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     redisPort,
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,
		CacheTTL:      cacheTTL,

		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Services
		ImportServiceURL: getEnv("IMPORT_SERVICE_URL", "http://localhost:8081"),
		ClubServiceURL:   getEnv("CLUB_SERVICE_URL", "http://localhost:8082"),

		// Wizard sessions
		SessionMaxIdleMinutes: maxIdle,
		ReapIntervalMinutes:   reapInterval,
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	// Use URL format for better pgx driver compatibility with SSL
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
