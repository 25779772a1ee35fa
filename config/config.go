package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Hub      HubConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Monitor  MonitorConfig
	App      AppConfig
}

type ServerConfig struct {
	Port   string
	APIKey string
}

type HubConfig struct {
	BaseURL string
	Token   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DatabaseConfig configures the optional event-log database. When Host is
// empty the event log is disabled and the service runs on redis alone.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

type MonitorConfig struct {
	IntervalMinutes  int
	RecurringEnabled bool
	SettleDelay      time.Duration
}

type AppConfig struct {
	Name        string
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:   getEnv("PORT", "8080"),
			APIKey: getEnv("API_KEY", ""),
		},
		Hub: HubConfig{
			BaseURL: getEnv("HUB_API_URL", "http://localhost:4859"),
			Token:   getEnv("HUB_API_TOKEN", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "flowwatch"),
		},
		Monitor: MonitorConfig{
			IntervalMinutes:  getEnvAsInt("CHECK_INTERVAL_MINUTES", 5),
			RecurringEnabled: getEnvAsBool("CHECK_RECURRING", true),
			SettleDelay:      time.Duration(getEnvAsInt("CHECK_SETTLE_SECONDS", 15)) * time.Second,
		},
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Flow Watch"),
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Hub.BaseURL == "" {
		return fmt.Errorf("HUB_API_URL is required")
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}

	if c.Monitor.IntervalMinutes < 1 {
		return fmt.Errorf("CHECK_INTERVAL_MINUTES must be positive")
	}

	return nil
}

// DSN builds a postgres connection string, or "" when no database is
// configured.
func (c *Config) DSN() string {
	if c.Database.Host == "" {
		return ""
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.Name)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}
