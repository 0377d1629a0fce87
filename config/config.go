package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"leadpilot/models"
)

var (
	DB        *gorm.DB
	AppConfig Config
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

// ProviderConfig points at one channel provider's gateway
type ProviderConfig struct {
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"-"`
}

type Config struct {
	Environment string `json:"environment"`
	ServerPort  string `json:"server_port"`
	SentryDSN   string `json:"-"`

	DBHost         string `json:"db_host"`
	DBPort         string `json:"db_port"`
	DBUser         string `json:"db_user"`
	DBPassword     string `json:"-"`
	DBName         string `json:"db_name"`
	DBSSLMode      string `json:"db_ssl_mode"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	Redis RedisConfig `json:"redis"`

	// Channel providers
	WhatsApp  ProviderConfig `json:"whatsapp"`
	Messenger ProviderConfig `json:"messenger"`
	Voice     ProviderConfig `json:"voice"`

	// Text generation backend
	OpenAIAPIKey string `json:"-"`
	OpenAIModel  string `json:"openai_model"`

	// Voice callback URL signing
	CallbackBaseURL       string `json:"callback_base_url"`
	CallbackSigningSecret string `json:"-"`

	DefaultTimezone  string `json:"default_timezone"`
	RateLimitWebhook int    `json:"rate_limit_webhook"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
}

func LoadConfig() error {
	AppConfig = Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  getEnv("SERVER_PORT", "5000"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "leadpilot"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},

		WhatsApp: ProviderConfig{
			Endpoint: getEnv("WHATSAPP_GATEWAY_URL", ""),
			APIKey:   getEnv("WHATSAPP_GATEWAY_KEY", ""),
		},
		Messenger: ProviderConfig{
			Endpoint: getEnv("MESSENGER_GATEWAY_URL", ""),
			APIKey:   getEnv("MESSENGER_GATEWAY_KEY", ""),
		},
		Voice: ProviderConfig{
			Endpoint: getEnv("VOICE_GATEWAY_URL", ""),
			APIKey:   getEnv("VOICE_GATEWAY_KEY", ""),
		},

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", ""),

		CallbackBaseURL:       getEnv("CALLBACK_BASE_URL", "http://localhost:5000"),
		CallbackSigningSecret: getEnv("CALLBACK_SIGNING_SECRET", ""),

		DefaultTimezone:  getEnv("DEFAULT_TIMEZONE", "America/Sao_Paulo"),
		RateLimitWebhook: getEnvAsInt("RATE_LIMIT_WEBHOOK", 120),
	}

	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.CallbackSigningSecret == "" {
		return fmt.Errorf("CALLBACK_SIGNING_SECRET is required")
	}
	if AppConfig.Environment == "production" && AppConfig.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required in production")
	}
	return nil
}

func ConnectDB() error {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := models.AutoMigrate(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	return nil
}

// DefaultLocation resolves the configured timezone, falling back to
// UTC when the zone name is unknown to the host.
func DefaultLocation() *time.Location {
	loc, err := time.LoadLocation(AppConfig.DefaultTimezone)
	if err != nil {
		log.Printf("unknown timezone %q, falling back to UTC", AppConfig.DefaultTimezone)
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
		log.Printf("invalid integer for %s, using default %d", key, fallback)
		return fallback
	}
	return value
}
