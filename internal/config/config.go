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
	DBDSN       string
	HTTPAddr    string
	Environment string

	// Платёжный шлюз
	GatewayURL           string
	GatewayAPIKey        string
	GatewayWebhookSecret string
	GatewayRetryAttempts uint64
	Currency             string

	// Политика жизненного цикла брони (операторские параметры)
	HoldWindow         time.Duration // Сколько бронь висит в accepted без оплаты до автоотмены
	PaymentMaxAttempts int           // Подряд идущих неудач оплаты до принудительной отмены

	MigrationsPath string

	// Telegram-уведомления (опционально)
	TelegramToken string
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	cfg := &Config{
		DBDSN:                os.Getenv("DB_DSN"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		Environment:          getEnv("ENV", "development"),
		GatewayURL:           os.Getenv("PAYMENT_GATEWAY_URL"),
		GatewayAPIKey:        os.Getenv("PAYMENT_GATEWAY_API_KEY"),
		GatewayWebhookSecret: os.Getenv("PAYMENT_GATEWAY_WEBHOOK_SECRET"),
		Currency:             getEnv("CURRENCY", "EUR"),
		MigrationsPath:       getEnv("MIGRATIONS_PATH", "migrations"),
		TelegramToken:        os.Getenv("TELEGRAM_TOKEN"),
	}

	var err error
	if cfg.HoldWindow, err = getEnvDuration("HOLD_WINDOW", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PaymentMaxAttempts, err = getEnvInt("PAYMENT_MAX_ATTEMPTS", 2); err != nil {
		return nil, err
	}
	retries, err := getEnvInt("GATEWAY_RETRY_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	cfg.GatewayRetryAttempts = uint64(retries)

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("PAYMENT_GATEWAY_URL is required but not set")
	}
	if cfg.HoldWindow <= 0 {
		return nil, fmt.Errorf("HOLD_WINDOW must be positive")
	}
	if cfg.PaymentMaxAttempts < 1 {
		return nil, fmt.Errorf("PAYMENT_MAX_ATTEMPTS must be at least 1")
	}

	log.Printf("Config loaded\n")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 24h: %w", key, err)
	}
	return parsed, nil
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, nil
}
