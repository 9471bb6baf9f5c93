package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Payment  PaymentConfig
	Tracking TrackingConfig
	Orders   OrdersConfig
	CORS     CORSConfig
}

type CORSConfig struct {
	AllowedOrigins []string
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type PaymentConfig struct {
	PayPal    PayPalConfig
	SyncSpec  string // 미결 결제/환불 대사 주기 (cron spec)
	SyncBatch int    // 1회 대사 건수 상한
}

type PayPalConfig struct {
	ClientID  string
	Secret    string
	BaseURL   string
	ReturnURL string
	CancelURL string
}

type TrackingConfig struct {
	SeventeenTrack SeventeenTrackConfig
}

type SeventeenTrackConfig struct {
	APIKey    string
	ReplayTTL time.Duration // 웹훅 재전송 차단 유지 시간
}

type OrdersConfig struct {
	Timeout OrderTimeoutConfig
}

type OrderTimeoutConfig struct {
	TTL          time.Duration // 결제 대기 허용 시간
	SweepSpec    string        // 초과 주문 정리 주기 (cron spec)
	BatchSize    int           // 1회 정리 건수 상한
	CancelReason string        // 자동 취소 사유
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "admin"),
			Password:        getEnv("DB_PASSWORD", "1234"),
			DBName:          getEnv("DB_NAME", "fulfillment"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:    parseInt(getEnv("DB_MAX_IDLE_CONNS", "10"), 10),
			MaxOpenConns:    parseInt(getEnv("DB_MAX_OPEN_CONNS", "100"), 100),
			ConnMaxLifetime: parseDuration(getEnv("DB_CONN_MAX_LIFETIME", "30m"), 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
		},
		Payment: PaymentConfig{
			PayPal: PayPalConfig{
				ClientID:  getEnv("PAYPAL_CLIENT_ID", ""),
				Secret:    getEnv("PAYPAL_SECRET", ""),
				BaseURL:   getEnv("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
				ReturnURL: getEnv("PAYPAL_RETURN_URL", "http://localhost:8080/api/v1/payments/paypal/return"),
				CancelURL: getEnv("PAYPAL_CANCEL_URL", "http://localhost:8080/api/v1/payments/paypal/cancel"),
			},
			SyncSpec:  getEnv("PAYMENT_SYNC_SPEC", "@every 5m"),
			SyncBatch: parseInt(getEnv("PAYMENT_SYNC_BATCH", "50"), 50),
		},
		Tracking: TrackingConfig{
			SeventeenTrack: SeventeenTrackConfig{
				APIKey:    getEnv("SEVENTEENTRACK_API_KEY", ""),
				ReplayTTL: parseDuration(getEnv("SEVENTEENTRACK_REPLAY_TTL", "96h"), 96*time.Hour),
			},
		},
		Orders: OrdersConfig{
			Timeout: OrderTimeoutConfig{
				TTL:          parseDuration(getEnv("ORDER_TIMEOUT_TTL", "30m"), 30*time.Minute),
				SweepSpec:    getEnv("ORDER_TIMEOUT_SWEEP_SPEC", "@every 1m"),
				BatchSize:    parseInt(getEnv("ORDER_TIMEOUT_BATCH_SIZE", "100"), 100),
				CancelReason: getEnv("ORDER_TIMEOUT_CANCEL_REASON", "결제 시간 초과로 자동 취소"),
			},
		},
		CORS: CORSConfig{
			AllowedOrigins: strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return v
}
