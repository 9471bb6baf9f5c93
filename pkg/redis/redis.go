package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/eason8811/international-shopping-sub004/config"
	"github.com/eason8811/international-shopping-sub004/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// DedupeState 웹훅 중복 수신 검사 결과
type DedupeState string

const (
	DedupeEntered          DedupeState = "ENTERED"           // 최초 수신, 처리 진행
	DedupeProcessing       DedupeState = "PROCESSING"        // 동일 페이로드 처리 중
	DedupeAlreadyProcessed DedupeState = "ALREADY_PROCESSED" // 처리 완료된 재전송
)

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		return client.Close()
	}
	return nil
}

// TryEnterProcessing claims a webhook payload for processing. The in-flight
// claim expires on its own so a crashed worker does not block the retry that
// the carrier sends later.
func TryEnterProcessing(ctx context.Context, key string, inflightTTL time.Duration) (DedupeState, error) {
	done, err := client.Exists(ctx, key+":done").Result()
	if err != nil {
		logger.Error("Failed to check webhook dedupe key", err, map[string]interface{}{
			"key": key,
		})
		return "", err
	}
	if done > 0 {
		return DedupeAlreadyProcessed, nil
	}

	ok, err := client.SetNX(ctx, key, "processing", inflightTTL).Result()
	if err != nil {
		logger.Error("Failed to claim webhook dedupe key", err, map[string]interface{}{
			"key": key,
		})
		return "", err
	}
	if !ok {
		return DedupeProcessing, nil
	}

	logger.Debug("Webhook payload claimed for processing", map[string]interface{}{
		"key": key,
	})
	return DedupeEntered, nil
}

// MarkProcessed records a payload as fully handled so replays within the
// retention window are dropped without touching the database.
func MarkProcessed(ctx context.Context, key string, retention time.Duration) error {
	if err := client.Set(ctx, key+":done", "1", retention).Err(); err != nil {
		logger.Error("Failed to mark webhook payload as processed", err, map[string]interface{}{
			"key": key,
		})
		return err
	}
	return client.Del(ctx, key).Err()
}

// ClearProcessing releases the in-flight claim after a failed attempt so the
// carrier's retry can be processed again.
func ClearProcessing(ctx context.Context, key string) error {
	return client.Del(ctx, key).Err()
}
