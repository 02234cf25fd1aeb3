package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ikkim/inventory-backend/config"
	"github.com/ikkim/inventory-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// NewClient connects to Redis and verifies the connection with a PING.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   1,
	})

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully")
	return client, nil
}

// KV adapts a go-redis client to the command set the key-value repositories use.
type KV struct {
	client *redis.Client
}

func NewKV(client *redis.Client) *KV {
	return &KV{client: client}
}

func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := k.client.Get(ctx, key).Result()
	if err == redis.Nil {
		// Key does not exist
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (k *KV) Set(ctx context.Context, key, value string) error {
	return k.client.Set(ctx, key, value, 0).Err()
}

func (k *KV) Del(ctx context.Context, keys ...string) (int64, error) {
	return k.client.Del(ctx, keys...).Result()
}

func (k *KV) SAdd(ctx context.Context, key string, members ...string) error {
	return k.client.SAdd(ctx, key, toArgs(members)...).Err()
}

func (k *KV) SRem(ctx context.Context, key string, members ...string) error {
	return k.client.SRem(ctx, key, toArgs(members)...).Err()
}

func (k *KV) SMembers(ctx context.Context, key string) ([]string, error) {
	return k.client.SMembers(ctx, key).Result()
}

func (k *KV) RPush(ctx context.Context, key string, values ...string) error {
	return k.client.RPush(ctx, key, toArgs(values)...).Err()
}

func (k *KV) LRem(ctx context.Context, key, value string) (int64, error) {
	return k.client.LRem(ctx, key, 0, value).Result()
}

func (k *KV) LRange(ctx context.Context, key string) ([]string, error) {
	return k.client.LRange(ctx, key, 0, -1).Result()
}

// Close closes the Redis connection
func (k *KV) Close() error {
	logger.Info("Closing Redis connection")
	return k.client.Close()
}

func toArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
