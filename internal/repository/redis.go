package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ohbang/internal/config"
	"ohbang/internal/domain"

	"github.com/redis/go-redis/v9"
)

const prefKeyPrefix = "prefs:"

type RedisPreferenceRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

// NewRedisPreferenceRepository stores preferences under the "prefs:" prefix.
// A zero ttl keeps values forever.
func NewRedisPreferenceRepository(client *redis.Client, ttl time.Duration) *RedisPreferenceRepository {
	return &RedisPreferenceRepository{
		client: client,
		ttl:    ttl,
	}
}

func prefKey(key string) string {
	return prefKeyPrefix + key
}

func (r *RedisPreferenceRepository) Get(ctx context.Context, key string) (string, error) {
	if r.client == nil {
		return "", fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, prefKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrPreferenceNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get preference from redis: %w", err)
	}
	return val, nil
}

func (r *RedisPreferenceRepository) Set(ctx context.Context, key, value string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Set(ctx, prefKey(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set preference in redis: %w", err)
	}
	return nil
}

func (r *RedisPreferenceRepository) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, prefKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete preference from redis: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
