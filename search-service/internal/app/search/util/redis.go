package util

import (
	"context"
	"fmt"
	"time"

	"zamiweb/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

// Теги инвалидации кеша
// Инвалидация по тегу сносит все ключи, записанные под этим тегом
const (
	TagCategories = "tag:categories"
	TagFilters    = "tag:filters"
	TagProducts   = "tag:products"
)

// RedisClient обертка над Redis с тегированной инвалидацией
// Каждый Set регистрирует ключ в set-ах его тегов, InvalidateTag
// читает set и удаляет ключи одной командой
type RedisClient struct {
	client *redis.Client
}

func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// Get получает значение по ключу, промах возвращает (nil, nil)
func (r *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	timer := metrics.NewRedisTimer("search-service", metrics.RedisOpGet)
	defer timer.ObserveDuration()

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		metrics.RecordRedisError("search-service", metrics.RedisOpGet)
		return nil, fmt.Errorf("failed to get key from cache: %w", err)
	}

	return data, nil
}

// Set сохраняет значение с TTL и регистрирует ключ в set-ах тегов
// Используем Pipeline для батчевой отправки команд
func (r *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	timer := metrics.NewRedisTimer("search-service", metrics.RedisOpSet)
	defer timer.ObserveDuration()

	pipe := r.client.Pipeline()

	pipe.Set(ctx, key, value, ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, tag, key)
		// Тег живет дольше любого своего ключа, чтобы не потерять регистрацию
		pipe.Expire(ctx, tag, 24*time.Hour)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		metrics.RecordRedisError("search-service", metrics.RedisOpSet)
		return fmt.Errorf("failed to set key in cache: %w", err)
	}

	return nil
}

// InvalidateTag удаляет все ключи, зарегистрированные под тегом, и сам тег
func (r *RedisClient) InvalidateTag(ctx context.Context, tag string) error {
	keys, err := r.client.SMembers(ctx, tag).Result()
	if err != nil {
		return fmt.Errorf("failed to read tag members: %w", err)
	}

	pipe := r.client.Pipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, tag)

	if _, err := pipe.Exec(ctx); err != nil {
		metrics.RecordRedisError("search-service", metrics.RedisOpDel)
		return fmt.Errorf("failed to invalidate tag %s: %w", tag, err)
	}

	metrics.RecordCacheInvalidation("search-service", tag)
	return nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
