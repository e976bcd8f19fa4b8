package util

import (
	"context"
	"time"
)

// Cache интерфейс для работы с Redis кешем с тегированной инвалидацией
// Используется для dependency injection и упрощения тестирования
type Cache interface {
	// Get возвращает (nil, nil) при промахе - промах не ошибка
	Get(ctx context.Context, key string) ([]byte, error)
	// Set сохраняет значение и привязывает ключ к тегам инвалидации
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error
	// InvalidateTag удаляет все ключи, привязанные к тегу
	InvalidateTag(ctx context.Context, tag string) error
	Close() error
}
