package repository

import (
	"context"
	"fmt"
	"time"

	"zamiweb/pkg/metrics"
	"zamiweb/search-service/internal/app/search/entity"

	"gorm.io/gorm"
)

// searchLogRepository реализует SearchLogRepository для работы с PostgreSQL через GORM
type searchLogRepository struct {
	db *gorm.DB
}

// NewSearchLogRepository создает новый репозиторий поисковой аналитики
func NewSearchLogRepository(db *gorm.DB) SearchLogRepository {
	return &searchLogRepository{db: db}
}

// Insert записывает выполненный поисковый запрос
// Вызывается после каждого поиска, ошибка записи не влияет на выдачу
func (r *searchLogRepository) Insert(ctx context.Context, log *entity.SearchQueryLog) error {
	timer := metrics.NewStoreTimer("search-service", metrics.StoreOpInsert, "search_query_logs")
	defer timer.ObserveDuration()

	result := r.db.WithContext(ctx).Create(log)
	if result.Error != nil {
		metrics.RecordStoreError("search-service", metrics.StoreOpInsert)
		return fmt.Errorf("failed to insert search log: %w", result.Error)
	}

	return nil
}

// TopSearches возвращает самые частые поисковые термы за период
// Пустые термы (фильтрация без текстового поиска) не учитываются
func (r *searchLogRepository) TopSearches(ctx context.Context, since time.Time, limit int) ([]entity.SearchTermStat, error) {
	var stats []entity.SearchTermStat

	result := r.db.WithContext(ctx).
		Model(&entity.SearchQueryLog{}).
		Select("search_term, COUNT(*) AS count").
		Where("search_term <> '' AND created_at >= ?", since).
		Group("search_term").
		Order("count DESC").
		Limit(limit).
		Scan(&stats)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to get top searches: %w", result.Error)
	}

	return stats, nil
}

// ZeroResultSearches возвращает термы, по которым ничего не нашлось
// Используется админкой для поиска дыр в каталоге
func (r *searchLogRepository) ZeroResultSearches(ctx context.Context, since time.Time, limit int) ([]entity.SearchTermStat, error) {
	var stats []entity.SearchTermStat

	result := r.db.WithContext(ctx).
		Model(&entity.SearchQueryLog{}).
		Select("search_term, COUNT(*) AS count").
		Where("search_term <> '' AND result_count = 0 AND created_at >= ?", since).
		Group("search_term").
		Order("count DESC").
		Limit(limit).
		Scan(&stats)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to get zero result searches: %w", result.Error)
	}

	return stats, nil
}
