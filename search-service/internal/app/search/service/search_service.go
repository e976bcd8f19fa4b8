package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"zamiweb/pkg/logger"
	"zamiweb/pkg/metrics"
	"zamiweb/search-service/internal/app/search/entity"
	"zamiweb/search-service/internal/app/search/repository"
	"zamiweb/search-service/internal/app/search/util"

	"github.com/google/uuid"
)

var (
	// Ошибки бизнес-логики для обработки в handlers
	ErrInvalidScope = errors.New("unknown cache scope")
)

const (
	serviceName = "search-service"

	categoriesCacheKey    = "categories:all"
	filterDataCachePrefix = "filters:"

	// Дерево категорий и схемы - чистые функции от редко меняющихся данных,
	// товарные выдачи меняются чаще из-за цен и остатков
	categoriesCacheTTL = time.Hour
	filterDataCacheTTL = time.Hour
	productsCacheTTL   = 2 * time.Minute
)

// SearchService реализует движок фильтрации и фасетного поиска витрины
// Координирует репозитории MongoDB, Redis кеш и поисковую аналитику в PostgreSQL
type SearchService struct {
	categoryRepo  repository.CategoryRepository
	brandRepo     repository.BrandRepository
	productRepo   repository.ProductRepository
	searchLogRepo repository.SearchLogRepository
	cache         util.Cache
}

// NewSearchService создает новый сервис поиска с внедрением зависимостей
func NewSearchService(
	categoryRepo repository.CategoryRepository,
	brandRepo repository.BrandRepository,
	productRepo repository.ProductRepository,
	searchLogRepo repository.SearchLogRepository,
	cache util.Cache,
) *SearchService {
	return &SearchService{
		categoryRepo:  categoryRepo,
		brandRepo:     brandRepo,
		productRepo:   productRepo,
		searchLogRepo: searchLogRepo,
		cache:         cache,
	}
}

// GetProducts выполняет поисковый запрос витрины и возвращает страницу товаров
// Результат кешируется по полному нормализованному запросу на короткий TTL
func (s *SearchService) GetProducts(ctx context.Context, req *entity.FilterRequest) (*entity.ProductsResponse, error) {
	req.Normalize()
	timer := metrics.NewTimer()

	cacheKey := req.CacheKey()
	if data, err := s.cache.Get(ctx, cacheKey); err == nil && data != nil {
		var response entity.ProductsResponse
		if err := json.Unmarshal(data, &response); err == nil {
			metrics.RecordCacheHit(serviceName, "products")
			return &response, nil
		}
	}
	metrics.RecordCacheMiss(serviceName, "products")

	query, err := s.compileQuery(ctx, req)
	if err != nil {
		return nil, err
	}

	// Пустой категорийный срез замыкается в ноль результатов
	// без единого обращения к коллекции товаров
	// В аналитику такой запрос попадает наравне с обычным:
	// именно эти термы всплывают в отчете zero-results
	if len(query.CategoryIDs) == 0 {
		metrics.RecordSearch(serviceName, string(req.Sort), req.Search != "", true)
		s.recordSearchLog(ctx, req, 0, timer.Duration())
		return &entity.ProductsResponse{Products: []entity.Product{}}, nil
	}

	result, err := s.productRepo.Search(ctx, query, req.Sort, req.Offset(), req.PerPage)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	// maxPrice считается по категорийному срезу до остальных фильтров:
	// выбор бренда не должен сжимать границу ценового слайдера
	maxPrice, err := s.productRepo.MaxPrice(ctx, query.CategoryIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get max price: %w", err)
	}

	response := &entity.ProductsResponse{
		Products:   result.Products,
		TotalCount: result.Total,
		MaxPrice:   maxPrice,
		HasMore:    int64(req.Offset()+len(result.Products)) < result.Total,
	}
	if response.Products == nil {
		response.Products = []entity.Product{}
	}

	if data, err := json.Marshal(response); err == nil {
		if err := s.cache.Set(ctx, cacheKey, data, productsCacheTTL, util.TagProducts); err != nil {
			// Данные уже получены из БД, проблемы с кешем не критичны
			logger.Warn().Err(err).Msg("Failed to cache products response")
		}
	}

	metrics.RecordSearch(serviceName, string(req.Sort), req.Search != "", response.TotalCount == 0)
	s.recordSearchLog(ctx, req, response.TotalCount, timer.Duration())

	return response, nil
}

// GetFilterData возвращает данные сайдбара фильтров для категории:
// границы цен, подкатегории, бренды и фасеты спецификаций
func (s *SearchService) GetFilterData(ctx context.Context, categorySlug string) (*entity.FilterData, error) {
	categorySlug = strings.ToLower(strings.TrimSpace(categorySlug))

	cacheKey := filterDataCachePrefix + categorySlug
	if data, err := s.cache.Get(ctx, cacheKey); err == nil && data != nil {
		var filterData entity.FilterData
		if err := json.Unmarshal(data, &filterData); err == nil {
			metrics.RecordCacheHit(serviceName, "filters")
			return &filterData, nil
		}
	}
	metrics.RecordCacheMiss(serviceName, "filters")

	filterData := &entity.FilterData{
		Subcategories:  []entity.Category{},
		Brands:         []string{},
		Specifications: []entity.SpecificationFacet{},
	}

	// Неизвестная категория дает пустой сайдбар, не ошибку:
	// битый URL параметр не должен ронять страницу
	// Slug разрешается точечной выборкой по индексу, чтобы мусорные
	// запросы не тянули на холодном кеше все дерево категорий
	root, err := s.categoryRepo.GetBySlug(ctx, categorySlug)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return filterData, nil
		}
		return nil, fmt.Errorf("failed to resolve category: %w", err)
	}

	categories, err := s.loadCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	scope := descendantIDs(categories, root.ID)

	filterData.Subcategories = directChildren(categories, root.ID)

	minPrice, maxPrice, err := s.productRepo.PriceBounds(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to get price bounds: %w", err)
	}
	filterData.MinPrice = minPrice
	filterData.MaxPrice = maxPrice

	brands, err := s.candidateBrands(ctx, scope)
	if err != nil {
		return nil, err
	}
	filterData.Brands = brands

	filterData.Specifications = buildSpecFacets(schemaRoot(categories, root).Specifications)

	if data, err := json.Marshal(filterData); err == nil {
		if err := s.cache.Set(ctx, cacheKey, data, filterDataCacheTTL, util.TagFilters); err != nil {
			logger.Warn().Err(err).Msg("Failed to cache filter data")
		}
	}

	return filterData, nil
}

// candidateBrands возвращает имена активных брендов, встречающихся
// среди товаров категорийного среза
// Товары могут ссылаться на удаленный или неактивный бренд - такие ссылки
// молча выпадают из списка
func (s *SearchService) candidateBrands(ctx context.Context, scope []uuid.UUID) ([]string, error) {
	brandIDs, err := s.productRepo.DistinctBrandIDs(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate brand ids: %w", err)
	}
	if len(brandIDs) == 0 {
		return []string{}, nil
	}

	brands, err := s.brandRepo.GetByIDs(ctx, brandIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load brands: %w", err)
	}

	names := make([]string, 0, len(brands))
	for _, brand := range brands {
		if brand.IsActive {
			names = append(names, brand.Name)
		}
	}

	return names, nil
}

// loadCategories загружает все категории с кешированием в Redis
// Сначала проверяет кеш, на промахе грузит из MongoDB и кеширует
func (s *SearchService) loadCategories(ctx context.Context) ([]entity.Category, error) {
	if data, err := s.cache.Get(ctx, categoriesCacheKey); err == nil && data != nil {
		var categories []entity.Category
		if err := json.Unmarshal(data, &categories); err == nil {
			metrics.RecordCacheHit(serviceName, "categories")
			return categories, nil
		}
	}
	metrics.RecordCacheMiss(serviceName, "categories")

	categories, err := s.categoryRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(categories); err == nil {
		if err := s.cache.Set(ctx, categoriesCacheKey, data, categoriesCacheTTL, util.TagCategories); err != nil {
			logger.Warn().Err(err).Msg("Failed to cache categories")
		}
	}

	return categories, nil
}

// InvalidateCache инвалидирует кеш по имени области
func (s *SearchService) InvalidateCache(ctx context.Context, scope string) error {
	var tags []string
	switch scope {
	case "categories":
		tags = []string{util.TagCategories}
	case "filters":
		tags = []string{util.TagFilters}
	case "products":
		tags = []string{util.TagProducts}
	case "all":
		tags = []string{util.TagCategories, util.TagFilters, util.TagProducts}
	default:
		return ErrInvalidScope
	}

	for _, tag := range tags {
		if err := s.cache.InvalidateTag(ctx, tag); err != nil {
			return fmt.Errorf("failed to invalidate %s: %w", tag, err)
		}
	}

	return nil
}

// HandleCatalogEvent инвалидирует кеши по событию изменения каталога
// Изменение дерева категорий затрагивает все, товары и бренды - только
// фасеты и товарные выдачи
func (s *SearchService) HandleCatalogEvent(ctx context.Context, event *entity.CatalogEvent) error {
	var scope string
	switch {
	case strings.HasPrefix(event.EventType, "CATEGORY_"):
		scope = "all"
	case strings.HasPrefix(event.EventType, "BRAND_"), strings.HasPrefix(event.EventType, "PRODUCT_"):
		scope = "filters"
		if err := s.InvalidateCache(ctx, "products"); err != nil {
			return err
		}
	default:
		// Неизвестный тип события игнорируется
		logger.Debug().Str("event_type", event.EventType).Msg("Ignoring unknown catalog event")
		return nil
	}

	return s.InvalidateCache(ctx, scope)
}

// WarmFilterData прогревает данные фильтров для всех корневых категорий
// Запускается по расписанию, чтобы сайдбары оставались горячими после инвалидации
func (s *SearchService) WarmFilterData(ctx context.Context) (int, error) {
	categories, err := s.loadCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load categories: %w", err)
	}

	warmed := 0
	for _, category := range categories {
		if category.ParentID != nil {
			continue
		}
		if _, err := s.GetFilterData(ctx, category.Slug); err != nil {
			logger.Warn().Err(err).Str("category", category.Slug).Msg("Failed to warm filter data")
			continue
		}
		warmed++
	}

	return warmed, nil
}

// TopSearches возвращает самые частые поисковые термы за период
func (s *SearchService) TopSearches(ctx context.Context, days, limit int) ([]entity.SearchTermStat, error) {
	since, limit := analyticsWindow(days, limit)

	stats, err := s.searchLogRepo.TopSearches(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top searches: %w", err)
	}

	return stats, nil
}

// ZeroResultSearches возвращает термы без единого результата за период
func (s *SearchService) ZeroResultSearches(ctx context.Context, days, limit int) ([]entity.SearchTermStat, error) {
	since, limit := analyticsWindow(days, limit)

	stats, err := s.searchLogRepo.ZeroResultSearches(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get zero result searches: %w", err)
	}

	return stats, nil
}

// analyticsWindow нормализует параметры отчетов аналитики
func analyticsWindow(days, limit int) (time.Time, int) {
	if days < 1 {
		days = 7
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return time.Now().AddDate(0, 0, -days), limit
}

// recordSearchLog записывает выполненный запрос в поисковую аналитику
// Ошибка записи логируется и не влияет на выдачу
func (s *SearchService) recordSearchLog(ctx context.Context, req *entity.FilterRequest, totalCount int64, duration time.Duration) {
	filters, err := json.Marshal(req)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to marshal search filters")
		return
	}

	entry := &entity.SearchQueryLog{
		ID:          uuid.New(),
		Category:    req.Category,
		SearchTerm:  strings.ToLower(req.Search),
		Filters:     string(filters),
		ResultCount: totalCount,
		DurationMs:  duration.Milliseconds(),
		CreatedAt:   time.Now(),
	}

	if err := s.searchLogRepo.Insert(ctx, entry); err != nil {
		logger.Warn().Err(err).Msg("Failed to record search log")
	}
}
