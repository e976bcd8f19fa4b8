package repository

import (
	"context"
	"errors"
	"time"

	"zamiweb/search-service/internal/app/search/entity"

	"github.com/google/uuid"
)

var (
	// Стандартная ошибка репозитория для обработки в service layer
	ErrCategoryNotFound = errors.New("category not found")
)

// ProductQuery - скомпилированный предикат поиска товаров
// Собирается Filter Compiler в service layer из FilterRequest,
// транслируется в bson.M на стороне Mongo репозитория
type ProductQuery struct {
	CategoryIDs []uuid.UUID     // Категорийный срез, пустой срез означает ноль результатов
	BrandIDs    []uuid.UUID     // Пустой срез - предикат по бренду опускается
	PriceMin    *float64        // nil - без нижней границы
	PriceMax    *float64        // nil - без верхней границы
	Search      string          // Сырая строка поиска, экранируется при трансляции в regex
	Specs       []SpecCondition // Условия по спецификациям, AND между атрибутами
}

// SpecCondition - условие членства по одной спецификации
// Values уже приведены по объявленному типу (float64/bool/string),
// товар подходит если его сохраненное значение входит в набор
type SpecCondition struct {
	Key    string
	Values []interface{}
}

// SearchResult - страница товаров плюс общее количество до пагинации
type SearchResult struct {
	Products []entity.Product
	Total    int64
}

// CategoryRepository определяет чтение категорий из MongoDB
// Поисковый движок категории не мутирует
type CategoryRepository interface {
	GetBySlug(ctx context.Context, slug string) (*entity.Category, error)
	GetAll(ctx context.Context) ([]entity.Category, error)
}

// BrandRepository определяет чтение брендов из MongoDB
type BrandRepository interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Brand, error)
	// ResolveTerms сопоставляет slug или имя бренду без учета регистра
	// Неразрешившиеся термы молча пропускаются
	ResolveTerms(ctx context.Context, terms []string) ([]entity.Brand, error)
}

// ProductRepository определяет поисковые операции над коллекцией товаров
type ProductRepository interface {
	// Search выполняет запрос одним aggregation pipeline: страница + total
	Search(ctx context.Context, query *ProductQuery, sort entity.SortKey, offset, limit int) (*SearchResult, error)
	// MaxPrice возвращает максимальную цену в категорийном срезе
	MaxPrice(ctx context.Context, categoryIDs []uuid.UUID) (float64, error)
	// PriceBounds возвращает min и max цены в категорийном срезе
	PriceBounds(ctx context.Context, categoryIDs []uuid.UUID) (float64, float64, error)
	// DistinctBrandIDs возвращает бренды, встречающиеся среди товаров среза
	DistinctBrandIDs(ctx context.Context, categoryIDs []uuid.UUID) ([]uuid.UUID, error)
}

// SearchLogRepository определяет запись и чтение поисковой аналитики в PostgreSQL
type SearchLogRepository interface {
	Insert(ctx context.Context, log *entity.SearchQueryLog) error
	TopSearches(ctx context.Context, since time.Time, limit int) ([]entity.SearchTermStat, error)
	ZeroResultSearches(ctx context.Context, since time.Time, limit int) ([]entity.SearchTermStat, error)
}
