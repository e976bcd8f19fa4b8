package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"zamiweb/search-service/internal/app/search/entity"
	"zamiweb/search-service/internal/app/search/repository"
	"zamiweb/search-service/internal/app/search/repository/mocks"
	"zamiweb/search-service/internal/app/search/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	service       *SearchService
	categoryRepo  *mocks.MockCategoryRepository
	brandRepo     *mocks.MockBrandRepository
	productRepo   *mocks.MockProductRepository
	searchLogRepo *mocks.MockSearchLogRepository
	cache         *mocks.MockCache
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		categoryRepo:  new(mocks.MockCategoryRepository),
		brandRepo:     new(mocks.MockBrandRepository),
		productRepo:   new(mocks.MockProductRepository),
		searchLogRepo: new(mocks.MockSearchLogRepository),
		cache:         new(mocks.MockCache),
	}
	f.service = NewSearchService(f.categoryRepo, f.brandRepo, f.productRepo, f.searchLogRepo, f.cache)
	return f
}

// missCache настраивает кеш на постоянные промахи
func (f *serviceFixture) missCache() {
	f.cache.On("Get", mock.Anything, mock.Anything).Return(nil, nil)
	f.cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

// ===================== GetProducts Tests =====================

func TestGetProducts_UnknownCategory_ShortCircuitsWithoutStoreAccess(t *testing.T) {
	// Пустой категорийный срез обязан замыкаться без похода в коллекцию товаров:
	// $in по пустому множеству молча перестал бы фильтровать
	// Arrange
	f := newServiceFixture()
	f.missCache()
	f.categoryRepo.On("GetAll", mock.Anything).Return([]entity.Category{}, nil)

	var logged *entity.SearchQueryLog
	f.searchLogRepo.On("Insert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			logged = args.Get(1).(*entity.SearchQueryLog)
		}).
		Return(nil)

	// Act
	response, err := f.service.GetProducts(context.Background(), &entity.FilterRequest{Category: "ghosts"})

	// Assert
	require.NoError(t, err)
	assert.Empty(t, response.Products)
	assert.Equal(t, int64(0), response.TotalCount)
	assert.False(t, response.HasMore)
	f.productRepo.AssertNotCalled(t, "Search")
	f.productRepo.AssertNotCalled(t, "MaxPrice")

	// Запрос в никуда все равно записан в аналитику с нулевым результатом
	require.NotNil(t, logged)
	assert.Equal(t, "ghosts", logged.Category)
	assert.Equal(t, int64(0), logged.ResultCount)
}

func TestGetProducts_Success(t *testing.T) {
	// Arrange
	f := newServiceFixture()
	f.missCache()

	root := entity.Category{ID: uuid.New(), Name: "Laptops", Slug: "laptops"}
	f.categoryRepo.On("GetAll", mock.Anything).Return([]entity.Category{root}, nil)

	products := []entity.Product{
		{ID: uuid.New(), Name: "ThinkPad", Price: 1200, CategoryID: root.ID},
	}
	f.productRepo.On("Search", mock.Anything, mock.Anything, entity.SortNewest, 0, entity.DefaultPerPage).
		Return(&repository.SearchResult{Products: products, Total: 40}, nil)
	f.productRepo.On("MaxPrice", mock.Anything, []uuid.UUID{root.ID}).Return(2500.0, nil)
	f.searchLogRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	// Act
	response, err := f.service.GetProducts(context.Background(), &entity.FilterRequest{Category: "laptops"})

	// Assert
	require.NoError(t, err)
	assert.Len(t, response.Products, 1)
	assert.Equal(t, int64(40), response.TotalCount)
	assert.Equal(t, 2500.0, response.MaxPrice)
	assert.True(t, response.HasMore)
	f.productRepo.AssertExpectations(t)
}

func TestGetProducts_CacheHitSkipsStore(t *testing.T) {
	// Arrange
	f := newServiceFixture()

	cached := &entity.ProductsResponse{
		Products:   []entity.Product{{ID: uuid.New(), Name: "Cached"}},
		TotalCount: 1,
		MaxPrice:   99,
	}
	data, err := json.Marshal(cached)
	require.NoError(t, err)
	f.cache.On("Get", mock.Anything, mock.Anything).Return(data, nil)

	// Act
	response, err := f.service.GetProducts(context.Background(), &entity.FilterRequest{Category: "laptops"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(1), response.TotalCount)
	assert.Equal(t, "Cached", response.Products[0].Name)
	f.categoryRepo.AssertNotCalled(t, "GetAll")
	f.productRepo.AssertNotCalled(t, "Search")
}

func TestGetProducts_MaxPriceIgnoresBrandFilter(t *testing.T) {
	// Верхняя граница ценового слайдера считается по категорийному срезу,
	// выбор бренда ее не сжимает
	// Arrange
	f := newServiceFixture()
	f.missCache()

	root := entity.Category{ID: uuid.New(), Name: "Laptops", Slug: "laptops"}
	f.categoryRepo.On("GetAll", mock.Anything).Return([]entity.Category{root}, nil)

	lenovo := entity.Brand{ID: uuid.New(), Name: "Lenovo", Slug: "lenovo", IsActive: true}
	f.brandRepo.On("ResolveTerms", mock.Anything, []string{"lenovo"}).
		Return([]entity.Brand{lenovo}, nil)

	var searched *repository.ProductQuery
	f.productRepo.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			searched = args.Get(1).(*repository.ProductQuery)
		}).
		Return(&repository.SearchResult{Products: []entity.Product{}, Total: 0}, nil)
	f.productRepo.On("MaxPrice", mock.Anything, []uuid.UUID{root.ID}).Return(3000.0, nil)
	f.searchLogRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	// Act
	response, err := f.service.GetProducts(context.Background(), &entity.FilterRequest{
		Category: "laptops",
		Brands:   []string{"lenovo"},
	})

	// Assert: поиск шел с брендом, maxPrice - только с категориями
	require.NoError(t, err)
	require.NotNil(t, searched)
	assert.Equal(t, []uuid.UUID{lenovo.ID}, searched.BrandIDs)
	assert.Equal(t, 3000.0, response.MaxPrice)
	f.productRepo.AssertCalled(t, "MaxPrice", mock.Anything, []uuid.UUID{root.ID})
}

func TestGetProducts_SearchError(t *testing.T) {
	f := newServiceFixture()
	f.missCache()

	root := entity.Category{ID: uuid.New(), Name: "Laptops", Slug: "laptops"}
	f.categoryRepo.On("GetAll", mock.Anything).Return([]entity.Category{root}, nil)
	f.productRepo.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("mongo down"))

	_, err := f.service.GetProducts(context.Background(), &entity.FilterRequest{Category: "laptops"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to search products")
}

// ===================== GetFilterData Tests =====================

func TestGetFilterData_UnknownCategoryGivesEmptySidebar(t *testing.T) {
	// Битый URL параметр не роняет страницу
	// Неизвестный slug отсекается точечной выборкой,
	// дерево категорий при этом не загружается
	f := newServiceFixture()
	f.missCache()
	f.categoryRepo.On("GetBySlug", mock.Anything, "ghosts").
		Return(nil, repository.ErrCategoryNotFound)

	filterData, err := f.service.GetFilterData(context.Background(), "ghosts")

	require.NoError(t, err)
	assert.NotNil(t, filterData.Subcategories)
	assert.NotNil(t, filterData.Brands)
	assert.NotNil(t, filterData.Specifications)
	assert.Empty(t, filterData.Brands)
	f.categoryRepo.AssertNotCalled(t, "GetAll")
	f.productRepo.AssertNotCalled(t, "PriceBounds")
}

func TestGetFilterData_Success(t *testing.T) {
	// Arrange
	f := newServiceFixture()
	f.missCache()

	root := entity.Category{
		ID:   uuid.New(),
		Name: "Electronics",
		Slug: "electronics",
		Specifications: []entity.SpecificationDefinition{
			{ID: "ram", Name: "RAM", Type: entity.SpecTypeNumber, Unit: "GB", Options: []string{"8", "32"}},
		},
	}
	laptops := entity.Category{ID: uuid.New(), Name: "Laptops", Slug: "laptops", ParentID: &root.ID}
	f.categoryRepo.On("GetBySlug", mock.Anything, "electronics").Return(&root, nil)
	f.categoryRepo.On("GetAll", mock.Anything).Return([]entity.Category{root, laptops}, nil)

	f.productRepo.On("PriceBounds", mock.Anything, mock.Anything).Return(50.0, 4000.0, nil)

	active := entity.Brand{ID: uuid.New(), Name: "Lenovo", IsActive: true}
	inactive := entity.Brand{ID: uuid.New(), Name: "Defunct", IsActive: false}
	f.productRepo.On("DistinctBrandIDs", mock.Anything, mock.Anything).
		Return([]uuid.UUID{active.ID, inactive.ID}, nil)
	f.brandRepo.On("GetByIDs", mock.Anything, []uuid.UUID{active.ID, inactive.ID}).
		Return([]entity.Brand{active, inactive}, nil)

	// Act
	filterData, err := f.service.GetFilterData(context.Background(), "Electronics")

	// Assert: неактивный бренд выпал, фасет NUMBER получил диапазон
	require.NoError(t, err)
	assert.Equal(t, 50.0, filterData.MinPrice)
	assert.Equal(t, 4000.0, filterData.MaxPrice)
	assert.Len(t, filterData.Subcategories, 1)
	assert.Equal(t, []string{"Lenovo"}, filterData.Brands)
	require.Len(t, filterData.Specifications, 1)
	assert.Equal(t, 8.0, *filterData.Specifications[0].Min)
	assert.Equal(t, 32.0, *filterData.Specifications[0].Max)
}

func TestGetFilterData_SchemaComesFromSubtreeRoot(t *testing.T) {
	// Запрос на подкатегорию, схема объявлена на корне
	f := newServiceFixture()
	f.missCache()

	root := entity.Category{
		ID:   uuid.New(),
		Slug: "electronics",
		Specifications: []entity.SpecificationDefinition{
			{ID: "color", Name: "Color", Type: entity.SpecTypeText, Options: []string{"Black"}},
		},
	}
	laptops := entity.Category{ID: uuid.New(), Slug: "laptops", ParentID: &root.ID}
	f.categoryRepo.On("GetBySlug", mock.Anything, "laptops").Return(&laptops, nil)
	f.categoryRepo.On("GetAll", mock.Anything).Return([]entity.Category{root, laptops}, nil)
	f.productRepo.On("PriceBounds", mock.Anything, mock.Anything).Return(0.0, 0.0, nil)
	f.productRepo.On("DistinctBrandIDs", mock.Anything, mock.Anything).Return([]uuid.UUID{}, nil)

	filterData, err := f.service.GetFilterData(context.Background(), "laptops")

	require.NoError(t, err)
	require.Len(t, filterData.Specifications, 1)
	assert.Equal(t, "Color", filterData.Specifications[0].Name)
}

// ===================== InvalidateCache Tests =====================

func TestInvalidateCache_AllScopes(t *testing.T) {
	f := newServiceFixture()
	f.cache.On("InvalidateTag", mock.Anything, util.TagCategories).Return(nil)
	f.cache.On("InvalidateTag", mock.Anything, util.TagFilters).Return(nil)
	f.cache.On("InvalidateTag", mock.Anything, util.TagProducts).Return(nil)

	err := f.service.InvalidateCache(context.Background(), "all")

	require.NoError(t, err)
	f.cache.AssertNumberOfCalls(t, "InvalidateTag", 3)
}

func TestInvalidateCache_SingleScope(t *testing.T) {
	f := newServiceFixture()
	f.cache.On("InvalidateTag", mock.Anything, util.TagProducts).Return(nil)

	err := f.service.InvalidateCache(context.Background(), "products")

	require.NoError(t, err)
	f.cache.AssertNumberOfCalls(t, "InvalidateTag", 1)
}

func TestInvalidateCache_UnknownScope(t *testing.T) {
	f := newServiceFixture()

	err := f.service.InvalidateCache(context.Background(), "everything")

	assert.ErrorIs(t, err, ErrInvalidScope)
	f.cache.AssertNotCalled(t, "InvalidateTag")
}

// ===================== HandleCatalogEvent Tests =====================

func TestHandleCatalogEvent_CategoryEventInvalidatesEverything(t *testing.T) {
	f := newServiceFixture()
	f.cache.On("InvalidateTag", mock.Anything, mock.Anything).Return(nil)

	err := f.service.HandleCatalogEvent(context.Background(), &entity.CatalogEvent{
		EventType: "CATEGORY_UPDATED",
		EntityID:  uuid.New(),
	})

	require.NoError(t, err)
	f.cache.AssertCalled(t, "InvalidateTag", mock.Anything, util.TagCategories)
	f.cache.AssertCalled(t, "InvalidateTag", mock.Anything, util.TagFilters)
	f.cache.AssertCalled(t, "InvalidateTag", mock.Anything, util.TagProducts)
}

func TestHandleCatalogEvent_ProductEventKeepsCategoryCache(t *testing.T) {
	f := newServiceFixture()
	f.cache.On("InvalidateTag", mock.Anything, util.TagProducts).Return(nil)
	f.cache.On("InvalidateTag", mock.Anything, util.TagFilters).Return(nil)

	err := f.service.HandleCatalogEvent(context.Background(), &entity.CatalogEvent{
		EventType: "PRODUCT_CREATED",
		EntityID:  uuid.New(),
	})

	require.NoError(t, err)
	f.cache.AssertNotCalled(t, "InvalidateTag", mock.Anything, util.TagCategories)
}

func TestHandleCatalogEvent_UnknownEventIgnored(t *testing.T) {
	f := newServiceFixture()

	err := f.service.HandleCatalogEvent(context.Background(), &entity.CatalogEvent{
		EventType: "USER_REGISTERED",
		EntityID:  uuid.New(),
	})

	require.NoError(t, err)
	f.cache.AssertNotCalled(t, "InvalidateTag")
}

// ===================== WarmFilterData Tests =====================

func TestWarmFilterData_WarmsOnlyRoots(t *testing.T) {
	// Arrange
	f := newServiceFixture()
	f.missCache()

	root := entity.Category{ID: uuid.New(), Slug: "electronics"}
	child := entity.Category{ID: uuid.New(), Slug: "laptops", ParentID: &root.ID}
	f.categoryRepo.On("GetBySlug", mock.Anything, "electronics").Return(&root, nil)
	f.categoryRepo.On("GetAll", mock.Anything).Return([]entity.Category{root, child}, nil)
	f.productRepo.On("PriceBounds", mock.Anything, mock.Anything).Return(0.0, 0.0, nil)
	f.productRepo.On("DistinctBrandIDs", mock.Anything, mock.Anything).Return([]uuid.UUID{}, nil)

	// Act
	warmed, err := f.service.WarmFilterData(context.Background())

	// Assert: один корень - один прогрев
	require.NoError(t, err)
	assert.Equal(t, 1, warmed)
	f.productRepo.AssertNumberOfCalls(t, "PriceBounds", 1)
}

// ===================== Analytics Tests =====================

func TestTopSearches_NormalizesWindow(t *testing.T) {
	// Arrange
	f := newServiceFixture()

	stats := []entity.SearchTermStat{{SearchTerm: "thinkpad", Count: 12}}
	var since time.Time
	var limit int
	f.searchLogRepo.On("TopSearches", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			since = args.Get(1).(time.Time)
			limit = args.Get(2).(int)
		}).
		Return(stats, nil)

	// Act: некорректные параметры откатываются к дефолтам
	result, err := f.service.TopSearches(context.Background(), 0, 0)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, stats, result)
	assert.Equal(t, 20, limit)
	expectedSince := time.Now().AddDate(0, 0, -7)
	assert.WithinDuration(t, expectedSince, since, time.Minute)
}

func TestZeroResultSearches_PassesThrough(t *testing.T) {
	f := newServiceFixture()

	stats := []entity.SearchTermStat{{SearchTerm: "hoverboard", Count: 5}}
	f.searchLogRepo.On("ZeroResultSearches", mock.Anything, mock.Anything, 10).
		Return(stats, nil)

	result, err := f.service.ZeroResultSearches(context.Background(), 30, 10)

	require.NoError(t, err)
	assert.Equal(t, stats, result)
}
