//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"zamiweb/search-service/internal/app/search/entity"
	"zamiweb/search-service/internal/app/search/handler"
	"zamiweb/search-service/internal/app/search/repository"
	"zamiweb/search-service/internal/app/search/repository/mocks"
	"zamiweb/search-service/internal/app/search/service"
	"zamiweb/search-service/internal/app/search/util"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SearchIntegrationTestSuite struct {
	suite.Suite
	client    *mongo.Client
	db        *mongo.Database
	miniRedis *miniredis.Miniredis
	cache     *util.RedisClient
	router    *gin.Engine

	electronics entity.Category
	laptops     entity.Category
	gaming      entity.Category
	lenovo      entity.Brand
	asus        entity.Brand
}

func TestSearchIntegrationSuite(t *testing.T) {
	suite.Run(t, new(SearchIntegrationTestSuite))
}

func (s *SearchIntegrationTestSuite) SetupSuite() {
	mongoURI := getEnv("TEST_MONGODB_URI", "mongodb://localhost:27017")
	dbName := getEnv("TEST_MONGODB_DATABASE", "search_test_db")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	s.client, err = mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	s.Require().NoError(err)

	s.db = s.client.Database(dbName)

	s.miniRedis, err = miniredis.Run()
	s.Require().NoError(err)

	s.cache, err = util.NewRedisClient(s.miniRedis.Addr(), "", 0)
	s.Require().NoError(err)

	categoryRepo := repository.NewCategoryRepository(s.db)
	brandRepo := repository.NewBrandRepository(s.db)
	productRepo := repository.NewProductRepository(s.db)

	searchLogRepo := new(mocks.MockSearchLogRepository)
	searchLogRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	searchService := service.NewSearchService(categoryRepo, brandRepo, productRepo, searchLogRepo, s.cache)

	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	searchHandler := handler.NewSearchHandler(searchService)
	s.router.GET("/products", searchHandler.GetProducts)
	s.router.GET("/filters/:category", searchHandler.GetFilterData)
}

func (s *SearchIntegrationTestSuite) SetupTest() {
	ctx := context.Background()
	s.db.Collection("categories").Drop(ctx)
	s.db.Collection("brands").Drop(ctx)
	s.db.Collection("products").Drop(ctx)
	s.miniRedis.FlushAll()

	s.seedCatalog(ctx)
}

func (s *SearchIntegrationTestSuite) TearDownSuite() {
	if s.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.db.Drop(ctx)
		s.client.Disconnect(ctx)
	}
	s.cache.Close()
	s.miniRedis.Close()
}

// seedCatalog создает тестовое дерево категорий с товарами
func (s *SearchIntegrationTestSuite) seedCatalog(ctx context.Context) {
	s.electronics = entity.Category{
		ID:   uuid.New(),
		Name: "Electronics",
		Slug: "electronics",
		Specifications: []entity.SpecificationDefinition{
			{ID: "ram", Name: "RAM", Type: entity.SpecTypeNumber, Unit: "GB", Options: []string{"8", "16", "32"}},
			{ID: "color", Name: "Color", Type: entity.SpecTypeText, Options: []string{"Black", "Silver"}},
		},
		CreatedAt: time.Now(),
	}
	s.laptops = entity.Category{ID: uuid.New(), Name: "Laptops", Slug: "laptops", ParentID: &s.electronics.ID, CreatedAt: time.Now()}
	s.gaming = entity.Category{ID: uuid.New(), Name: "Gaming", Slug: "gaming", ParentID: &s.laptops.ID, CreatedAt: time.Now()}

	categories := s.db.Collection("categories")
	for _, c := range []entity.Category{s.electronics, s.laptops, s.gaming} {
		_, err := categories.InsertOne(ctx, c)
		s.Require().NoError(err)
	}

	s.lenovo = entity.Brand{ID: uuid.New(), Name: "Lenovo", Slug: "lenovo", IsActive: true, CreatedAt: time.Now()}
	s.asus = entity.Brand{ID: uuid.New(), Name: "Asus", Slug: "asus", IsActive: true, CreatedAt: time.Now()}

	brands := s.db.Collection("brands")
	for _, b := range []entity.Brand{s.lenovo, s.asus} {
		_, err := brands.InsertOne(ctx, b)
		s.Require().NoError(err)
	}

	products := []entity.Product{
		{
			ID: uuid.New(), Name: "ThinkPad X1", Slug: "thinkpad-x1", Price: 1800,
			CategoryID: s.laptops.ID, BrandID: &s.lenovo.ID,
			Specifications: map[string]interface{}{"ram": 16.0, "color": "Black"},
			CreatedAt:      time.Now(),
		},
		{
			ID: uuid.New(), Name: "ROG Strix", Slug: "rog-strix", Price: 2400,
			CategoryID: s.gaming.ID, BrandID: &s.asus.ID,
			Specifications: map[string]interface{}{"ram": 32.0, "color": "Black"},
			CreatedAt:      time.Now(),
		},
		{
			ID: uuid.New(), Name: "IdeaPad 3", Slug: "ideapad-3", Price: 600,
			CategoryID: s.laptops.ID, BrandID: &s.lenovo.ID,
			Specifications: map[string]interface{}{"ram": "8", "color": "Silver"},
			CreatedAt:      time.Now(),
		},
	}

	collection := s.db.Collection("products")
	for _, p := range products {
		_, err := collection.InsertOne(ctx, p)
		s.Require().NoError(err)
	}
}

func (s *SearchIntegrationTestSuite) getProducts(query string) (*entity.ProductsResponse, int) {
	req, _ := http.NewRequest(http.MethodGet, "/products?"+query, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var response entity.ProductsResponse
	json.Unmarshal(w.Body.Bytes(), &response)
	return &response, w.Code
}

// ===================== GetProducts Tests =====================

func (s *SearchIntegrationTestSuite) TestGetProducts_SubtreeIncludesDescendants() {
	// Запрос на laptops должен захватить товары из gaming
	response, code := s.getProducts("category=laptops")

	s.Equal(http.StatusOK, code)
	s.Equal(int64(3), response.TotalCount)
	s.Equal(2400.0, response.MaxPrice)
}

func (s *SearchIntegrationTestSuite) TestGetProducts_UnknownCategoryGivesZeroResults() {
	response, code := s.getProducts("category=bicycles")

	s.Equal(http.StatusOK, code)
	s.Equal(int64(0), response.TotalCount)
	s.NotNil(response.Products)
}

func (s *SearchIntegrationTestSuite) TestGetProducts_BrandFilterKeepsMaxPrice() {
	// Фильтр по бренду сужает выдачу, но maxPrice остается по всему срезу
	response, code := s.getProducts("category=laptops&brands=lenovo")

	s.Equal(http.StatusOK, code)
	s.Equal(int64(2), response.TotalCount)
	s.Equal(2400.0, response.MaxPrice)
}

func (s *SearchIntegrationTestSuite) TestGetProducts_NumberSpecMatchesStoredStringToo() {
	// Значение "8" хранится строкой, но выбирается числовым фильтром
	response, code := s.getProducts("category=laptops&ram=8")

	s.Equal(http.StatusOK, code)
	s.Equal(int64(1), response.TotalCount)
	s.Equal("IdeaPad 3", response.Products[0].Name)
}

func (s *SearchIntegrationTestSuite) TestGetProducts_PriceRangeAndSort() {
	response, code := s.getProducts("category=laptops&priceMax=2000&sort=price-asc")

	s.Equal(http.StatusOK, code)
	s.Equal(int64(2), response.TotalCount)
	s.Equal("IdeaPad 3", response.Products[0].Name)
	s.Equal("ThinkPad X1", response.Products[1].Name)
}

func (s *SearchIntegrationTestSuite) TestGetProducts_SearchEscapesRegex() {
	// Метасимволы в поисковой строке не роняют запрос
	response, code := s.getProducts("category=laptops&search=x1+%28pro%29")

	s.Equal(http.StatusOK, code)
	s.Equal(int64(0), response.TotalCount)
}

func (s *SearchIntegrationTestSuite) TestGetProducts_SecondRequestServedFromCache() {
	first, code := s.getProducts("category=laptops")
	s.Equal(http.StatusOK, code)

	// Удаляем товары из Mongo: повторный запрос обязан прийти из кеша
	ctx := context.Background()
	s.db.Collection("products").Drop(ctx)

	second, code := s.getProducts("category=laptops")
	s.Equal(http.StatusOK, code)
	s.Equal(first.TotalCount, second.TotalCount)
}

// ===================== GetFilterData Tests =====================

func (s *SearchIntegrationTestSuite) TestGetFilterData_Success() {
	req, _ := http.NewRequest(http.MethodGet, "/filters/laptops", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusOK, w.Code)

	var filterData entity.FilterData
	json.Unmarshal(w.Body.Bytes(), &filterData)

	s.Equal(600.0, filterData.MinPrice)
	s.Equal(2400.0, filterData.MaxPrice)
	s.Len(filterData.Subcategories, 1)
	s.ElementsMatch([]string{"Lenovo", "Asus"}, filterData.Brands)

	// Схема пришла с корня дерева: NUMBER фасет с диапазоном
	s.Require().Len(filterData.Specifications, 2)
	byName := map[string]entity.SpecificationFacet{}
	for _, facet := range filterData.Specifications {
		byName[facet.Name] = facet
	}
	s.Equal(8.0, *byName["RAM"].Min)
	s.Equal(32.0, *byName["RAM"].Max)
	s.Equal([]string{"Black", "Silver"}, byName["Color"].Options)
}

func (s *SearchIntegrationTestSuite) TestGetFilterData_UnknownCategoryGivesEmptySidebar() {
	req, _ := http.NewRequest(http.MethodGet, "/filters/bicycles", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusOK, w.Code)

	var filterData entity.FilterData
	json.Unmarshal(w.Body.Bytes(), &filterData)
	s.Empty(filterData.Brands)
	s.Empty(filterData.Subcategories)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
