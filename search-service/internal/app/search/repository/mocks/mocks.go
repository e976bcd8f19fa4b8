package mocks

import (
	"context"
	"time"

	"zamiweb/search-service/internal/app/search/entity"
	"zamiweb/search-service/internal/app/search/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockCategoryRepository мок для CategoryRepository
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) GetBySlug(ctx context.Context, slug string) (*entity.Category, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Category), args.Error(1)
}

func (m *MockCategoryRepository) GetAll(ctx context.Context) ([]entity.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Category), args.Error(1)
}

// MockBrandRepository мок для BrandRepository
type MockBrandRepository struct {
	mock.Mock
}

func (m *MockBrandRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Brand, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Brand), args.Error(1)
}

func (m *MockBrandRepository) ResolveTerms(ctx context.Context, terms []string) ([]entity.Brand, error) {
	args := m.Called(ctx, terms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Brand), args.Error(1)
}

// MockProductRepository мок для ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Search(ctx context.Context, query *repository.ProductQuery, sort entity.SortKey, offset, limit int) (*repository.SearchResult, error) {
	args := m.Called(ctx, query, sort, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.SearchResult), args.Error(1)
}

func (m *MockProductRepository) MaxPrice(ctx context.Context, categoryIDs []uuid.UUID) (float64, error) {
	args := m.Called(ctx, categoryIDs)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockProductRepository) PriceBounds(ctx context.Context, categoryIDs []uuid.UUID) (float64, float64, error) {
	args := m.Called(ctx, categoryIDs)
	return args.Get(0).(float64), args.Get(1).(float64), args.Error(2)
}

func (m *MockProductRepository) DistinctBrandIDs(ctx context.Context, categoryIDs []uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, categoryIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockSearchLogRepository мок для SearchLogRepository
type MockSearchLogRepository struct {
	mock.Mock
}

func (m *MockSearchLogRepository) Insert(ctx context.Context, log *entity.SearchQueryLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockSearchLogRepository) TopSearches(ctx context.Context, since time.Time, limit int) ([]entity.SearchTermStat, error) {
	args := m.Called(ctx, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.SearchTermStat), args.Error(1)
}

func (m *MockSearchLogRepository) ZeroResultSearches(ctx context.Context, since time.Time, limit int) ([]entity.SearchTermStat, error) {
	args := m.Called(ctx, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.SearchTermStat), args.Error(1)
}

// MockCache мок для util.Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	callArgs := []interface{}{ctx, key, value, ttl}
	for _, tag := range tags {
		callArgs = append(callArgs, tag)
	}
	args := m.Called(callArgs...)
	return args.Error(0)
}

func (m *MockCache) InvalidateTag(ctx context.Context, tag string) error {
	args := m.Called(ctx, tag)
	return args.Error(0)
}

func (m *MockCache) Close() error {
	args := m.Called()
	return args.Error(0)
}
