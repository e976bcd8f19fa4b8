package service

import (
	"context"

	"zamiweb/search-service/internal/app/search/entity"
)

type SearchServiceInterface interface {
	GetProducts(ctx context.Context, req *entity.FilterRequest) (*entity.ProductsResponse, error)
	GetFilterData(ctx context.Context, categorySlug string) (*entity.FilterData, error)

	InvalidateCache(ctx context.Context, scope string) error
	HandleCatalogEvent(ctx context.Context, event *entity.CatalogEvent) error
	WarmFilterData(ctx context.Context) (int, error)

	TopSearches(ctx context.Context, days, limit int) ([]entity.SearchTermStat, error)
	ZeroResultSearches(ctx context.Context, days, limit int) ([]entity.SearchTermStat, error)
}
