package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"zamiweb/pkg/metrics"
	"zamiweb/search-service/internal/app/search/entity"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type productRepository struct {
	collection *mongo.Collection
}

// NewProductRepository создает новый репозиторий товаров
// Создает индексы под основные предикаты поиска
func NewProductRepository(db *mongo.Database) ProductRepository {
	collection := db.Collection("products")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "category_id", Value: 1}, {Key: "price", Value: 1}},
			Options: options.Index().SetName("category_price_idx"),
		},
		{
			Keys:    bson.D{{Key: "brand_id", Value: 1}},
			Options: options.Index().SetName("brand_id_idx"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("created_at_idx"),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		// Логируем ошибку, но не прерываем работу - индексы могут уже существовать
		fmt.Printf("Warning: failed to create product indexes: %v\n", err)
	}

	return &productRepository{
		collection: collection,
	}
}

// buildProductFilter транслирует скомпилированный предикат в bson.M
// Все части комбинируются по AND, отсутствующие части не добавляют условий
func buildProductFilter(query *ProductQuery) bson.M {
	filter := bson.M{
		"category_id": bson.M{"$in": query.CategoryIDs},
	}

	if len(query.BrandIDs) > 0 {
		filter["brand_id"] = bson.M{"$in": query.BrandIDs}
	}

	if query.PriceMin != nil || query.PriceMax != nil {
		price := bson.M{}
		if query.PriceMin != nil {
			price["$gte"] = *query.PriceMin
		}
		if query.PriceMax != nil {
			price["$lte"] = *query.PriceMax
		}
		filter["price"] = price
	}

	if query.Search != "" {
		// Метасимволы regex экранируются, иначе строка вроде "c++" роняет запрос
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		}
	}

	for _, cond := range query.Specs {
		filter["specifications."+cond.Key] = bson.M{"$in": cond.Values}
	}

	return filter
}

// sortSpec транслирует ключ сортировки в bson
// _id добавляется вторым ключом для стабильного порядка при равных значениях
func sortSpec(key entity.SortKey) bson.D {
	switch key {
	case entity.SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	case entity.SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}
	case entity.SortNameAsc:
		return bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}
	case entity.SortNameDesc:
		return bson.D{{Key: "name", Value: -1}, {Key: "_id", Value: 1}}
	case entity.SortRating:
		return bson.D{{Key: "rating", Value: -1}, {Key: "_id", Value: 1}}
	case entity.SortPopular:
		return bson.D{{Key: "sales_count", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
	}
}

// Search выполняет поиск одним aggregation pipeline с $facet:
// страница результатов и общее количество за один round trip
func (r *productRepository) Search(ctx context.Context, query *ProductQuery, sort entity.SortKey, offset, limit int) (*SearchResult, error) {
	timer := metrics.NewStoreTimer("search-service", metrics.StoreOpAggregate, "products")
	defer timer.ObserveDuration()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: buildProductFilter(query)}},
		bson.D{{Key: "$facet", Value: bson.M{
			"results": bson.A{
				bson.M{"$sort": sortSpec(sort)},
				bson.M{"$skip": offset},
				bson.M{"$limit": limit},
			},
			"total": bson.A{
				bson.M{"$count": "count"},
			},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		metrics.RecordStoreError("search-service", metrics.StoreOpAggregate)
		return nil, fmt.Errorf("failed to run search aggregation: %w", err)
	}
	defer cursor.Close(ctx)

	var pages []struct {
		Results []entity.Product `bson:"results"`
		Total   []struct {
			Count int64 `bson:"count"`
		} `bson:"total"`
	}
	if err := cursor.All(ctx, &pages); err != nil {
		return nil, fmt.Errorf("failed to decode search result: %w", err)
	}

	result := &SearchResult{}
	if len(pages) > 0 {
		result.Products = pages[0].Results
		if len(pages[0].Total) > 0 {
			result.Total = pages[0].Total[0].Count
		}
	}

	return result, nil
}

// MaxPrice возвращает максимальную цену среди товаров категорийного среза
// Считается до применения фильтров по бренду/цене/спецификациям,
// чтобы верхняя граница ценового слайдера не сжималась при уточнении
func (r *productRepository) MaxPrice(ctx context.Context, categoryIDs []uuid.UUID) (float64, error) {
	if len(categoryIDs) == 0 {
		return 0, nil
	}

	_, max, err := r.PriceBounds(ctx, categoryIDs)
	return max, err
}

// PriceBounds возвращает минимальную и максимальную цены категорийного среза
func (r *productRepository) PriceBounds(ctx context.Context, categoryIDs []uuid.UUID) (float64, float64, error) {
	if len(categoryIDs) == 0 {
		return 0, 0, nil
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"category_id": bson.M{"$in": categoryIDs}}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id": nil,
			"min": bson.M{"$min": "$price"},
			"max": bson.M{"$max": "$price"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate price bounds: %w", err)
	}
	defer cursor.Close(ctx)

	var bounds []struct {
		Min float64 `bson:"min"`
		Max float64 `bson:"max"`
	}
	if err := cursor.All(ctx, &bounds); err != nil {
		return 0, 0, fmt.Errorf("failed to decode price bounds: %w", err)
	}

	// Пустой срез - валидный результат, не ошибка
	if len(bounds) == 0 {
		return 0, 0, nil
	}

	return bounds[0].Min, bounds[0].Max, nil
}

// DistinctBrandIDs возвращает бренды, реально встречающиеся среди товаров среза
// Товары без бренда пропускаются
func (r *productRepository) DistinctBrandIDs(ctx context.Context, categoryIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"category_id": bson.M{"$in": categoryIDs},
			"brand_id":    bson.M{"$ne": nil},
		}}},
		bson.D{{Key: "$group", Value: bson.M{"_id": "$brand_id"}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate brand ids: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []struct {
		ID uuid.UUID `bson:"_id"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode brand ids: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}

	return ids, nil
}
