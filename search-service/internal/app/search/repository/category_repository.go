package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"zamiweb/search-service/internal/app/search/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type categoryRepository struct {
	collection *mongo.Collection
}

// NewCategoryRepository создает новый репозиторий категорий
// Автоматически создает уникальный индекс по slug для выборки по URL
func NewCategoryRepository(db *mongo.Database) CategoryRepository {
	collection := db.Collection("categories")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "slug", Value: 1},
		},
		Options: options.Index().SetName("slug_idx").SetUnique(true),
	}

	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		// Логируем ошибку, но не прерываем работу - индекс может уже существовать
		fmt.Printf("Warning: failed to create index on slug: %v\n", err)
	}

	// Индекс по parent_id для построения дерева категорий
	parentIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "parent_id", Value: 1},
		},
		Options: options.Index().SetName("parent_id_idx"),
	}

	if _, err := collection.Indexes().CreateOne(ctx, parentIndexModel); err != nil {
		fmt.Printf("Warning: failed to create index on parent_id: %v\n", err)
	}

	return &categoryRepository{
		collection: collection,
	}
}

// GetBySlug получает категорию по slug
// Slug сравнивается в нижнем регистре, как хранится
func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (*entity.Category, error) {
	filter := bson.M{"slug": strings.ToLower(strings.TrimSpace(slug))}

	var category entity.Category
	err := r.collection.FindOne(ctx, filter).Decode(&category)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category by slug: %w", err)
	}

	return &category, nil
}

// GetAll получает все категории отсортированные по имени
// Результат кешируется в Redis через service layer, по нему строится дерево
func (r *categoryRepository) GetAll(ctx context.Context) ([]entity.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find categories: %w", err)
	}
	defer cursor.Close(ctx)

	var categories []entity.Category
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}

	return categories, nil
}
