package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"zamiweb/search-service/internal/app/search/entity"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type brandRepository struct {
	collection *mongo.Collection
}

// NewBrandRepository создает новый репозиторий брендов
func NewBrandRepository(db *mongo.Database) BrandRepository {
	collection := db.Collection("brands")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "slug", Value: 1},
		},
		Options: options.Index().SetName("slug_idx").SetUnique(true),
	}

	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		fmt.Printf("Warning: failed to create index on slug: %v\n", err)
	}

	return &brandRepository{
		collection: collection,
	}
}

// GetByIDs получает бренды по списку ID
// Отсутствующие ID молча пропускаются - товар может ссылаться на удаленный бренд
func (r *brandRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Brand, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	filter := bson.M{"_id": bson.M{"$in": ids}}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find brands: %w", err)
	}
	defer cursor.Close(ctx)

	var brands []entity.Brand
	if err := cursor.All(ctx, &brands); err != nil {
		return nil, fmt.Errorf("failed to decode brands: %w", err)
	}

	return brands, nil
}

// ResolveTerms сопоставляет slug или имя бренду без учета регистра
// Термы, не разрешившиеся в бренд, пропускаются - предикат по бренду
// в этом случае сужается, а не обнуляет выдачу
func (r *brandRepository) ResolveTerms(ctx context.Context, terms []string) ([]entity.Brand, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	patterns := make([]primitive.Regex, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		// Точное совпадение без учета регистра, метасимволы экранируются
		patterns = append(patterns, primitive.Regex{
			Pattern: "^" + regexp.QuoteMeta(term) + "$",
			Options: "i",
		})
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	filter := bson.M{"$or": bson.A{
		bson.M{"slug": bson.M{"$in": patterns}},
		bson.M{"name": bson.M{"$in": patterns}},
	}}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve brands: %w", err)
	}
	defer cursor.Close(ctx)

	var brands []entity.Brand
	if err := cursor.All(ctx, &brands); err != nil {
		return nil, fmt.Errorf("failed to decode brands: %w", err)
	}

	return brands, nil
}
