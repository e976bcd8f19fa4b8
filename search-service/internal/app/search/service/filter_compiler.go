package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"zamiweb/search-service/internal/app/search/entity"
	"zamiweb/search-service/internal/app/search/repository"
)

// compileQuery транслирует FilterRequest в скомпилированный предикат
// Пустой CategoryIDs в результате означает "ноль результатов" -
// вызывающий обязан замкнуть выдачу без похода в хранилище, иначе
// $in по пустому множеству молча перестает фильтровать
func (s *SearchService) compileQuery(ctx context.Context, req *entity.FilterRequest) (*repository.ProductQuery, error) {
	categories, err := s.loadCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	query := &repository.ProductQuery{
		PriceMin: req.PriceMin,
		PriceMax: req.PriceMax,
		Search:   req.Search,
	}

	// Шаг 1: категорийный срез
	// Неизвестная категория дает пустой срез, не ошибку
	root := findBySlug(categories, req.Category)
	if root == nil {
		return query, nil
	}

	if len(req.Subcategories) > 0 {
		// Явный выбор подкатегорий сужает срез ровно до них,
		// перекрывая дефолт "все поддерево"; потомки не добавляются
		for _, slug := range req.Subcategories {
			if sub := findBySlug(categories, slug); sub != nil {
				query.CategoryIDs = append(query.CategoryIDs, sub.ID)
			}
		}
	} else {
		query.CategoryIDs = descendantIDs(categories, root.ID)
	}

	if len(query.CategoryIDs) == 0 {
		return query, nil
	}

	// Шаг 2: бренды
	// Неразрешившиеся термы пропускаются; если не разрешился ни один,
	// предикат по бренду опускается целиком и не обнуляет выдачу
	if len(req.Brands) > 0 {
		brands, err := s.brandRepo.ResolveTerms(ctx, req.Brands)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve brands: %w", err)
		}
		for _, brand := range brands {
			query.BrandIDs = append(query.BrandIDs, brand.ID)
		}
	}

	// Шаг 3: спецификации
	// Тип каждого атрибута берется из схемы корня поддерева текущей категории
	if len(req.Specs) > 0 {
		defs := specIndex(mergeSpecDefinitions(schemaRoot(categories, root).Specifications))
		for key, raws := range req.Specs {
			def, ok := defs[normalizeSpecKey(key)]
			if !ok {
				// Неизвестный атрибут не дает условия
				continue
			}
			values := coerceSpecValues(def, raws)
			if len(values) == 0 {
				// Ни одно значение не привелось - условие выпадает,
				// а не превращается в "ничего не подходит"
				continue
			}
			query.Specs = append(query.Specs, repository.SpecCondition{
				Key:    key,
				Values: values,
			})
		}
	}

	return query, nil
}

// specIndex строит индекс определений по нормализованным ID и имени
func specIndex(defs []entity.SpecificationDefinition) map[string]entity.SpecificationDefinition {
	index := make(map[string]entity.SpecificationDefinition, len(defs)*2)
	for _, def := range defs {
		if key := normalizeSpecKey(def.ID); key != "" {
			index[key] = def
		}
		if key := normalizeSpecKey(def.Name); key != "" {
			index[key] = def
		}
	}
	return index
}

// coerceSpecValues приводит выбранные строки по объявленному типу атрибута
// Для NUMBER в набор кладется и распарсенное число и исходная строка:
// значения товаров не валидируются при записи и могут храниться как угодно
func coerceSpecValues(def entity.SpecificationDefinition, raws []string) []interface{} {
	values := make([]interface{}, 0, len(raws)*2)

	for _, raw := range raws {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		switch def.Type {
		case entity.SpecTypeNumber:
			number, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				// Нечисловое значение отбрасывается индивидуально
				continue
			}
			values = append(values, number, raw)

		case entity.SpecTypeBoolean:
			values = append(values, strings.ToLower(raw) == "true", raw)

		default:
			values = append(values, raw)
		}
	}

	return values
}
