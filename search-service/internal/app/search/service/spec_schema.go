package service

import (
	"strconv"
	"strings"

	"zamiweb/search-service/internal/app/search/entity"

	"github.com/google/uuid"
)

// schemaRoot поднимается по цепочке parent_id до корневой категории
// Схема спецификаций объявляется на корне поддерева и наследуется потомками
// Это закрепленное правило: схема всегда берется с абсолютного корня
func schemaRoot(categories []entity.Category, category *entity.Category) *entity.Category {
	byID := make(map[uuid.UUID]*entity.Category, len(categories))
	for i := range categories {
		byID[categories[i].ID] = &categories[i]
	}

	current := category
	visited := map[uuid.UUID]bool{current.ID: true}

	for current.ParentID != nil {
		parent, ok := byID[*current.ParentID]
		if !ok || visited[parent.ID] {
			// Оборванная или зацикленная цепочка - останавливаемся на текущем узле
			break
		}
		visited[parent.ID] = true
		current = parent
	}

	return current
}

// normalizeSpecKey нормализует идентификатор спецификации:
// нижний регистр, схлопнутые пробелы
func normalizeSpecKey(key string) string {
	return strings.ToLower(strings.Join(strings.Fields(key), " "))
}

// mergeSpecDefinitions дедуплицирует определения по нормализованному ключу
// Коллизии сливают options как объединение множеств, порядок первого
// вхождения сохраняется
func mergeSpecDefinitions(defs []entity.SpecificationDefinition) []entity.SpecificationDefinition {
	merged := make([]entity.SpecificationDefinition, 0, len(defs))
	position := make(map[string]int, len(defs))

	for _, def := range defs {
		key := normalizeSpecKey(def.Name)
		if key == "" {
			key = normalizeSpecKey(def.ID)
		}
		if key == "" {
			continue
		}

		idx, seen := position[key]
		if !seen {
			position[key] = len(merged)
			copied := def
			copied.Options = append([]string(nil), def.Options...)
			merged = append(merged, copied)
			continue
		}

		existing := make(map[string]bool, len(merged[idx].Options))
		for _, opt := range merged[idx].Options {
			existing[opt] = true
		}
		for _, opt := range def.Options {
			if !existing[opt] {
				merged[idx].Options = append(merged[idx].Options, opt)
				existing[opt] = true
			}
		}
	}

	return merged
}

// buildSpecFacets превращает определения схемы в фасеты для сайдбара
// Опции берутся из объявленной схемы, не из живых данных товаров:
// фасет может предлагать опцию без единого подходящего товара
func buildSpecFacets(defs []entity.SpecificationDefinition) []entity.SpecificationFacet {
	facets := make([]entity.SpecificationFacet, 0, len(defs))

	for _, def := range mergeSpecDefinitions(defs) {
		facet := entity.SpecificationFacet{
			ID:   def.ID,
			Name: def.Name,
			Type: def.Type,
			Unit: def.Unit,
		}

		switch def.Type {
		case entity.SpecTypeNumber:
			// Нечисловые опции отбрасываются, из оставшихся выводится диапазон
			// Меньше двух валидных чисел - диапазон не отрисовать, фасет выпадает
			numbers := make([]float64, 0, len(def.Options))
			for _, opt := range def.Options {
				if v, err := strconv.ParseFloat(strings.TrimSpace(opt), 64); err == nil {
					numbers = append(numbers, v)
				}
			}
			if len(numbers) < 2 {
				continue
			}
			min, max := numbers[0], numbers[0]
			for _, v := range numbers[1:] {
				if v < min {
					min = v
				}
				if v > max {
					max = v
				}
			}
			facet.Min = &min
			facet.Max = &max

		case entity.SpecTypeBoolean:
			// Булев фасет без объявленных опций получает пару по умолчанию
			if len(def.Options) == 0 {
				facet.Options = []string{"Yes", "No"}
			} else {
				facet.Options = def.Options
			}

		default:
			// Перечислимый фасет без опций нечего показывать
			if len(def.Options) == 0 {
				continue
			}
			facet.Options = def.Options
		}

		facets = append(facets, facet)
	}

	return facets
}
