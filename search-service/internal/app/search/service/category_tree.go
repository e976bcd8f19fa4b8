package service

import (
	"strings"

	"zamiweb/search-service/internal/app/search/entity"

	"github.com/google/uuid"
)

// childrenIndex строит индекс parent_id -> прямые дети
// Используется единственной функцией обхода дерева вместо вложенных
// выборок фиксированной глубины
func childrenIndex(categories []entity.Category) map[uuid.UUID][]entity.Category {
	index := make(map[uuid.UUID][]entity.Category)
	for _, category := range categories {
		if category.ParentID == nil {
			continue
		}
		index[*category.ParentID] = append(index[*category.ParentID], category)
	}
	return index
}

// descendantIDs возвращает ID всех потомков категории включая ее саму
// Итеративный BFS с явной очередью: глубина вложенности не ограничена,
// visited защищает от зацикливания на битых данных
func descendantIDs(categories []entity.Category, rootID uuid.UUID) []uuid.UUID {
	index := childrenIndex(categories)

	visited := map[uuid.UUID]bool{rootID: true}
	queue := []uuid.UUID{rootID}
	ids := make([]uuid.UUID, 0, len(categories))

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		ids = append(ids, current)

		for _, child := range index[current] {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			queue = append(queue, child.ID)
		}
	}

	return ids
}

// findBySlug находит категорию по slug без учета регистра
// Отсутствие категории - не ошибка, вызывающий трактует nil как "ноль совпадений"
func findBySlug(categories []entity.Category, slug string) *entity.Category {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil
	}
	for i := range categories {
		if strings.ToLower(categories[i].Slug) == slug {
			return &categories[i]
		}
	}
	return nil
}

// directChildren возвращает прямых детей категории для сайдбара подкатегорий
func directChildren(categories []entity.Category, parentID uuid.UUID) []entity.Category {
	children := make([]entity.Category, 0)
	for _, category := range categories {
		if category.ParentID != nil && *category.ParentID == parentID {
			children = append(children, category)
		}
	}
	return children
}
