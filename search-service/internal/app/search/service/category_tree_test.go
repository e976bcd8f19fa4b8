package service

import (
	"testing"

	"zamiweb/search-service/internal/app/search/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// buildTree собирает тестовое дерево: electronics -> laptops -> gaming -> budget -> compact
// плюс отдельный корень clothing
func buildTree() (map[string]entity.Category, []entity.Category) {
	byName := make(map[string]entity.Category)

	add := func(name string, parent *entity.Category) entity.Category {
		category := entity.Category{ID: uuid.New(), Name: name, Slug: name}
		if parent != nil {
			parentID := parent.ID
			category.ParentID = &parentID
		}
		byName[name] = category
		return category
	}

	electronics := add("electronics", nil)
	laptops := add("laptops", &electronics)
	gaming := add("gaming", &laptops)
	budget := add("budget", &gaming)
	add("compact", &budget)
	add("clothing", nil)

	all := make([]entity.Category, 0, len(byName))
	for _, c := range byName {
		all = append(all, c)
	}
	return byName, all
}

// ===================== descendantIDs Tests =====================

func TestDescendantIDs_IncludesSelfAndAllDepths(t *testing.T) {
	// Arrange
	byName, all := buildTree()

	// Act
	ids := descendantIDs(all, byName["electronics"].ID)

	// Assert: 5 уровней вложенности, глубина не ограничена
	assert.Len(t, ids, 5)
	assert.Contains(t, ids, byName["electronics"].ID)
	assert.Contains(t, ids, byName["laptops"].ID)
	assert.Contains(t, ids, byName["gaming"].ID)
	assert.Contains(t, ids, byName["budget"].ID)
	assert.Contains(t, ids, byName["compact"].ID)
	assert.NotContains(t, ids, byName["clothing"].ID)
}

func TestDescendantIDs_LeafReturnsOnlySelf(t *testing.T) {
	byName, all := buildTree()

	ids := descendantIDs(all, byName["compact"].ID)

	assert.Equal(t, []uuid.UUID{byName["compact"].ID}, ids)
}

func TestDescendantIDs_Idempotent(t *testing.T) {
	byName, all := buildTree()

	first := descendantIDs(all, byName["laptops"].ID)
	second := descendantIDs(all, byName["laptops"].ID)

	assert.Equal(t, first, second)
}

func TestDescendantIDs_SurvivesCycle(t *testing.T) {
	// Битые данные: ребенок ссылается на потомка как на родителя
	// Обход обязан завершиться благодаря visited
	parent := entity.Category{ID: uuid.New(), Slug: "a"}
	child := entity.Category{ID: uuid.New(), Slug: "b", ParentID: &parent.ID}
	parent.ParentID = &child.ID

	ids := descendantIDs([]entity.Category{parent, child}, parent.ID)

	assert.Len(t, ids, 2)
}

// ===================== findBySlug Tests =====================

func TestFindBySlug_CaseInsensitive(t *testing.T) {
	_, all := buildTree()

	found := findBySlug(all, "  LAPTOPS ")

	assert.NotNil(t, found)
	assert.Equal(t, "laptops", found.Slug)
}

func TestFindBySlug_UnknownReturnsNil(t *testing.T) {
	_, all := buildTree()

	assert.Nil(t, findBySlug(all, "bicycles"))
	assert.Nil(t, findBySlug(all, ""))
}

// ===================== directChildren Tests =====================

func TestDirectChildren_OnlyImmediate(t *testing.T) {
	byName, all := buildTree()

	children := directChildren(all, byName["electronics"].ID)

	assert.Len(t, children, 1)
	assert.Equal(t, "laptops", children[0].Slug)
}

func TestDirectChildren_LeafHasNone(t *testing.T) {
	byName, all := buildTree()

	children := directChildren(all, byName["compact"].ID)

	assert.NotNil(t, children)
	assert.Empty(t, children)
}
