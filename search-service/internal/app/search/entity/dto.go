package entity

import (
	"fmt"
	"sort"
	"strings"
)

const (
	DefaultPerPage = 24
	MaxPerPage     = 100
)

// FilterRequest описывает один поисковый запрос витрины
// Все фильтры комбинируются по AND, значения внутри одной спецификации - по OR
type FilterRequest struct {
	Category      string              `json:"category"`
	Subcategories []string            `json:"subcategories,omitempty"`
	Brands        []string            `json:"brands,omitempty"`
	PriceMin      *float64            `json:"price_min,omitempty"`
	PriceMax      *float64            `json:"price_max,omitempty"`
	Search        string              `json:"search,omitempty"`
	Sort          SortKey             `json:"sort"`
	Page          int                 `json:"page"`
	PerPage       int                 `json:"per_page"`
	RawOffset     *int                `json:"offset,omitempty"`
	Specs         map[string][]string `json:"specs,omitempty"`
}

// Normalize приводит запрос к каноническому виду: дефолты пагинации,
// нормализованная сортировка, отсортированные списки
// Нужен чтобы эквивалентные запросы давали одинаковый ключ кеша
func (r *FilterRequest) Normalize() {
	r.Sort = NormalizeSort(string(r.Sort))
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PerPage < 1 {
		r.PerPage = DefaultPerPage
	}
	if r.PerPage > MaxPerPage {
		r.PerPage = MaxPerPage
	}
	if r.RawOffset != nil && *r.RawOffset < 0 {
		r.RawOffset = nil
	}
	r.Category = strings.TrimSpace(strings.ToLower(r.Category))
	r.Search = strings.TrimSpace(r.Search)
	sort.Strings(r.Subcategories)
	sort.Strings(r.Brands)
	for key, values := range r.Specs {
		sort.Strings(values)
		r.Specs[key] = values
	}
}

// Offset возвращает смещение выдачи в терминах skip/limit
// Сырой offset не обязан быть кратен perPage и имеет приоритет
// над страничной адресацией
func (r *FilterRequest) Offset() int {
	if r.RawOffset != nil {
		return *r.RawOffset
	}
	return (r.Page - 1) * r.PerPage
}

// CacheKey строит детерминированный ключ кеша из нормализованного запроса
// Разные комбинации фильтров никогда не коллидируют
func (r *FilterRequest) CacheKey() string {
	var b strings.Builder
	b.WriteString("products:")
	b.WriteString(r.Category)
	b.WriteString("|sub=")
	b.WriteString(strings.Join(r.Subcategories, ","))
	b.WriteString("|brands=")
	b.WriteString(strings.Join(r.Brands, ","))
	b.WriteString("|price=")
	if r.PriceMin != nil {
		fmt.Fprintf(&b, "%g", *r.PriceMin)
	}
	b.WriteString(":")
	if r.PriceMax != nil {
		fmt.Fprintf(&b, "%g", *r.PriceMax)
	}
	b.WriteString("|q=")
	b.WriteString(strings.ToLower(r.Search))
	b.WriteString("|sort=")
	b.WriteString(string(r.Sort))
	if r.RawOffset != nil {
		fmt.Fprintf(&b, "|off=%d:%d", *r.RawOffset, r.PerPage)
	} else {
		fmt.Fprintf(&b, "|page=%d:%d", r.Page, r.PerPage)
	}

	if len(r.Specs) > 0 {
		keys := make([]string, 0, len(r.Specs))
		for key := range r.Specs {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(&b, "|%s=%s", key, strings.Join(r.Specs[key], ","))
		}
	}

	return b.String()
}

// SpecificationFacet описывает одну спецификацию для сайдбара фильтров
// Опции берутся из объявленной схемы, а не сканированием живых товаров,
// поэтому опция может не иметь ни одного подходящего товара
type SpecificationFacet struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Type    SpecType `json:"type"`
	Unit    string   `json:"unit,omitempty"`
	Options []string `json:"options,omitempty"` // Для TEXT/CHECKBOX/BOOLEAN
	Min     *float64 `json:"min,omitempty"`     // Только для NUMBER
	Max     *float64 `json:"max,omitempty"`     // Только для NUMBER
}

// FilterData содержит данные для отрисовки сайдбара фильтров категории
type FilterData struct {
	MinPrice       float64              `json:"min_price"`
	MaxPrice       float64              `json:"max_price"`
	Subcategories  []Category           `json:"subcategories"`
	Brands         []string             `json:"brands"`
	Specifications []SpecificationFacet `json:"specifications"`
}

// ProductsResponse содержит страницу результатов поиска
// MaxPrice считается по категорийному срезу до остальных фильтров,
// чтобы верхняя граница слайдера цены не сжималась при уточнении
type ProductsResponse struct {
	Products   []Product `json:"products"`
	TotalCount int64     `json:"total_count"`
	MaxPrice   float64   `json:"max_price"`
	HasMore    bool      `json:"has_more"`
}

// InvalidateCacheRequest тело запроса ручной инвалидации кеша
type InvalidateCacheRequest struct {
	Scope string `json:"scope" validate:"required,oneof=categories filters products all"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type TopSearchesResponse struct {
	Searches []SearchTermStat `json:"searches"`
	Total    int              `json:"total"`
}
