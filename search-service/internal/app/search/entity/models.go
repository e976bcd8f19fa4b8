package entity

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SpecType определяет тип спецификации и правила приведения значений фильтра
// TEXT/CHECKBOX сравниваются как строки, NUMBER парсится во float, BOOLEAN в bool
type SpecType string

const (
	SpecTypeText     SpecType = "TEXT"
	SpecTypeCheckbox SpecType = "CHECKBOX"
	SpecTypeNumber   SpecType = "NUMBER"
	SpecTypeBoolean  SpecType = "BOOLEAN"
)

// Enumerated возвращает true для типов, значения которых сравниваются как есть
func (t SpecType) Enumerated() bool {
	return t == SpecTypeText || t == SpecTypeCheckbox
}

// SpecificationDefinition описывает динамический атрибут товара,
// объявленный на корневой категории поддерева (schema root)
type SpecificationDefinition struct {
	ID      string   `json:"id" bson:"id"`
	Name    string   `json:"name" bson:"name"`
	Type    SpecType `json:"type" bson:"type"`
	Options []string `json:"options" bson:"options"` // Для NUMBER - числовые строки, из них выводится min/max
	Unit    string   `json:"unit,omitempty" bson:"unit,omitempty"`
}

// Category представляет узел дерева категорий
// Дерево - лес без циклов, ParentID == nil означает корень
type Category struct {
	ID             uuid.UUID                 `json:"id" bson:"_id"`
	Name           string                    `json:"name" bson:"name"`
	Slug           string                    `json:"slug" bson:"slug"`
	ParentID       *uuid.UUID                `json:"parent_id,omitempty" bson:"parent_id,omitempty"`
	Specifications []SpecificationDefinition `json:"specifications,omitempty" bson:"specifications,omitempty"`
	CreatedAt      time.Time                 `json:"created_at" bson:"created_at"`
}

// Brand представляет бренд товара
// Неактивные бренды не предлагаются как опции фильтра
type Brand struct {
	ID        uuid.UUID `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Slug      string    `json:"slug" bson:"slug"`
	IsActive  bool      `json:"is_active" bson:"is_active"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Product представляет товар в каталоге
// Specifications хранится как нетипизированная map - значения не валидируются
// против схемы при записи, поисковый движок обязан это переживать
type Product struct {
	ID             uuid.UUID              `json:"id" bson:"_id"`
	Name           string                 `json:"name" bson:"name"`
	Slug           string                 `json:"slug" bson:"slug"`
	Description    string                 `json:"description" bson:"description"`
	Price          float64                `json:"price" bson:"price"`
	OriginalPrice  *float64               `json:"original_price,omitempty" bson:"original_price,omitempty"`
	Stock          int                    `json:"stock" bson:"stock"`
	Rating         float64                `json:"rating" bson:"rating"`
	SalesCount     int                    `json:"sales_count" bson:"sales_count"`
	CategoryID     uuid.UUID              `json:"category_id" bson:"category_id"`
	BrandID        *uuid.UUID             `json:"brand_id,omitempty" bson:"brand_id,omitempty"`
	Specifications map[string]interface{} `json:"specifications,omitempty" bson:"specifications,omitempty"`
	CreatedAt      time.Time              `json:"created_at" bson:"created_at"`
}

// SortKey задает порядок выдачи товаров
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
	SortNameAsc   SortKey = "name-asc"
	SortNameDesc  SortKey = "name-desc"
	SortRating    SortKey = "rating"
	SortPopular   SortKey = "popular"
)

// NormalizeSort приводит произвольную строку сортировки к поддерживаемому ключу
// Неизвестные значения откатываются к newest, а не к ошибке
func NormalizeSort(raw string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(raw))) {
	case SortPriceAsc:
		return SortPriceAsc
	case SortPriceDesc:
		return SortPriceDesc
	case SortNameAsc:
		return SortNameAsc
	case SortNameDesc:
		return SortNameDesc
	case SortRating:
		return SortRating
	case SortPopular:
		return SortPopular
	default:
		return SortNewest
	}
}

// CatalogEvent представляет событие изменения каталога из Kafka
// Отправляется админскими CRUD сервисами в топик catalog_events
type CatalogEvent struct {
	EventType string    `json:"event_type"` // CATEGORY_*, BRAND_*, PRODUCT_* (CREATED/UPDATED/DELETED)
	EntityID  uuid.UUID `json:"entity_id"`
	Timestamp time.Time `json:"timestamp"`
}

// SearchQueryLog фиксирует выполненный поисковый запрос для аналитики
// Хранится в PostgreSQL, читается админкой для отчета о популярных запросах
type SearchQueryLog struct {
	ID          uuid.UUID `json:"id" gorm:"column:id;primaryKey"`
	Category    string    `json:"category" gorm:"column:category"`
	SearchTerm  string    `json:"search_term" gorm:"column:search_term"`
	Filters     string    `json:"filters" gorm:"column:filters"` // Нормализованный запрос в JSON
	ResultCount int64     `json:"result_count" gorm:"column:result_count"`
	DurationMs  int64     `json:"duration_ms" gorm:"column:duration_ms"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
}

// TableName задает имя таблицы для GORM
func (SearchQueryLog) TableName() string {
	return "search_query_logs"
}

// SearchTermStat агрегированная статистика по поисковому терму
type SearchTermStat struct {
	SearchTerm string `json:"search_term" gorm:"column:search_term"`
	Count      int64  `json:"count" gorm:"column:count"`
}

// ParsePrice парсит числовую строку цены, пустая строка и мусор дают nil
func ParsePrice(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}
