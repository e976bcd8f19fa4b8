package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"zamiweb/pkg/metrics"
	"zamiweb/search-service/internal/app/search/entity"
	"zamiweb/search-service/internal/app/search/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// SearchHandler обрабатывает HTTP запросы витринного поиска
type SearchHandler struct {
	searchService service.SearchServiceInterface
	validator     *validator.Validate
}

// NewSearchHandler создает новый обработчик поиска
func NewSearchHandler(searchService service.SearchServiceInterface) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		validator:     validator.New(),
	}
}

// reservedParams - параметры запроса с фиксированной семантикой
// Все остальные параметры трактуются как выбор значений спецификаций
var reservedParams = map[string]bool{
	"category":      true,
	"subcategories": true,
	"brands":        true,
	"priceMin":      true,
	"priceMax":      true,
	"search":        true,
	"sort":          true,
	"page":          true,
	"perPage":       true,
	"offset":        true,
	"limit":         true,
}

// parseFilterRequest собирает FilterRequest из query параметров
// Кривые значения деградируют до отсутствия фильтра, а не до ошибки:
// устаревший или битый URL не должен ронять страницу каталога
func parseFilterRequest(values url.Values) *entity.FilterRequest {
	req := &entity.FilterRequest{
		Category:      values.Get("category"),
		Subcategories: splitMulti(values["subcategories"]),
		Brands:        splitMulti(values["brands"]),
		PriceMin:      entity.ParsePrice(values.Get("priceMin")),
		PriceMax:      entity.ParsePrice(values.Get("priceMax")),
		Search:        values.Get("search"),
		Sort:          entity.NormalizeSort(values.Get("sort")),
	}

	// Поддерживаются обе адресации: page/perPage и offset/limit
	// offset сохраняется как есть - он не обязан быть кратен limit
	req.PerPage = atoiOrZero(values.Get("perPage"))
	if req.PerPage == 0 {
		req.PerPage = atoiOrZero(values.Get("limit"))
	}
	req.Page = atoiOrZero(values.Get("page"))
	if req.Page == 0 {
		if raw := values.Get("offset"); raw != "" {
			offset := atoiOrZero(raw)
			req.RawOffset = &offset
		}
	}

	for key, vals := range values {
		if reservedParams[key] {
			continue
		}
		selections := splitMulti(vals)
		if len(selections) == 0 {
			continue
		}
		if req.Specs == nil {
			req.Specs = make(map[string][]string)
		}
		req.Specs[key] = selections
	}

	return req
}

// splitMulti разворачивает повторяющиеся и comma-joined значения параметра
func splitMulti(vals []string) []string {
	var out []string
	for _, val := range vals {
		for _, part := range strings.Split(val, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func atoiOrZero(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// GetProducts обрабатывает GET /products
func (h *SearchHandler) GetProducts(c *gin.Context) {
	req := parseFilterRequest(c.Request.URL.Query())

	response, err := h.searchService.GetProducts(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search products"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetFilterData обрабатывает GET /filters/:category
func (h *SearchHandler) GetFilterData(c *gin.Context) {
	metrics.RecordFilterDataRequest("search-service")

	filterData, err := h.searchService.GetFilterData(c.Request.Context(), c.Param("category"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get filter data"})
		return
	}

	c.JSON(http.StatusOK, filterData)
}

// InvalidateCache обрабатывает POST /admin/cache/invalidate
func (h *SearchHandler) InvalidateCache(c *gin.Context) {
	var req entity.InvalidateCacheRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": formatValidationError(err)})
		return
	}

	if err := h.searchService.InvalidateCache(c.Request.Context(), req.Scope); err != nil {
		if errors.Is(err, service.ErrInvalidScope) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown cache scope"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to invalidate cache"})
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message: "Cache invalidated successfully",
	})
}

// TopSearches обрабатывает GET /admin/search/top
func (h *SearchHandler) TopSearches(c *gin.Context) {
	stats, err := h.searchService.TopSearches(
		c.Request.Context(),
		atoiOrZero(c.Query("days")),
		atoiOrZero(c.Query("limit")),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get top searches"})
		return
	}

	c.JSON(http.StatusOK, entity.TopSearchesResponse{
		Searches: stats,
		Total:    len(stats),
	})
}

// ZeroResultSearches обрабатывает GET /admin/search/zero-results
func (h *SearchHandler) ZeroResultSearches(c *gin.Context) {
	stats, err := h.searchService.ZeroResultSearches(
		c.Request.Context(),
		atoiOrZero(c.Query("days")),
		atoiOrZero(c.Query("limit")),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get zero result searches"})
		return
	}

	c.JSON(http.StatusOK, entity.TopSearchesResponse{
		Searches: stats,
		Total:    len(stats),
	})
}

// formatValidationError форматирует ошибки валидации
func formatValidationError(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrors) > 0 {
			return validationErrors[0].Field() + " validation failed"
		}
	}
	return "Validation failed"
}
