package handler

import (
	"net/http"

	"zamiweb/pkg/logger"
	"zamiweb/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes настраивает все маршруты Search Service с использованием Gin
// Витринные эндпоинты публичные, админские защищены JWT
func SetupRoutes(searchHandler *SearchHandler, authMiddleware *AuthMiddleware) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinLoggerMiddleware())
	router.Use(metrics.GinPrometheusMiddleware("search-service"))

	// Витрина дергает API из браузера
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}))

	// Health check endpoint - публичный, без аутентификации
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "search-service",
		})
	})

	// Prometheus метрики
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Витринные эндпоинты - публичные
	router.GET("/products", searchHandler.GetProducts)            // Поиск товаров с фильтрами
	router.GET("/filters/:category", searchHandler.GetFilterData) // Данные сайдбара фильтров

	// Админские эндпоинты - только для manager и admin
	admin := router.Group("/admin")
	admin.Use(authMiddleware.Authenticate())
	admin.Use(authMiddleware.RequireRole("manager", "admin"))
	{
		admin.POST("/cache/invalidate", searchHandler.InvalidateCache)      // Ручная инвалидация кеша
		admin.GET("/search/top", searchHandler.TopSearches)                 // Популярные поисковые запросы
		admin.GET("/search/zero-results", searchHandler.ZeroResultSearches) // Запросы без результатов
	}

	return router
}
