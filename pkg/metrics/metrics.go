package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// HTTP Метрики (общие для всех сервисов)
// =============================================================================

// HttpRequestsTotal - счётчик всех HTTP запросов
// Labels: service, method, path, status
// Пример запроса PromQL: rate(http_requests_total{service="search-service"}[5m])
var HttpRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	},
	[]string{"service", "method", "path", "status"},
)

// HttpRequestDuration - гистограмма времени ответа
// Пример: histogram_quantile(0.95, rate(http_request_duration_seconds_bucket[5m]))
var HttpRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "http_request_duration_seconds",
		Help: "Duration of HTTP requests in seconds",
		// Бакеты для микросервисов: от 1ms до 10s
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
	[]string{"service", "method", "path"},
)

// HttpRequestsInFlight - текущее количество обрабатываемых запросов
var HttpRequestsInFlight = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "Current number of HTTP requests being processed",
	},
	[]string{"service"},
)

// =============================================================================
// Метрики хранилищ (MongoDB и PostgreSQL)
// =============================================================================

// StoreQueryDuration - время выполнения запросов к хранилищу
var StoreQueryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "store_query_duration_seconds",
		Help:    "Duration of data store queries in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	},
	[]string{"service", "operation", "collection"},
)

// StoreErrors - счётчик ошибок хранилища
var StoreErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "store_errors_total",
		Help: "Total number of data store errors",
	},
	[]string{"service", "operation"},
)

// =============================================================================
// Redis Метрики
// =============================================================================

// RedisCacheHits - попадания в кеш
var RedisCacheHits = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "redis_cache_hits_total",
		Help: "Total number of Redis cache hits",
	},
	[]string{"service", "key_prefix"},
)

// RedisCacheMisses - промахи кеша
var RedisCacheMisses = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "redis_cache_misses_total",
		Help: "Total number of Redis cache misses",
	},
	[]string{"service", "key_prefix"},
)

// RedisOperationDuration - время операций Redis
var RedisOperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "redis_operation_duration_seconds",
		Help:    "Duration of Redis operations in seconds",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	},
	[]string{"service", "operation"}, // operation: get, set, del, etc.
)

// RedisErrors - ошибки Redis
var RedisErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "redis_errors_total",
		Help: "Total number of Redis errors",
	},
	[]string{"service", "operation"},
)

// CacheInvalidations - инвалидации кеша по тегам
var CacheInvalidations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cache_invalidations_total",
		Help: "Total number of cache tag invalidations",
	},
	[]string{"service", "tag"},
)

// =============================================================================
// Kafka Метрики
// =============================================================================

// KafkaMessagesConsumed - полученные сообщения
var KafkaMessagesConsumed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_messages_consumed_total",
		Help: "Total number of Kafka messages consumed",
	},
	[]string{"service", "topic", "group"},
)

// KafkaConsumeDuration - время обработки сообщения
var KafkaConsumeDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "kafka_consume_duration_seconds",
		Help:    "Duration of Kafka message processing",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	},
	[]string{"service", "topic"},
)

// KafkaErrors - ошибки Kafka
var KafkaErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_errors_total",
		Help: "Total number of Kafka errors",
	},
	[]string{"service", "topic", "operation"}, // operation: produce, consume
)

// =============================================================================
// Business Метрики (специфичные для поиска витрины)
// =============================================================================

// SearchRequestsTotal - выполненные поисковые запросы
// Labels: sort - ключ сортировки, has_search - был ли текстовый поиск
var SearchRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "search_requests_total",
		Help: "Total number of product search requests",
	},
	[]string{"service", "sort", "has_search"},
)

// SearchZeroResults - запросы без единого результата
// Рост метрики сигнализирует о дырах в каталоге или битых фильтрах
var SearchZeroResults = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "search_zero_results_total",
		Help: "Total number of search requests that matched no products",
	},
	[]string{"service"},
)

// FilterDataRequests - запросы данных сайдбара фильтров
var FilterDataRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "filter_data_requests_total",
		Help: "Total number of filter sidebar data requests",
	},
	[]string{"service"},
)

// CacheWarmerRuns - запуски прогрева кеша
var CacheWarmerRuns = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cache_warmer_runs_total",
		Help: "Total number of cache warmer runs",
	},
	[]string{"service", "status"}, // status: success, error
)
