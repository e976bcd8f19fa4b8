package metrics

import (
	"strconv"
	"time"
)

type RedisOperation string

const (
	RedisOpGet    RedisOperation = "get"
	RedisOpSet    RedisOperation = "set"
	RedisOpDel    RedisOperation = "del"
	RedisOpExists RedisOperation = "exists"
	RedisOpExpire RedisOperation = "expire"
)

type RedisTimer struct {
	service   string
	operation RedisOperation
	start     time.Time
}

func NewRedisTimer(service string, op RedisOperation) *RedisTimer {
	return &RedisTimer{
		service:   service,
		operation: op,
		start:     time.Now(),
	}
}

func (rt *RedisTimer) ObserveDuration() {
	duration := time.Since(rt.start).Seconds()
	RedisOperationDuration.WithLabelValues(rt.service, string(rt.operation)).Observe(duration)
}

func RecordCacheHit(service, keyPrefix string) {
	RedisCacheHits.WithLabelValues(service, keyPrefix).Inc()
}

func RecordCacheMiss(service, keyPrefix string) {
	RedisCacheMisses.WithLabelValues(service, keyPrefix).Inc()
}

func RecordRedisError(service string, op RedisOperation) {
	RedisErrors.WithLabelValues(service, string(op)).Inc()
}

func RecordCacheInvalidation(service, tag string) {
	CacheInvalidations.WithLabelValues(service, tag).Inc()
}

func RecordKafkaMessageConsumed(service, topic, group string, processingDuration time.Duration) {
	KafkaMessagesConsumed.WithLabelValues(service, topic, group).Inc()
	KafkaConsumeDuration.WithLabelValues(service, topic).Observe(processingDuration.Seconds())
}

func RecordKafkaError(service, topic, operation string) {
	KafkaErrors.WithLabelValues(service, topic, operation).Inc()
}

type StoreOperation string

const (
	StoreOpFind      StoreOperation = "find"
	StoreOpAggregate StoreOperation = "aggregate"
	StoreOpInsert    StoreOperation = "insert"
)

type StoreTimer struct {
	service    string
	operation  StoreOperation
	collection string
	start      time.Time
}

func NewStoreTimer(service string, op StoreOperation, collection string) *StoreTimer {
	return &StoreTimer{
		service:    service,
		operation:  op,
		collection: collection,
		start:      time.Now(),
	}
}

func (st *StoreTimer) ObserveDuration() {
	duration := time.Since(st.start).Seconds()
	StoreQueryDuration.WithLabelValues(st.service, string(st.operation), st.collection).Observe(duration)
}

func RecordStoreError(service string, op StoreOperation) {
	StoreErrors.WithLabelValues(service, string(op)).Inc()
}

// RecordSearch фиксирует выполненный поисковый запрос в business метриках
func RecordSearch(service, sort string, hasSearch, zeroResults bool) {
	SearchRequestsTotal.WithLabelValues(service, sort, strconv.FormatBool(hasSearch)).Inc()
	if zeroResults {
		SearchZeroResults.WithLabelValues(service).Inc()
	}
}

// RecordFilterDataRequest фиксирует запрос данных сайдбара
func RecordFilterDataRequest(service string) {
	FilterDataRequests.WithLabelValues(service).Inc()
}

// RecordCacheWarmerRun фиксирует итог запуска прогрева кеша
func RecordCacheWarmerRun(service string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	CacheWarmerRuns.WithLabelValues(service, status).Inc()
}

type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

func (t *Timer) Seconds() float64 {
	return time.Since(t.start).Seconds()
}
