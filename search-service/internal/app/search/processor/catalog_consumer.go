package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"zamiweb/pkg/logger"
	"zamiweb/pkg/metrics"
	"zamiweb/search-service/internal/app/search/entity"
	"zamiweb/search-service/internal/app/search/service"

	"github.com/segmentio/kafka-go"
)

// CatalogConsumer обрабатывает события изменения каталога из Kafka
// Админские CRUD сервисы публикуют CATEGORY_*/BRAND_*/PRODUCT_* события,
// consumer транслирует их в инвалидацию кешей поиска
type CatalogConsumer struct {
	reader    *kafka.Reader
	searchSvc service.SearchServiceInterface
	topic     string
	groupID   string
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewCatalogConsumer создает новый Kafka consumer событий каталога
func NewCatalogConsumer(
	brokers []string,
	topic string,
	groupID string,
	searchSvc service.SearchServiceInterface,
) *CatalogConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset, // Начинаем читать с последнего сообщения
		// Настройки для автоматического коммита offset
		CommitInterval: time.Second,
		// Таймауты
		ReadBackoffMin: 100 * time.Millisecond,
		ReadBackoffMax: 1 * time.Second,
	})

	return &CatalogConsumer{
		reader:    reader,
		searchSvc: searchSvc,
		topic:     topic,
		groupID:   groupID,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start запускает consumer в отдельной горутине
func (c *CatalogConsumer) Start(ctx context.Context) {
	logger.Info().Str("topic", c.topic).Msg("Starting catalog events consumer")
	go c.consume(ctx)
}

// Stop останавливает consumer
func (c *CatalogConsumer) Stop() {
	logger.Info().Msg("Stopping catalog events consumer")
	close(c.stopChan)
	<-c.doneChan
	c.reader.Close()
	logger.Info().Msg("Catalog events consumer stopped")
}

// consume читает и обрабатывает сообщения из Kafka
func (c *CatalogConsumer) consume(ctx context.Context) {
	defer close(c.doneChan)

	for {
		select {
		case <-c.stopChan:
			return
		default:
			// Читаем сообщение с таймаутом
			readCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			message, err := c.reader.FetchMessage(readCtx)
			cancel()

			if err != nil {
				// Если контекст был отменен, выходим
				if ctx.Err() != nil {
					return
				}

				logger.Warn().Err(err).Msg("Error fetching catalog event")
				time.Sleep(time.Second)
				continue
			}

			if err := c.processMessage(ctx, message); err != nil {
				logger.Error().Err(err).Msg("Error processing catalog event")
				metrics.RecordKafkaError("search-service", c.topic, "consume")
				// Не коммитим offset при ошибке - сообщение будет повторно обработано
			} else {
				if err := c.reader.CommitMessages(ctx, message); err != nil {
					logger.Warn().Err(err).Msg("Error committing catalog event")
				}
			}
		}
	}
}

// processMessage обрабатывает одно событие каталога
func (c *CatalogConsumer) processMessage(ctx context.Context, message kafka.Message) error {
	start := time.Now()

	var event entity.CatalogEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal catalog event: %w", err)
	}

	logger.Debug().
		Str("event_type", event.EventType).
		Str("entity_id", event.EntityID.String()).
		Int64("offset", message.Offset).
		Msg("Received catalog event")

	if err := c.searchSvc.HandleCatalogEvent(ctx, &event); err != nil {
		return fmt.Errorf("failed to handle catalog event: %w", err)
	}

	metrics.RecordKafkaMessageConsumed("search-service", c.topic, c.groupID, time.Since(start))

	return nil
}

// GetStats возвращает статистику consumer
func (c *CatalogConsumer) GetStats() kafka.ReaderStats {
	return c.reader.Stats()
}
