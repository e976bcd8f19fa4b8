package processor

import (
	"context"
	"log"

	"zamiweb/pkg/metrics"
	"zamiweb/search-service/internal/app/search/service"

	"github.com/robfig/cron/v3"
)

// CacheWarmer периодически прогревает кеш данных фильтров,
// чтобы после инвалидации первые запросы не упирались в холодный MongoDB
type CacheWarmer struct {
	cron      *cron.Cron
	searchSvc service.SearchServiceInterface
}

func NewCacheWarmer(searchSvc service.SearchServiceInterface) *CacheWarmer {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(log.Default())))

	return &CacheWarmer{
		cron:      c,
		searchSvc: searchSvc,
	}
}

func (w *CacheWarmer) Start(ctx context.Context, schedule string) error {
	log.Printf("Starting cache warmer with schedule: %s", schedule)

	_, err := w.cron.AddFunc(schedule, func() {
		log.Println("Cron job triggered: warming filter data cache")
		w.warm(ctx)
	})

	if err != nil {
		return err
	}

	w.cron.Start()
	log.Println("Cache warmer started")

	log.Println("Performing initial cache warmup...")
	w.warm(ctx)

	return nil
}

func (w *CacheWarmer) warm(ctx context.Context) {
	warmed, err := w.searchSvc.WarmFilterData(ctx)
	metrics.RecordCacheWarmerRun("search-service", err)
	if err != nil {
		log.Printf("ERROR: Failed to warm filter data cache: %v", err)
		return
	}

	log.Printf("Cache warmup completed: %d categories warmed", warmed)
}

func (w *CacheWarmer) Stop() {
	log.Println("Stopping cache warmer...")
	ctx := w.cron.Stop()
	<-ctx.Done()
	log.Println("Cache warmer stopped")
}

func (w *CacheWarmer) GetEntries() []cron.Entry {
	return w.cron.Entries()
}
