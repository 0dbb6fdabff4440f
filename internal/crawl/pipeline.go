package crawl

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mfurukawa/dellwatch/internal/models"
)

// Store is the persistence boundary for crawl observations. Each call must
// commit the product upsert and the history append as one atomic unit.
type Store interface {
	PersistObservation(ctx context.Context, item models.ExtractedItem, observedAt time.Time) (models.Observation, error)
}

// Notifier is the outbound notification boundary. Dispatch failures are the
// notifier's problem to report; the pipeline only logs them.
type Notifier interface {
	NotifyPriceChange(ctx context.Context, ev models.PriceChangeEvent) error
}

// PageOutcome tallies what happened to one page's items.
type PageOutcome struct {
	Persisted int
	Dropped   int
	Notified  int
}

// Pipeline is the change-detection and persistence stage. Items within one
// page carry no cross-item dependency, so they are persisted on a bounded
// worker pool; each worker runs its own transaction through the Store.
type Pipeline struct {
	store    Store
	notifier Notifier
	workers  int
}

// NewPipeline creates a Pipeline with the given worker bound.
func NewPipeline(store Store, notifier Notifier, workers int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{store: store, notifier: notifier, workers: workers}
}

// ProcessPage persists every item of one page and dispatches notifications
// for detected price changes. One item's failure drops only that item;
// commit order between items is not defined. ProcessPage returns once all
// in-flight items have finished, so a cancelled run never tears down a
// commit mid-write.
func (p *Pipeline) ProcessPage(ctx context.Context, items []models.ExtractedItem, observedAt time.Time) PageOutcome {
	var (
		mu      sync.Mutex
		outcome PageOutcome
		wg      sync.WaitGroup
	)

	jobs := make(chan models.ExtractedItem)
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				persisted, notified := p.processItem(ctx, item, observedAt)
				mu.Lock()
				if persisted {
					outcome.Persisted++
				} else {
					outcome.Dropped++
				}
				if notified {
					outcome.Notified++
				}
				mu.Unlock()
			}
		}()
	}

	for _, item := range items {
		jobs <- item
	}
	close(jobs)
	wg.Wait()

	return outcome
}

// processItem persists one item and decides whether a notification is owed:
// the price changed against the prior stored price AND the preserved
// preference is enabled. A first-ever observation has no prior price and
// never notifies. Notification failure never rolls back the committed write.
func (p *Pipeline) processItem(ctx context.Context, item models.ExtractedItem, observedAt time.Time) (persisted, notified bool) {
	obs, err := p.store.PersistObservation(ctx, item, observedAt)
	if err != nil {
		log.Error().Str("order_code", item.OrderCode).Err(err).Msg("failed to persist item, dropping")
		return false, false
	}

	log.Debug().Str("order_code", item.OrderCode).Int64("price", item.Price).Msg("item persisted")

	if !obs.PriorFound || item.Price == obs.PriorPrice || !obs.NotificationsEnabled {
		return true, false
	}

	ev := models.PriceChangeEvent{
		OrderCode: item.OrderCode,
		Name:      item.Name,
		Model:     item.Model,
		OldPrice:  obs.PriorPrice,
		NewPrice:  item.Price,
		URL:       item.URL,
	}
	if err := p.notifier.NotifyPriceChange(ctx, ev); err != nil {
		log.Warn().Str("order_code", item.OrderCode).Err(err).Msg("price change notification failed")
		return true, false
	}

	log.Info().
		Str("order_code", item.OrderCode).
		Int64("old_price", obs.PriorPrice).
		Int64("new_price", item.Price).
		Msg("price change notified")
	return true, true
}
