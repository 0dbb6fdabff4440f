package crawl

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/mfurukawa/dellwatch/internal/models"
)

// Runner executes one complete crawl run: walk every listing page, extract
// its items, and push them through the persistence pipeline. A run never
// returns an error; whatever went wrong is folded into the summary, and only
// a page-fetch failure (or cancellation) ends it before the last page.
type Runner struct {
	paginator *Paginator
	extractor *Extractor
	pipeline  *Pipeline
	startURL  string
}

// NewRunner wires a Runner from its boundaries.
func NewRunner(renderer Renderer, store Store, notifier Notifier, startURL string, workers int) *Runner {
	return &Runner{
		paginator: NewPaginator(renderer),
		extractor: NewExtractor(),
		pipeline:  NewPipeline(store, notifier, workers),
		startURL:  startURL,
	}
}

// Run performs the crawl and returns its summary. Runs are one-shot: call
// NewRunner again rather than reusing a finished run's state.
func (r *Runner) Run(ctx context.Context) models.RunSummary {
	summary := models.RunSummary{StartedAt: time.Now()}
	log.Info().Str("start_url", r.startURL).Msg("crawl run starting")

	state, err := r.paginator.Walk(ctx, r.startURL, func(pageNo int, doc *goquery.Document) {
		items := r.extractor.Extract(r.startURL, doc)
		if len(items) == 0 {
			// Valid but suspicious: either an empty last page or a broken
			// article selector.
			log.Info().Int("page", pageNo).Msg("no articles extracted from page")
		}
		summary.ItemsExtracted += len(items)

		outcome := r.pipeline.ProcessPage(ctx, items, time.Now())
		summary.ItemsPersisted += outcome.Persisted
		summary.ItemsDropped += outcome.Dropped
		summary.NotificationsSent += outcome.Notified
	})

	summary.TotalPages = state.TotalPages
	summary.TotalPagesDefaulted = state.TotalPagesDefaulted
	summary.PagesFetched = state.PagesFetched
	if err != nil {
		summary.EndedEarly = true
		log.Error().
			Err(err).
			Int("pages_fetched", state.PagesFetched).
			Int("total_pages", state.TotalPages).
			Msg("crawl run ended early")
	}
	summary.FinishedAt = time.Now()

	log.Info().
		Int("pages_fetched", summary.PagesFetched).
		Int("total_pages", summary.TotalPages).
		Bool("total_pages_defaulted", summary.TotalPagesDefaulted).
		Int("items_extracted", summary.ItemsExtracted).
		Int("items_persisted", summary.ItemsPersisted).
		Int("items_dropped", summary.ItemsDropped).
		Int("notifications_sent", summary.NotificationsSent).
		Bool("ended_early", summary.EndedEarly).
		Dur("duration", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("crawl run finished")

	return summary
}
