package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mfurukawa/dellwatch/internal/cache"
	"github.com/mfurukawa/dellwatch/internal/orchestrator"
)

// CrawlWorker periodically launches a crawl run. A tick is skipped when the
// run lock reports an active run, so scheduled and manual launches never
// overlap.
type CrawlWorker struct {
	launcher *orchestrator.ECSLauncher
	lock     *cache.RunLock
	interval time.Duration
}

// NewCrawlWorker constructs a CrawlWorker.
func NewCrawlWorker(launcher *orchestrator.ECSLauncher, lock *cache.RunLock, interval time.Duration) *CrawlWorker {
	return &CrawlWorker{
		launcher: launcher,
		lock:     lock,
		interval: interval,
	}
}

// Start begins the periodic launch loop and listens for context cancellation.
func (w *CrawlWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting crawl worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Crawl worker stopped")
			return
		}
	}
}

func (w *CrawlWorker) run(ctx context.Context) {
	ok, holder, err := w.lock.Acquire(ctx, "pending")
	if err != nil {
		log.Error().Err(err).Msg("Failed to check run lock")
		return
	}
	if !ok {
		log.Info().Str("task_arn", holder).Msg("Skipping scheduled crawl, run already active")
		return
	}

	arn, err := w.launcher.StartRun(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to launch scheduled crawl")
		if relErr := w.lock.Release(ctx); relErr != nil {
			log.Warn().Err(relErr).Msg("Failed to release run lock after launch failure")
		}
		return
	}
	if err := w.lock.Update(ctx, arn); err != nil {
		log.Warn().Err(err).Str("task_arn", arn).Msg("Failed to record task arn on run lock")
	}

	log.Info().Str("task_arn", arn).Msg("Scheduled crawl launched")
}
