package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/fairside/validator/internal/infra/redis"
)

// RescanWorker drains operator-queued block ranges from Redis and
// re-ingests them through the scraper. Cursors are untouched; the
// skip-duplicate insert makes any overlap with already scraped history
// a no-op, so a rescan can never double-count.
type RescanWorker struct {
	chainID  uint64
	client   *redisclient.Client
	scraper  *Scraper
	interval time.Duration
	log      *slog.Logger
}

// NewRescanWorker creates a rescan worker for one chain.
func NewRescanWorker(
	chainID uint64,
	client *redisclient.Client,
	scraper *Scraper,
	interval time.Duration,
) *RescanWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &RescanWorker{
		chainID:  chainID,
		client:   client,
		scraper:  scraper,
		interval: interval,
		log:      slog.Default().With("chain", chainID),
	}
}

// Run polls the queue until ctx is cancelled.
func (w *RescanWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.drainOne(ctx); err != nil {
				w.log.Warn("Rescan tick failed", "error", err)
			}
		}
	}
}

func (w *RescanWorker) drainOne(ctx context.Context) error {
	start, end, found, err := w.client.PopRange(ctx, w.chainID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	jobID := uuid.NewString()
	log := w.log.With("job", jobID, "range", Range{Start: start, End: end}.String())
	log.Info("Rescanning range")

	var inserted int64
	for _, rng := range SplitRange(start, end, w.scraper.cfg.MaxRangeSize) {
		for _, ec := range w.scraper.cfg.Events {
			n, err := w.scraper.FetchRange(ctx, ec, rng.Start, rng.End)
			if err != nil {
				// Push the remainder back so the range isn't lost.
				if pushErr := w.client.PushRange(ctx, w.chainID, rng.Start, end); pushErr != nil {
					log.Error("Failed to requeue range", "error", pushErr)
				}
				return err
			}
			inserted += n
		}
	}

	log.Info("Rescan complete", "inserted", inserted)
	return nil
}
