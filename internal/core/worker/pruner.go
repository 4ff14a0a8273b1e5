package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/fairside/validator/internal/core/config"
	"github.com/fairside/validator/internal/infra/storage"
)

// Pruner deletes scraped event rows past the retention period.
type Pruner struct {
	cfg    config.ChainConfig
	events storage.EventRepository
}

// NewPruner creates a new Pruner worker.
func NewPruner(cfg config.ChainConfig, events storage.EventRepository) *Pruner {
	return &Pruner{cfg: cfg, events: events}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.cfg.RetentionPeriod <= 0 {
		return // Retention disabled
	}

	// Check at roughly 10% of the retention period, clamped to [1m, 1h]
	interval := min(p.cfg.RetentionPeriod/10, time.Hour)
	interval = max(interval, time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().Add(-p.cfg.RetentionPeriod)
	deleted, err := p.events.DeleteBefore(ctx, p.cfg.ChainID, cutoff)
	if err != nil {
		slog.Warn("Prune failed", "chain", p.cfg.ChainID, "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Pruned events",
			"chain", p.cfg.ChainID, "deleted", deleted, "cutoff", cutoff)
	}
}
