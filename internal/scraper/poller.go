package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/fairside/validator/internal/infra/chain"
)

// PollHeads emits chain head heights on the returned channel. The first
// emission is immediate; each subsequent one waits interval or the stop
// signal, whichever fires first. Transient head-fetch errors are logged
// and retried next tick, never terminate the stream. The channel closes
// once ctx is cancelled or stop is closed.
func PollHeads(
	ctx context.Context,
	backend chain.Backend,
	interval time.Duration,
	stop <-chan struct{},
	log *slog.Logger,
) <-chan uint64 {
	heads := make(chan uint64)

	go func() {
		defer close(heads)

		timer := time.NewTimer(0) // first tick immediate
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-timer.C:
			}

			head, err := backend.BlockNumber(ctx)
			if err != nil {
				log.Warn("Failed to fetch chain head", "error", err)
			} else {
				select {
				case heads <- head:
				case <-ctx.Done():
					return
				case <-stop:
					return
				}
			}

			timer.Reset(interval)
		}
	}()

	return heads
}
