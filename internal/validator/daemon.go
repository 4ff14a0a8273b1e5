package validator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/core/types"
)

// ErrNoMatchingWatcher is returned when an injected receipt carries no
// order event any watcher recognizes.
var ErrNoMatchingWatcher = errors.New("receipt matches no watcher")

type waiterKey struct {
	game  string
	nonce uint64
}

// Daemon owns a set of watchers sharing one signer and one secret
// store, merges their completion activity into one supervised loop and
// coordinates graceful shutdown.
type Daemon struct {
	watchers    []*Watcher
	keepAlive   atomic.Bool
	stop        chan struct{}
	stopOnce    sync.Once
	completions chan Completion

	waitersMu sync.Mutex
	waiters   map[waiterKey]chan Completion

	wg  sync.WaitGroup
	log *slog.Logger
}

// NewDaemon creates a daemon over the given watchers.
func NewDaemon(watchers []*Watcher) *Daemon {
	d := &Daemon{
		watchers:    watchers,
		stop:        make(chan struct{}),
		completions: make(chan Completion, 16),
		waiters:     make(map[waiterKey]chan Completion),
		log:         slog.Default(),
	}
	for _, w := range watchers {
		w.attach(d.stop, d.completions)
	}
	return d
}

// Run supervises every watcher and dispatches completion notifications
// until Stop or ctx cancellation. Watchers run concurrently with each
// other; each is strictly sequential internally.
func (d *Daemon) Run(ctx context.Context) error {
	d.keepAlive.Store(true)

	for _, w := range d.watchers {
		d.wg.Add(1)
		go func(w *Watcher) {
			defer d.wg.Done()
			w.run(ctx)
		}(w)
	}

	watchersDone := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(watchersDone)
	}()

	for {
		select {
		case <-watchersDone:
			// Watchers can exit with completions still buffered;
			// dispatch them so a pending waiter gets its order's real
			// result instead of a shutdown error.
			for {
				select {
				case c := <-d.completions:
					d.dispatch(c)
				default:
					return nil
				}
			}
		case c := <-d.completions:
			d.dispatch(c)
			if !d.keepAlive.Load() {
				// Stop was requested; watchers are already draining via
				// the stop broadcast. Keep dispatching until they exit.
				continue
			}
		}
	}
}

// Stop clears keepAlive and broadcasts the stop signal every sleeping
// poll races against, then waits for the watchers to drain. An order
// mid-submission finishes; shutdown latency is bounded by signal
// propagation, not poll timers.
func (d *Daemon) Stop(ctx context.Context) error {
	d.keepAlive.Store(false)
	d.stopOnce.Do(func() { close(d.stop) })

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InjectAndWait pushes a locally obtained receipt into the first
// watcher that recognizes it and blocks until that order's completion
// notification fires. The returned error is the order's processing
// error, if any.
func (d *Daemon) InjectAndWait(ctx context.Context, receipt *types.Receipt) error {
	for _, w := range d.watchers {
		lg, order, ok := w.MatchOrder(receipt)
		if !ok {
			continue
		}

		// Register before injecting so a fast completion can't slip by.
		key := waiterKey{game: order.Game, nonce: order.Nonce}
		ch := d.register(key)

		if !w.Inject(lg) {
			d.unregister(key)
			return errors.New("watcher injection buffer full")
		}

		select {
		case c := <-ch:
			return c.Err
		case <-ctx.Done():
			d.unregister(key)
			return ctx.Err()
		case <-d.stop:
			d.unregister(key)
			return errors.New("daemon stopping")
		}
	}
	return ErrNoMatchingWatcher
}

// Watchers returns the supervised watchers (read-only view for health).
func (d *Daemon) Watchers() []*Watcher {
	return d.watchers
}

func (d *Daemon) register(key waiterKey) chan Completion {
	ch := make(chan Completion, 1)
	d.waitersMu.Lock()
	d.waiters[key] = ch
	d.waitersMu.Unlock()
	return ch
}

func (d *Daemon) unregister(key waiterKey) {
	d.waitersMu.Lock()
	delete(d.waiters, key)
	d.waitersMu.Unlock()
}

func (d *Daemon) dispatch(c Completion) {
	key := waiterKey{game: c.Game, nonce: c.Nonce}
	d.waitersMu.Lock()
	ch, ok := d.waiters[key]
	if ok {
		delete(d.waiters, key)
	}
	d.waitersMu.Unlock()

	if ok {
		ch <- c
	}
	d.log.Debug("Order completed",
		"game", c.Game, "nonce", c.Nonce, "error", c.Err)
}
