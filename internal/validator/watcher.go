package validator

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fairside/validator/internal/core/domain"
	"github.com/fairside/validator/internal/core/fairness"
	"github.com/fairside/validator/internal/core/secret"
	"github.com/fairside/validator/internal/infra/chain"
	"github.com/fairside/validator/internal/metrics"
)

// State is the watcher's position in the order lifecycle.
type State string

const (
	StateListening          State = "listening"
	StateOrderReceived      State = "order_received"
	StateSecretResolving    State = "secret_resolving"
	StateResponseSubmitting State = "response_submitting"
	StateConfirmed          State = "confirmed"
	StateErrorRecovering    State = "error_recovering"
)

// Completion is the daemon-level notification emitted after a watcher
// finishes one order, successfully or not.
type Completion struct {
	Game  string
	Nonce uint64
	Err   error
}

// Config holds one watcher's settings.
type Config struct {
	ChainID uint64
	Game    Game
	Backend chain.Backend
	Secrets *secret.Store

	// RecoverFromBlock is where the catch-up scan starts, closing the
	// gap from any prior downtime
	RecoverFromBlock uint64

	PollInterval time.Duration
}

// Watcher sequentially matches one game's order events to response
// submissions. Orders are processed strictly one at a time: order N+1
// is never submitted before order N's matching processed event has been
// observed, which keeps the nonce/response pairing deterministic and
// stops the signer racing itself.
type Watcher struct {
	cfg Config

	mu        sync.Mutex
	state     State
	fromBlock uint64

	injected    chan types.Log
	stop        <-chan struct{}
	completions chan<- Completion
	log         *slog.Logger
}

// NewWatcher creates a watcher; it starts scanning when the daemon runs it.
func NewWatcher(cfg Config) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Watcher{
		cfg:       cfg,
		state:     StateListening,
		fromBlock: cfg.RecoverFromBlock,
		injected:  make(chan types.Log, 16),
		log: slog.Default().With(
			"game", cfg.Game.Name, "chain", cfg.ChainID),
	}
}

// attach wires the daemon's stop broadcast and completion fan-in.
func (w *Watcher) attach(stop <-chan struct{}, completions chan<- Completion) {
	w.stop = stop
	w.completions = completions
}

// GameName returns the game this watcher serves.
func (w *Watcher) GameName() string {
	return w.cfg.Game.Name
}

// State returns the current lifecycle state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Watcher) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// MatchOrder scans a receipt for this watcher's order event and decodes
// it. False when the receipt carries no matching event, so a caller can
// try the next watcher.
func (w *Watcher) MatchOrder(receipt *types.Receipt) (types.Log, *domain.Order, bool) {
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != w.cfg.Game.Address {
			continue
		}
		if len(lg.Topics) == 0 || lg.Topics[0] != w.cfg.Game.OrderTopic {
			continue
		}
		order, err := w.cfg.Game.DecodeOrder(*lg)
		if err != nil {
			w.log.Warn("Receipt carries undecodable order event", "error", err)
			continue
		}
		return *lg, order, true
	}
	return types.Log{}, nil, false
}

// TryInject pushes a locally obtained receipt into this watcher's
// pipeline instead of waiting for the event to be re-observed. False
// when the receipt doesn't match this watcher's order event.
func (w *Watcher) TryInject(receipt *types.Receipt) bool {
	lg, _, ok := w.MatchOrder(receipt)
	if !ok {
		return false
	}
	return w.Inject(lg)
}

// Inject queues an already matched order log. False when the injection
// buffer is full.
func (w *Watcher) Inject(lg types.Log) bool {
	select {
	case w.injected <- lg:
		return true
	default:
		return false
	}
}

// run is the watcher loop: catch up from RecoverFromBlock, then poll
// live ranges, handling injected receipts with priority.
func (w *Watcher) run(ctx context.Context) {
	w.log.Info("Watcher started", "fromBlock", w.fromBlock)
	defer w.log.Info("Watcher stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		default:
		}

		// Injected receipts take priority over the scan.
		select {
		case lg := <-w.injected:
			w.handleOrderLog(ctx, lg)
			continue
		default:
		}

		if err := w.scanOnce(ctx); err != nil {
			w.log.Warn("Order scan failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case lg := <-w.injected:
			w.handleOrderLog(ctx, lg)
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// scanOnce scans [fromBlock, head] for order events and processes each
// in observed order.
func (w *Watcher) scanOnce(ctx context.Context) error {
	head, err := w.cfg.Backend.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch head: %w", err)
	}
	if head < w.fromBlock {
		return nil
	}

	logs, err := w.filterGameLogs(ctx, w.cfg.Game.OrderTopic, w.fromBlock, head)
	if err != nil {
		return fmt.Errorf("failed to scan orders: %w", err)
	}

	for _, lg := range logs {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stop:
			return nil
		default:
		}
		w.handleOrderLog(ctx, lg)
	}

	w.fromBlock = head + 1
	return nil
}

// handleOrderLog runs the full lifecycle for one order. A failure fails
// only this order; the watcher always returns to listening.
func (w *Watcher) handleOrderLog(ctx context.Context, lg types.Log) {
	order, err := w.cfg.Game.DecodeOrder(lg)
	if err != nil {
		w.log.Warn("Dropping undecodable order event",
			"tx", lg.TxHash.Hex(), "error", err)
		return
	}
	w.setState(StateOrderReceived)

	log := w.log.With("nonce", order.Nonce)
	if err := w.process(ctx, order); err != nil {
		w.setState(StateErrorRecovering)
		log.Error("Order processing failed", "error", err)
		metrics.OrdersFailed.WithLabelValues(w.cfg.Game.Name).Inc()
		w.notify(Completion{Game: w.cfg.Game.Name, Nonce: order.Nonce, Err: err})
	} else {
		log.Info("Order confirmed")
		metrics.OrdersProcessed.WithLabelValues(w.cfg.Game.Name).Inc()
		w.notify(Completion{Game: w.cfg.Game.Name, Nonce: order.Nonce})
	}
	w.setState(StateListening)
}

func (w *Watcher) process(ctx context.Context, order *domain.Order) error {
	// A response is produced exactly once per order. A recovery re-scan
	// or an injected receipt overlapping the live window may hand us an
	// order that is already resolved on chain; consuming the secret and
	// submitting again would double-process it.
	done, err := w.alreadyProcessed(ctx, order)
	if err != nil {
		return err
	}
	if done {
		w.log.Info("Order already resolved on chain, skipping", "nonce", order.Nonce)
		return nil
	}

	w.setState(StateSecretResolving)
	secretValue, legitimate := w.cfg.Secrets.Consume(order.HashedSecret)
	if !legitimate {
		// Availability over provability: the outcome is still served,
		// flagged as non-provable.
		w.log.Warn("Commitment could not be honored, substituting secret",
			"nonce", order.Nonce, "hashedSecret", order.HashedSecret.Hex())
	}

	resp := &domain.Response{
		Nonce:        order.Nonce,
		Legitimate:   legitimate,
		RandomNumber: fairness.Resolve(order.ClientSeed, secretValue, order.Nonce),
		UsedSecret:   secretValue,
	}

	w.setState(StateResponseSubmitting)
	txHash, err := w.cfg.Game.Submit(ctx, resp)
	if err != nil {
		return fmt.Errorf("failed to submit response: %w", err)
	}
	w.log.Debug("Response submitted", "nonce", order.Nonce, "tx", txHash.Hex())

	if err := w.waitProcessed(ctx, order); err != nil {
		return err
	}
	w.setState(StateConfirmed)
	return nil
}

// alreadyProcessed reports whether the order's matching processed event
// is already on chain in [order.BlockNumber, head].
func (w *Watcher) alreadyProcessed(ctx context.Context, order *domain.Order) (bool, error) {
	head, err := w.cfg.Backend.BlockNumber(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to fetch head: %w", err)
	}
	if head < order.BlockNumber {
		return false, nil
	}

	logs, err := w.filterGameLogs(ctx, w.cfg.Game.ProcessedTopic, order.BlockNumber, head)
	if err != nil {
		return false, fmt.Errorf("failed to scan confirmations: %w", err)
	}
	for _, lg := range logs {
		nonce, err := w.cfg.Game.ProcessedNonce(lg)
		if err != nil {
			continue
		}
		if nonce == order.Nonce {
			return true, nil
		}
	}
	return false, nil
}

// waitProcessed blocks until the processed event matching the order's
// nonce appears on chain. A submission already in flight is never
// hard-cancelled; shutdown only interrupts the wait.
func (w *Watcher) waitProcessed(ctx context.Context, order *domain.Order) error {
	from := order.BlockNumber
	for {
		head, err := w.cfg.Backend.BlockNumber(ctx)
		if err != nil {
			w.log.Warn("Failed to fetch head awaiting confirmation", "error", err)
		} else if head >= from {
			logs, err := w.filterGameLogs(ctx, w.cfg.Game.ProcessedTopic, from, head)
			if err != nil {
				w.log.Warn("Failed to scan confirmations", "error", err)
			} else {
				for _, lg := range logs {
					nonce, err := w.cfg.Game.ProcessedNonce(lg)
					if err != nil {
						continue
					}
					if nonce == order.Nonce {
						return nil
					}
				}
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("cancelled awaiting confirmation of nonce %d", order.Nonce)
		case <-w.stop:
			return fmt.Errorf("stopped awaiting confirmation of nonce %d", order.Nonce)
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

func (w *Watcher) filterGameLogs(
	ctx context.Context,
	topic common.Hash,
	fromBlock, toBlock uint64,
) ([]types.Log, error) {
	return w.cfg.Backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{w.cfg.Game.Address},
		Topics:    [][]common.Hash{{topic}},
	})
}

func (w *Watcher) notify(c Completion) {
	if w.completions == nil {
		return
	}
	select {
	case w.completions <- c:
	case <-w.stop:
	}
}
