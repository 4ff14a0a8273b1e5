// Package scraper ingests a contract's event log into the store behind
// a persisted sync cursor.
//
// Each event name owns an independent cursor and scrapes concurrently
// with the others, so one slow formatter never stalls another's
// progress. Cursor advance and row insert are deliberately not atomic:
// a crash between them re-scans the last range on restart, and the
// skip-duplicate insert keyed by (chain_id, tx_hash, log_index) makes
// the re-scan a no-op. That safety holds only while the key is derived
// purely from chain data.
package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fairside/validator/internal/core/domain"
	"github.com/fairside/validator/internal/infra/chain"
	"github.com/fairside/validator/internal/infra/storage"
	"github.com/fairside/validator/internal/metrics"
)

// errUndecodableLog marks a log that can never decode against the
// event ABI. Retrying the range cannot help; the log is skipped so one
// poison log does not freeze the cursor. Transient errors (fetches that
// may succeed next tick) are never wrapped with it.
var errUndecodableLog = errors.New("undecodable log")

// EventConfig describes how to scrape one contract event.
type EventConfig struct {
	// Name is the event name; it keys the sync cursor
	Name string

	// Filter builds the log filter without a block range
	Filter func() ethereum.FilterQuery

	// Format maps one raw log to a row; it may perform further chain
	// reads such as fetching the block timestamp
	Format func(ctx context.Context, lg types.Log) (*domain.ScrapedEvent, error)
}

// NewEventConfig builds the standard config for one ABI event on a
// runtime's contract: filter on (contract address, event topic), decode
// args into a JSON payload, resolve the block timestamp via the header.
func NewEventConfig(rt *chain.Runtime, eventName string) (EventConfig, error) {
	ev, ok := rt.ABI.Events[eventName]
	if !ok {
		return EventConfig{}, fmt.Errorf("event %s not in contract ABI", eventName)
	}

	var (
		tsMu    sync.Mutex
		tsCache = make(map[uint64]time.Time)
	)
	blockTime := func(ctx context.Context, number uint64) (time.Time, error) {
		tsMu.Lock()
		if ts, ok := tsCache[number]; ok {
			tsMu.Unlock()
			return ts, nil
		}
		tsMu.Unlock()

		header, err := rt.Reader.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to fetch header %d: %w", number, err)
		}
		ts := time.Unix(int64(header.Time), 0).UTC()

		tsMu.Lock()
		tsCache[number] = ts
		if len(tsCache) > 1024 {
			tsCache = map[uint64]time.Time{number: ts}
		}
		tsMu.Unlock()
		return ts, nil
	}

	return EventConfig{
		Name: eventName,
		Filter: func() ethereum.FilterQuery {
			return ethereum.FilterQuery{
				Addresses: []common.Address{rt.Address},
				Topics:    [][]common.Hash{{ev.ID}},
			}
		},
		Format: func(ctx context.Context, lg types.Log) (*domain.ScrapedEvent, error) {
			args := make(map[string]any)
			if len(lg.Data) > 0 {
				if err := rt.ABI.UnpackIntoMap(args, eventName, lg.Data); err != nil {
					return nil, fmt.Errorf("%w: failed to unpack %s: %v", errUndecodableLog, eventName, err)
				}
			}
			if indexed := indexedArgs(ev); len(indexed) > 0 {
				if err := abi.ParseTopicsIntoMap(args, indexed, lg.Topics[1:]); err != nil {
					return nil, fmt.Errorf("%w: failed to parse %s topics: %v", errUndecodableLog, eventName, err)
				}
			}
			payload, err := json.Marshal(args)
			if err != nil {
				return nil, fmt.Errorf("%w: failed to encode payload: %v", errUndecodableLog, err)
			}

			ts, err := blockTime(ctx, lg.BlockNumber)
			if err != nil {
				return nil, err
			}

			return &domain.ScrapedEvent{
				ChainID:     rt.ChainID,
				EventName:   eventName,
				BlockNumber: lg.BlockNumber,
				BlockTime:   ts,
				TxHash:      lg.TxHash.Hex(),
				LogIndex:    uint64(lg.Index),
				Payload:     payload,
			}, nil
		},
	}, nil
}

func indexedArgs(ev abi.Event) abi.Arguments {
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

// Config holds one scraper's settings.
type Config struct {
	ChainID      uint64
	Backend      chain.Backend
	DeployBlock  uint64
	PollInterval time.Duration
	MaxRangeSize uint64
	Events       []EventConfig
	Cursors      storage.CursorRepository
	Store        storage.EventRepository
}

// Scraper drives cursor-based ingestion for one contract.
type Scraper struct {
	cfg  Config
	stop chan struct{}
	log  *slog.Logger
}

// New creates a scraper.
func New(cfg Config) *Scraper {
	return &Scraper{
		cfg:  cfg,
		stop: make(chan struct{}),
		log:  slog.Default().With("chain", cfg.ChainID),
	}
}

// Run scrapes every configured event until ctx is cancelled or Stop is
// called. It returns once all event loops have drained.
func (s *Scraper) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, ec := range s.cfg.Events {
		wg.Add(1)
		go func(ec EventConfig) {
			defer wg.Done()
			s.eventLoop(ctx, ec)
		}(ec)
	}
	wg.Wait()
	return nil
}

// Stop signals every event loop to exit; bounded by signal latency, not
// the poll interval.
func (s *Scraper) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
}

func (s *Scraper) eventLoop(ctx context.Context, ec EventConfig) {
	log := s.log.With("event", ec.Name)
	chainLabel := fmt.Sprintf("%d", s.cfg.ChainID)

	cur, err := s.ensureCursor(ctx, ec.Name)
	if err != nil {
		log.Error("Failed to initialize cursor", "error", err)
		return
	}
	log.Info("Scraper started", "blockSync", cur.BlockSync)

	heads := PollHeads(ctx, s.cfg.Backend, s.cfg.PollInterval, s.stop, log)
	for head := range heads {
		metrics.ChainHead.WithLabelValues(chainLabel).Set(float64(head))
		if head <= cur.BlockSync {
			continue
		}

		for _, rng := range SplitRange(cur.BlockSync+1, head, s.cfg.MaxRangeSize) {
			select {
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			default:
			}

			inserted, err := s.FetchRange(ctx, ec, rng.Start, rng.End)
			if err != nil {
				// Transient; the next tick re-scans the same range.
				log.Warn("Scrape range failed", "range", rng.String(), "error", err)
				metrics.ScrapeErrors.WithLabelValues(chainLabel, ec.Name).Inc()
				break
			}
			if inserted > 0 {
				metrics.EventsScraped.WithLabelValues(chainLabel, ec.Name).Add(float64(inserted))
				log.Debug("Scraped range", "range", rng.String(), "inserted", inserted)
			}

			if err := s.cfg.Cursors.Advance(ctx, s.cfg.ChainID, ec.Name, rng.End); err != nil {
				log.Warn("Cursor advance failed", "block", rng.End, "error", err)
				break
			}
			cur.BlockSync = rng.End
			metrics.CursorBlock.WithLabelValues(chainLabel, ec.Name).Set(float64(rng.End))
		}
	}
}

// FetchRange queries raw logs in the inclusive range, formats each and
// bulk-inserts with skip-duplicate semantics. It returns how many rows
// were actually inserted, so a re-scanned range reports zero.
func (s *Scraper) FetchRange(
	ctx context.Context,
	ec EventConfig,
	fromBlock, toBlock uint64,
) (int64, error) {
	q := ec.Filter()
	q.FromBlock = new(big.Int).SetUint64(fromBlock)
	q.ToBlock = new(big.Int).SetUint64(toBlock)

	logs, err := s.cfg.Backend.FilterLogs(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("failed to filter logs [%d,%d]: %w", fromBlock, toBlock, err)
	}

	events := make([]*domain.ScrapedEvent, 0, len(logs))
	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		ev, err := ec.Format(ctx, lg)
		if errors.Is(err, errUndecodableLog) {
			s.log.Warn("Skipping undecodable log",
				"event", ec.Name, "tx", lg.TxHash.Hex(), "index", lg.Index, "error", err)
			metrics.ScrapeErrors.WithLabelValues(fmt.Sprintf("%d", s.cfg.ChainID), ec.Name).Inc()
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to format log %s/%d: %w", lg.TxHash.Hex(), lg.Index, err)
		}
		events = append(events, ev)
	}

	return s.cfg.Store.InsertBatch(ctx, events)
}

// ensureCursor loads the event's cursor, creating it at the contract
// deployment block on first run.
func (s *Scraper) ensureCursor(ctx context.Context, eventName string) (*domain.SyncCursor, error) {
	cur, err := s.cfg.Cursors.Get(ctx, s.cfg.ChainID, eventName)
	if err == nil {
		return cur, nil
	}
	if err != storage.ErrCursorNotFound {
		return nil, err
	}

	cur = &domain.SyncCursor{
		ChainID:      s.cfg.ChainID,
		EventName:    eventName,
		BlockCreated: s.cfg.DeployBlock,
		BlockSync:    s.cfg.DeployBlock,
	}
	if err := s.cfg.Cursors.Create(ctx, cur); err != nil {
		return nil, err
	}
	// Re-read in case a concurrent create won.
	return s.cfg.Cursors.Get(ctx, s.cfg.ChainID, eventName)
}
