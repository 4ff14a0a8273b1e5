// Package memory provides in-memory repositories used in tests and
// when the service runs without a database URL.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fairside/validator/internal/core/domain"
	"github.com/fairside/validator/internal/infra/storage"
)

// MemoryStorage backs all in-memory repositories.
type MemoryStorage struct {
	mu      sync.RWMutex
	cursors map[string]*domain.SyncCursor
	events  map[string]*domain.ScrapedEvent
	wallets map[string]*domain.Wallet
}

// NewMemoryStorage creates empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		cursors: make(map[string]*domain.SyncCursor),
		events:  make(map[string]*domain.ScrapedEvent),
		wallets: make(map[string]*domain.Wallet),
	}
}

func cursorKey(chainID uint64, eventName string) string {
	return fmt.Sprintf("%d:%s", chainID, eventName)
}

func eventKey(ev *domain.ScrapedEvent) string {
	return fmt.Sprintf("%d:%s:%d", ev.ChainID, ev.TxHash, ev.LogIndex)
}

// CursorRepo implements storage.CursorRepository in memory.
type CursorRepo struct{ s *MemoryStorage }

// NewCursorRepo creates an in-memory cursor repository.
func NewCursorRepo(s *MemoryStorage) *CursorRepo { return &CursorRepo{s: s} }

func (r *CursorRepo) Get(
	ctx context.Context,
	chainID uint64,
	eventName string,
) (*domain.SyncCursor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	cursor, ok := r.s.cursors[cursorKey(chainID, eventName)]
	if !ok {
		return nil, storage.ErrCursorNotFound
	}
	c := *cursor
	return &c, nil
}

func (r *CursorRepo) Create(ctx context.Context, cursor *domain.SyncCursor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := cursorKey(cursor.ChainID, cursor.EventName)
	if _, exists := r.s.cursors[key]; exists {
		return nil
	}
	c := *cursor
	c.UpdatedAt = time.Now()
	r.s.cursors[key] = &c
	return nil
}

func (r *CursorRepo) Advance(
	ctx context.Context,
	chainID uint64,
	eventName string,
	blockSync uint64,
) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cursor, ok := r.s.cursors[cursorKey(chainID, eventName)]
	if !ok {
		return storage.ErrCursorNotFound
	}
	if blockSync > cursor.BlockSync {
		cursor.BlockSync = blockSync
		cursor.UpdatedAt = time.Now()
	}
	return nil
}

func (r *CursorRepo) Reset(
	ctx context.Context,
	chainID uint64,
	eventName string,
	blockSync uint64,
) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cursor, ok := r.s.cursors[cursorKey(chainID, eventName)]
	if !ok {
		return storage.ErrCursorNotFound
	}
	if blockSync < cursor.BlockCreated {
		blockSync = cursor.BlockCreated
	}
	cursor.BlockSync = blockSync
	cursor.UpdatedAt = time.Now()
	return nil
}

func (r *CursorRepo) List(ctx context.Context) ([]*domain.SyncCursor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	cursors := make([]*domain.SyncCursor, 0, len(r.s.cursors))
	for _, cursor := range r.s.cursors {
		c := *cursor
		cursors = append(cursors, &c)
	}
	return cursors, nil
}

// EventRepo implements storage.EventRepository in memory.
type EventRepo struct{ s *MemoryStorage }

// NewEventRepo creates an in-memory event repository.
func NewEventRepo(s *MemoryStorage) *EventRepo { return &EventRepo{s: s} }

func (r *EventRepo) InsertBatch(
	ctx context.Context,
	events []*domain.ScrapedEvent,
) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var inserted int64
	for _, ev := range events {
		key := eventKey(ev)
		if _, exists := r.s.events[key]; exists {
			continue
		}
		e := *ev
		r.s.events[key] = &e
		inserted++
	}
	return inserted, nil
}

func (r *EventRepo) DeleteBefore(
	ctx context.Context,
	chainID uint64,
	cutoff time.Time,
) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var deleted int64
	for key, ev := range r.s.events {
		if ev.ChainID == chainID && ev.BlockTime.Before(cutoff) {
			delete(r.s.events, key)
			deleted++
		}
	}
	return deleted, nil
}

func (r *EventRepo) CountByEvent(
	ctx context.Context,
	chainID uint64,
	eventName string,
) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var count int64
	for _, ev := range r.s.events {
		if ev.ChainID == chainID && ev.EventName == eventName {
			count++
		}
	}
	return count, nil
}

// WalletRepo implements storage.WalletRepository in memory.
type WalletRepo struct{ s *MemoryStorage }

// NewWalletRepo creates an in-memory wallet repository.
func NewWalletRepo(s *MemoryStorage) *WalletRepo { return &WalletRepo{s: s} }

func (r *WalletRepo) Get(ctx context.Context, address string) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wallet, ok := r.s.wallets[address]
	if !ok {
		return nil, storage.ErrWalletNotFound
	}
	w := *wallet
	return &w, nil
}

func (r *WalletRepo) Save(ctx context.Context, wallet *domain.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w := *wallet
	w.UpdatedAt = time.Now()
	r.s.wallets[wallet.Address] = &w
	return nil
}
