package storage

import (
	"context"
	"errors"
	"time"

	"github.com/fairside/validator/internal/core/domain"
)

var (
	// ErrCursorNotFound is returned when a sync cursor doesn't exist
	ErrCursorNotFound = errors.New("cursor not found")

	// ErrWalletNotFound is returned when a wallet row doesn't exist
	ErrWalletNotFound = errors.New("wallet not found")
)

// CursorRepository handles sync cursor storage operations.
// A cursor row is owned and advanced by exactly one scraper instance.
type CursorRepository interface {
	// Get retrieves the cursor for (chainID, eventName), ErrCursorNotFound if absent
	Get(ctx context.Context, chainID uint64, eventName string) (*domain.SyncCursor, error)

	// Create inserts a new cursor; blockSync starts at blockCreated
	Create(ctx context.Context, cursor *domain.SyncCursor) error

	// Advance moves blockSync forward; it never moves the cursor backwards
	Advance(ctx context.Context, chainID uint64, eventName string, blockSync uint64) error

	// Reset force-sets blockSync (administrative rewind)
	Reset(ctx context.Context, chainID uint64, eventName string, blockSync uint64) error

	// List retrieves all cursors
	List(ctx context.Context) ([]*domain.SyncCursor, error)
}

// EventRepository handles scraped event storage operations.
type EventRepository interface {
	// InsertBatch inserts events with skip-duplicate semantics on the
	// natural key (chain_id, tx_hash, log_index) and returns how many
	// rows were actually inserted
	InsertBatch(ctx context.Context, events []*domain.ScrapedEvent) (int64, error)

	// DeleteBefore removes events older than cutoff (retention)
	DeleteBefore(ctx context.Context, chainID uint64, cutoff time.Time) (int64, error)

	// CountByEvent returns stored row count for one event name
	CountByEvent(ctx context.Context, chainID uint64, eventName string) (int64, error)
}

// WalletRepository handles balance ledger rows. Mutations must run
// under the account lock; the repository itself does not serialize.
type WalletRepository interface {
	// Get retrieves a wallet by address, ErrWalletNotFound if absent
	Get(ctx context.Context, address string) (*domain.Wallet, error)

	// Save upserts a wallet row
	Save(ctx context.Context, wallet *domain.Wallet) error
}
