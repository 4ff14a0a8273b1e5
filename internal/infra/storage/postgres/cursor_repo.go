package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fairside/validator/internal/core/domain"
	"github.com/fairside/validator/internal/infra/storage"
)

// CursorRepo implements storage.CursorRepository using PostgreSQL.
type CursorRepo struct {
	db *DB
}

// NewCursorRepo creates a new PostgreSQL cursor repository.
func NewCursorRepo(db *DB) *CursorRepo {
	return &CursorRepo{db: db}
}

type cursorRow struct {
	ChainID      uint64    `db:"chain_id"`
	EventName    string    `db:"event_name"`
	BlockCreated uint64    `db:"block_created"`
	BlockSync    uint64    `db:"block_sync"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (c *cursorRow) toDomain() *domain.SyncCursor {
	return &domain.SyncCursor{
		ChainID:      c.ChainID,
		EventName:    c.EventName,
		BlockCreated: c.BlockCreated,
		BlockSync:    c.BlockSync,
		UpdatedAt:    c.UpdatedAt,
	}
}

// Get retrieves the cursor for (chainID, eventName).
func (r *CursorRepo) Get(
	ctx context.Context,
	chainID uint64,
	eventName string,
) (*domain.SyncCursor, error) {
	query := `
		SELECT chain_id, event_name, block_created, block_sync, updated_at
		FROM sync_cursors
		WHERE chain_id = $1 AND event_name = $2
	`

	var row cursorRow
	err := r.db.GetContext(ctx, &row, query, chainID, eventName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrCursorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cursor: %w", err)
	}
	return row.toDomain(), nil
}

// Create inserts a new cursor. A concurrent create of the same key is a
// no-op so two racing first runs cannot duplicate the row.
func (r *CursorRepo) Create(ctx context.Context, cursor *domain.SyncCursor) error {
	query := `
		INSERT INTO sync_cursors (chain_id, event_name, block_created, block_sync, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (chain_id, event_name) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		cursor.ChainID, cursor.EventName, cursor.BlockCreated, cursor.BlockSync)
	if err != nil {
		return fmt.Errorf("failed to create cursor: %w", err)
	}
	return nil
}

// Advance moves blockSync forward. The guard keeps the cursor
// monotonically non-decreasing even on a duplicated advance.
func (r *CursorRepo) Advance(
	ctx context.Context,
	chainID uint64,
	eventName string,
	blockSync uint64,
) error {
	query := `
		UPDATE sync_cursors
		SET block_sync = $3, updated_at = NOW()
		WHERE chain_id = $1 AND event_name = $2 AND block_sync < $3
	`
	_, err := r.db.ExecContext(ctx, query, chainID, eventName, blockSync)
	if err != nil {
		return fmt.Errorf("failed to advance cursor: %w", err)
	}
	return nil
}

// Reset force-sets blockSync, clamped to block_created.
func (r *CursorRepo) Reset(
	ctx context.Context,
	chainID uint64,
	eventName string,
	blockSync uint64,
) error {
	query := `
		UPDATE sync_cursors
		SET block_sync = GREATEST(block_created, $3), updated_at = NOW()
		WHERE chain_id = $1 AND event_name = $2
	`
	res, err := r.db.ExecContext(ctx, query, chainID, eventName, blockSync)
	if err != nil {
		return fmt.Errorf("failed to reset cursor: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return storage.ErrCursorNotFound
	}
	return nil
}

// List retrieves all cursors.
func (r *CursorRepo) List(ctx context.Context) ([]*domain.SyncCursor, error) {
	query := `
		SELECT chain_id, event_name, block_created, block_sync, updated_at
		FROM sync_cursors
		ORDER BY chain_id, event_name
	`

	var rows []cursorRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list cursors: %w", err)
	}

	cursors := make([]*domain.SyncCursor, 0, len(rows))
	for i := range rows {
		cursors = append(cursors, rows[i].toDomain())
	}
	return cursors, nil
}
