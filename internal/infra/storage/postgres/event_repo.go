package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/fairside/validator/internal/core/domain"
)

// EventRepo implements storage.EventRepository using PostgreSQL.
type EventRepo struct {
	db *DB
}

// NewEventRepo creates a new PostgreSQL event repository.
func NewEventRepo(db *DB) *EventRepo {
	return &EventRepo{db: db}
}

// InsertBatch inserts events, skipping rows whose natural key
// (chain_id, tx_hash, log_index) already exists. A crashed scrape that
// re-scans its last range therefore inserts nothing the second time.
// This safety depends on the key being derived purely from chain data;
// see domain.ScrapedEvent.
func (r *EventRepo) InsertBatch(
	ctx context.Context,
	events []*domain.ScrapedEvent,
) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO scraped_events
			(chain_id, event_name, block_number, block_time, tx_hash, log_index, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (chain_id, tx_hash, log_index) DO NOTHING
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var inserted int64
	for _, ev := range events {
		res, err := stmt.ExecContext(ctx,
			ev.ChainID,
			ev.EventName,
			ev.BlockNumber,
			ev.BlockTime,
			ev.TxHash,
			ev.LogIndex,
			ev.Payload,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert event %s/%d: %w", ev.TxHash, ev.LogIndex, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// DeleteBefore removes events older than cutoff.
func (r *EventRepo) DeleteBefore(
	ctx context.Context,
	chainID uint64,
	cutoff time.Time,
) (int64, error) {
	query := `DELETE FROM scraped_events WHERE chain_id = $1 AND block_time < $2`
	res, err := r.db.ExecContext(ctx, query, chainID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}
	return res.RowsAffected()
}

// CountByEvent returns stored row count for one event name.
func (r *EventRepo) CountByEvent(
	ctx context.Context,
	chainID uint64,
	eventName string,
) (int64, error) {
	query := `SELECT COUNT(*) FROM scraped_events WHERE chain_id = $1 AND event_name = $2`
	var count int64
	if err := r.db.GetContext(ctx, &count, query, chainID, eventName); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}
