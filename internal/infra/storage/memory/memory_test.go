package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fairside/validator/internal/core/domain"
	"github.com/fairside/validator/internal/infra/storage"
)

func TestCursorAdvanceIsMonotonic(t *testing.T) {
	ctx := context.Background()
	repo := NewCursorRepo(NewMemoryStorage())

	if err := repo.Create(ctx, &domain.SyncCursor{
		ChainID: 1, EventName: "DiceOrdered", BlockCreated: 100, BlockSync: 100,
	}); err != nil {
		t.Fatal(err)
	}

	if err := repo.Advance(ctx, 1, "DiceOrdered", 150); err != nil {
		t.Fatal(err)
	}
	// A stale advance must not move the cursor backwards.
	if err := repo.Advance(ctx, 1, "DiceOrdered", 120); err != nil {
		t.Fatal(err)
	}

	cur, err := repo.Get(ctx, 1, "DiceOrdered")
	if err != nil {
		t.Fatal(err)
	}
	if cur.BlockSync != 150 {
		t.Errorf("blockSync = %d, want 150", cur.BlockSync)
	}
}

func TestCursorResetClampsToCreated(t *testing.T) {
	ctx := context.Background()
	repo := NewCursorRepo(NewMemoryStorage())

	if err := repo.Create(ctx, &domain.SyncCursor{
		ChainID: 1, EventName: "DiceOrdered", BlockCreated: 100, BlockSync: 500,
	}); err != nil {
		t.Fatal(err)
	}

	if err := repo.Reset(ctx, 1, "DiceOrdered", 50); err != nil {
		t.Fatal(err)
	}
	cur, _ := repo.Get(ctx, 1, "DiceOrdered")
	if cur.BlockSync != 100 {
		t.Errorf("reset below creation: blockSync = %d, want 100", cur.BlockSync)
	}

	if err := repo.Reset(ctx, 1, "DiceOrdered", 200); err != nil {
		t.Fatal(err)
	}
	cur, _ = repo.Get(ctx, 1, "DiceOrdered")
	if cur.BlockSync != 200 {
		t.Errorf("blockSync = %d, want 200", cur.BlockSync)
	}
}

func TestCursorGetMissing(t *testing.T) {
	repo := NewCursorRepo(NewMemoryStorage())
	if _, err := repo.Get(context.Background(), 1, "nope"); !errors.Is(err, storage.ErrCursorNotFound) {
		t.Errorf("Get missing cursor returned %v, want ErrCursorNotFound", err)
	}
}

func TestCursorCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewCursorRepo(NewMemoryStorage())

	first := &domain.SyncCursor{ChainID: 1, EventName: "DiceOrdered", BlockCreated: 100, BlockSync: 100}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := repo.Advance(ctx, 1, "DiceOrdered", 300); err != nil {
		t.Fatal(err)
	}
	// A concurrent second create must not clobber the advanced cursor.
	if err := repo.Create(ctx, first); err != nil {
		t.Fatal(err)
	}

	cur, _ := repo.Get(ctx, 1, "DiceOrdered")
	if cur.BlockSync != 300 {
		t.Errorf("re-create reset blockSync to %d, want 300", cur.BlockSync)
	}
}

func TestEventInsertBatchSkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepo(NewMemoryStorage())

	events := []*domain.ScrapedEvent{
		{ChainID: 1, EventName: "DiceOrdered", BlockNumber: 10, TxHash: "0xa", LogIndex: 0},
		{ChainID: 1, EventName: "DiceOrdered", BlockNumber: 10, TxHash: "0xa", LogIndex: 1},
	}

	inserted, err := repo.InsertBatch(ctx, events)
	if err != nil {
		t.Fatal(err)
	}
	if inserted != 2 {
		t.Errorf("first insert = %d, want 2", inserted)
	}

	inserted, err = repo.InsertBatch(ctx, events)
	if err != nil {
		t.Fatal(err)
	}
	if inserted != 0 {
		t.Errorf("duplicate insert = %d, want 0", inserted)
	}

	count, _ := repo.CountByEvent(ctx, 1, "DiceOrdered")
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestEventDeleteBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepo(NewMemoryStorage())

	now := time.Now()
	_, err := repo.InsertBatch(ctx, []*domain.ScrapedEvent{
		{ChainID: 1, EventName: "DiceOrdered", TxHash: "0xold", LogIndex: 0, BlockTime: now.Add(-48 * time.Hour)},
		{ChainID: 1, EventName: "DiceOrdered", TxHash: "0xnew", LogIndex: 0, BlockTime: now},
		{ChainID: 2, EventName: "DiceOrdered", TxHash: "0xother", LogIndex: 0, BlockTime: now.Add(-48 * time.Hour)},
	})
	if err != nil {
		t.Fatal(err)
	}

	deleted, err := repo.DeleteBefore(ctx, 1, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	// The other chain's rows are untouched.
	count, _ := repo.CountByEvent(ctx, 2, "DiceOrdered")
	if count != 1 {
		t.Errorf("chain 2 count = %d, want 1", count)
	}
}

func TestWalletRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewWalletRepo(NewMemoryStorage())

	if _, err := repo.Get(ctx, "0xabc"); !errors.Is(err, storage.ErrWalletNotFound) {
		t.Errorf("Get missing wallet returned %v, want ErrWalletNotFound", err)
	}

	if err := repo.Save(ctx, &domain.Wallet{Address: "0xabc", Balance: 42}); err != nil {
		t.Fatal(err)
	}
	w, err := repo.Get(ctx, "0xabc")
	if err != nil {
		t.Fatal(err)
	}
	if w.Balance != 42 {
		t.Errorf("balance = %d, want 42", w.Balance)
	}

	// Mutating the returned copy must not leak into the store.
	w.Balance = 999
	again, _ := repo.Get(ctx, "0xabc")
	if again.Balance != 42 {
		t.Error("repository returned a live reference, not a copy")
	}
}
