package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/fairside/validator/internal/core/acctlock"
	"github.com/fairside/validator/internal/infra/storage/memory"
)

func newTestService() (*Service, *acctlock.Locker) {
	store := memory.NewMemoryStorage()
	locker := acctlock.NewLocker()
	return NewService(memory.NewWalletRepo(store), locker), locker
}

func TestApplyDeltaCreatesWallet(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if err := svc.ApplyDelta(ctx, "0xabc", 100); err != nil {
		t.Fatalf("ApplyDelta on fresh wallet returned %v", err)
	}

	balance, err := svc.Balance(ctx, "0xabc")
	if err != nil {
		t.Fatalf("Balance returned %v", err)
	}
	if balance != 100 {
		t.Errorf("balance = %d, want 100", balance)
	}
}

func TestApplyDeltaAccumulates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, delta := range []int64{100, -30, 5} {
		if err := svc.ApplyDelta(ctx, "0xabc", delta); err != nil {
			t.Fatalf("ApplyDelta(%d) returned %v", delta, err)
		}
	}

	balance, _ := svc.Balance(ctx, "0xabc")
	if balance != 75 {
		t.Errorf("balance = %d, want 75", balance)
	}
}

func TestApplyDeltaRejectsOverdraft(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if err := svc.ApplyDelta(ctx, "0xabc", 50); err != nil {
		t.Fatal(err)
	}
	if err := svc.ApplyDelta(ctx, "0xabc", -60); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("overdraft returned %v, want ErrInsufficientBalance", err)
	}

	// The failed op must not have mutated the balance.
	balance, _ := svc.Balance(ctx, "0xabc")
	if balance != 50 {
		t.Errorf("balance = %d after rejected overdraft, want 50", balance)
	}
}

func TestApplyDeltaFailsFastUnderContention(t *testing.T) {
	svc, locker := newTestService()
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = locker.WithLock("0xabc", func() error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	defer close(release)

	if err := svc.ApplyDelta(ctx, "0xabc", 10); !errors.Is(err, acctlock.ErrBalanceMoving) {
		t.Errorf("contended ApplyDelta returned %v, want ErrBalanceMoving", err)
	}
}
