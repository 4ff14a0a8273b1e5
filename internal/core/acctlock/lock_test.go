package acctlock

import (
	"errors"
	"testing"
	"time"
)

func TestWithLockRunsOp(t *testing.T) {
	l := NewLocker()

	ran := false
	if err := l.WithLock("0xabc", func() error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("WithLock returned %v", err)
	}
	if !ran {
		t.Error("op did not run")
	}
}

func TestWithLockPropagatesOpError(t *testing.T) {
	l := NewLocker()
	opErr := errors.New("boom")

	if err := l.WithLock("0xabc", func() error { return opErr }); !errors.Is(err, opErr) {
		t.Errorf("WithLock returned %v, want %v", err, opErr)
	}

	// The lock must be free again after a failed op.
	if err := l.WithLock("0xabc", func() error { return nil }); err != nil {
		t.Errorf("lock still held after failed op: %v", err)
	}
}

func TestWithLockFailsFastWhenHeld(t *testing.T) {
	l := NewLocker()

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = l.WithLock("0xabc", func() error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	if err := l.WithLock("0xabc", func() error { return nil }); !errors.Is(err, ErrBalanceMoving) {
		t.Errorf("contended WithLock returned %v, want ErrBalanceMoving", err)
	}

	// A different wallet is unaffected.
	if err := l.WithLock("0xdef", func() error { return nil }); err != nil {
		t.Errorf("unrelated wallet rejected: %v", err)
	}

	close(release)
}

func TestWithLockExactlyOneWinner(t *testing.T) {
	l := NewLocker()

	const n = 16
	start := make(chan struct{})
	release := make(chan struct{})
	results := make(chan error, n)

	for i := 0; i < n; i++ {
		go func() {
			<-start
			results <- l.WithLock("0xabc", func() error {
				<-release
				return nil
			})
		}()
	}
	close(start)

	var rejected int
	for rejected < n-1 {
		select {
		case err := <-results:
			if !errors.Is(err, ErrBalanceMoving) {
				t.Fatalf("expected ErrBalanceMoving, got %v", err)
			}
			rejected++
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d losers rejected in time", rejected, n-1)
		}
	}

	close(release)
	if err := <-results; err != nil {
		t.Errorf("winner returned %v", err)
	}
}
