package scraper

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestPollHeadsFirstEmissionIsImmediate(t *testing.T) {
	backend := &fakeBackend{head: 42}
	stop := make(chan struct{})
	defer close(stop)

	heads := PollHeads(context.Background(), backend, time.Hour, stop, slog.Default())

	select {
	case head := <-heads:
		if head != 42 {
			t.Errorf("first head = %d, want 42", head)
		}
	case <-time.After(time.Second):
		t.Fatal("no immediate emission; first tick waited for the interval")
	}
}

func TestPollHeadsStopClosesStream(t *testing.T) {
	backend := &fakeBackend{head: 42}
	stop := make(chan struct{})

	heads := PollHeads(context.Background(), backend, time.Millisecond, stop, slog.Default())
	<-heads
	close(stop)

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-heads:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after stop")
		}
	}
}

func TestPollHeadsContextCancelClosesStream(t *testing.T) {
	backend := &fakeBackend{head: 42}
	ctx, cancel := context.WithCancel(context.Background())

	heads := PollHeads(ctx, backend, time.Millisecond, make(chan struct{}), slog.Default())
	<-heads
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-heads:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after context cancellation")
		}
	}
}

func TestPollHeadsSurvivesTransientErrors(t *testing.T) {
	backend := &fakeBackend{headErr: errors.New("rpc down")}
	stop := make(chan struct{})
	defer close(stop)

	heads := PollHeads(context.Background(), backend, time.Millisecond, stop, slog.Default())

	// No emissions while the backend fails.
	select {
	case head := <-heads:
		t.Fatalf("emitted %d during backend failure", head)
	case <-time.After(20 * time.Millisecond):
	}

	backend.mu.Lock()
	backend.headErr = nil
	backend.head = 77
	backend.mu.Unlock()

	select {
	case head := <-heads:
		if head != 77 {
			t.Errorf("head = %d after recovery, want 77", head)
		}
	case <-time.After(time.Second):
		t.Fatal("stream did not resume after the backend recovered")
	}
}
