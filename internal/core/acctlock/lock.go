// Package acctlock serializes balance-mutating operations per wallet.
//
// The lock is single-flight and fail-fast: a second caller on a held
// wallet is rejected immediately with ErrBalanceMoving instead of
// queuing. Retry policy belongs to the caller. The key is the wallet
// address alone, so one wallet is serialized across every chain and
// game in the process.
package acctlock

import (
	"errors"
	"sync"

	"github.com/fairside/validator/internal/metrics"
)

// ErrBalanceMoving is the user-facing rejection for a contended wallet.
// It is expected behavior, not an incident.
var ErrBalanceMoving = errors.New("balance is moving")

// Locker holds the per-wallet lock table. One Locker is constructed at
// startup and shared by all bet-execution paths.
type Locker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocker creates an empty lock table.
func NewLocker() *Locker {
	return &Locker{held: make(map[string]struct{})}
}

// WithLock runs op while holding walletID's lock. If the lock is
// already held it returns ErrBalanceMoving without running op. The
// lock is always released, including when op fails or panics.
func (l *Locker) WithLock(walletID string, op func() error) error {
	l.mu.Lock()
	if _, taken := l.held[walletID]; taken {
		l.mu.Unlock()
		metrics.LockContention.Inc()
		return ErrBalanceMoving
	}
	l.held[walletID] = struct{}{}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, walletID)
		l.mu.Unlock()
	}()

	return op()
}
