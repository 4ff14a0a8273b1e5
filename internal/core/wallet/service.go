// Package wallet mutates the balance ledger under the account lock.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/fairside/validator/internal/core/acctlock"
	"github.com/fairside/validator/internal/core/domain"
	"github.com/fairside/validator/internal/infra/storage"
)

// ErrInsufficientBalance is a user error: the op would take the balance
// below zero.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Service runs balance mutations. Every read-modify-write goes through
// the locker so two concurrent bets on one wallet can never interleave.
type Service struct {
	repo   storage.WalletRepository
	locker *acctlock.Locker
}

// NewService creates a wallet service.
func NewService(repo storage.WalletRepository, locker *acctlock.Locker) *Service {
	return &Service{repo: repo, locker: locker}
}

// ApplyDelta adds delta (which may be negative) to the wallet's
// balance. A wallet seen for the first time starts at zero. A contended
// wallet fails fast with acctlock.ErrBalanceMoving, which is a user
// error, safe to surface.
func (s *Service) ApplyDelta(ctx context.Context, address string, delta int64) error {
	return s.locker.WithLock(address, func() error {
		w, err := s.repo.Get(ctx, address)
		if errors.Is(err, storage.ErrWalletNotFound) {
			w = &domain.Wallet{Address: address}
		} else if err != nil {
			return err
		}
		next := w.Balance + delta
		if next < 0 {
			return fmt.Errorf("%w: balance %d, delta %d", ErrInsufficientBalance, w.Balance, delta)
		}
		w.Balance = next
		return s.repo.Save(ctx, w)
	})
}

// Balance reads the current balance without taking the lock.
func (s *Service) Balance(ctx context.Context, address string) (int64, error) {
	w, err := s.repo.Get(ctx, address)
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}
