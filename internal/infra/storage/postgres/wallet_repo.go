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

// WalletRepo implements storage.WalletRepository using PostgreSQL.
type WalletRepo struct {
	db *DB
}

// NewWalletRepo creates a new PostgreSQL wallet repository.
func NewWalletRepo(db *DB) *WalletRepo {
	return &WalletRepo{db: db}
}

type walletRow struct {
	Address   string    `db:"address"`
	Balance   int64     `db:"balance"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Get retrieves a wallet by address.
func (r *WalletRepo) Get(ctx context.Context, address string) (*domain.Wallet, error) {
	query := `SELECT address, balance, updated_at FROM wallets WHERE address = $1`

	var row walletRow
	err := r.db.GetContext(ctx, &row, query, address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &domain.Wallet{
		Address:   row.Address,
		Balance:   row.Balance,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// Save upserts a wallet row.
func (r *WalletRepo) Save(ctx context.Context, wallet *domain.Wallet) error {
	query := `
		INSERT INTO wallets (address, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (address) DO UPDATE SET
			balance = EXCLUDED.balance,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, wallet.Address, wallet.Balance)
	if err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	return nil
}
