package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
)

// Backend is the read-side seam between the watchers/scrapers and a
// chain node. ethclient.Client satisfies it; tests substitute fakes.
type Backend interface {
	// BlockNumber returns the current chain head height
	BlockNumber(ctx context.Context) (uint64, error)

	// FilterLogs queries raw logs matching the filter
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)

	// HeaderByNumber fetches a block header (nil = latest)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}
