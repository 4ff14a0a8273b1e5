package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoRuntimes is returned when not a single configured chain could be
// validated; the process must not start in that case.
var ErrNoRuntimes = errors.New("no chain runtime could be validated")

// Registry holds one validated Runtime per configured chain.
type Registry struct {
	runtimes map[uint64]*Runtime
}

// NewRegistry validates every configured chain. A chain that fails
// validation is logged and skipped; an empty result is fatal.
func NewRegistry(
	ctx context.Context,
	cfgs []RuntimeConfig,
	key *ecdsa.PrivateKey,
) (*Registry, error) {
	runtimes := make(map[uint64]*Runtime)
	for _, cfg := range cfgs {
		rt, err := NewRuntime(ctx, cfg, key)
		if err != nil {
			slog.Warn("Skipping chain", "chainID", cfg.ChainID, "error", err)
			continue
		}
		runtimes[cfg.ChainID] = rt
		slog.Info("Chain runtime validated",
			"chainID", cfg.ChainID, "contract", rt.Address.Hex())
	}

	if len(runtimes) == 0 {
		return nil, ErrNoRuntimes
	}
	return &Registry{runtimes: runtimes}, nil
}

// Get returns the runtime for chainID. An unknown chain id is an
// invariant violation on the caller's side.
func (r *Registry) Get(chainID uint64) (*Runtime, error) {
	rt, ok := r.runtimes[chainID]
	if !ok {
		return nil, fmt.Errorf("unknown chain id %d", chainID)
	}
	return rt, nil
}

// All returns every validated runtime.
func (r *Registry) All() []*Runtime {
	out := make([]*Runtime, 0, len(r.runtimes))
	for _, rt := range r.runtimes {
		out = append(out, rt)
	}
	return out
}

// Close releases every runtime's connection.
func (r *Registry) Close() {
	for _, rt := range r.runtimes {
		rt.Close()
	}
}
