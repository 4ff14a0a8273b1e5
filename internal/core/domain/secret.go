package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Secret is a single-use server seed in the commit-reveal scheme.
// The hash is published to the client; the value stays private until
// the order that committed to it is resolved.
type Secret struct {
	Value         common.Hash
	Hash          common.Hash // keccak256(Value)
	CreatedAt     time.Time
	AutoDisposeAt time.Time
}

// Expired reports whether the secret has passed its disposal deadline.
func (s *Secret) Expired(now time.Time) bool {
	return !now.Before(s.AutoDisposeAt)
}

// IssuedSecret is the public half of an issued secret, safe to hand
// to a client.
type IssuedSecret struct {
	Hash          common.Hash `json:"secretHash"`
	AutoDisposeAt time.Time   `json:"disposedAt"`
}
