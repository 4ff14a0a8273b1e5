// Package secret issues and redeems the single-use server seeds of the
// commit-reveal scheme.
//
// Issue hands out a hash commitment; Consume redeems it exactly once.
// A secret left unconsumed is physically deleted at its disposal
// deadline, so the map stays bounded and clients are forced to use a
// commitment promptly. Consume never fails the caller: when the
// commitment cannot be honored it substitutes a fresh ad-hoc secret and
// flags the result as non-legitimate, trading provability for
// availability.
package secret

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fairside/validator/internal/core/domain"
	"github.com/fairside/validator/internal/metrics"
)

// Store holds live secrets keyed by their commitment hash. One Store is
// constructed at startup and shared by every watcher; there is no
// package-level instance.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	secrets map[common.Hash]*domain.Secret
	timers  map[common.Hash]*time.Timer
	now     func() time.Time
}

// NewStore creates a store whose secrets auto-dispose after ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:     ttl,
		secrets: make(map[common.Hash]*domain.Secret),
		timers:  make(map[common.Hash]*time.Timer),
		now:     time.Now,
	}
}

// Issue generates a fresh random 256-bit secret, keeps it until consumed
// or expired, and returns the public commitment.
func (s *Store) Issue() domain.IssuedSecret {
	var value common.Hash
	if _, err := rand.Read(value[:]); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// nothing sensible can be served at that point.
		panic(err)
	}

	now := s.now()
	sec := &domain.Secret{
		Value:         value,
		Hash:          crypto.Keccak256Hash(value[:]),
		CreatedAt:     now,
		AutoDisposeAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.secrets[sec.Hash] = sec
	s.timers[sec.Hash] = time.AfterFunc(s.ttl, func() { s.dispose(sec.Hash) })
	s.mu.Unlock()

	metrics.SecretsIssued.Inc()
	return domain.IssuedSecret{Hash: sec.Hash, AutoDisposeAt: sec.AutoDisposeAt}
}

// Consume redeems the secret committed to by hash. On a hit the secret
// is removed and returned with legitimate=true. On a miss, or when the
// secret expired between the timer firing and this call, a substitute
// random secret is returned with legitimate=false so the caller can
// still produce an outcome.
func (s *Store) Consume(hash common.Hash) (value common.Hash, legitimate bool) {
	s.mu.Lock()
	sec, ok := s.secrets[hash]
	if ok && !sec.Expired(s.now()) {
		delete(s.secrets, hash)
		if t := s.timers[hash]; t != nil {
			t.Stop()
			delete(s.timers, hash)
		}
		s.mu.Unlock()
		metrics.SecretsConsumed.WithLabelValues("legitimate").Inc()
		return sec.Value, true
	}
	s.mu.Unlock()

	var substitute common.Hash
	if _, err := rand.Read(substitute[:]); err != nil {
		panic(err)
	}
	metrics.SecretsConsumed.WithLabelValues("substitute").Inc()
	return substitute, false
}

// Len returns the number of live secrets.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.secrets)
}

func (s *Store) dispose(hash common.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.secrets[hash]; ok {
		delete(s.secrets, hash)
		delete(s.timers, hash)
		metrics.SecretsDisposed.Inc()
	}
}
