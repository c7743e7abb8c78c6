package cooldown

import (
	"sync"
	"time"
)

// Store is an in-memory keyed rate gate. Allow reports whether the key
// is past its cooldown and, if so, arms it again. Entries for keys that
// went quiet are swept lazily on each call, so the map stays bounded by
// the set of recently active keys.
type Store struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:  ttl,
		seen: map[string]time.Time{},
		now:  time.Now,
	}
}

// Allow returns true when the key has not fired within the TTL. A true
// result arms the cooldown; a false result leaves the existing deadline
// in place.
func (s *Store) Allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, at := range s.seen {
		if now.Sub(at) >= s.ttl {
			delete(s.seen, k)
		}
	}
	if at, ok := s.seen[key]; ok && now.Sub(at) < s.ttl {
		return false
	}
	s.seen[key] = now
	return true
}

// Remaining reports how long until the key may fire again. Zero means
// it is free now.
func (s *Store) Remaining(key string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.seen[key]
	if !ok {
		return 0
	}
	left := s.ttl - s.now().Sub(at)
	if left < 0 {
		return 0
	}
	return left
}
