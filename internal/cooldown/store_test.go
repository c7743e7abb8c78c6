package cooldown

import (
	"testing"
	"time"
)

func TestAllowArmsCooldown(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	store := NewStore(30 * time.Minute)
	store.now = func() time.Time { return now }

	if !store.Allow("chat:10") {
		t.Fatal("fresh key must be allowed")
	}
	if store.Allow("chat:10") {
		t.Fatal("armed key must be denied")
	}

	now = now.Add(29 * time.Minute)
	if store.Allow("chat:10") {
		t.Fatal("key inside TTL must be denied")
	}

	now = now.Add(time.Minute)
	if !store.Allow("chat:10") {
		t.Fatal("key past TTL must be allowed again")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	t.Parallel()

	store := NewStore(30 * time.Minute)
	if !store.Allow("chat:10") {
		t.Fatal("first key must be allowed")
	}
	if !store.Allow("chat:20") {
		t.Fatal("second key must not see the first key's cooldown")
	}
}

func TestRemaining(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	store := NewStore(30 * time.Minute)
	store.now = func() time.Time { return now }

	if got := store.Remaining("chat:10"); got != 0 {
		t.Fatalf("unarmed remaining = %v, want 0", got)
	}
	store.Allow("chat:10")
	now = now.Add(10 * time.Minute)
	if got := store.Remaining("chat:10"); got != 20*time.Minute {
		t.Fatalf("remaining = %v, want 20m", got)
	}
}

func TestStaleKeysAreSwept(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	store := NewStore(time.Minute)
	store.now = func() time.Time { return now }

	store.Allow("chat:10")
	store.Allow("chat:20")
	now = now.Add(2 * time.Minute)
	store.Allow("chat:30")

	store.mu.Lock()
	size := len(store.seen)
	store.mu.Unlock()
	if size != 1 {
		t.Fatalf("retained %d keys, want 1", size)
	}
}
