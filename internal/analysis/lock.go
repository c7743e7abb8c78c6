package analysis

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/snitchlab/snitchbot/internal/db"
	"github.com/snitchlab/snitchbot/internal/observability"
)

// ErrLockHeld means another run holds the chat and this one must abort.
var ErrLockHeld = errors.New("analysis lock held")

type lockStore interface {
	GetLock(ctx context.Context, chatID int64) (*db.AnalysisLock, error)
	PutLock(ctx context.Context, chatID int64, acquiredAt time.Time) error
	DeleteLock(ctx context.Context, chatID int64) error
}

// LockManager grants exclusive per-chat execution through a TTL'd lock
// record. There is no retry and no queue: contention aborts the caller.
// When storage itself fails the run proceeds unlocked; availability is
// favored over strict exclusion here.
type LockManager struct {
	store lockStore
	ttl   time.Duration
	now   func() time.Time
}

func NewLockManager(store lockStore, ttl time.Duration) *LockManager {
	return &LockManager{store: store, ttl: ttl, now: time.Now}
}

func (m *LockManager) Acquire(ctx context.Context, chatID int64) error {
	l := log.WithField("context", "lock").WithField("chat_id", chatID)

	now := m.now().UTC()
	lock, err := m.store.GetLock(ctx, chatID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		// fall through to grab
	case err != nil:
		l.WithError(err).Warn("lock read failed, proceeding unlocked")
		return nil
	case now.Sub(lock.AcquiredAt) < m.ttl:
		observability.RecordLockContention()
		return ErrLockHeld
	}

	if err := m.store.PutLock(ctx, chatID, now); err != nil {
		l.WithError(err).Warn("lock write failed, proceeding unlocked")
	}
	return nil
}

func (m *LockManager) Release(ctx context.Context, chatID int64) {
	if err := m.store.DeleteLock(ctx, chatID); err != nil {
		log.WithField("context", "lock").WithField("chat_id", chatID).
			WithError(err).Error("cant release lock")
	}
}
