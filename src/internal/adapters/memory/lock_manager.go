package memory

import (
	"context"
	"sync"
	"time"
)

type lockEntry struct {
	expiresAt time.Time
}

// InMemoryLockManager is the single-process counterpart of the Postgres
// lock table.
type InMemoryLockManager struct {
	mu    sync.Mutex
	locks map[string]lockEntry
	now   func() time.Time
}

func NewLockManager() *InMemoryLockManager {
	return &InMemoryLockManager{
		locks: make(map[string]lockEntry),
		now:   time.Now,
	}
}

func (l *InMemoryLockManager) TryAcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.locks[key]; ok && now.Before(e.expiresAt) {
		return false, nil
	}
	l.locks[key] = lockEntry{expiresAt: now.Add(ttl)}
	return true, nil
}

func (l *InMemoryLockManager) ReleaseLock(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.locks, key)
	return nil
}
