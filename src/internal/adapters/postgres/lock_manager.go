package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PostgresLockManager hands out expiring named locks stored in the locks
// table. Every successful acquisition gets its own holder token, so two
// callers in one process exclude each other just as two processes do.
type PostgresLockManager struct {
	db  *sql.DB
	now func() time.Time

	mu     sync.Mutex
	held   map[string]string
	newTok func() string
}

func NewLockManager(db *sql.DB) *PostgresLockManager {
	return &PostgresLockManager{
		db:     db,
		now:    time.Now,
		held:   make(map[string]string),
		newTok: uuid.NewString,
	}
}

// TryAcquireLock takes key for ttl. A live lock is never re-entered; an
// expired one is taken over.
func (l *PostgresLockManager) TryAcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := l.newTok()
	expiresAt := l.now().Add(ttl)
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO locks (key, holder_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			holder_id = EXCLUDED.holder_id,
			expires_at = EXCLUDED.expires_at
		WHERE locks.expires_at < NOW()
	`, key, token, expiresAt)
	if err != nil {
		return false, fmt.Errorf("acquire lock %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire lock %q: %w", key, err)
	}
	if n == 0 {
		return false, nil
	}

	l.mu.Lock()
	l.held[key] = token
	l.mu.Unlock()
	return true, nil
}

// ReleaseLock drops the lock this process holds on key. It is a no-op when
// the lock was never taken here.
func (l *PostgresLockManager) ReleaseLock(ctx context.Context, key string) error {
	l.mu.Lock()
	token, ok := l.held[key]
	delete(l.held, key)
	l.mu.Unlock()
	if !ok {
		return nil
	}

	_, err := l.db.ExecContext(ctx,
		`DELETE FROM locks WHERE key = $1 AND holder_id = $2`, key, token)
	if err != nil {
		return fmt.Errorf("release lock %q: %w", key, err)
	}
	return nil
}
