// Package distlock keeps two pipeline runs from pushing to the same
// campaign at once. Redis is preferred; Postgres advisory locks cover
// deployments without Redis, and a process-local lock covers neither.
package distlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned by WithLock when another holder owns the lock.
var ErrHeld = errors.New("lock is held by another run")

// DistLock is a non-blocking mutual exclusion lock. A DistLock value
// represents one holder; concurrent holders need separate values.
type DistLock interface {
	// Acquire tries to take the lock and reports whether it did.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lock up if this holder still owns it.
	Release(ctx context.Context) error
}

// NewLock picks a backend: Redis when redisClient is set, Postgres when db
// is set, otherwise a lock that only excludes holders in this process.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) DistLock {
	switch {
	case redisClient != nil:
		return NewRedisLock(redisClient, key, ttl)
	case db != nil:
		return NewPGAdvisoryLock(db, key)
	default:
		return NewLocalLock(key)
	}
}

// WithLock runs fn while holding lock. It returns ErrHeld without calling
// fn when the lock is taken. Release uses a fresh context so a cancelled
// run still frees the lock.
func WithLock(ctx context.Context, lock DistLock, fn func(ctx context.Context) error) (err error) {
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrHeld
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if rerr := lock.Release(releaseCtx); rerr != nil {
			err = errors.Join(err, fmt.Errorf("release lock: %w", rerr))
		}
	}()
	return fn(ctx)
}

// PGAdvisoryLock uses pg_try_advisory_lock, which is session scoped: a
// dropped connection releases it.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
}

// NewPGAdvisoryLock derives the advisory lock id from key with FNV-1a.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	return &PGAdvisoryLock{db: db, lockID: LockID(key)}
}

// LockID maps key onto a Postgres advisory lock id.
func LockID(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64())
}

// Acquire implements DistLock.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	var acquired bool
	if err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		return false, fmt.Errorf("failed to acquire advisory lock %d: %w", l.lockID, err)
	}
	return acquired, nil
}

// Release implements DistLock.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}

var (
	localMu   sync.Mutex
	localHeld = map[string]bool{}
)

// LocalLock excludes holders of the same key within this process.
type LocalLock struct {
	key   string
	owned bool
}

// NewLocalLock creates a process-local lock for key.
func NewLocalLock(key string) *LocalLock {
	return &LocalLock{key: key}
}

// Acquire implements DistLock.
func (l *LocalLock) Acquire(context.Context) (bool, error) {
	localMu.Lock()
	defer localMu.Unlock()
	if localHeld[l.key] {
		return false, nil
	}
	localHeld[l.key] = true
	l.owned = true
	return true, nil
}

// Release implements DistLock.
func (l *LocalLock) Release(context.Context) error {
	localMu.Lock()
	defer localMu.Unlock()
	if l.owned {
		delete(localHeld, l.key)
		l.owned = false
	}
	return nil
}
