package scheduler

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"floodwatch/internal/db"
)

// AdvisoryLockGuard implements LeaderGuard on a Postgres advisory lock.
// Advisory locks are session-scoped, so the guard pins one pool connection
// for the duration of the hold; releasing through a different session would
// silently fail.
type AdvisoryLockGuard struct {
	pool *pgxpool.Pool
	key  int64
	conn *pgxpool.Conn
}

// NewAdvisoryLockGuard creates a guard on the default weather-poller key.
func NewAdvisoryLockGuard(pool *pgxpool.Pool) *AdvisoryLockGuard {
	return &AdvisoryLockGuard{pool: pool, key: pollerLockKey}
}

// TryAcquire attempts the lock without blocking. On success the underlying
// connection stays checked out until Release.
func (g *AdvisoryLockGuard) TryAcquire(ctx context.Context) (bool, error) {
	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}

	got, err := db.TryAdvisoryLock(ctx, conn, g.key)
	if err != nil || !got {
		conn.Release()
		return false, err
	}
	g.conn = conn
	return true, nil
}

// Release unlocks and returns the pinned connection to the pool.
func (g *AdvisoryLockGuard) Release(ctx context.Context) error {
	if g.conn == nil {
		return nil
	}
	err := db.AdvisoryUnlock(ctx, g.conn, g.key)
	g.conn.Release()
	g.conn = nil
	return err
}
