package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RunLock is a per-tenant mutual exclusion keyed in Redis. Two overlapping
// scrape runs for one tenant would race on the ledger's check-then-insert,
// so a run must hold this lock for its whole duration.
type RunLock struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewRunLock creates a RunLock. The TTL is a safety bound for crashed
// holders; a healthy run releases explicitly.
func NewRunLock(redis *RedisClient, ttl time.Duration) *RunLock {
	return &RunLock{redis: redis, ttl: ttl}
}

func lockKey(tenantID string) string {
	return fmt.Sprintf("scrape:run-lock:%s", tenantID)
}

// Acquire attempts to take the run lock for a tenant. On success it returns
// a release function; on contention it returns ok=false.
func (l *RunLock) Acquire(ctx context.Context, tenantID string) (release func(), ok bool, err error) {
	key := lockKey(tenantID)
	token := uuid.NewString()

	ok, err = l.redis.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("acquiring run lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release = func() {
		// Only delete the lock if we still own it.
		const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.redis.GetClient().Eval(ctx, script, []string{key}, token).Err(); err != nil {
			log.Warn().Err(err).Str("tenant_id", tenantID).Msg("Failed to release run lock, relying on TTL expiry")
		}
	}
	return release, true, nil
}
