package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Two concurrent crawl runs writing the same order_code would interleave
// non-deterministically, so the API refuses to start a run while one is
// active. RunLock enforces that with a single redis key holding the active
// task ARN; the TTL bounds how long a crashed run can wedge the lock.
const (
	activeRunKey = "crawl:active_run"
	lockTTL      = 30 * time.Minute
)

// RunLock is the single-active-run guard shared by all API instances.
type RunLock struct {
	redis *RedisClient
}

// NewRunLock creates a RunLock over the shared redis client.
func NewRunLock(redis *RedisClient) *RunLock {
	return &RunLock{redis: redis}
}

// Acquire claims the lock for a new run. Returns false with the holder's
// task ARN when a run is already active.
func (l *RunLock) Acquire(ctx context.Context, taskArn string) (ok bool, holder string, err error) {
	ok, err = l.redis.SetNX(ctx, activeRunKey, taskArn, lockTTL)
	if err != nil {
		return false, "", err
	}
	if ok {
		return true, taskArn, nil
	}
	holder, err = l.ActiveRun(ctx)
	if err != nil {
		return false, "", err
	}
	return false, holder, nil
}

// ActiveRun returns the task ARN of the currently active run, or empty when
// no run is active.
func (l *RunLock) ActiveRun(ctx context.Context) (string, error) {
	arn, err := l.redis.Get(ctx, activeRunKey)
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return arn, nil
}

// Update rewrites the lock value once the real task ARN is known. The lock
// is claimed with a placeholder before RunTask so two requests cannot both
// launch; the ARN only exists after the launch succeeds.
func (l *RunLock) Update(ctx context.Context, taskArn string) error {
	return l.redis.Set(ctx, activeRunKey, taskArn, lockTTL)
}

// Release frees the lock once the run has stopped.
func (l *RunLock) Release(ctx context.Context) error {
	return l.redis.Delete(ctx, activeRunKey)
}
