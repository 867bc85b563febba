package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only if it still holds our token,
// so a run that outlived its TTL cannot release a successor's lock.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// RedisPeriodLock implements PeriodLock across processes using a Redis
// key per period. The TTL bounds how long a crashed run can block its
// period.
type RedisPeriodLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPeriodLock creates a new RedisPeriodLock
func NewRedisPeriodLock(client *redis.Client, ttl time.Duration) *RedisPeriodLock {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &RedisPeriodLock{
		client: client,
		ttl:    ttl,
	}
}

// Acquire takes the lock for a period
func (l *RedisPeriodLock) Acquire(ctx context.Context, periodID uuid.UUID) (func(context.Context) error, error) {
	key := l.key(periodID)
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire period lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyLocked
	}

	release := func(ctx context.Context) error {
		if err := l.client.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("failed to release period lock: %w", err)
		}
		return nil
	}
	return release, nil
}

func (l *RedisPeriodLock) key(periodID uuid.UUID) string {
	return "matching:period-lock:" + periodID.String()
}

// Ensure RedisPeriodLock implements PeriodLock
var _ PeriodLock = (*RedisPeriodLock)(nil)
