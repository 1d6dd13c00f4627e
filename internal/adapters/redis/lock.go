package redisad

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"reviewpulse/internal/domain"
)

// Locker serializes pipeline runs per app so two concurrent runs cannot race
// each other's dedupe decisions. The TTL bounds how long a crashed holder can
// block the next run.
type Locker struct{ c *redis.Client }

// release only when the stored token still belongs to this holder
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`

func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (domain.Unlock, error) {
	token := uuid.NewString()
	k := "runlock:" + key

	ok, err := l.c.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	return func(ctx context.Context) error {
		return l.c.Eval(ctx, releaseScript, []string{k}, token).Err()
	}, nil
}
