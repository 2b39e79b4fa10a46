package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLockHeld indicates another process currently holds the lock.
var ErrLockHeld = errors.New("platform/cache: lock already held")

// Lock is a best-effort SETNX advisory lock. It serialises batch runs but is
// not the correctness backstop; storage-level unique constraints are.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// AcquireLock takes the named lock for at most ttl. Returns ErrLockHeld when
// another holder exists.
func AcquireLock(ctx context.Context, client *redis.Client, key, token string, ttl time.Duration) (*Lock, error) {
	ok, err := client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{client: client, key: key, token: token}, nil
}

// Release frees the lock if this holder still owns it.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
	return l.client.Eval(ctx, script, []string{l.key}, l.token).Err()
}
