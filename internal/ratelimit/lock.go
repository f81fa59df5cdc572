package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// unlockScript deletes the key only while it still holds our token, so a lock
// that expired and was taken by another worker is left alone.
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// ErrLockBusy is returned when another holder keeps the lock past the wait.
var ErrLockBusy = errors.New("lock_busy")

var errHeld = errors.New("lock held elsewhere")

// Locker serialises checkout work on a booking or event across replicas.
type Locker struct {
	client *redis.Client
	unlock *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client, unlock: redis.NewScript(unlockScript)}
}

// TryLock makes one attempt on key. The returned token is needed to release it.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error) {
	switch {
	case l == nil || l.client == nil:
		return "", false, errors.New("lock client not configured")
	case key == "" || ttl <= 0:
		return "", false, errors.New("lock needs a key and a positive ttl")
	}
	token = uuid.NewString()
	acquired, err = l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !acquired {
		return "", false, err
	}
	return token, true, nil
}

// Release gives up key if token still owns it.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil || key == "" || token == "" {
		return nil
	}
	return l.unlock.Run(ctx, l.client, []string{key}, token).Err()
}

// WithLock runs fn while holding key. Contended attempts back off
// exponentially until wait has passed. A nil Locker runs fn unguarded so a
// single node works without redis.
func (l *Locker) WithLock(ctx context.Context, key string, ttl, wait time.Duration, fn func() error) error {
	if l == nil {
		return fn()
	}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 25 * time.Millisecond
	retry.MaxInterval = 250 * time.Millisecond

	token, err := backoff.Retry(ctx, func() (string, error) {
		token, ok, err := l.TryLock(ctx, key, ttl)
		switch {
		case err != nil:
			return "", backoff.Permanent(err)
		case !ok:
			return "", errHeld
		}
		return token, nil
	}, backoff.WithBackOff(retry), backoff.WithMaxElapsedTime(wait))
	if errors.Is(err, errHeld) {
		return ErrLockBusy
	}
	if err != nil {
		return err
	}

	defer func() {
		_ = l.Release(context.WithoutCancel(ctx), key, token)
	}()
	return fn()
}
