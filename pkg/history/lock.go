package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/banghyang/scentflow/pkg/flowgraph/registry"
)

// UnlockFunc releases a lock obtained from a Locker.
type UnlockFunc func(ctx context.Context) error

// Locker provides per-key mutual exclusion.
type Locker interface {
	// Lock blocks until key is held or ctx is done. ttl bounds how long a
	// crashed holder can keep a distributed lock; local locks ignore it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

// ErrLockLost is returned by an unlock whose lock had already expired or
// been taken over.
var ErrLockLost = errors.New("history: lock lost before release")

// keyLock is a one-slot semaphore shared by waiters on one key.
type keyLock struct {
	slot    chan struct{}
	waiters int
}

// LocalLocker is an in-process keyed mutex. Entries are dropped once no
// goroutine holds or waits for the key.
type LocalLocker struct {
	locks *registry.Registry[string, *keyLock]
}

// NewLocalLocker creates an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: registry.New[string, *keyLock]()}
}

// Lock implements Locker.
func (l *LocalLocker) Lock(ctx context.Context, key string, _ time.Duration) (UnlockFunc, error) {
	kl := l.locks.Update(key, func(kl *keyLock) *keyLock {
		if kl == nil {
			kl = &keyLock{slot: make(chan struct{}, 1)}
		}
		kl.waiters++
		return kl
	})

	select {
	case kl.slot <- struct{}{}:
	case <-ctx.Done():
		l.release(key)
		return nil, ctx.Err()
	}

	var done bool
	return func(context.Context) error {
		if done {
			return nil
		}
		done = true
		<-kl.slot
		l.release(key)
		return nil
	}, nil
}

func (l *LocalLocker) release(key string) {
	l.locks.Update(key, func(kl *keyLock) *keyLock {
		kl.waiters--
		return kl
	})
	l.locks.DeleteIf(key, func(kl *keyLock) bool { return kl.waiters == 0 })
}

// Held reports how many keys currently have holders or waiters.
func (l *LocalLocker) Held() int {
	return l.locks.Len()
}

const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// RedisLocker is a distributed lock over Redis SET NX PX. The lock value
// is a random token so only the holder can release it.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	poll   time.Duration
}

// NewRedisLocker creates a locker whose keys are prefix+"lock:"+key.
func NewRedisLocker(client redis.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix, poll: 50 * time.Millisecond}
}

func (l *RedisLocker) lockKey(key string) string {
	return l.prefix + "lock:" + key
}

// Lock implements Locker.
func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error) {
	lockKey := l.lockKey(key)
	token := uuid.NewString()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("history: acquire lock %q: %w", key, err)
		}
		if ok {
			return func(ctx context.Context) error {
				n, err := l.client.Eval(ctx, unlockScript, []string{lockKey}, token).Int64()
				if err != nil {
					return fmt.Errorf("history: release lock %q: %w", key, err)
				}
				if n == 0 {
					return ErrLockLost
				}
				return nil
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

var (
	_ Locker = (*LocalLocker)(nil)
	_ Locker = (*RedisLocker)(nil)
)
