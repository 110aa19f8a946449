// Package lock provides named mutual exclusion for jobs that read then write
// shared state, either within one process or across processes via Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"wallet/internal/logger"
)

// ErrLocked is returned when the key is already held.
var ErrLocked = errors.New("lock is held by another worker")

// releaseScript deletes the key only if it still holds our token.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// RedisLocker holds keys with SET NX PX. A key expires after ttl if its
// holder dies without releasing it.
type RedisLocker struct {
	client   *redis.Client
	prefix   string
	ttl      time.Duration
	newToken func() string
}

// NewRedisLocker creates a RedisLocker whose keys are namespaced by prefix.
func NewRedisLocker(client *redis.Client, prefix string, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl, newToken: uuid.NewString}
}

// Lock acquires key or fails with ErrLocked. The returned function releases it.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	name := l.prefix + key
	token := l.newToken()

	ok, err := l.client.SetNX(ctx, name, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrLocked)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.client.Eval(ctx, releaseScript, []string{name}, token).Err(); err != nil {
			logger.Get().Warnw("failed to release lock", "key", name, "error", err)
		}
	}, nil
}

// LocalLocker holds keys within this process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalLocker creates an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]bool)}
}

// Lock acquires key or fails with ErrLocked.
func (l *LocalLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, fmt.Errorf("%s: %w", key, ErrLocked)
	}
	l.held[key] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
