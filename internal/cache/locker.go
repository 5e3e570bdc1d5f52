package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrLocked is returned when another request holds the session lock
var ErrLocked = errors.New("session is busy")

// DefaultLockTTL bounds how long a crashed holder can block a session
const DefaultLockTTL = 10 * time.Second

// Locker serializes work on a single session
type Locker interface {
	// Lock acquires the lock for id without waiting. The returned function
	// releases it.
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

// unlockScript deletes the key only if it still holds our token
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// SessionLocker is a Locker backed by Redis so that several API replicas
// share the same locks
type SessionLocker struct {
	client Client
	ttl    time.Duration
}

// NewSessionLocker creates a Redis-backed session locker
func NewSessionLocker(client Client, ttl time.Duration) *SessionLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &SessionLocker{client: client, ttl: ttl}
}

func lockKey(id string) string {
	return KeyPrefix + "lock:session:" + id
}

// Lock implements Locker
func (l *SessionLocker) Lock(ctx context.Context, id string) (func(), error) {
	key := lockKey(id)
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func() {
		// The request context may already be cancelled at this point
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := l.client.Eval(ctx, unlockScript, []string{key}, token).Err(); err != nil {
			slog.Warn("failed to release session lock", "session_id", id, "error", err)
		}
	}, nil
}

// LocalLocker is an in-process Locker for single-instance deployments
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker creates an in-process session locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// Lock implements Locker
func (l *LocalLocker) Lock(_ context.Context, id string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[id]; busy {
		return nil, ErrLocked
	}
	l.held[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, id)
			l.mu.Unlock()
		})
	}, nil
}
