// Package locks provides the cross-instance lock that keeps two instances
// from replacing the host's rules at the same time. It uses the Redlock
// implementation from go-redsync/redsync/v4 on top of the shared Redis
// client.
//
// Example usage:
//
//	manager, err := locks.NewManager(redisClient)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer manager.Close()
//
//	lock, err := manager.TryAcquire(ctx, "header-rules:sync-lock", 30*time.Second)
//	if errors.IsType(err, errors.ErrTypeConflict) {
//		return // another instance is syncing
//	}
//	defer lock.Release(ctx)
package locks

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"

	"header-rules/internal/common/errors"
	"header-rules/internal/redis"
)

// KeyPrefix is prepended to every lock name in Redis
const KeyPrefix = "lock:"

// Lock is a held distributed lock
type Lock interface {
	// Key returns the name the lock was acquired under
	Key() string
	// Release stops renewal and unlocks. Calling it more than once is safe.
	Release(ctx context.Context) error
	// IsHeld reports whether this instance still holds the lock. It does not
	// query Redis.
	IsHeld() bool
}

// Manager hands out locks and renews them until they are released
type Manager struct {
	redsync    *redsync.Redsync
	localLocks map[string]*redsyncLock
	mutex      sync.Mutex
}

type redsyncLock struct {
	mutex      *redsync.Mutex
	key        string
	expiration time.Duration
	acquired   time.Time
	ctx        context.Context
	cancel     context.CancelFunc
	manager    *Manager
	once       sync.Once
}

// NewManager creates a lock manager on client
func NewManager(client *redis.Client) (*Manager, error) {
	if client == nil {
		return nil, errors.ConfigError("redis client is required")
	}
	pool := goredis.NewPool(client.Redis())
	return &Manager{
		redsync:    redsync.New(pool),
		localLocks: make(map[string]*redsyncLock),
	}, nil
}

// TryAcquire takes the lock named key without waiting. A lock held elsewhere
// yields a conflict error. The lock is renewed at a third of expiration until
// released.
func (m *Manager) TryAcquire(ctx context.Context, key string, expiration time.Duration) (Lock, error) {
	mutex := m.redsync.NewMutex(KeyPrefix+key, redsync.WithExpiry(expiration), redsync.WithTries(1))

	if err := mutex.TryLockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if stderrors.As(err, &taken) || stderrors.Is(err, redsync.ErrFailed) {
			return nil, errors.ConflictError(fmt.Sprintf("lock %s is held by another instance", key))
		}
		return nil, errors.InternalError("failed to acquire distributed lock", err)
	}

	lockCtx, cancel := context.WithCancel(context.Background())
	lock := &redsyncLock{
		mutex:      mutex,
		key:        key,
		expiration: expiration,
		acquired:   time.Now(),
		ctx:        lockCtx,
		cancel:     cancel,
		manager:    m,
	}

	m.mutex.Lock()
	m.localLocks[key] = lock
	m.mutex.Unlock()

	go m.renewLock(lock)

	return lock, nil
}

func (m *Manager) renewLock(lock *redsyncLock) {
	renewInterval := lock.expiration / 3
	if renewInterval < time.Second {
		renewInterval = time.Second
	}

	ticker := time.NewTicker(renewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-lock.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			ok, err := lock.mutex.ExtendContext(ctx)
			cancel()

			if err != nil || !ok {
				// lost, stop tracking it
				lock.release(context.Background())
				return
			}
		}
	}
}

func (l *redsyncLock) release(ctx context.Context) error {
	var err error
	l.once.Do(func() {
		l.manager.mutex.Lock()
		delete(l.manager.localLocks, l.key)
		l.manager.mutex.Unlock()

		l.cancel()

		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if _, unlockErr := l.mutex.UnlockContext(ctx); unlockErr != nil {
			err = fmt.Errorf("failed to release lock %s: %w", l.key, unlockErr)
		}
	})
	return err
}

// Close releases every lock the manager still holds
func (m *Manager) Close() error {
	m.mutex.Lock()
	held := make([]*redsyncLock, 0, len(m.localLocks))
	for _, lock := range m.localLocks {
		held = append(held, lock)
	}
	m.mutex.Unlock()

	var firstErr error
	for _, lock := range held {
		if err := lock.release(context.Background()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Held returns the keys of the locks this manager holds
func (m *Manager) Held() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	keys := make([]string, 0, len(m.localLocks))
	for k := range m.localLocks {
		keys = append(keys, k)
	}
	return keys
}

func (l *redsyncLock) Key() string { return l.key }

func (l *redsyncLock) Release(ctx context.Context) error {
	return l.release(ctx)
}

func (l *redsyncLock) IsHeld() bool {
	select {
	case <-l.ctx.Done():
		return false
	default:
		return true
	}
}
