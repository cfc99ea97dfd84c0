package account

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenLedger remembers consumed reset-token ids.
type TokenLedger interface {
	// Consume records id and reports whether this call was the first to do so.
	Consume(ctx context.Context, id string, ttl time.Duration) (bool, error)
	Used(ctx context.Context, id string) (bool, error)
}

const resetKeyPrefix = "storefront:reset:"

type redisLedger struct {
	client redis.UniversalClient
}

func NewRedisLedger(client redis.UniversalClient) TokenLedger {
	return &redisLedger{client: client}
}

func (l *redisLedger) Consume(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	return l.client.SetNX(ctx, resetKeyPrefix+id, 1, ttl).Result()
}

func (l *redisLedger) Used(ctx context.Context, id string) (bool, error) {
	n, err := l.client.Exists(ctx, resetKeyPrefix+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type memoryLedger struct {
	mu   sync.Mutex
	used map[string]time.Time
	now  func() time.Time
}

// NewMemoryLedger keeps consumed ids in process memory. Entries vanish on
// restart, so it is meant for development and tests.
func NewMemoryLedger() TokenLedger {
	return &memoryLedger{used: make(map[string]time.Time), now: time.Now}
}

func (l *memoryLedger) Consume(_ context.Context, id string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, exp := range l.used {
		if !exp.After(now) {
			delete(l.used, k)
		}
	}
	if _, ok := l.used[id]; ok {
		return false, nil
	}
	l.used[id] = now.Add(ttl)
	return true, nil
}

func (l *memoryLedger) Used(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	exp, ok := l.used[id]
	return ok && exp.After(l.now()), nil
}
