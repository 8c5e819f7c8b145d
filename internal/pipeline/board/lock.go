package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionLock allows at most one drag session per board.
type SessionLock interface {
	// Acquire claims boardID for sessionID. It reports false when another
	// session holds the board. A zero ttl means the claim never expires.
	Acquire(ctx context.Context, boardID, sessionID uuid.UUID, ttl time.Duration) (bool, error)
	// Extend renews the claim of sessionID for another ttl. It reports false
	// when the claim lapsed or belongs to another session.
	Extend(ctx context.Context, boardID, sessionID uuid.UUID, ttl time.Duration) (bool, error)
	// Release frees boardID if sessionID still holds it.
	Release(ctx context.Context, boardID, sessionID uuid.UUID) error
}

// MemoryLock is a process-local SessionLock.
type MemoryLock struct {
	mu   sync.Mutex
	held map[uuid.UUID]memoryClaim
	now  func() time.Time
}

type memoryClaim struct {
	sessionID uuid.UUID
	expiresAt time.Time
}

// NewMemoryLock creates a process-local lock.
func NewMemoryLock() *MemoryLock {
	return &MemoryLock{held: make(map[uuid.UUID]memoryClaim), now: time.Now}
}

func (l *MemoryLock) Acquire(_ context.Context, boardID, sessionID uuid.UUID, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if claim, ok := l.held[boardID]; ok {
		if claim.expiresAt.IsZero() || now.Before(claim.expiresAt) {
			return claim.sessionID == sessionID, nil
		}
	}
	claim := memoryClaim{sessionID: sessionID}
	if ttl > 0 {
		claim.expiresAt = now.Add(ttl)
	}
	l.held[boardID] = claim
	return true, nil
}

func (l *MemoryLock) Extend(_ context.Context, boardID, sessionID uuid.UUID, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	claim, ok := l.held[boardID]
	if !ok || claim.sessionID != sessionID {
		return false, nil
	}
	if !claim.expiresAt.IsZero() && !now.Before(claim.expiresAt) {
		delete(l.held, boardID)
		return false, nil
	}
	if ttl > 0 {
		claim.expiresAt = now.Add(ttl)
	} else {
		claim.expiresAt = time.Time{}
	}
	l.held[boardID] = claim
	return true, nil
}

func (l *MemoryLock) Release(_ context.Context, boardID, sessionID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if claim, ok := l.held[boardID]; ok && claim.sessionID == sessionID {
		delete(l.held, boardID)
	}
	return nil
}

// releaseScript deletes the key only when it still holds the caller's session.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript renews the key only when it still holds the caller's session.
// A ttl of 0 removes the expiry.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return 0
end
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	redis.call("PEXPIRE", KEYS[1], ttl)
else
	redis.call("PERSIST", KEYS[1])
end
return 1
`)

// RedisLock is a SessionLock shared by every replica using the same Redis.
type RedisLock struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisLock creates a Redis-backed lock. Keys are "<prefix><boardID>".
func NewRedisLock(client redis.UniversalClient, prefix string) *RedisLock {
	if prefix == "" {
		prefix = "pipeline:drag:"
	}
	return &RedisLock{client: client, prefix: prefix}
}

func (l *RedisLock) key(boardID uuid.UUID) string {
	return l.prefix + boardID.String()
}

func (l *RedisLock) Acquire(ctx context.Context, boardID, sessionID uuid.UUID, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(boardID), sessionID.String(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire drag lock: %w", err)
	}
	if ok {
		return true, nil
	}
	holder, err := l.client.Get(ctx, l.key(boardID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read drag lock: %w", err)
	}
	return holder == sessionID.String(), nil
}

func (l *RedisLock) Extend(ctx context.Context, boardID, sessionID uuid.UUID, ttl time.Duration) (bool, error) {
	n, err := extendScript.Run(ctx, l.client, []string{l.key(boardID)}, sessionID.String(), ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("extend drag lock: %w", err)
	}
	return n == 1, nil
}

func (l *RedisLock) Release(ctx context.Context, boardID, sessionID uuid.UUID) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key(boardID)}, sessionID.String()).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release drag lock: %w", err)
	}
	return nil
}
