package board

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func exerciseLock(t *testing.T, lock SessionLock) {
	t.Helper()
	ctx := context.Background()
	boardID, first, second := uuid.New(), uuid.New(), uuid.New()

	ok, err := lock.Acquire(ctx, boardID, first, 0)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if ok, _ := lock.Acquire(ctx, boardID, second, 0); ok {
		t.Fatal("second session must not acquire a held board")
	}
	if ok, _ := lock.Acquire(ctx, uuid.New(), second, 0); !ok {
		t.Fatal("other boards must stay independent")
	}
	if ok, _ := lock.Acquire(ctx, boardID, first, 0); !ok {
		t.Fatal("re-acquire by the holder should succeed")
	}

	if err := lock.Release(ctx, boardID, second); err != nil {
		t.Fatalf("release by non-holder: %v", err)
	}
	if ok, _ := lock.Acquire(ctx, boardID, second, 0); ok {
		t.Fatal("release by a non-holder must not free the board")
	}

	if err := lock.Release(ctx, boardID, first); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := lock.Acquire(ctx, boardID, second, 0); !ok {
		t.Fatal("board should be free after release")
	}
}

func TestMemoryLock(t *testing.T) {
	exerciseLock(t, NewMemoryLock())
}

func TestMemoryLockExpires(t *testing.T) {
	lock := NewMemoryLock()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lock.now = func() time.Time { return clock }
	boardID := uuid.New()

	if ok, _ := lock.Acquire(context.Background(), boardID, uuid.New(), time.Minute); !ok {
		t.Fatal("acquire failed")
	}
	clock = clock.Add(2 * time.Minute)
	if ok, _ := lock.Acquire(context.Background(), boardID, uuid.New(), time.Minute); !ok {
		t.Fatal("expired claim should be taken over")
	}
}

func TestRedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	exerciseLock(t, NewRedisLock(client, ""))
}

func TestRedisLockExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lock := NewRedisLock(client, "test:")
	boardID := uuid.New()
	if ok, _ := lock.Acquire(context.Background(), boardID, uuid.New(), time.Minute); !ok {
		t.Fatal("acquire failed")
	}
	if ttl := mr.TTL("test:" + boardID.String()); ttl != time.Minute {
		t.Fatalf("expected key ttl of one minute, got %v", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if ok, _ := lock.Acquire(context.Background(), boardID, uuid.New(), time.Minute); !ok {
		t.Fatal("expired claim should be taken over")
	}
}

func TestMemoryLockExtend(t *testing.T) {
	lock := NewMemoryLock()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lock.now = func() time.Time { return clock }
	ctx := context.Background()
	boardID, holder, other := uuid.New(), uuid.New(), uuid.New()

	if ok, _ := lock.Acquire(ctx, boardID, holder, time.Minute); !ok {
		t.Fatal("acquire failed")
	}
	if ok, _ := lock.Extend(ctx, boardID, other, time.Minute); ok {
		t.Fatal("a non-holder must not extend the claim")
	}

	clock = clock.Add(50 * time.Second)
	if ok, _ := lock.Extend(ctx, boardID, holder, time.Minute); !ok {
		t.Fatal("holder should extend a live claim")
	}
	clock = clock.Add(50 * time.Second)
	if ok, _ := lock.Acquire(ctx, boardID, other, time.Minute); ok {
		t.Fatal("an extended claim must still block other sessions")
	}

	clock = clock.Add(2 * time.Minute)
	if ok, _ := lock.Extend(ctx, boardID, holder, time.Minute); ok {
		t.Fatal("a lapsed claim cannot be extended")
	}
	if ok, _ := lock.Acquire(ctx, boardID, other, time.Minute); !ok {
		t.Fatal("board should be free after the claim lapsed")
	}
}

func TestRedisLockExtend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	lock := NewRedisLock(client, "test:")
	boardID, holder, other := uuid.New(), uuid.New(), uuid.New()
	key := "test:" + boardID.String()

	if ok, _ := lock.Acquire(ctx, boardID, holder, time.Minute); !ok {
		t.Fatal("acquire failed")
	}
	mr.FastForward(50 * time.Second)
	if ok, err := lock.Extend(ctx, boardID, holder, time.Minute); err != nil || !ok {
		t.Fatalf("extend: ok=%v err=%v", ok, err)
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("expected ttl renewed to one minute, got %v", ttl)
	}
	if ok, _ := lock.Extend(ctx, boardID, other, time.Minute); ok {
		t.Fatal("a non-holder must not extend the claim")
	}

	mr.FastForward(2 * time.Minute)
	if ok, err := lock.Extend(ctx, boardID, holder, time.Minute); err != nil || ok {
		t.Fatalf("a lapsed claim cannot be extended: ok=%v err=%v", ok, err)
	}
}
