package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/heroncosmo/plano-junto-sub000/internal/pkg/lock"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	return client
}

func TestTryAcquireIsExclusive(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()
	ctx := context.Background()
	client.Del(ctx, "test:lock:exclusive")

	first := lock.New(client, "test:lock:exclusive", 5*time.Second)
	ok, err := first.TryAcquire(ctx)
	if err != nil || !ok {
		t.Fatalf("first acquire failed: ok=%v err=%v", ok, err)
	}

	second := lock.New(client, "test:lock:exclusive", 5*time.Second)
	ok, err = second.TryAcquire(ctx)
	if err != nil {
		t.Fatalf("second acquire errored: %v", err)
	}
	if ok {
		t.Fatal("second holder acquired a held lock")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	ok, err = second.TryAcquire(ctx)
	if err != nil || !ok {
		t.Fatalf("acquire after release failed: ok=%v err=%v", ok, err)
	}
	second.Release(ctx)
}

func TestReleaseOnlyByHolder(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()
	ctx := context.Background()
	client.Del(ctx, "test:lock:holder")

	holder := lock.New(client, "test:lock:holder", 5*time.Second)
	if ok, err := holder.TryAcquire(ctx); err != nil || !ok {
		t.Fatalf("acquire failed: ok=%v err=%v", ok, err)
	}

	// A different token must not free someone else's lock
	intruder := lock.New(client, "test:lock:holder", 5*time.Second)
	if err := intruder.Release(ctx); err != nil {
		t.Fatalf("intruder release errored: %v", err)
	}
	if ok, _ := intruder.TryAcquire(ctx); ok {
		t.Fatal("lock was freed by a non-holder")
	}
	holder.Release(ctx)
}
