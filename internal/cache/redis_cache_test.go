package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisCache_StoreReceipt_Success(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	ttl := 10 * time.Second
	cache := NewRedisCache(rdb, ttl)

	ctx := context.Background()
	sentAt := time.Date(2026, 2, 2, 18, 0, 0, 0, time.UTC)

	if err := cache.StoreReceipt(ctx, "msg-42", "5511999998888", sentAt); err != nil {
		t.Fatalf("StoreReceipt() error: %v", err)
	}

	key := "receipt:msg-42"

	if !mr.Exists(key) {
		t.Fatalf("expected key %q to exist", key)
	}

	ttlRemaining := mr.TTL(key)
	if ttlRemaining <= 0 {
		t.Fatalf("expected TTL to be set, got %v", ttlRemaining)
	}

	raw, err := mr.Get(key)
	if err != nil {
		t.Fatalf("failed to get key %q: %v", key, err)
	}

	var got receiptValue
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("failed to unmarshal value: %v", err)
	}

	if got.Recipient != "5511999998888" {
		t.Fatalf("expected Recipient %q, got %q", "5511999998888", got.Recipient)
	}
	if !got.SentAt.Equal(sentAt.UTC()) {
		t.Fatalf("expected SentAt %v, got %v", sentAt.UTC(), got.SentAt)
	}
}

func TestRedisCache_StoreReceipt_OverwritesExistingValue(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewRedisCache(rdb, time.Minute)
	ctx := context.Background()

	if err := cache.StoreReceipt(ctx, "msg-1", "first", time.Now()); err != nil {
		t.Fatalf("first StoreReceipt() error: %v", err)
	}
	if err := cache.StoreReceipt(ctx, "msg-1", "second", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("second StoreReceipt() error: %v", err)
	}

	raw, err := mr.Get("receipt:msg-1")
	if err != nil {
		t.Fatalf("failed to get key receipt:msg-1: %v", err)
	}

	var got receiptValue
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("failed to unmarshal value: %v", err)
	}

	if got.Recipient != "second" {
		t.Fatalf("expected overwritten Recipient %q, got %q", "second", got.Recipient)
	}
}

func TestRedisCache_StoreReceipt_ContextCanceled(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewRedisCache(rdb, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := cache.StoreReceipt(ctx, "msg-1", "x", time.Now()); err == nil {
		t.Fatalf("expected error due to canceled context, got nil")
	}
}
