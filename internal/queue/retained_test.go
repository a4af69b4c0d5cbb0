package queue

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeStatusStore keeps retained values in a map and answers with the
// same command results a real client would.
type fakeStatusStore struct {
	data map[string]string
}

func newFakeStatusStore() *fakeStatusStore {
	return &fakeStatusStore{data: map[string]string{}}
}

func (f *fakeStatusStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeStatusStore) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeStatusStore) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestLateSubscriberReadsLastRetainedValue(t *testing.T) {
	store := newFakeStatusStore()
	ctx := context.Background()

	if err := setRetained(ctx, store, 7, ActiveMessage(1, "alice")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := setRetained(ctx, store, 7, InactiveMessage()); err != nil {
		t.Fatalf("set: %v", err)
	}

	msg, err := retained(ctx, store, 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if msg == nil {
		t.Fatal("expected a retained value for film 7")
	}
	if msg.TypeMessage != StatusInactive || msg.UserID != nil || msg.UserName != nil {
		t.Fatalf("expected the latest (inactive) value, got %+v", msg)
	}
}

func TestDeletedSentinelRemovesRetainedValue(t *testing.T) {
	store := newFakeStatusStore()
	ctx := context.Background()

	if err := setRetained(ctx, store, 5, ActiveMessage(2, "bob")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := setRetained(ctx, store, 5, DeletedMessage()); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, ok := store.data[RetainedKey(5)]; ok {
		t.Fatal("deleted sentinel must remove the retained key")
	}
	msg, err := retained(ctx, store, 5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if msg != nil {
		t.Fatalf("deleted film must have no retained value, got %+v", msg)
	}
}

func TestRetainedMissingFilmIsNotAnError(t *testing.T) {
	msg, err := retained(context.Background(), newFakeStatusStore(), 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg != nil {
		t.Fatalf("expected nil for a film never published, got %+v", msg)
	}
}

func TestNilClientDegradesToNoOp(t *testing.T) {
	ctx := context.Background()
	if err := SetRetained(ctx, nil, 1, ActiveMessage(1, "alice")); err != nil {
		t.Fatalf("set with nil client: %v", err)
	}
	msg, err := Retained(ctx, nil, 1)
	if err != nil || msg != nil {
		t.Fatalf("get with nil client should be empty, got %+v err=%v", msg, err)
	}
}
