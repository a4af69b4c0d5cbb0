package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Retained film-status values live in Redis, one key per film topic, so
// they survive this process and are served to subscribers that join after
// the publish.  Keys carry no TTL; a film's retained value is removed only
// when the film is deleted.

// statusStore is the slice of the Redis client the retained store needs;
// tests substitute an in-memory fake.
type statusStore interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RetainedKey returns the Redis key holding a film's last status message.
func RetainedKey(filmID uint64) string { return fmt.Sprintf("film:status:%d", filmID) }

// SetRetained stores the message as the film topic's retained value.  A
// nil client degrades to a no-op; a deleted sentinel removes the key
// instead, so the topic is not retained forever.
func SetRetained(ctx context.Context, rdb *redis.Client, filmID uint64, msg FilmStatusMessage) error {
	if rdb == nil {
		return nil
	}
	return setRetained(ctx, rdb, filmID, msg)
}

func setRetained(ctx context.Context, store statusStore, filmID uint64, msg FilmStatusMessage) error {
	if msg.TypeMessage == StatusDeleted {
		return store.Del(ctx, RetainedKey(filmID)).Err()
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return store.Set(ctx, RetainedKey(filmID), body, 0).Err()
}

// Retained reads the film topic's retained value.  It returns nil without
// error when no value is retained or when Redis is not configured.
func Retained(ctx context.Context, rdb *redis.Client, filmID uint64) (*FilmStatusMessage, error) {
	if rdb == nil {
		return nil, nil
	}
	return retained(ctx, rdb, filmID)
}

func retained(ctx context.Context, store statusStore, filmID uint64) (*FilmStatusMessage, error) {
	body, err := store.Get(ctx, RetainedKey(filmID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var msg FilmStatusMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
