package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"postboard/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const PostKeyPrefix = "post:%d"

const PostTTL = time.Minute

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

// Store is a JSON cache over Redis. A Store with a nil client is valid and
// caches nothing.
type Store struct {
	client *redis.Client
}

// NewStore wraps client, which may be nil.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Enabled reports whether a Redis client is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first; on a miss it calls fetch, which must populate
// dest, then stores dest with ttl. The write-back is skipped when key was
// invalidated while fetch ran. Cache failures degrade to fetch and are
// logged, never returned.
func (s *Store) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := s.GetJSON(ctx, key, dest)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		return nil
	}

	gen, genErr := s.generation(ctx, key)

	if err := fetch(); err != nil {
		return err
	}

	if genErr != nil {
		return nil
	}
	if err := s.setIfGeneration(ctx, key, gen, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// generationKey counts invalidations of key. It outlives any single fetch.
func generationKey(key string) string {
	return key + ":gen"
}

const generationTTL = time.Hour

func (s *Store) generation(ctx context.Context, key string) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	gen, err := s.client.Get(ctx, generationKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return gen, err
}

// setIfGeneration stores v under key only while the generation still equals
// gen. A concurrent invalidation aborts the transaction and the value is
// dropped.
func (s *Store) setIfGeneration(ctx context.Context, key, gen string, v any, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	genKey := generationKey(key)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// Invalidate deletes key and bumps its generation so in-flight Aside reads
// do not write a stale copy back. Failures are logged.
func (s *Store) Invalidate(ctx context.Context, key string) {
	if !s.Enabled() {
		return
	}
	genKey := generationKey(key)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidate failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// InvalidatePost drops the cached copy of a post.
func (s *Store) InvalidatePost(ctx context.Context, postID uint) {
	s.Invalidate(ctx, PostKey(postID))
}
