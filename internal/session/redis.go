package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores sessions as JSON values under prefix+userID.
type Redis[T any] struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedis creates a redis-backed store. ttl of zero keeps keys forever.
func NewRedis[T any](rdb redis.Cmdable, prefix string, ttl time.Duration) *Redis[T] {
	return &Redis[T]{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *Redis[T]) key(userID int64) string {
	return s.prefix + strconv.FormatInt(userID, 10)
}

func (s *Redis[T]) Get(ctx context.Context, userID int64) (T, bool, error) {
	var zero T
	raw, err := s.rdb.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("redis get session %d: %w", userID, err)
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false, fmt.Errorf("%w: decode %d: %v", ErrInvalidSession, userID, err)
	}
	if err := validate(v); err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (s *Redis[T]) Put(ctx context.Context, userID int64, v T) error {
	if err := validate(v); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", userID, err)
	}
	if err := s.rdb.Set(ctx, s.key(userID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session %d: %w", userID, err)
	}
	return nil
}

func (s *Redis[T]) Delete(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("redis del session %d: %w", userID, err)
	}
	return nil
}
