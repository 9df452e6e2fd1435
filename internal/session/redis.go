package session

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

const redisKeyPrefix = "titanhub:session:"

// RedisStore keeps sessions as plain keys with a server-side TTL.
type RedisStore struct {
	rdb *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, id string) (uint, bool, error) {
	val, err := s.rdb.Get(ctx, redisKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, oops.Code("SESSION_STORE_FAILED").Wrap(err)
	}
	n, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		// unreadable value, treat the session as gone
		return 0, false, nil
	}
	return uint(n), true, nil
}

func (s *RedisStore) Set(ctx context.Context, id string, principalID uint, ttl time.Duration) error {
	err := s.rdb.Set(ctx, redisKeyPrefix+id, strconv.FormatUint(uint64(principalID), 10), ttl).Err()
	if err != nil {
		return oops.Code("SESSION_STORE_FAILED").Wrap(err)
	}
	return nil
}

func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return oops.Code("SESSION_STORE_FAILED").Wrap(err)
	}
	return nil
}
