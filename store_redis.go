package flyweight

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient captures the subset of redis.Client used by the store.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	IncrBy(ctx context.Context, key string, value int64) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

var errRedisUnavailable = errors.New("redis registry client unavailable")

type redisStore struct {
	client RedisClient
	prefix string
}

func newRedisStore(client RedisClient, prefix string) Store {
	if prefix == "" {
		prefix = defaultStorePrefix
	}
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *redisStore) Driver() Driver {
	return DriverRedis
}

func (s *redisStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if s.client == nil {
		return nil, false, errRedisUnavailable
	}
	value, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// Save and SaveNew pass a zero expiration, which redis treats as persistent.
func (s *redisStore) Save(ctx context.Context, key string, value []byte) error {
	if s.client == nil {
		return errRedisUnavailable
	}
	return s.client.Set(ctx, s.redisKey(key), value, 0).Err()
}

func (s *redisStore) SaveNew(ctx context.Context, key string, value []byte) (bool, error) {
	if s.client == nil {
		return false, errRedisUnavailable
	}
	return s.client.SetNX(ctx, s.redisKey(key), value, 0).Result()
}

func (s *redisStore) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	if s.client == nil {
		return 0, errRedisUnavailable
	}
	return s.client.IncrBy(ctx, s.redisKey(key), delta).Result()
}

func (s *redisStore) Remove(ctx context.Context, keys ...string) error {
	if s.client == nil {
		return errRedisUnavailable
	}
	if len(keys) == 0 {
		return nil
	}
	redisKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		redisKeys = append(redisKeys, s.redisKey(key))
	}
	return s.client.Del(ctx, redisKeys...).Err()
}

func (s *redisStore) Clear(ctx context.Context) error {
	if s.client == nil {
		return errRedisUnavailable
	}
	pattern := escapeRedisGlob(s.redisKey("")) + "*"
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// escapeRedisGlob quotes the SCAN MATCH metacharacters in a literal prefix.
func escapeRedisGlob(s string) string {
	return redisGlobEscaper.Replace(s)
}

var redisGlobEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

func (s *redisStore) redisKey(key string) string {
	return s.prefix + ":" + key
}
