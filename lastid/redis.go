package lastid

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/flake/connector"
	"github.com/ceyewan/flake/xerrors"
)

// redisStore SET/GET 单个键，不设过期
type redisStore struct {
	client *redis.Client
	key    string
}

func newRedis(conn connector.RedisConnector, key string) (Store, error) {
	if conn == nil || conn.GetClient() == nil {
		return nil, xerrors.Wrap(ErrConnectorNil, "redis")
	}
	return &redisStore{client: conn.GetClient(), key: key}, nil
}

func (s *redisStore) Write(ctx context.Context, id uint64) error {
	return s.client.Set(ctx, s.key, encode(id), 0).Err()
}

func (s *redisStore) Read(ctx context.Context) (uint64, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if xerrors.Is(err, redis.Nil) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return decode(val)
}

func (s *redisStore) Close() error { return nil }
