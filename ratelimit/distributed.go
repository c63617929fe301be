package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/connector"
	"github.com/ceyewan/flake/xerrors"
)

// tokenBucketScript 以"下一个令牌可用的时刻"表示桶状态，单个键即可保存。
//
//	KEYS[1] 桶的键
//	ARGV[1] rate  每秒令牌数
//	ARGV[2] burst 桶容量
//	ARGV[3] now   当前时间（秒，含小数）
//	ARGV[4] n     本次消耗的令牌数
//
// 返回 {allowed, remaining}
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local n = tonumber(ARGV[4])

local per_token = 1 / rate
local fill_time = burst * per_token

local tat = tonumber(redis.call("GET", KEYS[1]))
if tat == nil or tat < now then
  tat = now
end

local horizon = now + fill_time
local next_tat = tat + n * per_token

if next_tat <= horizon then
  redis.call("SET", KEYS[1], next_tat, "EX", math.ceil(fill_time * 2))
  return {1, math.floor((horizon - next_tat) / per_token)}
end
return {0, math.floor((horizon - tat) / per_token)}
`

// distributedLimiter 基于 Redis 的共享令牌桶
type distributedLimiter struct {
	limit   Limit
	client  *redis.Client
	prefix  string
	script  *redis.Script
	logger  clog.Logger
	metrics *limiterMetrics
}

func newDistributed(cfg *Config, conn connector.RedisConnector, logger clog.Logger, m *limiterMetrics) (*distributedLimiter, error) {
	if conn == nil {
		return nil, ErrConnectorNil
	}
	return &distributedLimiter{
		limit:   cfg.limit(),
		client:  conn.GetClient(),
		prefix:  cfg.Prefix,
		script:  redis.NewScript(tokenBucketScript),
		logger:  logger,
		metrics: m,
	}, nil
}

func (l *distributedLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.AllowN(ctx, key, 1)
}

func (l *distributedLimiter) AllowN(ctx context.Context, key string, n int) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}
	if n <= 0 {
		return false, xerrors.Wrapf(ErrInvalidLimit, "n=%d", n)
	}

	now := float64(time.Now().UnixNano()) / 1e9
	res, err := l.script.Run(ctx, l.client, []string{l.prefix + key},
		l.limit.Rate, l.limit.Burst, now, n).Int64Slice()
	if err != nil {
		l.metrics.errors.Inc(ctx, l.metrics.mode)
		l.logger.ErrorContext(ctx, "token bucket script failed", clog.String("key", key), clog.Error(err))
		return false, xerrors.Wrap(err, "ratelimit: run token bucket script")
	}
	if len(res) != 2 {
		return false, xerrors.Wrapf(xerrors.ErrUnavailable, "ratelimit: unexpected script result %v", res)
	}

	allowed := res[0] == 1
	l.metrics.record(ctx, allowed)
	if !allowed {
		l.logger.DebugContext(ctx, "rate limited",
			clog.String("key", key),
			clog.Int("requested", n),
			clog.Int64("remaining", res[1]))
	}
	return allowed, nil
}

func (l *distributedLimiter) Limit() Limit {
	return l.limit
}

// Close 客户端由 Connector 管理，这里无需释放
func (l *distributedLimiter) Close() error {
	return nil
}
