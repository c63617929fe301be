// Package idgen 生成 64 位雪花 ID。
//
// ID 由 41 位毫秒时间戳、4 位数据中心标签、8 位工作节点标签和 10 位序列号组成，
// 同一进程内按调用顺序单调不减。标签默认由主机名和第一个非回环 IPv4 地址推导，
// 构造时确定后不再改变。
//
//	gen, err := idgen.New(&idgen.Config{},
//	    idgen.WithLogger(logger),
//	    idgen.WithStore(store),
//	)
//	if err != nil {
//	    return err // 例如 ErrNoAddressFound
//	}
//	id, err := gen.Next(ctx)
//	if errors.Is(err, idgen.ErrPersistence) {
//	    // id 仍然有效，是否视为失败由调用方决定
//	}
package idgen

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/xerrors"
)

const (
	// pollInterval 序列号耗尽后轮询时钟的间隔
	pollInterval = 100 * time.Microsecond
	// regressionLogInterval 时钟回拨告警的最小间隔
	regressionLogInterval = 10 * time.Second
)

// Generator 雪花 ID 生成器，方法并发安全
type Generator struct {
	mu            sync.Mutex
	lastTimestamp int64
	sequence      int64

	epoch    int64
	method   string
	identity Identity

	clock  Clock
	store  Store
	logger clog.Logger

	// persistMu 串行化写入，persisted 为已成功写入的最大 ID
	persistMu sync.Mutex
	persisted ID

	regressionLog rate.Sometimes

	generated       metrics.Counter
	regressions     metrics.Counter
	exhausted       metrics.Counter
	persistFailures metrics.Counter
}

// New 创建生成器。Method="host" 时解析本机身份，失败即返回错误，不会得到可用的实例
func New(cfg *Config, opts ...Option) (*Generator, error) {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)

	var identity Identity
	switch c.Method {
	case MethodStatic:
		identity = Identity{WorkerID: c.WorkerID, DatacenterID: c.DatacenterID}
	default:
		var err error
		identity, err = ResolveIdentity(o.identity)
		if err != nil {
			o.logger.Error("resolve identity failed", clog.Error(err))
			return nil, err
		}
	}

	g := &Generator{
		epoch:         c.Epoch,
		method:        c.Method,
		identity:      identity,
		clock:         o.clock,
		store:         o.store,
		logger:        o.logger,
		regressionLog: rate.Sometimes{Interval: regressionLogInterval},
	}
	if err := g.initMetrics(o.meter); err != nil {
		return nil, err
	}

	g.logger.Info("snowflake generator created",
		clog.String("method", c.Method),
		clog.Int64("worker_id", identity.WorkerID),
		clog.Int64("datacenter_id", identity.DatacenterID),
		clog.String("address", identity.Address),
		clog.Int64("epoch", c.Epoch),
	)
	return g, nil
}

func (g *Generator) initMetrics(meter metrics.Meter) error {
	var err error
	if g.generated, err = meter.Counter(MetricSnowflakeGenerated, "Snowflake IDs issued"); err != nil {
		return xerrors.Wrap(err, "create generated counter")
	}
	if g.regressions, err = meter.Counter(MetricClockRegressions, "Clock regressions absorbed by clamping"); err != nil {
		return xerrors.Wrap(err, "create regressions counter")
	}
	if g.exhausted, err = meter.Counter(MetricSequenceExhausted, "Waits for the next millisecond after sequence wrap"); err != nil {
		return xerrors.Wrap(err, "create exhausted counter")
	}
	if g.persistFailures, err = meter.Counter(MetricPersistFailures, "Failed writes of the last issued ID"); err != nil {
		return xerrors.Wrap(err, "create persist failures counter")
	}
	return nil
}

// Next 生成一个 ID 并同步写入 Store。
// 写入失败时 ID 仍然有效，与包装了 ErrPersistence 的错误一起返回；
// ctx 取消只会中断序列号耗尽后的等待，此时返回 0 且状态不变
func (g *Generator) Next(ctx context.Context) (ID, error) {
	id, err := g.next(ctx)
	if err != nil {
		return 0, err
	}
	g.generated.Inc(ctx)
	return id, g.persist(ctx, id)
}

// NextString 返回十进制字符串形式的 ID
func (g *Generator) NextString(ctx context.Context) (string, error) {
	id, err := g.Next(ctx)
	if err != nil && !xerrors.Is(err, ErrPersistence) {
		return "", err
	}
	return id.String(), err
}

// NextN 按顺序生成 n 个 ID，只持久化最后一个
func (g *Generator) NextN(ctx context.Context, n int) ([]ID, error) {
	if n <= 0 {
		return nil, xerrors.Wrapf(xerrors.WithCode(ErrInvalidInput, "count_not_positive"), "count %d", n)
	}
	ids := make([]ID, 0, n)
	for range n {
		id, err := g.next(ctx)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	g.generated.Add(ctx, float64(n))
	return ids, g.persist(ctx, ids[n-1])
}

// Identity 返回构造时确定的节点标签
func (g *Generator) Identity() Identity {
	return g.identity
}

// Method 返回身份获取方式
func (g *Generator) Method() string {
	return g.method
}

// Epoch 返回起始时间戳（毫秒）
func (g *Generator) Epoch() int64 {
	return g.epoch
}

// next 推进 (lastTimestamp, sequence) 并打包 ID。
// 新状态先在局部变量中计算，只有成功时才提交
func (g *Generator) next(ctx context.Context) (ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, seq := g.lastTimestamp, g.sequence
	ts := g.millis()

	if ts < last {
		g.onRegression(ctx, last, ts)
		ts = last
	}

	if ts == last {
		seq = (seq + 1) % SequenceSpace
		if seq == 0 {
			g.exhausted.Inc(ctx)
			if err := g.waitAfter(ctx, last); err != nil {
				return 0, err
			}
			ts = last + 1
		}
	} else {
		seq = 0
	}

	g.lastTimestamp, g.sequence = ts, seq
	return Compose(ts, g.identity.DatacenterID, g.identity.WorkerID, seq), nil
}

func (g *Generator) millis() int64 {
	return g.clock.Now().UnixMilli() - g.epoch
}

// waitAfter 轮询直到时钟越过 last
func (g *Generator) waitAfter(ctx context.Context, last int64) error {
	for g.millis() <= last {
		if err := ctx.Err(); err != nil {
			return xerrors.Wrap(err, "idgen: wait for next millisecond")
		}
		g.clock.Sleep(pollInterval)
	}
	return nil
}

// onRegression 时钟回拨不是错误，只计数并限频告警
func (g *Generator) onRegression(ctx context.Context, last, now int64) {
	g.regressions.Inc(ctx)
	g.regressionLog.Do(func() {
		g.logger.WarnContext(ctx, "clock moved backwards, reusing last timestamp",
			clog.Int64("last_timestamp", last),
			clog.Int64("now", now),
			clog.Duration("drift", time.Duration(last-now)*time.Millisecond),
		)
	})
}

// persist 写入最近 ID。并发调用时较旧的 ID 可能晚到，已被更大 ID 覆盖的写入直接跳过，
// 保证存储中的值不会倒退
func (g *Generator) persist(ctx context.Context, id ID) error {
	if g.store == nil {
		return nil
	}
	g.persistMu.Lock()
	defer g.persistMu.Unlock()

	if id <= g.persisted {
		return nil
	}
	if err := g.store.Write(ctx, uint64(id)); err != nil {
		g.persistFailures.Inc(ctx)
		g.logger.WarnContext(ctx, "persist last id failed", clog.Uint64("id", uint64(id)), clog.Error(err))
		return xerrors.Wrapf(xerrors.Join(ErrPersistence, err), "id %s", id)
	}
	g.persisted = id
	return nil
}
