package lastid

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/trace"
	"github.com/ceyewan/flake/xerrors"
)

// instrumented 为写入记录次数、耗时和 Span
type instrumented struct {
	Store
	driver   string
	writes   metrics.Counter
	duration metrics.Histogram
}

// Instrument 给 store 加上 lastid_write_total、lastid_write_duration_seconds 与 lastid.write Span
func Instrument(store Store, driver string, meter metrics.Meter) (Store, error) {
	if meter == nil {
		meter = metrics.Discard()
	}
	writes, err := meter.Counter(MetricWriteTotal, "Writes of the last issued ID")
	if err != nil {
		return nil, xerrors.Wrap(err, "create write counter")
	}
	duration, err := meter.Histogram(MetricWriteDuration, "Latency of last ID writes",
		metrics.WithUnit("s"),
		metrics.WithBuckets([]float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5}),
	)
	if err != nil {
		return nil, xerrors.Wrap(err, "create write duration histogram")
	}
	return &instrumented{Store: store, driver: driver, writes: writes, duration: duration}, nil
}

func (s *instrumented) Write(ctx context.Context, id uint64) (err error) {
	ctx, span := trace.StartSpan(ctx, "lastid.write",
		attribute.String("lastid.driver", s.driver),
		attribute.String("lastid.value", encode(id)),
	)
	defer func() { trace.End(span, err) }()

	start := time.Now()
	err = s.Store.Write(ctx, id)
	s.duration.Record(ctx, time.Since(start).Seconds(), metrics.L(metrics.LabelDriver, s.driver))
	s.writes.Inc(ctx,
		metrics.L(metrics.LabelDriver, s.driver),
		metrics.L(metrics.LabelOutcome, metrics.Outcome(err)),
	)
	return err
}
