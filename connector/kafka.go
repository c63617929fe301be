package connector

import (
	"context"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/ceyewan/flake/clog"
)

// NewKafka franz-go 惰性建连，Connect 时用 Ping 确认至少一个 broker 可达
func NewKafka(cfg *KafkaConfig, opts ...Option) (KafkaConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	c, err := newConn(cfg.Name, o, driver[*kgo.Client]{
		kind:   "kafka",
		target: clog.Any("seeds", cfg.Seed),
		dial: func(context.Context) (*kgo.Client, error) {
			return kgo.NewClient(
				kgo.SeedBrokers(cfg.Seed...),
				kgo.ClientID(cfg.ClientID),
				kgo.DialTimeout(cfg.ConnectTimeout),
				kgo.RequestTimeoutOverhead(cfg.RequestTimeout),
				kgo.WithLogger(kgoLogger{o.logger.WithNamespace("kgo")}),
				kgo.AllowAutoTopicCreation(),
			)
		},
		probe: func(ctx context.Context, client *kgo.Client) error { return client.Ping(ctx) },
		release: func(client *kgo.Client) error {
			client.Close()
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// kgoLogger 只转发 franz-go 的 warn 和 error
type kgoLogger struct{ clog.Logger }

func (kgoLogger) Level() kgo.LogLevel { return kgo.LogLevelWarn }

func (l kgoLogger) Log(level kgo.LogLevel, msg string, keyvals ...any) {
	var fields []clog.Field
	for i := 1; i < len(keyvals); i += 2 {
		if k, ok := keyvals[i-1].(string); ok {
			fields = append(fields, clog.Any(k, keyvals[i]))
		}
	}
	if level == kgo.LogLevelError {
		l.Error(msg, fields...)
		return
	}
	l.Warn(msg, fields...)
}
