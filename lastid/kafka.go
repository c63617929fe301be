package lastid

import (
	"context"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/ceyewan/flake/connector"
	"github.com/ceyewan/flake/xerrors"
)

// kafkaStore 同步发送 key -> id，compacted 主题最终只保留最新值。
// 不提供读取
type kafkaStore struct {
	client *kgo.Client
	topic  string
	key    []byte
}

func newKafka(conn connector.KafkaConnector, topic, key string) (Store, error) {
	if conn == nil || conn.GetClient() == nil {
		return nil, xerrors.Wrap(ErrConnectorNil, "kafka")
	}
	return &kafkaStore{client: conn.GetClient(), topic: topic, key: []byte(key)}, nil
}

func (s *kafkaStore) Write(ctx context.Context, id uint64) error {
	record := &kgo.Record{
		Topic: s.topic,
		Key:   s.key,
		Value: []byte(encode(id)),
	}
	return s.client.ProduceSync(ctx, record).FirstErr()
}

func (s *kafkaStore) Read(context.Context) (uint64, error) {
	return 0, xerrors.Wrap(ErrNotSupported, "kafka read")
}

func (s *kafkaStore) Close() error { return nil }
