package lastid

import (
	"context"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/ceyewan/flake/connector"
	"github.com/ceyewan/flake/xerrors"
)

const natsSetupTimeout = 5 * time.Second

// natsStore JetStream KV，bucket 只保留每个键的最新值
type natsStore struct {
	kv  jetstream.KeyValue
	key string
}

func newNATS(conn connector.NATSConnector, bucket, key string) (Store, error) {
	if conn == nil || conn.GetClient() == nil {
		return nil, xerrors.Wrap(ErrConnectorNil, "nats")
	}
	js, err := jetstream.New(conn.GetClient())
	if err != nil {
		return nil, xerrors.Wrap(err, "create jetstream context")
	}

	ctx, cancel := context.WithTimeout(context.Background(), natsSetupTimeout)
	defer cancel()
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "flake last issued id",
		History:     1,
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "create kv bucket %s", bucket)
	}
	return &natsStore{kv: kv, key: key}, nil
}

func (s *natsStore) Write(ctx context.Context, id uint64) error {
	_, err := s.kv.PutString(ctx, s.key, encode(id))
	return err
}

func (s *natsStore) Read(ctx context.Context) (uint64, error) {
	entry, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if xerrors.Is(err, jetstream.ErrKeyNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return decode(string(entry.Value()))
}

func (s *natsStore) Close() error { return nil }
