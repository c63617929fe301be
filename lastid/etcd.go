package lastid

import (
	"context"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/flake/connector"
	"github.com/ceyewan/flake/xerrors"
)

type etcdStore struct {
	client *clientv3.Client
	key    string
}

func newEtcd(conn connector.EtcdConnector, key string) (Store, error) {
	if conn == nil || conn.GetClient() == nil {
		return nil, xerrors.Wrap(ErrConnectorNil, "etcd")
	}
	return &etcdStore{client: conn.GetClient(), key: key}, nil
}

func (s *etcdStore) Write(ctx context.Context, id uint64) error {
	_, err := s.client.Put(ctx, s.key, encode(id))
	return err
}

func (s *etcdStore) Read(ctx context.Context) (uint64, error) {
	resp, err := s.client.Get(ctx, s.key)
	if err != nil {
		return 0, err
	}
	if len(resp.Kvs) == 0 {
		return 0, ErrNotFound
	}
	return decode(string(resp.Kvs[0].Value))
}

func (s *etcdStore) Close() error { return nil }
