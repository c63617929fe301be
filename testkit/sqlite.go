package testkit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ceyewan/flake/connector"
)

// NewSQLiteConnector 返回基于临时目录文件的 SQLite 连接器，无需 Docker
func NewSQLiteConnector(t *testing.T) connector.SQLiteConnector {
	t.Helper()
	cfg := &connector.SQLiteConfig{
		Name: "test-sqlite",
		Path: filepath.Join(t.TempDir(), "flake-"+NewID()+".db"),
	}
	conn, err := connector.NewSQLite(cfg, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create sqlite connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to sqlite")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
