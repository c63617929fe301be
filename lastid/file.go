package lastid

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/ceyewan/flake/xerrors"
)

// FileStore 把最近 ID 写入单个文件。
// 先写临时文件再 rename，读者不会看到写了一半的值
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFile 创建文件存储，必要时创建父目录
func NewFile(path string) (*FileStore, error) {
	if path == "" {
		return nil, xerrors.WithCode(ErrInvalidInput, "path_empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, xerrors.Wrapf(err, "create directory for %s", path)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Write(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, base := filepath.Split(s.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return xerrors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(encode(id)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return xerrors.Wrap(err, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return xerrors.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return xerrors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return xerrors.Wrapf(err, "replace %s", s.path)
	}
	return nil
}

func (s *FileStore) Read(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, xerrors.Wrapf(err, "read %s", s.path)
	}
	return decode(string(data))
}

func (s *FileStore) Close() error { return nil }

// Path 返回文件路径
func (s *FileStore) Path() string { return s.path }
