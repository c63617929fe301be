package lastid

import (
	"context"
	"sync"
)

// MemoryStore 进程内存储，用于测试与试运行
type MemoryStore struct {
	mu    sync.RWMutex
	value uint64
	set   bool
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Write(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value, s.set = id, true
	return nil
}

func (s *MemoryStore) Read(context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return 0, ErrNotFound
	}
	return s.value, nil
}

func (s *MemoryStore) Close() error { return nil }
