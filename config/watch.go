package config

import (
	"context"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/ceyewan/flake/clog"
)

// watchBuffer 每个订阅通道的缓冲，满了丢弃事件
const watchBuffer = 10

// subscriptions 按 key 保存订阅通道和上次投递时的值
type subscriptions struct {
	get    func(string) any
	logger clog.Logger

	mu    sync.Mutex
	chans map[string][]chan Event
	last  map[string]any
}

func newSubscriptions(get func(string) any, logger clog.Logger) *subscriptions {
	return &subscriptions{
		get:    get,
		logger: logger,
		chans:  make(map[string][]chan Event),
		last:   make(map[string]any),
	}
}

// add ctx 取消后注销并关闭通道
func (s *subscriptions) add(ctx context.Context, key string) <-chan Event {
	ch := make(chan Event, watchBuffer)

	s.mu.Lock()
	s.chans[key] = append(s.chans[key], ch)
	s.last[key] = s.get(key)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.remove(key, ch)
	}()
	return ch
}

// remove 与 publish 共用一把锁，关闭之后不会再有发送
func (s *subscriptions) remove(key string, ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chans[key] = slices.DeleteFunc(s.chans[key], func(c chan Event) bool { return c == ch })
	if len(s.chans[key]) == 0 {
		delete(s.chans, key)
		delete(s.last, key)
	}
	close(ch)
}

func (s *subscriptions) snapshot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.chans {
		s.last[key] = s.get(key)
	}
}

// publish 只投递值确实变化了的 key
func (s *subscriptions) publish(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, chans := range s.chans {
		cur, prev := s.get(key), s.last[key]
		if reflect.DeepEqual(cur, prev) {
			continue
		}
		s.last[key] = cur
		ev := Event{Key: key, Value: cur, OldValue: prev, Source: source, Timestamp: now}
		for _, ch := range chans {
			select {
			case ch <- ev:
			default:
				s.logger.Warn("config event dropped, subscriber is slow", clog.String("key", key))
			}
		}
	}
}
