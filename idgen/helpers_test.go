package idgen

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ceyewan/flake/metrics"
)

// fakeClock 冻结在给定时刻，Sleep 时按 step 前进（step 为 0 时按 d 前进）
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	step   time.Duration
	sleeps int
}

func newFakeClock(epoch, offsetMillis int64) *fakeClock {
	return &fakeClock{now: time.UnixMilli(epoch + offsetMillis)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps++
	if c.step > 0 {
		d = c.step
	}
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(epoch, offsetMillis int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.UnixMilli(epoch + offsetMillis)
}

func (c *fakeClock) Sleeps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sleeps
}

// stubIdentity 固定的主机名与地址
type stubIdentity struct {
	hostname    string
	hostnameErr error
	addrs       []net.Addr
	addrsErr    error
}

func (s stubIdentity) Hostname() (string, error)  { return s.hostname, s.hostnameErr }
func (s stubIdentity) Addrs() ([]net.Addr, error) { return s.addrs, s.addrsErr }

func ipNet(s string) net.Addr {
	ip := net.ParseIP(s)
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(24, 32)}
}

// recordingStore 记录每次写入，err 非空时写入失败
type recordingStore struct {
	mu     sync.Mutex
	writes []uint64
	err    error
}

func (s *recordingStore) Write(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes = append(s.writes, id)
	return nil
}

func (s *recordingStore) Writes() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.writes...)
}

// countingMeter 只统计 Counter 的累计值
type countingMeter struct {
	mu     sync.Mutex
	counts map[string]float64
}

func newCountingMeter() *countingMeter {
	return &countingMeter{counts: make(map[string]float64)}
}

func (m *countingMeter) Count(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

func (m *countingMeter) Counter(name string, _ string, _ ...metrics.MetricOption) (metrics.Counter, error) {
	return &countingCounter{meter: m, name: name}, nil
}

func (m *countingMeter) Gauge(name string, desc string, opts ...metrics.MetricOption) (metrics.Gauge, error) {
	return metrics.Discard().Gauge(name, desc, opts...)
}

func (m *countingMeter) Histogram(name string, desc string, opts ...metrics.MetricOption) (metrics.Histogram, error) {
	return metrics.Discard().Histogram(name, desc, opts...)
}

func (m *countingMeter) Handler() http.Handler          { return http.NotFoundHandler() }
func (m *countingMeter) Shutdown(context.Context) error { return nil }

type countingCounter struct {
	meter *countingMeter
	name  string
}

func (c *countingCounter) Inc(ctx context.Context, labels ...metrics.Label) {
	c.Add(ctx, 1, labels...)
}

func (c *countingCounter) Add(_ context.Context, val float64, _ ...metrics.Label) {
	c.meter.mu.Lock()
	defer c.meter.mu.Unlock()
	c.meter.counts[c.name] += val
}
