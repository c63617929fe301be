package idgen

import "time"

// Clock 生成器读取时间和等待的来源，测试中注入假时钟
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock 返回基于系统时间的 Clock
func SystemClock() Clock {
	return systemClock{}
}
