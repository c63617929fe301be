package clog

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/ceyewan/flake/xerrors"
)

// Level 日志级别，数值与 slog 对齐后再偏移，Fatal 高于 Error
type Level int

const (
	DebugLevel Level = iota - 4
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// levels 按级别从低到高排列，名称同时用于解析和输出
var levels = [...]struct {
	level Level
	name  string
	slog  slog.Level
}{
	{DebugLevel, "debug", slog.LevelDebug},
	{InfoLevel, "info", slog.LevelInfo},
	{WarnLevel, "warn", slog.LevelWarn},
	{ErrorLevel, "error", slog.LevelError},
	{FatalLevel, "fatal", slog.LevelError + 4},
}

func (l Level) String() string {
	for _, e := range levels {
		if e.level == l {
			return e.name
		}
	}
	return "level(" + strconv.Itoa(int(l)) + ")"
}

// ParseLevel 不区分大小写；无法识别时返回 InfoLevel 和错误
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, e := range levels {
		if e.name == name {
			return e.level, nil
		}
	}
	return InfoLevel, xerrors.Wrapf(xerrors.ErrInvalidInput, "clog: unknown level %q", s)
}

func (l Level) slogLevel() slog.Level {
	for _, e := range levels {
		if e.level == l {
			return e.slog
		}
	}
	return slog.LevelInfo
}

// levelName 把 slog 级别归入最近的一档，输出为大写名称
func levelName(sl slog.Level) string {
	for _, e := range levels[:len(levels)-1] {
		if sl <= e.slog {
			return strings.ToUpper(e.name)
		}
	}
	return "FATAL"
}
