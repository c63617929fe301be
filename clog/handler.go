package clog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ceyewan/flake/xerrors"
)

// levelHandler 给 slog 的内置 handler 加上可在运行时调整的级别
type levelHandler struct {
	slog.Handler
	level *slog.LevelVar
}

func newHandler(cfg *Config, o *options) (*levelHandler, error) {
	w, err := openOutput(cfg.Output, o.sink)
	if err != nil {
		return nil, err
	}

	lv := new(slog.LevelVar)
	if l, err := ParseLevel(cfg.Level); err == nil {
		lv.Set(l.slogLevel())
	}
	ho := &slog.HandlerOptions{
		AddSource:   cfg.AddSource,
		Level:       lv,
		ReplaceAttr: rewriteAttr(cfg.SourceRoot),
	}

	h := &levelHandler{level: lv}
	if strings.EqualFold(cfg.Format, "json") {
		h.Handler = slog.NewJSONHandler(w, ho)
	} else {
		h.Handler = slog.NewTextHandler(w, ho)
	}
	return h, nil
}

func openOutput(output string, sink io.Writer) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "buffer":
		if sink == nil {
			return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "clog: buffer output without a sink")
		}
		return sink, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, xerrors.Wrapf(err, "clog: open %s", output)
	}
	return f, nil
}

// rewriteAttr 输出大写级别名、毫秒精度时间，并把 source 压缩为 caller=file:line
func rewriteAttr(sourceRoot string) func([]string, slog.Attr) slog.Attr {
	return func(_ []string, a slog.Attr) slog.Attr {
		switch a.Key {
		case slog.LevelKey:
			if sl, ok := a.Value.Any().(slog.Level); ok {
				a.Value = slog.StringValue(levelName(sl))
			}
		case slog.TimeKey:
			if a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().Format(timeFormat))
			}
		case slog.SourceKey:
			if src, ok := a.Value.Any().(*slog.Source); ok {
				return slog.String("caller", trimSourcePath(src.File, sourceRoot)+":"+strconv.Itoa(src.Line))
			}
		}
		return a
	}
}

// trimSourcePath 优先取相对 sourceRoot 的路径，其次从模块名 flake/ 开始截取
func trimSourcePath(file, sourceRoot string) string {
	if sourceRoot != "" {
		if rel, err := filepath.Rel(sourceRoot, file); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	if i := strings.Index(file, "flake/"); i >= 0 {
		return file[i:]
	}
	return file
}
