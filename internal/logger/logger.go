package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level     slog.Level
	Format    string
	Output    io.Writer
	AddSource bool

	// File, when set, replaces Output with a rotating log file.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func DefaultConfig() Config {
	return Config{
		Level:      slog.LevelInfo,
		Format:     "text",
		Output:     os.Stderr,
		AddSource:  false,
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
}

// Init installs the default slog logger. The returned closer releases the
// log file, if any.
func Init(cfg Config) io.Closer {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	out := cfg.Output
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		out = lj
		closer = lj
	}
	if out == nil {
		out = os.Stderr
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	slog.SetDefault(slog.New(handler))
	return closer
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func Debug(msg string, args ...any) { slog.Debug(msg, args...) }
func Info(msg string, args ...any)  { slog.Info(msg, args...) }
func Warn(msg string, args ...any)  { slog.Warn(msg, args...) }
func Error(msg string, args ...any) { slog.Error(msg, args...) }

// ForComponent returns a logger tagged with component. It resolves the
// default handler on every record, so package-level loggers created before
// Init still follow it.
func ForComponent(component string) *slog.Logger {
	return slog.New(deferredHandler{attrs: []slog.Attr{slog.String("component", component)}})
}

type deferredHandler struct {
	attrs []slog.Attr
	group string
}

func (h deferredHandler) resolve() slog.Handler {
	handler := slog.Default().Handler()
	if len(h.attrs) > 0 {
		handler = handler.WithAttrs(h.attrs)
	}
	if h.group != "" {
		handler = handler.WithGroup(h.group)
	}
	return handler
}

func (h deferredHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.resolve().Enabled(ctx, level)
}

func (h deferredHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.resolve().Handle(ctx, r)
}

func (h deferredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if h.group != "" {
		return h.resolve().WithAttrs(attrs)
	}
	return deferredHandler{attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...)}
}

func (h deferredHandler) WithGroup(name string) slog.Handler {
	if h.group != "" {
		return h.resolve().WithGroup(name)
	}
	return deferredHandler{attrs: h.attrs, group: name}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
